package skeleton

import (
	"context"
	"sync"

	"ripple/internal/project"
	"ripple/internal/source"
)

// BuildFunc produces a skeleton image. A nil Reference with a nil error
// means the source unit cannot produce an image (it has errors); that
// outcome is cached as final for the unit it was computed from. A non-nil
// error is transient and never cached.
type BuildFunc func(ctx context.Context) (*Reference, error)

// Cache keys skeleton images by reference options and guarantees at most
// one build per options and source fingerprint. Concurrent requests for
// the same key share the in-flight build; a caller whose context dies
// stops waiting without cancelling the build for everyone else. Entries
// remember the source fingerprint they were built from, so entries cloned
// into a forked tracker miss once the fork's unit differs and are rebuilt
// in place.
type Cache struct {
	mu       sync.Mutex
	entries  map[project.RefOptions]entry
	inflight map[buildKey]*inflight
}

type entry struct {
	ref *Reference
	fp  source.Digest
}

// buildKey pins an in-flight build to the fingerprint it was started for:
// a caller presenting a fresher fingerprint starts its own build instead
// of joining a stale one.
type buildKey struct {
	opts project.RefOptions
	fp   source.Digest
}

type inflight struct {
	done chan struct{}
	ref  *Reference
	err  error
}

func NewCache() *Cache {
	return &Cache{
		entries:  make(map[project.RefOptions]entry),
		inflight: make(map[buildKey]*inflight),
	}
}

// GetOrBuild returns the image for key, running build at most once per
// key and fingerprint across all callers. fp pins the source the image
// must describe; an entry carried over from a fork of an older unit
// misses, and an in-flight build for an older fingerprint is not joined.
// The build runs
// detached from any caller's context: cancelling an awaiter abandons the
// wait, not the work.
func (c *Cache) GetOrBuild(ctx context.Context, key project.RefOptions, fp source.Digest, build BuildFunc) (*Reference, error) {
	bk := buildKey{opts: key, fp: fp}
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && e.fp == fp {
		c.mu.Unlock()
		return e.ref, nil
	}
	if fl, ok := c.inflight[bk]; ok {
		c.mu.Unlock()
		return awaitInflight(ctx, fl)
	}
	fl := &inflight{done: make(chan struct{})}
	c.inflight[bk] = fl
	c.mu.Unlock()

	go c.run(context.WithoutCancel(ctx), bk, fl, build)
	return awaitInflight(ctx, fl)
}

func (c *Cache) run(ctx context.Context, bk buildKey, fl *inflight, build BuildFunc) {
	ref, err := build(ctx)
	c.mu.Lock()
	if err == nil {
		// nil ref тоже финальный результат: образа не будет
		c.entries[bk.opts] = entry{ref: ref, fp: bk.fp}
	}
	delete(c.inflight, bk)
	c.mu.Unlock()
	fl.ref, fl.err = ref, err
	close(fl.done)
}

func awaitInflight(ctx context.Context, fl *inflight) (*Reference, error) {
	select {
	case <-fl.done:
		return fl.ref, fl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peek returns the completed image for key without triggering a build.
func (c *Cache) Peek(key project.RefOptions) (*Reference, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e.ref, ok
}

// Len counts completed entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clone copies the completed entries into a fresh cache. In-flight
// builds are not carried over: the clone starts its own builds and
// never waits on work it did not request.
func (c *Cache) Clone() *Cache {
	n := NewCache()
	c.mu.Lock()
	for k, v := range c.entries {
		n.entries[k] = v
	}
	c.mu.Unlock()
	return n
}
