package skeleton

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ripple/internal/project"
	"ripple/internal/source"
	"ripple/internal/symbols"
)

func testRef(name string) *Reference {
	return &Reference{
		Module: symbols.NewModule(name, "1.0.0"),
		Source: project.DeriveProjectID(name),
	}
}

var fpOne = source.DigestOfString("unit-fp-1")

func TestCacheBuildsOnceUnderContention(t *testing.T) {
	c := NewCache()
	key := project.MakeRefOptions(false)
	ref := testRef("core")
	var builds atomic.Int32

	const callers = 50
	results := make([]*Reference, callers)
	errs := make([]error, callers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = c.GetOrBuild(context.Background(), key, fpOne, func(context.Context) (*Reference, error) {
				builds.Add(1)
				time.Sleep(time.Millisecond)
				return ref, nil
			})
		}(i)
	}
	close(start)
	wg.Wait()

	if got := builds.Load(); got != 1 {
		t.Fatalf("build ran %d times, want exactly 1", got)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != ref {
			t.Fatalf("caller %d got a different image", i)
		}
	}
	if c.Len() != 1 {
		t.Fatalf("cache holds %d entries, want 1", c.Len())
	}
}

func TestCacheFailureIsRetryable(t *testing.T) {
	c := NewCache()
	key := project.MakeRefOptions(true)
	boom := errors.New("unit build exploded")
	var builds atomic.Int32

	_, err := c.GetOrBuild(context.Background(), key, fpOne, func(context.Context) (*Reference, error) {
		builds.Add(1)
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want the build error", err)
	}
	if c.Len() != 0 {
		t.Fatalf("failed build must not be cached")
	}

	ref := testRef("core")
	got, err := c.GetOrBuild(context.Background(), key, fpOne, func(context.Context) (*Reference, error) {
		builds.Add(1)
		return ref, nil
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got != ref || builds.Load() != 2 {
		t.Fatalf("retry must run a fresh build (ran %d)", builds.Load())
	}
}

func TestCacheNilImageIsFinal(t *testing.T) {
	c := NewCache()
	key := project.RefOptions{}
	var builds atomic.Int32

	got, err := c.GetOrBuild(context.Background(), key, fpOne, func(context.Context) (*Reference, error) {
		builds.Add(1)
		return nil, nil
	})
	if err != nil || got != nil {
		t.Fatalf("got %v, %v; want nil image without error", got, err)
	}

	// «образа не будет» — окончательный ответ для этого отпечатка
	got, err = c.GetOrBuild(context.Background(), key, fpOne, func(context.Context) (*Reference, error) {
		builds.Add(1)
		return testRef("late"), nil
	})
	if err != nil || got != nil {
		t.Fatalf("second lookup = %v, %v; want cached nil", got, err)
	}
	if builds.Load() != 1 {
		t.Fatalf("build ran %d times, want 1", builds.Load())
	}
}

func TestCacheStaleFingerprintRebuilds(t *testing.T) {
	c := NewCache()
	key := project.MakeRefOptions(false)
	oldRef := testRef("core")
	newRef := testRef("core")
	fpTwo := source.DigestOfString("unit-fp-2")
	var builds atomic.Int32

	if _, err := c.GetOrBuild(context.Background(), key, fpOne, func(context.Context) (*Reference, error) {
		builds.Add(1)
		return oldRef, nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// тот же ключ, другой исходный юнит: запись устарела
	got, err := c.GetOrBuild(context.Background(), key, fpTwo, func(context.Context) (*Reference, error) {
		builds.Add(1)
		return newRef, nil
	})
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if got != newRef || builds.Load() != 2 {
		t.Fatalf("stale entry must rebuild (got old image: %v, builds %d)", got == oldRef, builds.Load())
	}

	// новая запись закрепилась
	got, err = c.GetOrBuild(context.Background(), key, fpTwo, func(context.Context) (*Reference, error) {
		builds.Add(1)
		return nil, errors.New("must not rebuild")
	})
	if err != nil || got != newRef || builds.Load() != 2 {
		t.Fatalf("fresh entry must be served (err %v, builds %d)", err, builds.Load())
	}
}

func TestCacheFreshFingerprintSkipsStaleInflightBuild(t *testing.T) {
	c := NewCache()
	key := project.MakeRefOptions(false)
	fpTwo := source.DigestOfString("unit-fp-2")
	oldRef := testRef("old")
	newRef := testRef("new")

	started := make(chan struct{})
	release := make(chan struct{})
	oldDone := make(chan struct{})
	var oldGot *Reference
	go func() {
		defer close(oldDone)
		oldGot, _ = c.GetOrBuild(context.Background(), key, fpOne, func(context.Context) (*Reference, error) {
			close(started)
			<-release
			return oldRef, nil
		})
	}()
	<-started

	// тот же ключ, свежий отпечаток: чужой висящий билд не наш
	got, err := c.GetOrBuild(context.Background(), key, fpTwo, func(context.Context) (*Reference, error) {
		return newRef, nil
	})
	if err != nil {
		t.Fatalf("fresh build: %v", err)
	}
	if got != newRef {
		t.Fatalf("caller with a fresh fingerprint joined the stale in-flight build")
	}

	close(release)
	<-oldDone
	if oldGot != oldRef {
		t.Fatalf("older awaiter lost its own build")
	}
}

func TestCacheCancelledAwaiterDoesNotCancelOthers(t *testing.T) {
	c := NewCache()
	key := project.MakeRefOptions(false, "alpha")
	ref := testRef("core")

	started := make(chan struct{})
	release := make(chan struct{})
	build := func(ctx context.Context) (*Reference, error) {
		close(started)
		<-release
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return ref, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrBuild(ctx, key, fpOne, build)
		firstErr <- err
	}()
	<-started

	// второй ожидающий со своим контекстом
	var otherRef *Reference
	var otherErr error
	otherDone := make(chan struct{})
	go func() {
		defer close(otherDone)
		otherRef, otherErr = c.GetOrBuild(context.Background(), key, fpOne, func(context.Context) (*Reference, error) {
			return nil, errors.New("must join the in-flight build")
		})
	}()

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled awaiter got %v, want context.Canceled", err)
	}

	close(release)
	<-otherDone
	if otherErr != nil {
		t.Fatalf("surviving awaiter: %v", otherErr)
	}
	if otherRef != ref {
		t.Fatalf("surviving awaiter got a different image")
	}

	// билд пережил отмену и результат установлен
	var rebuilds atomic.Int32
	got, err := c.GetOrBuild(context.Background(), key, fpOne, func(context.Context) (*Reference, error) {
		rebuilds.Add(1)
		return nil, errors.New("must not rebuild")
	})
	if err != nil || got != ref {
		t.Fatalf("lookup after cancel = %v, %v; want the built image", got, err)
	}
	if rebuilds.Load() != 0 {
		t.Fatalf("completed image was rebuilt")
	}
}

func TestCacheCloneSharesCompletedNotInflight(t *testing.T) {
	c := NewCache()
	done := project.MakeRefOptions(false)
	pending := project.MakeRefOptions(true)
	ref1 := testRef("core")

	if _, err := c.GetOrBuild(context.Background(), done, fpOne, func(context.Context) (*Reference, error) {
		return ref1, nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	origRef := testRef("orig")
	origDone := make(chan struct{})
	go func() {
		defer close(origDone)
		_, _ = c.GetOrBuild(context.Background(), pending, fpOne, func(context.Context) (*Reference, error) {
			close(started)
			<-release
			return origRef, nil
		})
	}()
	<-started

	clone := c.Clone()

	// завершённые записи общие
	var rebuilds atomic.Int32
	got, err := clone.GetOrBuild(context.Background(), done, fpOne, func(context.Context) (*Reference, error) {
		rebuilds.Add(1)
		return nil, errors.New("must not rebuild")
	})
	if err != nil || got != ref1 || rebuilds.Load() != 0 {
		t.Fatalf("clone lookup = %v, %v (rebuilds %d); want shared image", got, err, rebuilds.Load())
	}

	// незавершённый билд оригинала клону не виден: клон строит сам
	cloneRef := testRef("clone")
	got, err = clone.GetOrBuild(context.Background(), pending, fpOne, func(context.Context) (*Reference, error) {
		return cloneRef, nil
	})
	if err != nil {
		t.Fatalf("clone build: %v", err)
	}
	if got != cloneRef {
		t.Fatalf("clone waited on the original's in-flight build")
	}

	close(release)
	<-origDone
	if got, ok := c.Peek(pending); !ok || got != origRef {
		t.Fatalf("original cache lost its own build")
	}
}
