package skeleton

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"ripple/internal/project"
	"ripple/internal/source"
	"ripple/internal/symbols"
)

// Current schema version - increment when diskPayload format changes
const diskSchemaVersion uint16 = 1

// DiskCache хранит готовые скелеты по отпечатку исходного юнита на диске.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// diskPayload is the serialized form of a Reference: a flat module table
// with index-based references, so the in-memory closure round-trips
// without recursion limits.
type diskPayload struct {
	// Schema version for safe invalidation when format changes
	Schema uint16

	// Reference identity
	Source  string
	Embed   bool
	Aliases string

	Fingerprint source.Digest

	// Primary indexes the image module inside Modules
	Primary int
	Modules []diskModule
}

type diskModule struct {
	Name     string
	Version  string
	Refs     []int
	Forwards [][2]string
	Types    []diskType
	Funcs    []diskFunc
}

type diskType struct {
	// Container is the full metadata name of the enclosing type;
	// empty for namespace-level types.
	Container string
	// Name is the dotted path for namespace-level types, the plain
	// name for nested ones.
	Name   string
	Arity  int
	Access uint8
}

type diskFunc struct {
	Namespace string
	Name      string
	Arity     int
	Access    uint8
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDiskCacheAt opens a cache rooted at an explicit directory, for tests
// and for --cache-dir overrides.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the store's root directory.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key source.Digest) string {
	hexKey := hex.EncodeToString(key[:])
	// Для удобства читаемости/очистки — подкаталог "skels".
	return filepath.Join(c.dir, "skels", hexKey+".mp")
}

// Put serializes and writes a skeleton image to the disk cache.
func (c *DiskCache) Put(key source.Digest, ref *Reference) error {
	if c == nil || ref == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(referenceToDiskPayload(ref)); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// Атомарная замена
	return os.Rename(tmp, p)
}

// Get reads and rebuilds a skeleton image from the disk cache. A missing
// entry or a schema mismatch is a miss; a structurally broken payload is
// an error the caller should surface.
func (c *DiskCache) Get(key source.Digest) (*Reference, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := c.pathFor(key)
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			panic(closeErr)
		}
	}()
	var payload diskPayload
	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("decode skeleton payload: %w", err)
	}
	if payload.Schema != diskSchemaVersion {
		return nil, false, nil
	}
	ref, err := diskPayloadToReference(&payload)
	if err != nil {
		return nil, false, err
	}
	return ref, true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// тривиально: переименуем каталог и удалим в фоне
	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

// referenceToDiskPayload flattens the module closure into an indexed table.
func referenceToDiskPayload(ref *Reference) *diskPayload {
	index := make(map[*symbols.Module]int)
	var mods []diskModule

	var walk func(m *symbols.Module) int
	walk = func(m *symbols.Module) int {
		if i, ok := index[m]; ok {
			return i
		}
		i := len(mods)
		index[m] = i
		// резервируем слот до рекурсии
		mods = append(mods, diskModule{})

		rec := diskModule{Name: m.Name, Version: m.Version}
		rec.Forwards = m.Forwards()
		for _, r := range m.Refs() {
			rec.Refs = append(rec.Refs, walk(r))
		}
		for _, t := range m.Types() {
			tr := diskType{Arity: t.Arity, Access: uint8(t.Access)}
			if t.IsNested() {
				tr.Container = t.Container.FullMetadataName()
				tr.Name = t.Name
			} else {
				tr.Name = dottedName(t)
			}
			rec.Types = append(rec.Types, tr)
		}
		for _, fn := range m.Members() {
			if fn.Kind != symbols.KindFunction {
				continue
			}
			rec.Funcs = append(rec.Funcs, diskFunc{
				Namespace: namespacePath(fn),
				Name:      fn.Name,
				Arity:     fn.Arity,
				Access:    uint8(fn.Access),
			})
		}
		mods[i] = rec
		return i
	}

	primary := walk(ref.Module)
	return &diskPayload{
		Schema:      diskSchemaVersion,
		Source:      ref.Source.String(),
		Embed:       ref.Options.EmbedInteropTypes,
		Aliases:     ref.Options.Aliases,
		Fingerprint: ref.Fingerprint,
		Primary:     primary,
		Modules:     mods,
	}
}

// diskPayloadToReference rebuilds the module closure. Types were written
// in sorted metadata order, so containers come back before their nested
// types.
func diskPayloadToReference(p *diskPayload) (*Reference, error) {
	mods := make([]*symbols.Module, len(p.Modules))
	for i, rec := range p.Modules {
		mods[i] = symbols.NewModule(rec.Name, rec.Version)
	}
	for i, rec := range p.Modules {
		m := mods[i]
		for _, fwd := range rec.Forwards {
			m.AddForward(fwd[0], fwd[1])
		}
		for _, ri := range rec.Refs {
			if ri < 0 || ri >= len(mods) {
				return nil, fmt.Errorf("skeleton payload: ref index %d out of range", ri)
			}
			m.AddReference(mods[ri])
		}
		for _, t := range rec.Types {
			if t.Container == "" {
				m.DefineType(t.Name, t.Arity, symbols.Access(t.Access), false)
				continue
			}
			container := m.TypeByName(t.Container)
			if container == nil {
				return nil, fmt.Errorf("skeleton payload: nested type %q misses container %q", t.Name, t.Container)
			}
			m.DefineNested(container, t.Name, t.Arity, symbols.Access(t.Access), false)
		}
		for _, fn := range rec.Funcs {
			m.DefineFunc(fn.Namespace, fn.Name, fn.Arity, symbols.Access(fn.Access), false)
		}
	}
	if p.Primary < 0 || p.Primary >= len(mods) {
		return nil, fmt.Errorf("skeleton payload: primary index %d out of range", p.Primary)
	}
	src, err := project.ParseProjectID(p.Source)
	if err != nil {
		return nil, fmt.Errorf("skeleton payload: %w", err)
	}
	return &Reference{
		Module:      mods[p.Primary],
		Source:      src,
		Options:     project.RefOptions{EmbedInteropTypes: p.Embed, Aliases: p.Aliases},
		Fingerprint: p.Fingerprint,
	}, nil
}
