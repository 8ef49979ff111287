// Package workspace ties the engine together: a Host owns the per-process
// collaborators (compile front end, generator runner, external module
// registry, optional persistent skeleton store), and immutable Snapshots
// derived from it map every project to its state and compilation tracker.
// Edits fork snapshots; builds fan out over the project dependency graph.
package workspace

import (
	"fmt"
	"sync"

	"ripple/internal/gen"
	"ripple/internal/project"
	"ripple/internal/skeleton"
	"ripple/internal/source"
	"ripple/internal/symbols"
	"ripple/internal/tracker"
)

// DefaultMaxDiagnostics bounds per-project diagnostic bags when the host
// options leave the limit unset.
const DefaultMaxDiagnostics = 256

// HostOptions configures a Host.
type HostOptions struct {
	// Compiler is the front end trackers compile through. Required.
	Compiler tracker.Compiler
	// Generators executes the generator pass. Optional; an empty runner
	// is used when nil.
	Generators *gen.Runner
	// MaxDiagnostics caps every diagnostic bag the workspace allocates.
	MaxDiagnostics int
	// Disk persists skeleton images of exported modules across runs.
	// Optional.
	Disk *skeleton.DiskCache
}

// Host owns the collaborators every snapshot consults. Hosts are safe for
// concurrent use; the module registry is the only mutable part.
type Host struct {
	compiler tracker.Compiler
	gens     *gen.Runner
	maxDiags int
	disk     *skeleton.DiskCache

	mu      sync.RWMutex
	modules map[string]*symbols.Module
}

func NewHost(opts HostOptions) (*Host, error) {
	if opts.Compiler == nil {
		return nil, fmt.Errorf("workspace: host requires a compiler")
	}
	gens := opts.Generators
	if gens == nil {
		gens = gen.NewRunner()
	}
	maxDiags := opts.MaxDiagnostics
	if maxDiags <= 0 {
		maxDiags = DefaultMaxDiagnostics
	}
	return &Host{
		compiler: opts.Compiler,
		gens:     gens,
		maxDiags: maxDiags,
		disk:     opts.Disk,
		modules:  make(map[string]*symbols.Module),
	}, nil
}

// RegisterModule publishes a prebuilt module under its reference identity
// for the current process only.
func (h *Host) RegisterModule(ref project.ModuleReference, mod *symbols.Module) {
	if mod == nil {
		return
	}
	h.mu.Lock()
	h.modules[ref.ID()] = mod
	h.mu.Unlock()
}

// StoreModule publishes a skeleton image as a prebuilt module and, when a
// disk store is configured, persists it so later processes resolve the
// same reference without the defining workspace.
func (h *Host) StoreModule(ref project.ModuleReference, img *skeleton.Reference) error {
	if img == nil {
		return fmt.Errorf("workspace: no image to store for module %s", ref.ID())
	}
	h.RegisterModule(ref, img.Module)
	if h.disk == nil {
		return nil
	}
	if err := h.disk.Put(moduleKey(ref), img); err != nil {
		return fmt.Errorf("store module %s: %w", ref.ID(), err)
	}
	return nil
}

// resolveModule serves a manifest module reference: registry first, disk
// second. A miss is (nil, nil); the tracker records it as not loaded.
func (h *Host) resolveModule(ref project.ModuleReference) (*symbols.Module, error) {
	h.mu.RLock()
	mod := h.modules[ref.ID()]
	h.mu.RUnlock()
	if mod != nil {
		return mod, nil
	}
	if h.disk == nil {
		return nil, nil
	}
	img, ok, err := h.disk.Get(moduleKey(ref))
	if err != nil {
		return nil, fmt.Errorf("resolve module %s: %w", ref.ID(), err)
	}
	if !ok || img == nil {
		return nil, nil
	}
	h.RegisterModule(ref, img.Module)
	return img.Module, nil
}

// moduleKey digests a module identity into the disk store key space.
func moduleKey(ref project.ModuleReference) source.Digest {
	return source.Combine(source.DigestOfString("module"), source.DigestOfString(ref.ID()))
}
