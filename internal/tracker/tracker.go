// Package tracker implements per-project compilation trackers: the nodes a
// workspace snapshot hangs its incremental state on. A tracker pairs one
// project state with a build-once memo of the compiled unit, remembers how
// the state diverged from its parent so the next build can replay the edit
// instead of recompiling, owns the skeleton cache its dependents compile
// against, and can be frozen under a replacement set of generated documents
// for consistent-prefix queries.
//
// Trackers are immutable: forking produces a new tracker, never mutates an
// existing one. The only internal mutation is the memo install, and that is
// a single compare-and-swap.
package tracker

import (
	"context"

	"ripple/internal/diag"
	"ripple/internal/gen"
	"ripple/internal/project"
	"ripple/internal/skeleton"
	"ripple/internal/symbols"
	"ripple/internal/unit"
)

// Compiler turns authored project state plus resolved references into a
// compiled unit. The declc front end supplies the production
// implementation. CompileFrom must be deterministic for equal inputs; the
// tracker memoizes exactly one result per state.
type Compiler interface {
	CompileFrom(ctx context.Context, st *project.State, refs []*unit.ExternalRef) (*unit.Unit, error)
}

// GeneratorHost runs the registered generator pass over a state.
// *gen.Runner is the production implementation.
type GeneratorHost interface {
	Run(ctx context.Context, st *project.State, maxDiags int) (*gen.Result, error)
}

// SnapshotContext supplies a tracker with everything outside its own
// project: the compiler, the generator host, and resolution of external
// references. A context is scoped to one snapshot; reference resolution
// must answer from that snapshot's trackers, never from a newer one.
type SnapshotContext interface {
	Compiler() Compiler
	Generators() GeneratorHost
	// MaxDiagnostics bounds per-pass diagnostic bags.
	MaxDiagnostics() int
	// ResolveProjectReference returns the skeleton image of the referenced
	// project under the reference's options. A nil image with a nil error
	// means the dependency cannot produce one (it has errors); the
	// depending unit compiles without it.
	ResolveProjectReference(ctx context.Context, ref project.ProjectReference) (*skeleton.Reference, error)
	// ResolveModuleReference returns the prebuilt module for a manifest
	// reference, nil when the workspace has no such module.
	ResolveModuleReference(ctx context.Context, ref project.ModuleReference) (*symbols.Module, error)
}

// Tracker is one project's compilation node inside a snapshot.
type Tracker interface {
	// ProjectState is the authored state the tracker compiles. Cheap,
	// never builds.
	ProjectState() *project.State

	// GetCompiledUnit returns the memoized unit, building it on first
	// call. Concurrent callers race benignly: every loser discards its
	// own result and adopts the installed one. Errors propagate without
	// being memoized, so a later call retries.
	GetCompiledUnit(ctx context.Context, sc SnapshotContext) (*unit.Unit, error)

	// GeneratedDocuments returns the generator outputs for this tracker's
	// state plus the pass diagnostics. withOverlays forces replacement
	// sets of frozen views into the answer; a regular tracker ignores it.
	GeneratedDocuments(ctx context.Context, sc SnapshotContext, withOverlays bool) (*project.GeneratedSet, *diag.Bag, error)

	// HostRunResult hands out host-side data of the genuine generator
	// run. Frozen views refuse: their documents correspond to no run.
	HostRunResult(ctx context.Context, sc SnapshotContext) (*gen.RunResult, error)

	// HasSuccessfullyLoaded reports whether every external reference
	// resolved to a module when the unit was built.
	HasSuccessfullyLoaded(ctx context.Context, sc SnapshotContext) (bool, error)

	// ContainsModuleOrDynamic locates a symbol's defining module relative
	// to this tracker's unit.
	ContainsModuleOrDynamic(ctx context.Context, sc SnapshotContext, sym *symbols.Symbol) (unit.Origin, bool, error)

	// Fork derives the tracker for a changed state. The action describes
	// the change; a nil action means "unrelated state, recompile".
	Fork(st *project.State, action Action) Tracker

	// WithReplacementDocumentStates returns a frozen view whose generated
	// documents are pinned to repl. Pinning again replaces the previous
	// pin outright; sets are never merged.
	WithReplacementDocumentStates(repl *project.GeneratedSet) Tracker

	// SkeletonReference builds or returns the cached metadata image of
	// this tracker's unit. At most one build runs per option set; clones
	// of the snapshot share completed images.
	SkeletonReference(ctx context.Context, sc SnapshotContext, opts project.RefOptions) (*skeleton.Reference, error)
}
