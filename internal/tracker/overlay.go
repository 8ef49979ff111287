package tracker

import (
	"context"
	"fmt"
	"sync/atomic"

	"ripple/internal/diag"
	"ripple/internal/gen"
	"ripple/internal/project"
	"ripple/internal/skeleton"
	"ripple/internal/symbols"
	"ripple/internal/syntax"
	"ripple/internal/unit"
)

// FrozenOverlay presents the compiled unit of its underlying tracker with
// a fixed set of generated documents pinned to caller-chosen content. The
// live generator may produce different output for those documents, or none
// at all: a pinned document whose live counterpart is gone comes back as a
// tree anyway, marked stale, trading semantic validity for usability.
type FrozenOverlay struct {
	under Tracker
	repl  *project.GeneratedSet

	memo  atomic.Pointer[unit.Unit]
	skels *skeleton.Cache
}

func newFrozenOverlay(under Tracker, repl *project.GeneratedSet, skels *skeleton.Cache) *FrozenOverlay {
	if repl == nil {
		repl = project.NewGeneratedSet()
	}
	if skels == nil {
		skels = skeleton.NewCache()
	}
	return &FrozenOverlay{
		under: under,
		repl:  repl,
		skels: skels,
	}
}

func (o *FrozenOverlay) ProjectState() *project.State { return o.under.ProjectState() }

// Fork delegates to the underlying tracker and rewraps its result under
// the same replacement set. Completed skeleton images carry over like in
// Regular.Fork; entries built from an older unit miss on fingerprint.
func (o *FrozenOverlay) Fork(st *project.State, action Action) Tracker {
	return newFrozenOverlay(o.under.Fork(st, action), o.repl, o.skels.Clone())
}

// WithReplacementDocumentStates swaps the pinned set outright. The new
// overlay wraps the same underlying tracker; the previous set is not
// merged in.
func (o *FrozenOverlay) WithReplacementDocumentStates(repl *project.GeneratedSet) Tracker {
	return newFrozenOverlay(o.under, repl, o.skels.Clone())
}

func (o *FrozenOverlay) GetCompiledUnit(ctx context.Context, sc SnapshotContext) (*unit.Unit, error) {
	if u := o.memo.Load(); u != nil {
		return u, nil
	}
	u, err := o.build(ctx, sc)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !o.memo.CompareAndSwap(nil, u) {
		u = o.memo.Load()
	}
	return u, nil
}

// build forces full generation below (every nested overlay resolved),
// then rewrites the underlying unit tree by tree.
func (o *FrozenOverlay) build(ctx context.Context, sc SnapshotContext) (*unit.Unit, error) {
	docs, _, err := o.under.GeneratedDocuments(ctx, sc, true)
	if err != nil {
		return nil, err
	}
	u, err := o.under.GetCompiledUnit(ctx, sc)
	if err != nil {
		return nil, err
	}

	for _, rd := range o.repl.All() {
		cur, live := docs.Get(rd.ID)
		if live {
			if cur.Text.Hash == rd.Text.Hash {
				// живой документ уже с нужным содержимым
				continue
			}
			old, ok := u.TreeFor(rd.ID)
			if !ok {
				panic(fmt.Errorf("overlay %s: generated document %s has no tree in the underlying unit", o.ProjectState().Name(), rd.ID.Short()))
			}
			u, err = u.ReplaceSyntaxTree(ctx, old, syntax.NewTree(rd.ID, rd.Text))
			if err != nil {
				return nil, err
			}
			continue
		}
		// документ удалён внизу: возвращаем его дерево и помечаем устаревшим
		u, err = u.AddSyntaxTrees(ctx, syntax.NewTree(rd.ID, rd.Text))
		if err != nil {
			return nil, err
		}
		u = u.WithStale(rd.ID)
	}
	return u, nil
}

// GeneratedDocuments only overlays when the caller opts in: live documents
// present in both sets are swapped for the pinned version, pinned documents
// missing below are appended. Diagnostics pass through unmodified; the
// overlay never touches generator inputs, so diagnostic identity is
// unaffected.
func (o *FrozenOverlay) GeneratedDocuments(ctx context.Context, sc SnapshotContext, withOverlays bool) (*project.GeneratedSet, *diag.Bag, error) {
	docs, diags, err := o.under.GeneratedDocuments(ctx, sc, withOverlays)
	if err != nil {
		return nil, nil, err
	}
	if !withOverlays {
		return docs, diags, nil
	}
	for _, rd := range o.repl.All() {
		docs = docs.WithReplaced(rd)
	}
	return docs, diags, nil
}

// HostRunResult refuses: the pinned documents correspond to no genuine
// generator run, and stale host data is worse than none.
func (o *FrozenOverlay) HostRunResult(context.Context, SnapshotContext) (*gen.RunResult, error) {
	return nil, fmt.Errorf("frozen overlay of %s: host run results are only available from a genuine generator run", o.ProjectState().Name())
}

func (o *FrozenOverlay) HasSuccessfullyLoaded(ctx context.Context, sc SnapshotContext) (bool, error) {
	return o.under.HasSuccessfullyLoaded(ctx, sc)
}

// ContainsModuleOrDynamic delegates below: pinned generated content never
// changes the reference set, and module identity matching tolerates the
// rebound instance.
func (o *FrozenOverlay) ContainsModuleOrDynamic(ctx context.Context, sc SnapshotContext, sym *symbols.Symbol) (unit.Origin, bool, error) {
	return o.under.ContainsModuleOrDynamic(ctx, sc, sym)
}

// SkeletonReference images the overlaid unit, not the underlying one:
// dependents compiling against a frozen view must see the pinned surface.
func (o *FrozenOverlay) SkeletonReference(ctx context.Context, sc SnapshotContext, opts project.RefOptions) (*skeleton.Reference, error) {
	u, err := o.GetCompiledUnit(ctx, sc)
	if err != nil {
		return nil, err
	}
	fp := u.Fingerprint()
	return o.skels.GetOrBuild(ctx, opts, fp, func(context.Context) (*skeleton.Reference, error) {
		return skeleton.Emit(u, opts), nil
	})
}
