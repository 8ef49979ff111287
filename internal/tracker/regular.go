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
	"ripple/internal/trace"
	"ripple/internal/unit"
)

// built bundles everything one successful build produces. The memo installs
// it as a whole, so readers never observe a half-built tracker.
type built struct {
	// base is compiled from authored documents only; descendants replay
	// their actions against it.
	base *unit.Unit
	// final is base plus the generated document trees.
	final *unit.Unit
	// gen is the generator pass outcome final was assembled from.
	gen *gen.Result
	// loaded records whether every external reference resolved.
	loaded bool
}

// Regular is the standard per-project tracker. Values are immutable apart
// from the single memo install; Fork derives children, never mutates the
// receiver. The fork chain is forward-only: children point at parents,
// parents know nothing of children, and an abandoned branch is plain
// garbage.
type Regular struct {
	state  *project.State
	parent *Regular
	action Action

	memo  atomic.Pointer[built]
	skels *skeleton.Cache
}

// NewRegular roots a fresh tracker chain at st.
func NewRegular(st *project.State) *Regular {
	if st == nil {
		panic(fmt.Errorf("tracker: nil project state"))
	}
	return &Regular{state: st, skels: skeleton.NewCache()}
}

func (r *Regular) ProjectState() *project.State { return r.state }

// Fork derives the tracker for a changed state. Completed skeleton images
// carry over by value; the memoized unit does not.
func (r *Regular) Fork(st *project.State, action Action) Tracker {
	if st == nil {
		panic(fmt.Errorf("tracker %s: fork onto nil state", r.state.Name()))
	}
	return &Regular{
		state:  st,
		parent: r,
		action: action,
		skels:  r.skels.Clone(),
	}
}

// WithReplacementDocumentStates pins generated documents to caller-chosen
// content. See FrozenOverlay.
func (r *Regular) WithReplacementDocumentStates(repl *project.GeneratedSet) Tracker {
	return newFrozenOverlay(r, repl, r.skels.Clone())
}

func (r *Regular) GetCompiledUnit(ctx context.Context, sc SnapshotContext) (*unit.Unit, error) {
	b, err := r.getOrBuild(ctx, sc)
	if err != nil {
		return nil, err
	}
	return b.final, nil
}

func (r *Regular) GeneratedDocuments(ctx context.Context, sc SnapshotContext, _ bool) (*project.GeneratedSet, *diag.Bag, error) {
	b, err := r.getOrBuild(ctx, sc)
	if err != nil {
		return nil, nil, err
	}
	return b.gen.Docs, b.gen.Diags, nil
}

func (r *Regular) HostRunResult(ctx context.Context, sc SnapshotContext) (*gen.RunResult, error) {
	b, err := r.getOrBuild(ctx, sc)
	if err != nil {
		return nil, err
	}
	return b.gen.Host, nil
}

func (r *Regular) HasSuccessfullyLoaded(ctx context.Context, sc SnapshotContext) (bool, error) {
	b, err := r.getOrBuild(ctx, sc)
	if err != nil {
		return false, err
	}
	return b.loaded, nil
}

func (r *Regular) ContainsModuleOrDynamic(ctx context.Context, sc SnapshotContext, sym *symbols.Symbol) (unit.Origin, bool, error) {
	b, err := r.getOrBuild(ctx, sc)
	if err != nil {
		return unit.Origin{}, false, err
	}
	origin, ok := b.final.ContainsModuleOrDynamic(sym)
	return origin, ok, nil
}

// SkeletonReference builds or reuses the metadata image of this tracker's
// unit. The cache key is the option set; the unit fingerprint guards
// entries inherited from a forked ancestor.
func (r *Regular) SkeletonReference(ctx context.Context, sc SnapshotContext, opts project.RefOptions) (*skeleton.Reference, error) {
	u, err := r.GetCompiledUnit(ctx, sc)
	if err != nil {
		return nil, err
	}
	fp := u.Fingerprint()
	return r.skels.GetOrBuild(ctx, opts, fp, func(context.Context) (*skeleton.Reference, error) {
		return skeleton.Emit(u, opts), nil
	})
}

// getOrBuild returns the memoized build, racing to install one when
// absent. Only a successful, uncancelled build installs; failures and
// cancellations leave the memo empty so a later caller retries.
func (r *Regular) getOrBuild(ctx context.Context, sc SnapshotContext) (*built, error) {
	if b := r.memo.Load(); b != nil {
		return b, nil
	}
	b, err := r.build(ctx, sc)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		// отменённый билд не публикуем
		return nil, err
	}
	if !r.memo.CompareAndSwap(nil, b) {
		// гонка: принимаем результат победителя, свой выбрасываем
		b = r.memo.Load()
	}
	return b, nil
}

func (r *Regular) build(ctx context.Context, sc SnapshotContext) (*built, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeModule, "tracker_build", 0)
	span.WithExtra("project", r.state.Name())
	mode := "fresh"
	defer func() {
		span.End(mode)
	}()

	refs, loaded, err := r.resolveReferences(ctx, sc)
	if err != nil {
		return nil, err
	}

	genRes, err := sc.Generators().Run(ctx, r.state, sc.MaxDiagnostics())
	if err != nil {
		return nil, err
	}

	base, replayed, err := r.baseUnit(ctx, sc, refs)
	if err != nil {
		return nil, err
	}
	if replayed >= 0 {
		mode = fmt.Sprintf("replay actions=%d", replayed)
	}
	if got, want := len(base.Trees()), r.state.Documents().Len(); got != want {
		panic(fmt.Errorf("tracker %s: base unit has %d trees for %d documents", r.state.Name(), got, want))
	}

	final := base
	if genRes.Docs.Len() > 0 {
		trees := make([]*syntax.Tree, 0, genRes.Docs.Len())
		for _, d := range genRes.Docs.All() {
			trees = append(trees, syntax.NewTree(d.ID, d.Text))
		}
		final, err = base.AddSyntaxTrees(ctx, trees...)
		if err != nil {
			return nil, err
		}
	}

	return &built{base: base, final: final, gen: genRes, loaded: loaded}, nil
}

// baseUnit compiles the authored documents, replaying the action chain
// from the nearest memoized ancestor when every link is incremental.
// replayed is -1 for a fresh compile, else the number of actions applied.
func (r *Regular) baseUnit(ctx context.Context, sc SnapshotContext, refs []*unit.ExternalRef) (*unit.Unit, int, error) {
	var chain []Action
	for cur := r; ; {
		act := cur.action
		if act == nil || !act.Incremental() || cur.parent == nil {
			break
		}
		chain = append(chain, act)
		cur = cur.parent
		if b := cur.memo.Load(); b != nil {
			u, err := replayChain(ctx, b.base, chain)
			if err != nil {
				return nil, 0, err
			}
			if !sameRefs(u.ExternalModuleReferences(), refs) {
				// цепочка не покрыла смену ссылок: компилируем заново
				break
			}
			return u, len(chain), nil
		}
	}
	u, err := sc.Compiler().CompileFrom(ctx, r.state, refs)
	if err != nil {
		return nil, 0, err
	}
	return u, -1, nil
}

// replayChain applies actions oldest first; the caller collected them
// newest first while walking up the ancestry.
func replayChain(ctx context.Context, base *unit.Unit, chain []Action) (*unit.Unit, error) {
	u := base
	for i := len(chain) - 1; i >= 0; i-- {
		next, err := chain[i].Apply(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", chain[i], err)
		}
		u = next
	}
	return u, nil
}

func sameRefs(a []*unit.ExternalRef, b []*unit.ExternalRef) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].String() != b[i].String() {
			return false
		}
	}
	return true
}

// resolveReferences asks the snapshot for every external reference of the
// state. A reference the snapshot cannot supply is skipped and recorded in
// the loaded flag; the unit still compiles against the rest.
func (r *Regular) resolveReferences(ctx context.Context, sc SnapshotContext) ([]*unit.ExternalRef, bool, error) {
	st := r.state
	refs := make([]*unit.ExternalRef, 0, len(st.ProjectRefs())+len(st.ModuleRefs()))
	loaded := true
	for _, pr := range st.ProjectRefs() {
		img, err := sc.ResolveProjectReference(ctx, pr)
		if err != nil {
			return nil, false, err
		}
		if img == nil {
			loaded = false
			continue
		}
		refs = append(refs, &unit.ExternalRef{
			Module:  img.Module,
			Kind:    unit.RefSkeleton,
			Project: pr.Project,
			Options: pr.Options,
		})
	}
	for _, mr := range st.ModuleRefs() {
		mod, err := sc.ResolveModuleReference(ctx, mr)
		if err != nil {
			return nil, false, err
		}
		if mod == nil {
			loaded = false
			continue
		}
		refs = append(refs, &unit.ExternalRef{Module: mod, Kind: unit.RefManifest})
	}
	return refs, loaded, nil
}
