// Package unit models the compiled unit: the immutable semantic artifact
// produced by compiling one project's syntax trees against its external
// references. Units are values with structural identity; every mutation
// (replacing or adding a tree) produces a fresh unit and rebinds the
// semantic surface, so a replayed edit chain is equivalent to compiling
// the final state from scratch.
package unit

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"ripple/internal/diag"
	"ripple/internal/project"
	"ripple/internal/source"
	"ripple/internal/symbols"
	"ripple/internal/syntax"
)

// RefKind говорит, откуда пришла внешняя ссылка.
type RefKind uint8

const (
	// RefSkeleton is a metadata-only projection of another workspace project.
	RefSkeleton RefKind = iota
	// RefManifest is a prebuilt external module named in the manifest.
	RefManifest
)

// ExternalRef is one direct external module reference of a unit.
type ExternalRef struct {
	Module  *symbols.Module
	Kind    RefKind
	Project project.ProjectID // valid when Kind == RefSkeleton
	Options project.RefOptions
}

func (r *ExternalRef) String() string {
	kind := "module"
	if r.Kind == RefSkeleton {
		kind = "skeleton"
	}
	if r.Options == (project.RefOptions{}) {
		return kind + ":" + r.Module.ID()
	}
	return kind + ":" + r.Module.ID() + " (" + r.Options.String() + ")"
}

// Binder recomputes a unit's semantic surface after its tree set changes.
// The declc front end supplies the production implementation; tests plug
// fakes. Bind must be deterministic and side-effect free: the tracker runs
// it redundantly under races and discards all but one result.
type Binder interface {
	Bind(ctx context.Context, proj project.ProjectID, trees []*syntax.Tree, refs []*ExternalRef) (*symbols.Module, *diag.Bag, error)
}

// Unit is an immutable compiled unit.
type Unit struct {
	proj         project.ProjectID
	allowDynamic bool
	trees        []*syntax.Tree
	module       *symbols.Module
	refs         []*ExternalRef
	diags        *diag.Bag
	stale        map[source.DocumentID]bool
	binder       Binder
}

// Config assembles a freshly compiled unit. Module and Binder are
// mandatory; a nil value is a defect in the compiling layer.
type Config struct {
	Project      project.ProjectID
	AllowDynamic bool
	Trees        []*syntax.Tree
	Module       *symbols.Module
	Refs         []*ExternalRef
	Diags        *diag.Bag
	Binder       Binder
}

func New(cfg Config) *Unit {
	if cfg.Module == nil {
		panic(fmt.Errorf("unit: nil module for project %s", cfg.Project.Short()))
	}
	if cfg.Binder == nil {
		panic(fmt.Errorf("unit: nil binder for project %s", cfg.Project.Short()))
	}
	diags := cfg.Diags
	if diags == nil {
		diags = diag.NewBag(128)
	}
	return &Unit{
		proj:         cfg.Project,
		allowDynamic: cfg.AllowDynamic,
		trees:        append([]*syntax.Tree(nil), cfg.Trees...),
		module:       cfg.Module,
		refs:         append([]*ExternalRef(nil), cfg.Refs...),
		diags:        diags,
		binder:       cfg.Binder,
	}
}

func (u *Unit) Project() project.ProjectID { return u.proj }
func (u *Unit) Module() *symbols.Module    { return u.module }
func (u *Unit) Diagnostics() *diag.Bag     { return u.diags }

// Trees возвращает read-only slice деревьев в порядке компиляции.
func (u *Unit) Trees() []*syntax.Tree { return u.trees }

// ExternalModuleReferences lists the unit's direct external references.
func (u *Unit) ExternalModuleReferences() []*ExternalRef { return u.refs }

// TreeFor returns the tree compiled for the given document.
func (u *Unit) TreeFor(doc source.DocumentID) (*syntax.Tree, bool) {
	for _, t := range u.trees {
		if t.Doc == doc {
			return t, true
		}
	}
	return nil, false
}

// HasTree reports whether exactly this tree instance is part of the unit.
func (u *Unit) HasTree(tree *syntax.Tree) bool {
	for _, t := range u.trees {
		if t == tree {
			return true
		}
	}
	return false
}

// ReplaceSyntaxTree returns a unit with old swapped for repl in place,
// semantic surface rebound. Trees are matched by pointer identity; a tree
// that is not part of the unit is an error.
func (u *Unit) ReplaceSyntaxTree(ctx context.Context, old, repl *syntax.Tree) (*Unit, error) {
	if old == nil || repl == nil {
		return nil, fmt.Errorf("unit %s: replace with nil tree", u.proj.Short())
	}
	if old == repl {
		return u, nil
	}
	idx := -1
	for i, t := range u.trees {
		if t == old {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("unit %s: tree for document %s is not part of the unit", u.proj.Short(), old.Doc.Short())
	}
	trees := make([]*syntax.Tree, len(u.trees))
	copy(trees, u.trees)
	trees[idx] = repl
	return u.rebind(ctx, trees)
}

// AddSyntaxTrees returns a unit with the trees appended in argument order,
// semantic surface rebound.
func (u *Unit) AddSyntaxTrees(ctx context.Context, added ...*syntax.Tree) (*Unit, error) {
	if len(added) == 0 {
		return u, nil
	}
	seen := make(map[*syntax.Tree]bool, len(u.trees)+len(added))
	for _, t := range u.trees {
		seen[t] = true
	}
	trees := make([]*syntax.Tree, len(u.trees), len(u.trees)+len(added))
	copy(trees, u.trees)
	for _, t := range added {
		if t == nil {
			return nil, fmt.Errorf("unit %s: add nil tree", u.proj.Short())
		}
		if seen[t] {
			return nil, fmt.Errorf("unit %s: tree for document %s is already part of the unit", u.proj.Short(), t.Doc.Short())
		}
		seen[t] = true
		trees = append(trees, t)
	}
	return u.rebind(ctx, trees)
}

// RemoveSyntaxTrees returns a unit with the trees removed, semantic surface
// rebound. Trees are matched by pointer identity, like replacement.
func (u *Unit) RemoveSyntaxTrees(ctx context.Context, removed ...*syntax.Tree) (*Unit, error) {
	if len(removed) == 0 {
		return u, nil
	}
	drop := make(map[*syntax.Tree]bool, len(removed))
	for _, t := range removed {
		if t == nil {
			return nil, fmt.Errorf("unit %s: remove nil tree", u.proj.Short())
		}
		if !u.HasTree(t) {
			return nil, fmt.Errorf("unit %s: tree for document %s is not part of the unit", u.proj.Short(), t.Doc.Short())
		}
		drop[t] = true
	}
	trees := make([]*syntax.Tree, 0, len(u.trees)-len(removed))
	for _, t := range u.trees {
		if !drop[t] {
			trees = append(trees, t)
		}
	}
	return u.rebind(ctx, trees)
}

func (u *Unit) rebind(ctx context.Context, trees []*syntax.Tree) (*Unit, error) {
	module, diags, err := u.binder.Bind(ctx, u.proj, trees, u.refs)
	if err != nil {
		return nil, err
	}
	if module == nil {
		panic(fmt.Errorf("unit: binder returned nil module for project %s", u.proj.Short()))
	}
	if diags == nil {
		diags = diag.NewBag(128)
	}
	out := &Unit{
		proj:         u.proj,
		allowDynamic: u.allowDynamic,
		trees:        trees,
		module:       module,
		refs:         u.refs,
		diags:        diags,
		binder:       u.binder,
	}
	if len(u.stale) > 0 {
		out.stale = make(map[source.DocumentID]bool, len(u.stale))
		for id := range u.stale {
			out.stale[id] = true
		}
	}
	return out, nil
}

// WithStale marks documents whose content was reinstated from a frozen
// overlay after the live generator stopped producing them. Semantic results
// over such documents are best effort.
func (u *Unit) WithStale(ids ...source.DocumentID) *Unit {
	if len(ids) == 0 {
		return u
	}
	out := *u
	out.stale = make(map[source.DocumentID]bool, len(u.stale)+len(ids))
	for id := range u.stale {
		out.stale[id] = true
	}
	for _, id := range ids {
		out.stale[id] = true
	}
	return &out
}

func (u *Unit) IsStale(id source.DocumentID) bool {
	return u.stale[id]
}

// StaleDocs returns marked documents in a stable order.
func (u *Unit) StaleDocs() []source.DocumentID {
	if len(u.stale) == 0 {
		return nil
	}
	out := make([]source.DocumentID, 0, len(u.stale))
	for id := range u.stale {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// Roots returns every module reachable from the unit: its own module plus
// the transitive closure of external references. Computed per call, never
// cached beyond the query.
func (u *Unit) Roots() []*symbols.Module {
	seen := make(map[*symbols.Module]bool, 1+len(u.refs))
	out := make([]*symbols.Module, 0, 1+len(u.refs))
	var walk func(m *symbols.Module)
	walk = func(m *symbols.Module) {
		if m == nil || seen[m] {
			return
		}
		seen[m] = true
		out = append(out, m)
		for _, ref := range m.Refs() {
			walk(ref)
		}
	}
	walk(u.module)
	for _, r := range u.refs {
		walk(r.Module)
	}
	return out
}

// Origin reports where a symbol's defining module was found.
type Origin struct {
	// Dynamic means the symbol is the dynamic type itself.
	Dynamic bool
	// Self means the symbol is defined by this unit's own module.
	Self bool
	// Ref is the direct external reference that contributed the module.
	Ref *ExternalRef
}

// ContainsModuleOrDynamic reports whether the symbol originates from this
// unit's own module, from one of its direct external references, or is the
// dynamic type (contained only when the project's language options allow
// dynamic). Module instances are matched by pointer first, then by
// identity, so symbols observed through a sibling unit still resolve.
func (u *Unit) ContainsModuleOrDynamic(sym *symbols.Symbol) (Origin, bool) {
	if sym == nil {
		return Origin{}, false
	}
	if sym.Kind == symbols.KindDynamic {
		if !u.allowDynamic {
			return Origin{}, false
		}
		return Origin{Dynamic: true}, true
	}
	m := sym.Module
	if m == nil {
		return Origin{}, false
	}
	if m == u.module || m.SameIdentity(u.module) {
		return Origin{Self: true}, true
	}
	for _, r := range u.refs {
		if r.Module == m {
			return Origin{Ref: r}, true
		}
	}
	for _, r := range u.refs {
		if r.Module.SameIdentity(m) {
			return Origin{Ref: r}, true
		}
	}
	return Origin{}, false
}

// Fingerprint digests the unit's structural identity: project, language
// options, tree contents in order and reference identities. Equal
// fingerprints mean interchangeable units.
func (u *Unit) Fingerprint() source.Digest {
	parts := make([]source.Digest, 0, 2+len(u.trees)+len(u.refs))
	parts = append(parts, source.DigestOfString(u.proj.String()))
	if u.allowDynamic {
		parts = append(parts, source.DigestOfString("dynamic"))
	}
	for _, t := range u.trees {
		parts = append(parts, t.Digest())
	}
	for _, r := range u.refs {
		parts = append(parts, source.DigestOfString(r.String()))
	}
	return source.Combine(source.DigestOfString("unit"), parts...)
}
