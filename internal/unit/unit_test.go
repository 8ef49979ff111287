package unit

import (
	"context"
	"testing"

	"ripple/internal/diag"
	"ripple/internal/project"
	"ripple/internal/source"
	"ripple/internal/symbols"
	"ripple/internal/syntax"
)

// countingBinder rebuilds a minimal module and counts invocations.
type countingBinder struct {
	calls int
}

func (b *countingBinder) Bind(_ context.Context, _ project.ProjectID, trees []*syntax.Tree, refs []*ExternalRef) (*symbols.Module, *diag.Bag, error) {
	b.calls++
	m := symbols.NewModule("app", "1.0.0")
	for _, r := range refs {
		m.AddReference(r.Module)
	}
	_ = trees
	return m, diag.NewBag(8), nil
}

func newTestUnit(t *testing.T, binder Binder, trees ...*syntax.Tree) *Unit {
	t.Helper()
	m := symbols.NewModule("app", "1.0.0")
	return New(Config{
		Project: project.DeriveProjectID("app"),
		Trees:   trees,
		Module:  m,
		Diags:   diag.NewBag(8),
		Binder:  binder,
	})
}

func tree(content string) *syntax.Tree {
	return syntax.NewTree(source.NewDocumentID(), source.NewTextFromString(content))
}

func TestReplaceSyntaxTreePointerIdentity(t *testing.T) {
	ctx := context.Background()
	binder := &countingBinder{}
	t1 := tree("module app\n")
	t2 := tree("type Foo\n")
	u := newTestUnit(t, binder, t1, t2)

	repl := syntax.NewTree(t1.Doc, source.NewTextFromString("module app\ntype Bar\n"))
	next, err := u.ReplaceSyntaxTree(ctx, t1, repl)
	if err != nil {
		t.Fatalf("ReplaceSyntaxTree: %v", err)
	}
	if binder.calls != 1 {
		t.Fatalf("binder calls = %d, want 1", binder.calls)
	}
	if next == u {
		t.Fatalf("replacement must produce a new unit")
	}
	if next.Trees()[0] != repl || next.Trees()[1] != t2 {
		t.Fatalf("tree order not preserved across replacement")
	}
	if u.Trees()[0] != t1 {
		t.Fatalf("original unit mutated")
	}

	// same pointer is a no-op
	same, err := u.ReplaceSyntaxTree(ctx, t1, t1)
	if err != nil || same != u {
		t.Fatalf("same-pointer replace should return the unit unchanged")
	}

	foreign := tree("not in unit\n")
	if _, err := u.ReplaceSyntaxTree(ctx, foreign, repl); err == nil {
		t.Fatalf("expected error replacing a tree the unit does not hold")
	}
}

func TestAddSyntaxTrees(t *testing.T) {
	ctx := context.Background()
	binder := &countingBinder{}
	t1 := tree("module app\n")
	u := newTestUnit(t, binder, t1)

	t2 := tree("type Foo\n")
	t3 := tree("type Bar\n")
	next, err := u.AddSyntaxTrees(ctx, t2, t3)
	if err != nil {
		t.Fatalf("AddSyntaxTrees: %v", err)
	}
	got := next.Trees()
	if len(got) != 3 || got[1] != t2 || got[2] != t3 {
		t.Fatalf("trees not appended in order: %v", got)
	}
	if len(u.Trees()) != 1 {
		t.Fatalf("original unit mutated")
	}

	if _, err := next.AddSyntaxTrees(ctx, t2); err == nil {
		t.Fatalf("expected error adding a tree twice")
	}

	same, err := u.AddSyntaxTrees(ctx)
	if err != nil || same != u {
		t.Fatalf("empty add should return the unit unchanged")
	}
}

func TestRootsWalksReferenceClosure(t *testing.T) {
	rt := symbols.NewModule("rt", "1.0.0")
	core := symbols.NewModule("core", "1.0.0")
	core.AddReference(rt)
	own := symbols.NewModule("app", "1.0.0")

	u := New(Config{
		Project: project.DeriveProjectID("app"),
		Module:  own,
		Refs:    []*ExternalRef{{Module: core, Kind: RefSkeleton}},
		Binder:  &countingBinder{},
	})

	roots := u.Roots()
	want := map[*symbols.Module]bool{own: true, core: true, rt: true}
	if len(roots) != len(want) {
		t.Fatalf("roots = %d modules, want %d", len(roots), len(want))
	}
	for _, m := range roots {
		if !want[m] {
			t.Fatalf("unexpected root %s", m.ID())
		}
	}
}

func TestContainsModuleOrDynamic(t *testing.T) {
	core := symbols.NewModule("core", "1.0.0")
	coreSym := core.DefineType("core.List", 1, symbols.AccessPublic, false)
	own := symbols.NewModule("app", "1.0.0")
	ownSym := own.DefineType("app.Main", 0, symbols.AccessPublic, true)

	ref := &ExternalRef{Module: core, Kind: RefSkeleton, Project: project.DeriveProjectID("core")}
	u := New(Config{
		Project: project.DeriveProjectID("app"),
		Module:  own,
		Refs:    []*ExternalRef{ref},
		Binder:  &countingBinder{},
	})

	if origin, ok := u.ContainsModuleOrDynamic(ownSym); !ok || !origin.Self {
		t.Fatalf("own symbol not recognized: %+v ok=%v", origin, ok)
	}
	if origin, ok := u.ContainsModuleOrDynamic(coreSym); !ok || origin.Ref != ref {
		t.Fatalf("referenced symbol not attributed to its reference: %+v ok=%v", origin, ok)
	}

	// та же identity, другой экземпляр модуля
	rebuilt := symbols.NewModule("core", "1.0.0")
	rebuiltSym := rebuilt.DefineType("core.List", 1, symbols.AccessPublic, false)
	if origin, ok := u.ContainsModuleOrDynamic(rebuiltSym); !ok || origin.Ref != ref {
		t.Fatalf("identity fallback failed: %+v ok=%v", origin, ok)
	}

	stranger := symbols.NewModule("ext", "1.0.0").DefineType("ext.T", 0, symbols.AccessPublic, false)
	if _, ok := u.ContainsModuleOrDynamic(stranger); ok {
		t.Fatalf("unrelated module must not be contained")
	}
	if _, ok := u.ContainsModuleOrDynamic(nil); ok {
		t.Fatalf("nil symbol must not be contained")
	}

	if _, ok := u.ContainsModuleOrDynamic(symbols.Dynamic); ok {
		t.Fatalf("dynamic must be rejected when the project does not allow it")
	}
	dynUnit := New(Config{
		Project:      project.DeriveProjectID("app"),
		AllowDynamic: true,
		Module:       own,
		Binder:       &countingBinder{},
	})
	if origin, ok := dynUnit.ContainsModuleOrDynamic(symbols.Dynamic); !ok || !origin.Dynamic {
		t.Fatalf("dynamic not recognized: %+v ok=%v", origin, ok)
	}
}

func TestFingerprintIsStructural(t *testing.T) {
	ctx := context.Background()
	binder := &countingBinder{}
	doc := source.NewDocumentID()

	t1 := syntax.NewTree(doc, source.NewTextFromString("module app\n"))
	u1 := newTestUnit(t, binder, t1)

	// same content behind a different tree instance
	t1b := syntax.NewTree(doc, source.NewTextFromString("module app\n"))
	u2 := newTestUnit(t, binder, t1b)
	if u1.Fingerprint() != u2.Fingerprint() {
		t.Fatalf("fingerprint must depend on content, not tree identity")
	}

	edited, err := u1.ReplaceSyntaxTree(ctx, t1, syntax.NewTree(doc, source.NewTextFromString("module app\ntype T\n")))
	if err != nil {
		t.Fatalf("ReplaceSyntaxTree: %v", err)
	}
	if edited.Fingerprint() == u1.Fingerprint() {
		t.Fatalf("content edit must change the fingerprint")
	}
}

func TestStaleMarks(t *testing.T) {
	ctx := context.Background()
	binder := &countingBinder{}
	t1 := tree("module app\n")
	u := newTestUnit(t, binder, t1)

	doc := source.NewDocumentID()
	marked := u.WithStale(doc)
	if marked == u || !marked.IsStale(doc) {
		t.Fatalf("WithStale must return a marked copy")
	}
	if u.IsStale(doc) {
		t.Fatalf("original unit must stay unmarked")
	}
	if got := marked.StaleDocs(); len(got) != 1 || got[0] != doc {
		t.Fatalf("StaleDocs = %v", got)
	}

	// метки переживают rebind
	repl := syntax.NewTree(t1.Doc, source.NewTextFromString("module app\ntype T\n"))
	next, err := marked.ReplaceSyntaxTree(ctx, t1, repl)
	if err != nil {
		t.Fatalf("ReplaceSyntaxTree: %v", err)
	}
	if !next.IsStale(doc) {
		t.Fatalf("stale marks must survive rebinding")
	}
}
