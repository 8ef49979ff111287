package symbols

import (
	"testing"
)

func TestNamespaceInterning(t *testing.T) {
	mod := NewModule("app", "1.0.0")

	ab := mod.Namespace("a.b")
	again := mod.Namespace("a.b")
	if ab != again {
		t.Fatalf("expected namespace handles to be interned per module")
	}
	if ab.Container != mod.Namespace("a") {
		t.Fatalf("expected parent chain to be shared")
	}
	if root := mod.Namespace(""); ab.Container.Container != root {
		t.Fatalf("expected chain to terminate at the root namespace")
	}
}

func TestDefineTypeIdempotent(t *testing.T) {
	mod := NewModule("app", "1.0.0")

	first := mod.DefineType("core.List", 1, AccessPublic, true)
	second := mod.DefineType("core.List", 1, AccessInternal, false)
	if first != second {
		t.Fatalf("expected redefinition to return the existing handle")
	}
	if got := mod.TypeByName("core.List`1"); got != first {
		t.Fatalf("expected lookup by metadata name, got %v", got)
	}
}

func TestFullMetadataName(t *testing.T) {
	mod := NewModule("app", "1.0.0")

	list := mod.DefineType("core.col.List", 2, AccessPublic, true)
	if got := list.FullMetadataName(); got != "core.col.List`2" {
		t.Fatalf("expected namespace-qualified arity name, got %q", got)
	}

	nested := mod.DefineNested(list, "Node", 0, AccessPrivate, true)
	if got := nested.FullMetadataName(); got != "core.col.List`2+Node" {
		t.Fatalf("expected nested segment joined with '+', got %q", got)
	}
	if !nested.IsNested() || list.IsNested() {
		t.Fatalf("nesting predicate misreported")
	}
}

func TestFindModulePrefersNewestVersion(t *testing.T) {
	older := NewModule("dep", "1.2.0")
	newer := NewModule("dep", "1.10.0")
	other := NewModule("other", "9.0.0")

	got := FindModule([]*Module{older, other, newer}, "dep")
	if got != newer {
		t.Fatalf("expected semver-newest module, got %v", got)
	}
	if FindModule([]*Module{older}, "absent") != nil {
		t.Fatalf("expected nil for unknown module name")
	}
}

func TestForwardsAreSorted(t *testing.T) {
	mod := NewModule("app", "1.0.0")
	mod.AddForward("z.Last", "B")
	mod.AddForward("a.First", "B")

	fw := mod.Forwards()
	if len(fw) != 2 || fw[0][0] != "a.First" || fw[1][0] != "z.Last" {
		t.Fatalf("expected deterministic forward order, got %v", fw)
	}
}

func TestModuleReferencesDedup(t *testing.T) {
	app := NewModule("app", "1.0.0")
	dep := NewModule("dep", "1.0.0")

	app.AddReference(dep)
	app.AddReference(dep)
	app.AddReference(app)
	if len(app.Refs()) != 1 {
		t.Fatalf("expected self and duplicate references dropped, got %d", len(app.Refs()))
	}
}
