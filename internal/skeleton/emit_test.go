package skeleton

import (
	"context"
	"testing"

	"ripple/internal/diag"
	"ripple/internal/project"
	"ripple/internal/source"
	"ripple/internal/symbols"
	"ripple/internal/syntax"
	"ripple/internal/unit"
)

type stubBinder struct {
	module *symbols.Module
}

func (b *stubBinder) Bind(_ context.Context, _ project.ProjectID, _ []*syntax.Tree, _ []*unit.ExternalRef) (*symbols.Module, *diag.Bag, error) {
	return b.module, diag.NewBag(16), nil
}

func unitFor(t *testing.T, mod *symbols.Module, diags *diag.Bag) *unit.Unit {
	t.Helper()
	return unit.New(unit.Config{
		Project: project.DeriveProjectID("skeleton-test"),
		Module:  mod,
		Diags:   diags,
		Binder:  &stubBinder{module: mod},
	})
}

func TestEmitCopiesExportedSurface(t *testing.T) {
	mod := symbols.NewModule("core", "1.0.0")
	widget := mod.DefineType("core.Widget", 0, symbols.AccessPublic, true)
	mod.DefineNested(widget, "Handle", 0, symbols.AccessPublic, true)
	mod.DefineType("core.List", 1, symbols.AccessPublic, true)
	mod.DefineType("core.secret", 0, symbols.AccessInternal, true)
	hidden := mod.DefineType("core.hidden", 0, symbols.AccessPrivate, true)
	mod.DefineNested(hidden, "Leak", 0, symbols.AccessPublic, true)
	mod.DefineFunc("core", "Run", 2, symbols.AccessPublic, true)
	mod.DefineFunc("core", "helper", 0, symbols.AccessInternal, true)
	mod.AddForward("core.Moved`1", "compat")

	rt := symbols.NewModule("rt", "0.9.0")
	rt.DefineType("rt.Thing", 0, symbols.AccessPublic, true)
	mod.AddReference(rt)

	ref := Emit(unitFor(t, mod, nil), project.MakeRefOptions(false))
	if ref == nil {
		t.Fatalf("expected an image for a clean unit")
	}
	img := ref.Module
	if img == mod {
		t.Fatalf("image must be a fresh module, not the unit's own")
	}
	if !img.SameIdentity(mod) {
		t.Fatalf("image identity = %s, want %s", img.ID(), mod.ID())
	}

	for _, name := range []string{"core.Widget", "core.Widget+Handle", "core.List`1"} {
		sym := img.TypeByName(name)
		if sym == nil {
			t.Fatalf("exported type %q missing from image", name)
		}
		if sym.FromSource {
			t.Fatalf("image type %q still marked as source", name)
		}
	}
	for _, name := range []string{"core.secret", "core.hidden", "core.hidden+Leak"} {
		if img.TypeByName(name) != nil {
			t.Fatalf("non-exported type %q leaked into image", name)
		}
	}

	members := img.Members()
	if len(members) != 1 || members[0].Name != "Run" || members[0].Arity != 2 {
		t.Fatalf("image members = %v, want just Run/2", members)
	}
	if members[0].FromSource {
		t.Fatalf("image function still marked as source")
	}

	if target, ok := img.ForwardTarget("core.Moved`1"); !ok || target != "compat" {
		t.Fatalf("forward core.Moved`1 = %q, %v; want compat, true", target, ok)
	}

	refs := img.Refs()
	if len(refs) != 1 || refs[0].Name != "rt" || refs[0].Version != "0.9.0" {
		t.Fatalf("image refs = %v, want one rt@0.9.0 stub", refs)
	}
	if refs[0].TypeByName("rt.Thing") != nil {
		t.Fatalf("ref stub must not carry declarations")
	}
}

func TestEmitNilForUnitWithErrors(t *testing.T) {
	mod := symbols.NewModule("broken", "1.0.0")
	bag := diag.NewBag(8)
	bag.Add(diag.NewError(diag.CmpUnexpectedLine, source.Span{}, "does not bind"))

	if ref := Emit(unitFor(t, mod, bag), project.RefOptions{}); ref != nil {
		t.Fatalf("expected no image for an error unit, got %s", ref.ID())
	}
	if ref := Emit(nil, project.RefOptions{}); ref != nil {
		t.Fatalf("expected no image for a nil unit")
	}
}

func TestEmitStubClosureIsShared(t *testing.T) {
	// app -> b -> d и app -> c -> d: оба пути должны сойтись на одном стабе
	d := symbols.NewModule("d", "1.0.0")
	b := symbols.NewModule("b", "1.0.0")
	c := symbols.NewModule("c", "1.0.0")
	b.AddReference(d)
	c.AddReference(d)
	app := symbols.NewModule("app", "1.0.0")
	app.AddReference(b)
	app.AddReference(c)

	ref := Emit(unitFor(t, app, nil), project.RefOptions{})
	if ref == nil {
		t.Fatalf("expected an image")
	}
	refs := ref.Module.Refs()
	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2", len(refs))
	}
	db := refs[0].Refs()
	dc := refs[1].Refs()
	if len(db) != 1 || len(dc) != 1 {
		t.Fatalf("stub refs = %d/%d, want 1/1", len(db), len(dc))
	}
	if db[0] != dc[0] {
		t.Fatalf("diamond closure split into two stubs for %s", db[0].ID())
	}
	if db[0].Name != "d" {
		t.Fatalf("shared stub = %s, want d", db[0].ID())
	}
}

func TestEmitForwardsSurviveOnStubs(t *testing.T) {
	compat := symbols.NewModule("compat", "2.0.0")
	compat.AddForward("lib.Foo", "newhome")
	app := symbols.NewModule("app", "1.0.0")
	app.AddReference(compat)

	ref := Emit(unitFor(t, app, nil), project.RefOptions{})
	if ref == nil {
		t.Fatalf("expected an image")
	}
	stub := ref.Module.Refs()[0]
	if target, ok := stub.ForwardTarget("lib.Foo"); !ok || target != "newhome" {
		t.Fatalf("stub forward lib.Foo = %q, %v; want newhome, true", target, ok)
	}
}

func TestEmitFingerprintCoversOptions(t *testing.T) {
	mod := symbols.NewModule("core", "1.0.0")
	mod.DefineType("core.Widget", 0, symbols.AccessPublic, true)
	u := unitFor(t, mod, nil)

	plain := Emit(u, project.MakeRefOptions(false))
	embed := Emit(u, project.MakeRefOptions(true))
	again := Emit(u, project.MakeRefOptions(false))
	if plain.Fingerprint == embed.Fingerprint {
		t.Fatalf("option change must change the fingerprint")
	}
	if plain.Fingerprint != again.Fingerprint {
		t.Fatalf("same unit and options must fingerprint identically")
	}
}
