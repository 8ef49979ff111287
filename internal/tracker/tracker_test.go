package tracker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"ripple/internal/diag"
	"ripple/internal/gen"
	"ripple/internal/project"
	"ripple/internal/skeleton"
	"ripple/internal/source"
	"ripple/internal/symbols"
	"ripple/internal/syntax"
	"ripple/internal/unit"
)

// testBinder rebuilds a minimal module surface from whatever trees and refs
// it is given. Deterministic, so redundant rebinds under races agree.
type testBinder struct {
	binds atomic.Int32
}

func (b *testBinder) Bind(_ context.Context, proj project.ProjectID, _ []*syntax.Tree, refs []*unit.ExternalRef) (*symbols.Module, *diag.Bag, error) {
	b.binds.Add(1)
	m := symbols.NewModule("app-"+proj.Short(), "1.0.0")
	m.DefineType("app.Root", 0, symbols.AccessPublic, true)
	for _, r := range refs {
		m.AddReference(r.Module)
	}
	return m, diag.NewBag(32), nil
}

// fakeCompiler builds one tree per authored document and binds through
// testBinder. fail makes the next compile return an error once.
type fakeCompiler struct {
	compiles atomic.Int32
	fail     error
	hook     func(ctx context.Context) // runs mid-compile when set
}

func (c *fakeCompiler) CompileFrom(ctx context.Context, st *project.State, refs []*unit.ExternalRef) (*unit.Unit, error) {
	c.compiles.Add(1)
	if c.hook != nil {
		c.hook(ctx)
	}
	if c.fail != nil {
		err := c.fail
		c.fail = nil
		return nil, err
	}
	trees := make([]*syntax.Tree, 0, st.Documents().Len())
	for _, d := range st.Documents().All() {
		trees = append(trees, syntax.NewTree(d.ID, d.Text))
	}
	binder := &testBinder{}
	module, diags, err := binder.Bind(ctx, st.ID(), trees, refs)
	if err != nil {
		return nil, err
	}
	return unit.New(unit.Config{
		Project:      st.ID(),
		AllowDynamic: st.Language().AllowDynamic,
		Trees:        trees,
		Module:       module,
		Refs:         refs,
		Diags:        diags,
		Binder:       binder,
	}), nil
}

// fixtureGen emits a fixed hint->text table.
type fixtureGen struct {
	name string
	outs []gen.Output
	runs atomic.Int32
}

func (g *fixtureGen) Name() string { return g.name }

func (g *fixtureGen) Generate(_ context.Context, _ gen.Input) ([]gen.Output, error) {
	g.runs.Add(1)
	return g.outs, nil
}

type testContext struct {
	compiler *fakeCompiler
	gens     GeneratorHost
	images   map[project.ProjectID]*skeleton.Reference
	modules  map[string]*symbols.Module
}

func newTestContext() *testContext {
	return &testContext{
		compiler: &fakeCompiler{},
		gens:     gen.NewRunner(),
		images:   make(map[project.ProjectID]*skeleton.Reference),
		modules:  make(map[string]*symbols.Module),
	}
}

func (c *testContext) Compiler() Compiler        { return c.compiler }
func (c *testContext) Generators() GeneratorHost { return c.gens }
func (c *testContext) MaxDiagnostics() int       { return 64 }

func (c *testContext) ResolveProjectReference(_ context.Context, ref project.ProjectReference) (*skeleton.Reference, error) {
	return c.images[ref.Project], nil
}

func (c *testContext) ResolveModuleReference(_ context.Context, ref project.ModuleReference) (*symbols.Module, error) {
	return c.modules[ref.Name], nil
}

func newDoc(path, text string) project.DocumentState {
	return project.NewDocumentState(path, source.NewTextFromString(text))
}

func newTrackerState(t *testing.T, name string, cfg project.Config) *project.State {
	t.Helper()
	cfg.ID = project.DeriveProjectID(name)
	cfg.Name = name
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	st, err := project.NewState(cfg)
	if err != nil {
		t.Fatalf("state %s: %v", name, err)
	}
	return st
}

var errCompileBoom = errors.New("front end fell over")
