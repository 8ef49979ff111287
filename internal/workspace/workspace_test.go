package workspace

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"ripple/internal/diag"
	"ripple/internal/gen"
	"ripple/internal/project"
	"ripple/internal/source"
	"ripple/internal/symbols"
	"ripple/internal/syntax"
	"ripple/internal/unit"
)

// wsBinder derives the module surface from the project name, so rebinds
// after replay agree with the original compile.
type wsBinder struct {
	name    string
	version string
	broken  bool
}

func (b *wsBinder) Bind(_ context.Context, _ project.ProjectID, _ []*syntax.Tree, refs []*unit.ExternalRef) (*symbols.Module, *diag.Bag, error) {
	m := symbols.NewModule(b.name, b.version)
	m.DefineType(b.name+".Root", 0, symbols.AccessPublic, true)
	for _, r := range refs {
		m.AddReference(r.Module)
	}
	bag := diag.NewBag(16)
	if b.broken {
		bag.Add(diag.NewError(diag.CmpUnexpectedLine, source.Span{}, "declaration is malformed"))
	}
	return m, bag, nil
}

// wsCompiler counts compiles and can mark whole projects as broken
// (error diagnostics in the unit, not a failed compile).
type wsCompiler struct {
	compiles atomic.Int32
	broken   map[string]bool
}

func (c *wsCompiler) CompileFrom(ctx context.Context, st *project.State, refs []*unit.ExternalRef) (*unit.Unit, error) {
	c.compiles.Add(1)
	trees := make([]*syntax.Tree, 0, st.Documents().Len())
	for _, d := range st.Documents().All() {
		trees = append(trees, syntax.NewTree(d.ID, d.Text))
	}
	binder := &wsBinder{name: st.Name(), version: st.Version(), broken: c.broken[st.Name()]}
	module, bag, err := binder.Bind(ctx, st.ID(), trees, refs)
	if err != nil {
		return nil, err
	}
	return unit.New(unit.Config{
		Project:      st.ID(),
		AllowDynamic: st.Language().AllowDynamic,
		Trees:        trees,
		Module:       module,
		Refs:         refs,
		Diags:        bag,
		Binder:       binder,
	}), nil
}

// wsGen emits a fixed hint/text table.
type wsGen struct {
	name string
	outs []gen.Output
}

func (g *wsGen) Name() string { return g.name }

func (g *wsGen) Generate(context.Context, gen.Input) ([]gen.Output, error) {
	return g.outs, nil
}

// recordSink collects events; builds fan out, so it locks.
type recordSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordSink) OnEvent(evt Event) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

func (r *recordSink) indexOf(name string, status Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, evt := range r.events {
		if evt.Stage == StageBuild && evt.Project == name && evt.Status == status {
			return i
		}
	}
	return -1
}

func newDoc(path, text string) project.DocumentState {
	return project.NewDocumentState(path, source.NewTextFromString(text))
}

func wsState(t *testing.T, name string, cfg project.Config) *project.State {
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

func wsHost(t *testing.T, c *wsCompiler, gens *gen.Runner) *Host {
	t.Helper()
	h, err := NewHost(HostOptions{Compiler: c, Generators: gens, MaxDiagnostics: 64})
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	return h
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}
