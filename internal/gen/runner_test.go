package gen

import (
	"context"
	"errors"
	"testing"

	"ripple/internal/diag"
	"ripple/internal/project"
	"ripple/internal/source"
)

type fakeGen struct {
	name   string
	outs   []Output
	err    error
	panics bool
	runs   int
}

func (g *fakeGen) Name() string { return g.name }

func (g *fakeGen) Generate(_ context.Context, _ Input) ([]Output, error) {
	g.runs++
	if g.panics {
		panic("boom")
	}
	return g.outs, g.err
}

func stateWithGens(t *testing.T, gens ...project.GeneratorSpec) *project.State {
	t.Helper()
	st, err := project.NewState(project.Config{
		ID:         project.DeriveProjectID("app"),
		Name:       "app",
		Generators: gens,
	})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	return st
}

func TestRunnerProducesStableIdentities(t *testing.T) {
	g := &fakeGen{
		name: "declgen",
		outs: []Output{
			{Hint: "types.rpl", Text: source.NewTextFromString("type A\n")},
			{Hint: "funcs.rpl", Text: source.NewTextFromString("fn f/1\n")},
		},
	}
	r := NewRunner(g)
	st := stateWithGens(t, project.GeneratorSpec{Name: "declgen"})

	first, err := r.Run(context.Background(), st, 16)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := r.Run(context.Background(), st, 16)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if first.Docs.Len() != 2 || second.Docs.Len() != 2 {
		t.Fatalf("doc counts = %d, %d, want 2, 2", first.Docs.Len(), second.Docs.Len())
	}
	for i, d := range first.Docs.All() {
		if second.Docs.All()[i].ID != d.ID {
			t.Fatalf("generated identity not stable across runs: %s vs %s", d.ID, second.Docs.All()[i].ID)
		}
	}
	if first.Diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", first.Diags.Items())
	}
	if first.Host == nil || len(first.Host.Stats) != 1 || first.Host.Stats[0].Outputs != 2 {
		t.Fatalf("host stats = %+v", first.Host)
	}
}

func TestRunnerUnknownGenerator(t *testing.T) {
	r := NewRunner()
	st := stateWithGens(t, project.GeneratorSpec{Name: "ghost"})

	res, err := r.Run(context.Background(), st, 16)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Docs.Len() != 0 {
		t.Fatalf("expected no documents")
	}
	if res.Diags.Len() != 1 || res.Diags.Items()[0].Code != diag.GenFailed {
		t.Fatalf("diags = %v", res.Diags.Items())
	}
}

func TestRunnerCrashContained(t *testing.T) {
	crashing := &fakeGen{name: "bad", panics: true}
	healthy := &fakeGen{
		name: "good",
		outs: []Output{{Hint: "out.rpl", Text: source.NewTextFromString("ok")}},
	}
	r := NewRunner(crashing, healthy)
	st := stateWithGens(t,
		project.GeneratorSpec{Name: "bad"},
		project.GeneratorSpec{Name: "good"},
	)

	res, err := r.Run(context.Background(), st, 16)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if healthy.runs != 1 {
		t.Fatalf("crash must not stop later generators")
	}
	if res.Docs.Len() != 1 {
		t.Fatalf("docs = %d, want 1", res.Docs.Len())
	}
	if res.Diags.Len() != 1 || res.Diags.Items()[0].Code != diag.GenCrashed {
		t.Fatalf("diags = %v", res.Diags.Items())
	}
	if !res.Host.Stats[0].Failed || res.Host.Stats[1].Failed {
		t.Fatalf("stats = %+v", res.Host.Stats)
	}
}

func TestRunnerGeneratorErrorBecomesDiagnostic(t *testing.T) {
	failing := &fakeGen{name: "flaky", err: errors.New("disk full")}
	r := NewRunner(failing)
	st := stateWithGens(t, project.GeneratorSpec{Name: "flaky"})

	res, err := r.Run(context.Background(), st, 16)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Diags.Len() != 1 || res.Diags.Items()[0].Code != diag.GenFailed {
		t.Fatalf("diags = %v", res.Diags.Items())
	}
}

func TestRunnerDuplicateHint(t *testing.T) {
	g := &fakeGen{
		name: "dup",
		outs: []Output{
			{Hint: "same.rpl", Text: source.NewTextFromString("one")},
			{Hint: "same.rpl", Text: source.NewTextFromString("two")},
		},
	}
	r := NewRunner(g)
	st := stateWithGens(t, project.GeneratorSpec{Name: "dup"})

	res, err := r.Run(context.Background(), st, 16)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Docs.Len() != 1 {
		t.Fatalf("docs = %d, want first output only", res.Docs.Len())
	}
	got, _ := res.Docs.Get(res.Docs.All()[0].ID)
	if got.Text.String() != "one" {
		t.Fatalf("kept output = %q, want the first one", got.Text.String())
	}
	if res.Diags.Len() != 1 || res.Diags.Items()[0].Code != diag.GenDuplicateHint {
		t.Fatalf("diags = %v", res.Diags.Items())
	}
}

func TestRunnerCancellation(t *testing.T) {
	g := &fakeGen{name: "declgen"}
	r := NewRunner(g)
	st := stateWithGens(t, project.GeneratorSpec{Name: "declgen"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Run(ctx, st, 16); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if g.runs != 0 {
		t.Fatalf("cancelled run must not execute generators")
	}
}
