package workspace

import (
	"context"
	"testing"

	"ripple/internal/diag"
	"ripple/internal/project"
	"ripple/internal/source"
)

func TestBuildAllOrdersWavesAndAggregates(t *testing.T) {
	c := &wsCompiler{}
	host := wsHost(t, c, nil)
	lib := wsState(t, "lib", project.Config{
		Documents: []project.DocumentState{newDoc("lib.rpl", "module lib")},
	})
	mid := wsState(t, "mid", project.Config{
		Documents:   []project.DocumentState{newDoc("mid.rpl", "module mid")},
		ProjectRefs: []project.ProjectReference{{Project: lib.ID()}},
	})
	app := wsState(t, "app", project.Config{
		Documents:   []project.DocumentState{newDoc("app.rpl", "module app")},
		ProjectRefs: []project.ProjectReference{{Project: mid.ID()}},
	})
	// порядок объявления нарочно не топологический
	s, err := host.Snapshot(app, mid, lib)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	var sink recordSink
	res, err := s.BuildAll(context.Background(), BuildOptions{Jobs: 4, Sink: &sink})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.HasErrors() {
		t.Fatalf("unexpected errors: %+v", res.Projects)
	}
	names := make([]string, 0, len(res.Projects))
	for _, p := range res.Projects {
		names = append(names, p.Name)
		if p.Unit == nil || !p.Loaded {
			t.Fatalf("project %s: unit=%v loaded=%v", p.Name, p.Unit, p.Loaded)
		}
	}
	if len(names) != 3 || names[0] != "app" || names[1] != "mid" || names[2] != "lib" {
		t.Fatalf("result order = %v, want workspace order", names)
	}
	if got := c.compiles.Load(); got != 3 {
		t.Fatalf("compiles = %d, want 3", got)
	}

	for _, name := range names {
		if sink.indexOf(name, StatusQueued) < 0 || sink.indexOf(name, StatusDone) < 0 {
			t.Fatalf("missing events for %s", name)
		}
	}
	// зависимость завершается раньше начала зависимого
	if sink.indexOf("lib", StatusDone) > sink.indexOf("mid", StatusWorking) {
		t.Fatalf("mid started before lib finished")
	}
	if sink.indexOf("mid", StatusDone) > sink.indexOf("app", StatusWorking) {
		t.Fatalf("app started before mid finished")
	}

	if len(res.Timings.Phases) != 3 {
		t.Fatalf("timings have %d phases, want graph/build/report", len(res.Timings.Phases))
	}
	if res.Timings.Phases[0].Name != "graph" || res.Timings.Phases[1].Name != "build" {
		t.Fatalf("unexpected phase names: %+v", res.Timings.Phases)
	}
}

func TestBuildAllReportsBrokenDependency(t *testing.T) {
	c := &wsCompiler{broken: map[string]bool{"lib": true}}
	host := wsHost(t, c, nil)
	lib := wsState(t, "lib", project.Config{
		Documents: []project.DocumentState{newDoc("lib.rpl", "module lib")},
	})
	app := wsState(t, "app", project.Config{
		Documents:   []project.DocumentState{newDoc("app.rpl", "module app")},
		ProjectRefs: []project.ProjectReference{{Project: lib.ID()}},
	})
	s, err := host.Snapshot(lib, app)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	res, err := s.BuildAll(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !res.HasErrors() {
		t.Fatalf("broken dependency produced no errors")
	}
	if !res.ByName("lib").Diags.HasErrors() {
		t.Fatalf("lib carries no error diagnostics")
	}
	appRes := res.ByName("app")
	if !hasCode(appRes.Diags, diag.ProjDependencyFailed) {
		t.Fatalf("app is not told its dependency failed: %+v", appRes.Diags.Items())
	}
	// сам app при этом собирается: скелет зависимой стороны существует
	if appRes.Unit == nil || !appRes.Loaded {
		t.Fatalf("app should still build against the broken dependency's surface")
	}
}

func TestBuildAllReportsCycles(t *testing.T) {
	c := &wsCompiler{}
	host := wsHost(t, c, nil)
	aID := project.DeriveProjectID("a")
	bID := project.DeriveProjectID("b")
	a := wsState(t, "a", project.Config{
		Documents:   []project.DocumentState{newDoc("a.rpl", "module a")},
		ProjectRefs: []project.ProjectReference{{Project: bID}},
	})
	b := wsState(t, "b", project.Config{
		Documents:   []project.DocumentState{newDoc("b.rpl", "module b")},
		ProjectRefs: []project.ProjectReference{{Project: aID}},
	})
	s, err := host.Snapshot(a, b)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	res, err := s.BuildAll(context.Background(), BuildOptions{Jobs: 2})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, name := range []string{"a", "b"} {
		p := res.ByName(name)
		if !hasCode(p.Diags, diag.ProjReferenceCycle) {
			t.Fatalf("%s carries no cycle diagnostic", name)
		}
		if p.Unit == nil {
			t.Fatalf("%s must still compile its own documents", name)
		}
		if p.Loaded {
			t.Fatalf("%s reports loaded despite the cycle", name)
		}
	}
}

func TestBuildAllReportsMissingProject(t *testing.T) {
	c := &wsCompiler{}
	host := wsHost(t, c, nil)
	app := wsState(t, "app", project.Config{
		Documents:   []project.DocumentState{newDoc("app.rpl", "module app")},
		ProjectRefs: []project.ProjectReference{{Project: project.DeriveProjectID("ghost")}},
	})
	s, err := host.Snapshot(app)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	res, err := s.BuildAll(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	p := res.ByName("app")
	if !hasCode(p.Diags, diag.ProjMissingProject) {
		t.Fatalf("missing dependency not reported: %+v", p.Diags.Items())
	}
	if p.Loaded {
		t.Fatalf("app reports loaded with an unresolvable reference")
	}
}

func TestBuildAllReportsStaleFrozenDocuments(t *testing.T) {
	c := &wsCompiler{}
	host := wsHost(t, c, nil)
	lib := wsState(t, "lib", project.Config{
		Documents: []project.DocumentState{newDoc("lib.rpl", "module lib")},
	})
	s1, err := host.Snapshot(lib)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	// пин без живого генератора: документ заведомо устаревший
	pinned := project.NewGeneratedDocumentState(lib.ID(),
		project.GeneratorIdentity{Generator: "retired", Hint: "types"},
		source.NewTextFromString("pub type Old"))
	s2, err := s1.FreezeGeneratedDocuments(lib.ID(), project.NewGeneratedSet(pinned))
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}

	res, err := s2.BuildAll(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	p := res.ByName("lib")
	if len(p.Stale) != 1 || p.Stale[0] != pinned.ID {
		t.Fatalf("stale docs = %v, want the pinned document", p.Stale)
	}
	if !hasCode(p.Diags, diag.ProjStaleGeneratedDocument) {
		t.Fatalf("stale document not surfaced in diagnostics")
	}
	if p.Diags.HasErrors() {
		t.Fatalf("staleness is informational, not an error")
	}
}

func TestChannelSinkForwards(t *testing.T) {
	ch := make(chan Event, 1)
	ChannelSink{Ch: ch}.OnEvent(Event{Project: "lib", Stage: StageBuild, Status: StatusDone})
	evt := <-ch
	if evt.Project != "lib" || evt.Status != StatusDone {
		t.Fatalf("forwarded event = %+v", evt)
	}
	// нулевой канал просто молчит
	ChannelSink{}.OnEvent(Event{Project: "lib"})
}
