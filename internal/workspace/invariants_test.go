package workspace

import (
	"context"
	"testing"

	"ripple/internal/gen"
	"ripple/internal/project"
	"ripple/internal/source"
	"ripple/internal/testkit"
)

func TestSnapshotStatesHoldIdentityInvariants(t *testing.T) {
	c := &wsCompiler{}
	gens := gen.NewRunner(&wsGen{name: "fixture", outs: []gen.Output{
		{Hint: "types", Text: source.NewTextFromString("pub type Generated")},
	}})
	host := wsHost(t, c, gens)
	lib := wsState(t, "lib", project.Config{
		Documents:  []project.DocumentState{newDoc("lib.rpl", "module lib")},
		Generators: []project.GeneratorSpec{{Name: "fixture"}},
	})
	app := wsState(t, "app", project.Config{
		Documents:   []project.DocumentState{newDoc("app.rpl", "module app")},
		ProjectRefs: []project.ProjectReference{{Project: lib.ID()}},
	})
	s, err := host.Snapshot(lib, app)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	for _, id := range s.Projects() {
		st, _ := s.State(id)
		if err := testkit.CheckStateInvariants(st); err != nil {
			t.Fatalf("state %s: %v", st.Name(), err)
		}
	}

	tr, _ := s.Tracker(lib.ID())
	set, _, err := tr.GeneratedDocuments(context.Background(), s, true)
	if err != nil {
		t.Fatalf("generated: %v", err)
	}
	if err := testkit.CheckGeneratedSetInvariants(lib.ID(), set); err != nil {
		t.Fatalf("generated set: %v", err)
	}

	// пере-форк после правки сохраняет инварианты
	doc := lib.Documents().At(0)
	s2, err := s.WithDocumentText(doc.ID, source.NewTextFromString("module lib\ntype T"))
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	for _, id := range s2.Projects() {
		st, _ := s2.State(id)
		if err := testkit.CheckStateInvariants(st); err != nil {
			t.Fatalf("state after edit %s: %v", st.Name(), err)
		}
	}
}
