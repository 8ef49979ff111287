package project

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if writeErr := os.WriteFile(path, []byte(content), 0o600); writeErr != nil {
		t.Fatalf("write manifest: %v", writeErr)
	}
	return path
}

func TestLoadManifestFull(t *testing.T) {
	content := `
[project]
name = "app"
version = "1.2.0"
language = "2"
dynamic = true
docs = ["src/main.rpl", "src/util.rpl"]

[[require]]
project = "core"
aliases = ["c"]
embed = true

[[modules]]
name = "rt.native"
version = "1.0.0"

[[generators]]
name = "declgen"

[workspace]
members = ["../core"]
`
	dir := t.TempDir()
	path := writeManifest(t, dir, content)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Project.Name != "app" || m.Project.Version != "1.2.0" {
		t.Fatalf("project section = %+v", m.Project)
	}
	if !m.Project.Dynamic || m.Project.Language != "2" {
		t.Fatalf("language options = %+v", m.Project)
	}
	if len(m.Project.Docs) != 2 || m.Project.Docs[0] != "src/main.rpl" {
		t.Fatalf("docs = %v", m.Project.Docs)
	}
	if len(m.Require) != 1 || m.Require[0].Project != "core" || !m.Require[0].Embed {
		t.Fatalf("require = %+v", m.Require)
	}
	if len(m.Require[0].Aliases) != 1 || m.Require[0].Aliases[0] != "c" {
		t.Fatalf("aliases = %v", m.Require[0].Aliases)
	}
	if len(m.Modules) != 1 || m.Modules[0].Name != "rt.native" {
		t.Fatalf("modules = %+v", m.Modules)
	}
	if len(m.Generators) != 1 || m.Generators[0].Name != "declgen" {
		t.Fatalf("generators = %+v", m.Generators)
	}
	if m.Dir != dir {
		t.Fatalf("Dir = %q, want %q", m.Dir, dir)
	}
	members := m.MemberDirs()
	if len(members) != 1 || members[0] != filepath.Join(dir, "../core") {
		t.Fatalf("members = %v", members)
	}
}

func TestLoadManifestRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", "\n"},
		{"missing name", "[project]\nversion = \"1.0.0\"\n"},
		{"bad version", "[project]\nname = \"app\"\nversion = \"one\"\n"},
		{"self require", "[project]\nname = \"app\"\n[[require]]\nproject = \"app\"\n"},
		{"duplicate require", "[project]\nname = \"app\"\n[[require]]\nproject = \"b\"\n[[require]]\nproject = \"b\"\n"},
		{"unnamed module", "[project]\nname = \"app\"\n[[modules]]\nversion = \"1.0.0\"\n"},
		{"duplicate generator", "[project]\nname = \"app\"\n[[generators]]\nname = \"g\"\n[[generators]]\nname = \"g\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.content)
			if _, err := LoadManifest(path); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}

func TestLoadManifestWorkspaceOnly(t *testing.T) {
	content := `
[workspace]
members = ["app", "core"]
`
	path := writeManifest(t, t.TempDir(), content)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.HasProject() {
		t.Fatalf("workspace root should not look like a project")
	}
	if len(m.Workspace.Members) != 2 {
		t.Fatalf("members = %v", m.Workspace.Members)
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[project]\nname = \"app\"\n")
	nested := filepath.Join(root, "src", "deep")
	if mkErr := os.MkdirAll(nested, 0o750); mkErr != nil {
		t.Fatalf("mkdir: %v", mkErr)
	}

	path, ok, err := FindManifest(nested)
	if err != nil {
		t.Fatalf("FindManifest: %v", err)
	}
	if !ok {
		t.Fatalf("expected manifest to be found")
	}
	if path != filepath.Join(root, ManifestName) {
		t.Fatalf("path = %q", path)
	}
}
