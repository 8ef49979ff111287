package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/semver"
)

// ManifestName is the file describing a project or a workspace root.
const ManifestName = "ripple.toml"

// Manifest is the on-disk description of one project, optionally doubling
// as a workspace root listing member projects.
type Manifest struct {
	Project    ProjectSection   `toml:"project"`
	Require    []RequireSection `toml:"require"`
	Modules    []ModuleSection  `toml:"modules"`
	Generators []GeneratorEntry `toml:"generators"`
	Workspace  WorkspaceSection `toml:"workspace"`

	// Dir is the directory holding the manifest, filled by LoadManifest.
	Dir string `toml:"-"`
}

type ProjectSection struct {
	Name     string   `toml:"name"`
	Version  string   `toml:"version"`
	Language string   `toml:"language"`
	Dynamic  bool     `toml:"dynamic"`
	Docs     []string `toml:"docs"`
}

// RequireSection declares a dependency on another workspace project.
type RequireSection struct {
	Project string   `toml:"project"`
	Aliases []string `toml:"aliases"`
	Embed   bool     `toml:"embed"`
}

// ModuleSection declares an external compiled module dependency.
type ModuleSection struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

type GeneratorEntry struct {
	Name string `toml:"name"`
}

// WorkspaceSection lists member project directories relative to the
// manifest's own directory.
type WorkspaceSection struct {
	Members []string `toml:"members"`
}

// HasProject reports whether the manifest describes a buildable project
// (as opposed to a pure workspace root).
func (m *Manifest) HasProject() bool {
	return m.Project.Name != ""
}

// LoadManifest parses and validates a ripple.toml file.
func LoadManifest(path string) (*Manifest, error) {
	m := &Manifest{}
	md, err := toml.DecodeFile(path, m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !md.IsDefined("project") && !md.IsDefined("workspace") {
		return nil, fmt.Errorf("%s: missing [project] or [workspace]", path)
	}
	if md.IsDefined("project") {
		if !md.IsDefined("project", "name") || strings.TrimSpace(m.Project.Name) == "" {
			return nil, fmt.Errorf("%s: missing [project].name", path)
		}
		if m.Project.Version != "" && !semver.IsValid(canonVersion(m.Project.Version)) {
			return nil, fmt.Errorf("%s: invalid project.version %q", path, m.Project.Version)
		}
	}
	seenReq := make(map[string]bool, len(m.Require))
	for i, r := range m.Require {
		if r.Project == "" {
			return nil, fmt.Errorf("%s: require[%d]: missing 'project'", path, i)
		}
		if r.Project == m.Project.Name {
			return nil, fmt.Errorf("%s: require[%d]: project requires itself", path, i)
		}
		if seenReq[r.Project] {
			return nil, fmt.Errorf("%s: duplicate require for %q", path, r.Project)
		}
		seenReq[r.Project] = true
	}
	for i, mod := range m.Modules {
		if mod.Name == "" {
			return nil, fmt.Errorf("%s: modules[%d]: missing 'name'", path, i)
		}
		if mod.Version != "" && !semver.IsValid(canonVersion(mod.Version)) {
			return nil, fmt.Errorf("%s: modules[%d]: invalid version %q", path, i, mod.Version)
		}
	}
	seenGen := make(map[string]bool, len(m.Generators))
	for i, g := range m.Generators {
		if g.Name == "" {
			return nil, fmt.Errorf("%s: generators[%d]: missing 'name'", path, i)
		}
		if seenGen[g.Name] {
			return nil, fmt.Errorf("%s: duplicate generator %q", path, g.Name)
		}
		seenGen[g.Name] = true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%s: resolve path: %w", path, err)
	}
	m.Dir = filepath.Dir(abs)
	return m, nil
}

// FindManifest walks up from startDir until it finds a ripple.toml.
// Returns ok=false when no manifest exists up to the filesystem root.
func FindManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, true, nil
		} else if !errors.Is(statErr, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, statErr)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// MemberDirs resolves workspace member entries against the manifest dir.
func (m *Manifest) MemberDirs() []string {
	out := make([]string, 0, len(m.Workspace.Members))
	for _, rel := range m.Workspace.Members {
		out = append(out, filepath.Join(m.Dir, rel))
	}
	return out
}
