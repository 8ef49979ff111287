package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"ripple/internal/diag"
	"ripple/internal/project"
	"ripple/internal/source"
)

// Load reads the workspace described by a ripple.toml: the root manifest,
// every member manifest, every listed document. Broken members and
// unreadable documents become diagnostics rather than failures; the error
// return means the root itself is unusable.
func Load(manifestPath string, maxDiags int) ([]*project.State, *diag.Bag, error) {
	if maxDiags <= 0 {
		maxDiags = DefaultMaxDiagnostics
	}
	bag := diag.NewBag(maxDiags)
	root, err := project.LoadManifest(manifestPath)
	if err != nil {
		return nil, bag, err
	}

	manifests := make([]*project.Manifest, 0, len(root.Workspace.Members)+1)
	if root.HasProject() {
		manifests = append(manifests, root)
	}
	for _, dir := range root.MemberDirs() {
		m, err := project.LoadManifest(filepath.Join(dir, project.ManifestName))
		if err != nil {
			bag.Add(diag.NewError(diag.ProjInvalidManifest, source.Span{},
				fmt.Sprintf("workspace member %s: %v", dir, err)))
			continue
		}
		if !m.HasProject() {
			bag.Add(diag.NewError(diag.ProjInvalidManifest, source.Span{},
				fmt.Sprintf("workspace member %s: manifest has no [project]", dir)))
			continue
		}
		manifests = append(manifests, m)
	}

	states := make([]*project.State, 0, len(manifests))
	seen := make(map[string]bool, len(manifests))
	for _, m := range manifests {
		if seen[m.Project.Name] {
			bag.Add(diag.NewError(diag.ProjDuplicateProject, source.Span{},
				fmt.Sprintf("project %q is defined more than once in the workspace", m.Project.Name)))
			continue
		}
		seen[m.Project.Name] = true
		st, ok := stateFromManifest(m, bag)
		if ok {
			states = append(states, st)
		}
	}
	return states, bag, nil
}

func stateFromManifest(m *project.Manifest, bag *diag.Bag) (*project.State, bool) {
	docs := make([]project.DocumentState, 0, len(m.Project.Docs))
	for _, rel := range m.Project.Docs {
		raw, err := os.ReadFile(filepath.Join(m.Dir, rel))
		if err != nil {
			bag.Add(diag.NewError(diag.IOReadFile,
				source.Span{}, fmt.Sprintf("project %q: document %s: %v", m.Project.Name, rel, err)))
			continue
		}
		docs = append(docs, project.NewDocumentState(rel, source.NewText(raw)))
	}

	refs := make([]project.ProjectReference, 0, len(m.Require))
	for _, r := range m.Require {
		refs = append(refs, project.ProjectReference{
			Project: project.DeriveProjectID(r.Project),
			Options: project.MakeRefOptions(r.Embed, r.Aliases...),
		})
	}
	mods := make([]project.ModuleReference, 0, len(m.Modules))
	for _, mod := range m.Modules {
		mods = append(mods, project.ModuleReference{Name: mod.Name, Version: mod.Version})
	}
	gens := make([]project.GeneratorSpec, 0, len(m.Generators))
	for _, g := range m.Generators {
		gens = append(gens, project.GeneratorSpec{Name: g.Name})
	}

	st, err := project.NewState(project.Config{
		ID:      project.DeriveProjectID(m.Project.Name),
		Name:    m.Project.Name,
		Version: m.Project.Version,
		Language: project.LanguageOptions{
			Version:      m.Project.Language,
			AllowDynamic: m.Project.Dynamic,
		},
		Documents:   docs,
		ProjectRefs: refs,
		ModuleRefs:  mods,
		Generators:  gens,
	})
	if err != nil {
		bag.Add(diag.NewError(diag.ProjInvalidManifest, source.Span{},
			fmt.Sprintf("project %q: %v", m.Project.Name, err)))
		return nil, false
	}
	return st, true
}
