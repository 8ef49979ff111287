package project

import (
	"fmt"
	"sort"

	"golang.org/x/mod/semver"

	"ripple/internal/source"
)

// LanguageOptions controls language-level behavior of a project's
// compilation. Options are part of project identity for caching purposes.
type LanguageOptions struct {
	// Version is the language version selector, e.g. "1" or "2".
	Version string
	// AllowDynamic permits the dynamic type in this project.
	AllowDynamic bool
}

// GeneratorSpec names one generator configured on a project.
type GeneratorSpec struct {
	Name string
}

// Config carries everything needed to construct a project State.
type Config struct {
	ID          ProjectID
	Name        string
	Version     string
	Language    LanguageOptions
	Documents   []DocumentState
	ProjectRefs []ProjectReference
	ModuleRefs  []ModuleReference
	Generators  []GeneratorSpec
}

// State is an immutable description of one project: its identity, ordered
// documents, references and configured generators. Every mutation returns a
// fresh State; existing snapshots keep observing the old one.
type State struct {
	id       ProjectID
	name     string
	version  string
	language LanguageOptions
	docs     *DocumentSet
	projRefs []ProjectReference
	modRefs  []ModuleReference
	gens     []GeneratorSpec
}

// NewState validates a Config and freezes it into a State.
func NewState(cfg Config) (*State, error) {
	if !cfg.ID.IsValid() {
		return nil, fmt.Errorf("project %q: missing id", cfg.Name)
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("project %s: empty name", cfg.ID.Short())
	}
	if cfg.Version != "" && !semver.IsValid(canonVersion(cfg.Version)) {
		return nil, fmt.Errorf("project %q: invalid version %q", cfg.Name, cfg.Version)
	}
	docs, err := NewDocumentSet(cfg.Documents...)
	if err != nil {
		return nil, fmt.Errorf("project %q: %w", cfg.Name, err)
	}
	seenRef := make(map[ProjectID]bool, len(cfg.ProjectRefs))
	for _, r := range cfg.ProjectRefs {
		if r.Project == cfg.ID {
			return nil, fmt.Errorf("project %q: references itself", cfg.Name)
		}
		if seenRef[r.Project] {
			return nil, fmt.Errorf("project %q: duplicate reference to %s", cfg.Name, r.Project.Short())
		}
		seenRef[r.Project] = true
	}
	seenGen := make(map[string]bool, len(cfg.Generators))
	for _, g := range cfg.Generators {
		if g.Name == "" {
			return nil, fmt.Errorf("project %q: generator with empty name", cfg.Name)
		}
		if seenGen[g.Name] {
			return nil, fmt.Errorf("project %q: duplicate generator %q", cfg.Name, g.Name)
		}
		seenGen[g.Name] = true
	}
	return &State{
		id:       cfg.ID,
		name:     cfg.Name,
		version:  cfg.Version,
		language: cfg.Language,
		docs:     docs,
		projRefs: append([]ProjectReference(nil), cfg.ProjectRefs...),
		modRefs:  append([]ModuleReference(nil), cfg.ModuleRefs...),
		gens:     append([]GeneratorSpec(nil), cfg.Generators...),
	}, nil
}

func (s *State) ID() ProjectID             { return s.id }
func (s *State) Name() string              { return s.name }
func (s *State) Version() string           { return s.version }
func (s *State) Language() LanguageOptions { return s.language }
func (s *State) Documents() *DocumentSet   { return s.docs }

// ProjectRefs возвращает read-only slice ссылок.
func (s *State) ProjectRefs() []ProjectReference { return s.projRefs }
func (s *State) ModuleRefs() []ModuleReference   { return s.modRefs }
func (s *State) Generators() []GeneratorSpec     { return s.gens }

func (s *State) clone() *State {
	out := *s
	return &out
}

// WithDocumentText forks the state with one document's text replaced.
func (s *State) WithDocumentText(id source.DocumentID, text *source.Text) (*State, error) {
	docs, err := s.docs.WithText(id, text)
	if err != nil {
		return nil, fmt.Errorf("project %q: %w", s.name, err)
	}
	out := s.clone()
	out.docs = docs
	return out, nil
}

// WithAddedDocuments forks the state with documents appended.
func (s *State) WithAddedDocuments(docs ...DocumentState) (*State, error) {
	next, err := s.docs.WithAdded(docs...)
	if err != nil {
		return nil, fmt.Errorf("project %q: %w", s.name, err)
	}
	out := s.clone()
	out.docs = next
	return out, nil
}

// WithRemovedDocuments forks the state with documents dropped.
func (s *State) WithRemovedDocuments(ids ...source.DocumentID) (*State, error) {
	next, err := s.docs.WithRemoved(ids...)
	if err != nil {
		return nil, fmt.Errorf("project %q: %w", s.name, err)
	}
	out := s.clone()
	out.docs = next
	return out, nil
}

// WithProjectRefs forks the state with a replaced reference list.
func (s *State) WithProjectRefs(refs ...ProjectReference) (*State, error) {
	seen := make(map[ProjectID]bool, len(refs))
	for _, r := range refs {
		if r.Project == s.id {
			return nil, fmt.Errorf("project %q: references itself", s.name)
		}
		if seen[r.Project] {
			return nil, fmt.Errorf("project %q: duplicate reference to %s", s.name, r.Project.Short())
		}
		seen[r.Project] = true
	}
	out := s.clone()
	out.projRefs = append([]ProjectReference(nil), refs...)
	return out, nil
}

// WithModuleRefs forks the state with a replaced external module list.
func (s *State) WithModuleRefs(refs ...ModuleReference) *State {
	out := s.clone()
	out.modRefs = append([]ModuleReference(nil), refs...)
	return out
}

// WithGenerators forks the state with a replaced generator list.
func (s *State) WithGenerators(gens ...GeneratorSpec) *State {
	out := s.clone()
	out.gens = append([]GeneratorSpec(nil), gens...)
	return out
}

// canonVersion makes a bare version acceptable to semver ("1.2.0" -> "v1.2.0").
func canonVersion(v string) string {
	if v == "" || v[0] == 'v' {
		return v
	}
	return "v" + v
}

// ReferencedProjects lists referenced project ids in declaration order.
func (s *State) ReferencedProjects() []ProjectID {
	out := make([]ProjectID, len(s.projRefs))
	for i, r := range s.projRefs {
		out[i] = r.Project
	}
	return out
}

// RefOptionsFor returns the reference options used when this state consumes
// the given project, or zero options when it does not reference it.
func (s *State) RefOptionsFor(id ProjectID) (RefOptions, bool) {
	for _, r := range s.projRefs {
		if r.Project == id {
			return r.Options, true
		}
	}
	return RefOptions{}, false
}

// Fingerprint digests everything that affects compilation output: identity,
// language options, document contents in order, references and generators.
// Equal fingerprints mean a cached compilation may be reused.
func (s *State) Fingerprint() source.Digest {
	parts := make([]source.Digest, 0, 8+s.docs.Len())
	parts = append(parts,
		source.DigestOfString(s.name),
		source.DigestOfString(s.version),
		source.DigestOfString(s.language.Version),
	)
	if s.language.AllowDynamic {
		parts = append(parts, source.DigestOfString("dynamic"))
	}
	for _, d := range s.docs.All() {
		parts = append(parts, source.DigestOfString(d.Path), d.Text.Hash)
	}
	refs := make([]string, 0, len(s.projRefs)+len(s.modRefs))
	for _, r := range s.projRefs {
		refs = append(refs, "p:"+r.Project.String()+":"+r.Options.String())
	}
	for _, m := range s.modRefs {
		refs = append(refs, "m:"+m.ID())
	}
	sort.Strings(refs)
	for _, r := range refs {
		parts = append(parts, source.DigestOfString(r))
	}
	for _, g := range s.gens {
		parts = append(parts, source.DigestOfString("g:"+g.Name))
	}
	return source.Combine(source.DigestOfString("project-state"), parts...)
}
