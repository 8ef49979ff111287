// Package testkit holds invariant checkers shared by engine tests.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"ripple/internal/project"
	"ripple/internal/source"
)

// CheckStateInvariants runs a minimal set of identity invariants on a
// project state:
// 1) the project id and name are set
// 2) every document has a valid distinct id, non-nil text, and content
//    addressable by uint32 spans
// 3) id lookups agree with authoring order
// 4) the fingerprint is stable across calls
// 5) every project reference carries options and none is a self-reference
func CheckStateInvariants(st *project.State) error {
	if st == nil {
		return fmt.Errorf("nil state")
	}
	if !st.ID().IsValid() {
		return fmt.Errorf("project id is zero")
	}
	if st.Name() == "" {
		return fmt.Errorf("project has no name")
	}

	// 2) document sanity; 3) lookup round-trip
	docs := st.Documents()
	seen := make(map[source.DocumentID]int, docs.Len())
	for i := 0; i < docs.Len(); i++ {
		d := docs.At(i)
		if !d.ID.IsValid() {
			return fmt.Errorf("document %d (%s) has a zero id", i, d.Path)
		}
		if d.Text == nil {
			return fmt.Errorf("document %d (%s) has nil text", i, d.Path)
		}
		if _, err := safecast.Conv[uint32](len(d.Text.Content)); err != nil {
			return fmt.Errorf("document %s content overflows span offsets: %w", d.Path, err)
		}
		if prev, dup := seen[d.ID]; dup {
			return fmt.Errorf("documents %d and %d share id %s", prev, i, d.ID.Short())
		}
		seen[d.ID] = i
		got, ok := docs.Get(d.ID)
		if !ok || got.Path != d.Path {
			return fmt.Errorf("lookup of %s does not round-trip", d.Path)
		}
	}

	// 4) fingerprint stability
	if st.Fingerprint() != st.Fingerprint() {
		return fmt.Errorf("fingerprint differs between calls")
	}

	for _, ref := range st.ReferencedProjects() {
		if ref == st.ID() {
			return fmt.Errorf("project references itself")
		}
		if _, ok := st.RefOptionsFor(ref); !ok {
			return fmt.Errorf("reference %s carries no options", ref.Short())
		}
	}
	return nil
}

// CheckGeneratedSetInvariants verifies that every document in a generated
// set carries the identity derived from its generator and hint, so pinning
// the same identity later replaces it instead of adding a duplicate.
func CheckGeneratedSetInvariants(proj project.ProjectID, set *project.GeneratedSet) error {
	if set == nil {
		return fmt.Errorf("nil generated set")
	}
	seen := make(map[project.GeneratorIdentity]bool, set.Len())
	for _, g := range set.All() {
		want := project.NewGeneratedDocumentState(proj, g.Identity, nil)
		if g.ID != want.ID {
			return fmt.Errorf("generated document %s has id %s, derivation gives %s",
				g.Identity, g.ID.Short(), want.ID.Short())
		}
		if g.Path != want.Path {
			return fmt.Errorf("generated document %s has path %q, want %q", g.Identity, g.Path, want.Path)
		}
		if seen[g.Identity] {
			return fmt.Errorf("generated set holds %s twice", g.Identity)
		}
		seen[g.Identity] = true
		got, ok := set.Get(g.ID)
		if !ok || got.Identity != g.Identity {
			return fmt.Errorf("lookup of %s does not round-trip", g.Identity)
		}
	}
	return nil
}
