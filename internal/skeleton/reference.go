// Package skeleton builds and caches metadata-only module images of
// compiled units. A skeleton stands in for a project reference: the
// depending project compiles against the exported surface of its
// dependency without holding the dependency's trees or diagnostics.
// Images are immutable once built; the cache guarantees at most one
// build per option set and shares completed images across snapshot
// clones.
package skeleton

import (
	"ripple/internal/project"
	"ripple/internal/source"
	"ripple/internal/symbols"
)

// Reference is one finished skeleton image. The module carries the
// exported surface of the source unit plus name-only stubs for its
// reference closure; everything hangs off metadata symbols, so
// accessibility checks see it the way they would see a prebuilt module.
type Reference struct {
	// Module is the rebuilt metadata module. Never nil on a Reference
	// value; "no image producible" is expressed as a nil *Reference.
	Module *symbols.Module
	// Source names the project the image was emitted from.
	Source project.ProjectID
	// Options the image was built under. Part of the cache key.
	Options project.RefOptions
	// Fingerprint covers the source unit and the options, so disk
	// entries invalidate when either changes.
	Fingerprint source.Digest
}

// ID renders the image identity for trace output.
func (r *Reference) ID() string {
	if r == nil {
		return "<none>"
	}
	return r.Module.ID() + " (" + r.Options.String() + ")"
}
