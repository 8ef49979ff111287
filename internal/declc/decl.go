// Package declc is the reference declaration front end: a deliberately
// small compiler for declaration files (module header, import, type,
// nested type, function and forward lines) that plugs real Compile and
// bind capabilities into the engine. The engine never imports it; it is
// one swappable collaborator the CLI and integration tests run against.
package declc

import (
	"fmt"

	"ripple/internal/source"
)

type DeclKind uint8

const (
	DeclModule DeclKind = iota
	DeclImport
	DeclType
	DeclNested
	DeclFunc
	DeclForward
)

// Decl is one parsed declaration line.
type Decl struct {
	Kind DeclKind
	Pub  bool
	// Name is the declared plain name; for DeclModule and DeclImport it is
	// the module name.
	Name string
	// Container is the declaring type name for DeclNested.
	Container string
	// ContainerArity is the declaring type's arity for DeclNested.
	ContainerArity int
	// NS is the dotted namespace path under the module root for DeclFunc.
	NS string
	// Target is the destination module for DeclForward.
	Target string
	Arity  int
	Span   source.Span
}

// File is one parsed declaration document. Parsing never fails outright:
// bad lines become diagnostics and the rest of the file still loads.
type File struct {
	Doc        source.DocumentID
	Module     string
	ModuleSpan source.Span
	Decls      []Decl
}

// metaName renders the metadata segment for a plain name and arity, the
// same way symbol handles render theirs.
func metaName(name string, arity int) string {
	if arity > 0 {
		return fmt.Sprintf("%s`%d", name, arity)
	}
	return name
}
