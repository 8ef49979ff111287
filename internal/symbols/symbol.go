package symbols

import (
	"fmt"
	"strings"
)

// Kind classifies the semantic meaning of a symbol handle.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNamespace
	KindNamedType
	KindFunction
	KindField
	KindDynamic
)

func (k Kind) String() string {
	switch k {
	case KindNamespace:
		return "namespace"
	case KindNamedType:
		return "type"
	case KindFunction:
		return "function"
	case KindField:
		return "field"
	case KindDynamic:
		return "dynamic"
	default:
		return "invalid"
	}
}

// Access mirrors the declared accessibility ladder of the declaration
// language, ordered from most restrictive to least.
type Access uint8

const (
	AccessPrivate Access = iota
	AccessProtectedAndInternal
	AccessInternal
	AccessProtected
	AccessProtectedOrInternal
	AccessPublic
)

func (a Access) String() string {
	switch a {
	case AccessPrivate:
		return "private"
	case AccessProtectedAndInternal:
		return "protected-and-internal"
	case AccessInternal:
		return "internal"
	case AccessProtected:
		return "protected"
	case AccessProtectedOrInternal:
		return "protected-or-internal"
	case AccessPublic:
		return "public"
	}
	return "unknown"
}

// Symbol is a handle to one logical declaration. Handles are interned per
// Module for canonical definitions; instantiations and nullability-annotated
// views wrap a canonical handle and point back to it.
//
// Identity questions go through Matcher, never through field comparison.
type Symbol struct {
	Name      string
	Kind      Kind
	Arity     int // type parameters for types, parameters for functions
	Container *Symbol
	Module    *Module // nil for dynamic handles and merged namespaces
	Access    Access
	// FromSource marks declarations compiled from user text rather than
	// loaded from a metadata-only reference.
	FromSource bool

	origin       *Symbol   // original definition for instantiated views
	bare         *Symbol   // nullability-stripped view
	underlying   *Symbol   // native-size alias target (nint style)
	args         []*Symbol // instantiation arguments
	constituents []*Symbol // merged namespace parts
}

// Original reduces an instantiated view to its original definition.
func (s *Symbol) Original() *Symbol {
	if s.origin != nil {
		return s.origin
	}
	return s
}

// StripNullability drops a nullability annotation view.
func (s *Symbol) StripNullability() *Symbol {
	if s.bare != nil {
		return s.bare
	}
	return s
}

// Underlying returns the aliased native definition, or nil.
func (s *Symbol) Underlying() *Symbol {
	return s.underlying
}

// TypeArgs returns instantiation arguments (nil for definitions).
func (s *Symbol) TypeArgs() []*Symbol {
	return s.args
}

// Constituents returns the per-module parts of a merged namespace.
func (s *Symbol) Constituents() []*Symbol {
	return s.constituents
}

// IsMergedNamespace reports whether the handle unifies namespaces from
// several modules.
func (s *Symbol) IsMergedNamespace() bool {
	return s.Kind == KindNamespace && len(s.constituents) > 0
}

// IsNested reports whether a named type is declared inside another type.
func (s *Symbol) IsNested() bool {
	return s.Kind == KindNamedType && s.Container != nil && s.Container.Kind == KindNamedType
}

// MetadataName is the symbol's own metadata segment: the name plus a
// backtick arity suffix for generic types.
func (s *Symbol) MetadataName() string {
	if s.Kind == KindNamedType && s.Arity > 0 {
		return fmt.Sprintf("%s`%d", s.Name, s.Arity)
	}
	return s.Name
}

// FullMetadataName joins the container chain with the symbol's own segment.
// Namespace segments join with '.', nested type segments with '+'.
func (s *Symbol) FullMetadataName() string {
	var segs []string
	seg := s.MetadataName()
	for c := s.Container; c != nil; c = c.Container {
		switch c.Kind {
		case KindNamespace:
			if c.Name != "" {
				segs = append(segs, c.Name)
			}
		case KindNamedType:
			seg = c.MetadataName() + "+" + seg
		default:
		}
	}
	if len(segs) == 0 {
		return seg
	}
	// container chain was collected inner-to-outer
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, ".") + "." + seg
}

func (s *Symbol) String() string {
	if s == nil {
		return "<nil>"
	}
	mod := "?"
	if s.Module != nil {
		mod = s.Module.ID()
	} else if s.IsMergedNamespace() {
		mod = "merged"
	}
	return fmt.Sprintf("%s %s (%s)", s.Kind, s.FullMetadataName(), mod)
}

// Instantiate produces a view of a generic definition applied to arguments.
// The view keeps the definition reachable through Original.
func Instantiate(def *Symbol, args ...*Symbol) *Symbol {
	if def == nil {
		return nil
	}
	if len(args) != def.Arity {
		panic(fmt.Errorf("instantiate %s: %d args for arity %d", def.MetadataName(), len(args), def.Arity))
	}
	return &Symbol{
		Name:       def.Name,
		Kind:       def.Kind,
		Arity:      def.Arity,
		Container:  def.Container,
		Module:     def.Module,
		Access:     def.Access,
		FromSource: def.FromSource,
		origin:     def.Original(),
		args:       args,
	}
}

// WithNullability produces an annotated view of a symbol. Annotation never
// affects identity; Matcher strips it before comparing.
func WithNullability(s *Symbol) *Symbol {
	if s == nil {
		return nil
	}
	out := *s
	out.bare = s.StripNullability()
	if s.origin != nil {
		out.origin = s.origin
	}
	return &out
}

// NewMergedNamespace unifies same-named namespaces from several modules into
// one handle. Constituents may themselves be merged.
func NewMergedNamespace(name string, constituents ...*Symbol) *Symbol {
	for _, c := range constituents {
		if c == nil || c.Kind != KindNamespace {
			panic(fmt.Errorf("merged namespace %q: constituent must be a namespace", name))
		}
	}
	return &Symbol{
		Name:         name,
		Kind:         KindNamespace,
		constituents: constituents,
	}
}

// Dynamic is the shared handle for the dynamic type. It belongs to no module;
// containment tests treat it specially.
var Dynamic = &Symbol{Name: "dynamic", Kind: KindDynamic}
