package symbols

import (
	"fmt"
)

// Matcher decides whether two symbol handles denote the same logical
// declaration, even when the handles were obtained through different
// compiled units, different points in time, or differently-versioned module
// references reconciled by type forwarding.
type Matcher struct {
	// VisibleModules reports the modules visible from the compiled unit a
	// symbol was found through: the unit's own module plus its reference
	// closure. Forward verification searches this set by name.
	VisibleModules func(*Symbol) []*Module
}

type typePair struct {
	a, b *Symbol
}

// OriginalsMatch reports whether a and b denote the same declaration.
//
// The fast paths are handle identity and original-definition identity with
// nullability stripped. Past those, the handles are compared structurally
// while ignoring containing-module identity; every non-nested named type
// pair that differed only by module must then be justified by a declared
// type forward. Namespace handles additionally match through merged-
// namespace constituents.
func (m *Matcher) OriginalsMatch(a, b *Symbol) bool {
	if a == nil || b == nil {
		return false
	}
	if a == b {
		return true
	}
	ao := a.Original().StripNullability()
	bo := b.Original().StripNullability()
	if ao == bo {
		return true
	}

	var pairs []typePair
	if m.equivalent(ao, bo, &pairs) {
		if len(pairs) == 0 {
			// структурное сравнение уже было точным по модулям
			return true
		}
		return m.verifyForwardedPairs(pairs)
	}

	if ao.Kind == KindNamespace && bo.Kind == KindNamespace {
		return m.constituentMatch(ao, bo)
	}
	return false
}

func (m *Matcher) equivalent(a, b *Symbol, pairs *[]typePair) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindDynamic:
		return true
	case KindNamespace:
		// Merged handles only equal themselves here; constituent matching
		// happens one level up in OriginalsMatch.
		if a.IsMergedNamespace() || b.IsMergedNamespace() {
			return false
		}
		return namespaceChainEqual(a, b) && a.Module.SameIdentity(b.Module)
	case KindNamedType:
		return m.equivalentTypes(a, b, pairs)
	case KindFunction, KindField:
		if a.Name != b.Name || a.Arity != b.Arity {
			return false
		}
		if !m.equivalentContainers(a.Container, b.Container, pairs) {
			return false
		}
		// Members are not forwardable; their module follows the container
		// for nested members, and the module name for namespace members.
		return moduleNamesEqual(a.Module, b.Module)
	}
	return false
}

func (m *Matcher) equivalentTypes(a, b *Symbol, pairs *[]typePair) bool {
	if a.Name != b.Name || a.Arity != b.Arity {
		return false
	}
	if !m.equivalentContainers(a.Container, b.Container, pairs) {
		return false
	}
	// Nested types never collect their own pair: their module always
	// follows the containing type, which was compared above.
	if !a.Module.SameIdentity(b.Module) && !a.IsNested() {
		*pairs = append(*pairs, typePair{a: a, b: b})
	}
	return true
}

func (m *Matcher) equivalentContainers(a, b *Symbol, pairs *[]typePair) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNamespace:
		// Container namespaces compare by name chain only: a forwarded
		// type's namespaces live in a different module by definition.
		return namespaceChainEqual(a, b)
	case KindNamedType:
		return m.equivalentTypes(a, b, pairs)
	}
	return false
}

func namespaceChainEqual(a, b *Symbol) bool {
	for a != nil || b != nil {
		if a == nil || b == nil {
			return false
		}
		if a.Kind != KindNamespace || b.Kind != KindNamespace {
			return false
		}
		if a.Name != b.Name {
			return false
		}
		a, b = a.Container, b.Container
	}
	return true
}

func moduleNamesEqual(x, y *Module) bool {
	if x == nil || y == nil {
		return x == y
	}
	return x.Name == y.Name
}

func (m *Matcher) verifyForwardedPairs(pairs []typePair) bool {
	if len(pairs) == 0 {
		panic(fmt.Errorf("forward verification entered with no differing-module pairs"))
	}
	for _, p := range pairs {
		if !m.verifyForward(p.a, p.b) && !m.verifyForward(p.b, p.a) {
			return false
		}
	}
	return true
}

// verifyForward checks whether candidate's module, as referenced from the
// unit forwardedTo was found through, declares a type forward for
// candidate's full metadata name that resolves to forwardedTo.
func (m *Matcher) verifyForward(candidate, forwardedTo *Symbol) bool {
	cand := forwardAnchor(candidate)
	target := forwardAnchor(forwardedTo)
	if cand.IsNested() || target.IsNested() {
		panic(fmt.Errorf("nested type in forward verification: %s / %s", cand, target))
	}
	if cand.Module == nil || target.Module == nil || m.VisibleModules == nil {
		return false
	}

	visible := m.VisibleModules(forwardedTo)
	fullName := cand.FullMetadataName()
	for _, decl := range visible {
		if decl == nil || decl.Name != cand.Module.Name {
			continue
		}
		targetName, ok := decl.ForwardTarget(fullName)
		if !ok {
			continue
		}
		tm := FindModule(visible, targetName)
		if tm == nil {
			continue
		}
		resolved := tm.TypeByName(fullName)
		if resolved == nil {
			continue
		}
		if anchorsEqual(forwardAnchor(resolved), target) {
			return true
		}
	}
	return false
}

// forwardAnchor unwraps native-size aliasing first, then reduces to the
// original bare definition.
func forwardAnchor(s *Symbol) *Symbol {
	if u := s.Underlying(); u != nil {
		s = u
	}
	return s.Original().StripNullability()
}

func anchorsEqual(x, y *Symbol) bool {
	if x == y {
		return true
	}
	if x == nil || y == nil {
		return false
	}
	return x.Module.SameIdentity(y.Module) && x.FullMetadataName() == y.FullMetadataName()
}

// constituentMatch handles merged namespaces: a merged handle matches when
// any constituent matches the other side, recursively.
func (m *Matcher) constituentMatch(a, b *Symbol) bool {
	for _, c := range a.Constituents() {
		if m.OriginalsMatch(c, b) {
			return true
		}
	}
	for _, c := range b.Constituents() {
		if m.OriginalsMatch(a, c) {
			return true
		}
	}
	return false
}
