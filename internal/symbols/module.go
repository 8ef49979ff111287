package symbols

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

// Module models one referenced compilation input: an identity (name plus
// version proper), the modules it references, its exported declarations, and
// the type forwards it declares. Units own materialized Modules; skeleton
// references rebuild them from payloads, in which case transitive refs are
// name-only stubs.
type Module struct {
	Name    string
	Version string // semver, may be empty for unversioned modules

	refs     []*Module
	forwards map[string]string  // full metadata name -> target module name
	types    map[string]*Symbol // full metadata name -> canonical handle
	members  []*Symbol          // exported non-type members (functions)
	global   *Symbol            // root namespace
	nsIndex  map[string]*Symbol // namespace path -> handle
}

func NewModule(name, version string) *Module {
	m := &Module{
		Name:     name,
		Version:  version,
		forwards: make(map[string]string),
		types:    make(map[string]*Symbol),
		nsIndex:  make(map[string]*Symbol),
	}
	m.global = &Symbol{Kind: KindNamespace, Module: m}
	m.nsIndex[""] = m.global
	return m
}

// ID renders the identity as name@version.
func (m *Module) ID() string {
	if m.Version == "" {
		return m.Name
	}
	return m.Name + "@" + m.Version
}

// SameIdentity reports whether two module values denote the same module
// build, regardless of which unit materialized them.
func (m *Module) SameIdentity(other *Module) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Name == other.Name && m.Version == other.Version
}

// CompareVersion orders same-named modules by semantic version. Versions are
// canonicalized to the v-prefixed form semver expects; an empty version sorts
// lowest.
func (m *Module) CompareVersion(other *Module) int {
	return semver.Compare(canonVersion(m.Version), canonVersion(other.Version))
}

func canonVersion(v string) string {
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// AddReference records a module this module references. Stub modules (name
// only) are allowed; the rooted closure walks through them.
func (m *Module) AddReference(ref *Module) {
	if ref == nil || ref == m {
		return
	}
	for _, r := range m.refs {
		if r == ref {
			return
		}
	}
	m.refs = append(m.refs, ref)
}

// Refs returns the directly referenced modules.
func (m *Module) Refs() []*Module {
	return m.refs
}

// AddForward declares that fullName, nominally of this module, actually
// resides in the module named target.
func (m *Module) AddForward(fullName, target string) {
	m.forwards[fullName] = target
}

// ForwardTarget reports the declared forward target for fullName.
func (m *Module) ForwardTarget(fullName string) (string, bool) {
	t, ok := m.forwards[fullName]
	return t, ok
}

// Forwards returns the forward table sorted by forwarded name.
func (m *Module) Forwards() [][2]string {
	out := make([][2]string, 0, len(m.forwards))
	for name, target := range m.forwards {
		out = append(out, [2]string{name, target})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// Namespace interns the namespace chain for a dotted path and returns the
// innermost handle. The empty path is the root namespace.
func (m *Module) Namespace(path string) *Symbol {
	if ns, ok := m.nsIndex[path]; ok {
		return ns
	}
	parentPath := ""
	name := path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		parentPath, name = path[:i], path[i+1:]
	}
	ns := &Symbol{
		Name:      name,
		Kind:      KindNamespace,
		Container: m.Namespace(parentPath),
		Module:    m,
	}
	m.nsIndex[path] = ns
	return ns
}

// DefineType interns a canonical named type. fullName is the dotted
// namespace path plus the plain name; arity is appended as the metadata
// suffix. Defining the same type twice returns the existing handle.
func (m *Module) DefineType(fullName string, arity int, access Access, fromSource bool) *Symbol {
	nsPath := ""
	name := fullName
	if i := strings.LastIndexByte(fullName, '.'); i >= 0 {
		nsPath, name = fullName[:i], fullName[i+1:]
	}
	sym := &Symbol{
		Name:       name,
		Kind:       KindNamedType,
		Arity:      arity,
		Container:  m.Namespace(nsPath),
		Module:     m,
		Access:     access,
		FromSource: fromSource,
	}
	key := sym.FullMetadataName()
	if existing, ok := m.types[key]; ok {
		return existing
	}
	m.types[key] = sym
	return sym
}

// DefineNested interns a type declared inside another type of this module.
func (m *Module) DefineNested(container *Symbol, name string, arity int, access Access, fromSource bool) *Symbol {
	if container == nil || container.Kind != KindNamedType || container.Module != m {
		panic(fmt.Errorf("define nested %q: container must be a named type of module %s", name, m.ID()))
	}
	sym := &Symbol{
		Name:       name,
		Kind:       KindNamedType,
		Arity:      arity,
		Container:  container,
		Module:     m,
		Access:     access,
		FromSource: fromSource,
	}
	key := sym.FullMetadataName()
	if existing, ok := m.types[key]; ok {
		return existing
	}
	m.types[key] = sym
	return sym
}

// DefineFunc interns an exported function under a namespace path.
func (m *Module) DefineFunc(nsPath, name string, arity int, access Access, fromSource bool) *Symbol {
	sym := &Symbol{
		Name:       name,
		Kind:       KindFunction,
		Arity:      arity,
		Container:  m.Namespace(nsPath),
		Module:     m,
		Access:     access,
		FromSource: fromSource,
	}
	m.members = append(m.members, sym)
	return sym
}

// DefineNativeAlias returns a native-size alias view (nint style): a named
// type sharing the underlying definition's metadata identity. The view is
// not interned; TypeByName keeps resolving to the underlying definition.
func (m *Module) DefineNativeAlias(underlying *Symbol) *Symbol {
	if underlying == nil || underlying.Kind != KindNamedType || underlying.Module != m {
		panic(fmt.Errorf("native alias in %s: underlying must be a named type of this module", m.ID()))
	}
	return &Symbol{
		Name:       underlying.Name,
		Kind:       KindNamedType,
		Arity:      underlying.Arity,
		Container:  underlying.Container,
		Module:     m,
		Access:     underlying.Access,
		underlying: underlying,
	}
}

// TypeByName resolves a canonical type by full metadata name.
func (m *Module) TypeByName(fullName string) *Symbol {
	if m == nil {
		return nil
	}
	return m.types[fullName]
}

// Types returns canonical types sorted by metadata name, for deterministic
// skeleton emission.
func (m *Module) Types() []*Symbol {
	keys := make([]string, 0, len(m.types))
	for k := range m.types {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Symbol, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.types[k])
	}
	return out
}

// Members returns exported non-type members in declaration order.
func (m *Module) Members() []*Symbol {
	return m.members
}

// FindModule locates a module by name in a list, preferring the newest
// version when duplicates occur.
func FindModule(mods []*Module, name string) *Module {
	var best *Module
	for _, m := range mods {
		if m == nil || m.Name != name {
			continue
		}
		if best == nil || best.CompareVersion(m) < 0 {
			best = m
		}
	}
	return best
}
