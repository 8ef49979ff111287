package unit

import "ripple/internal/symbols"

// SymbolMatcher builds a symbol identity resolver over the given compiled
// units. A symbol's visibility comes from the first unit containing its
// defining module, directly or through the reference closure; forward
// verification then searches that unit's reachable modules by name.
func SymbolMatcher(units ...*Unit) *symbols.Matcher {
	return &symbols.Matcher{VisibleModules: visibleModulesFunc(units)}
}

// OriginalSymbolsMatch reports whether a and b denote the same logical
// declaration when observed through the given compiled units. Handles
// obtained through units referencing different versions of a module still
// match when the newer version declares a type forward for the older
// definition.
func OriginalSymbolsMatch(a, b *symbols.Symbol, units ...*Unit) bool {
	return SymbolMatcher(units...).OriginalsMatch(a, b)
}

func visibleModulesFunc(units []*Unit) func(*symbols.Symbol) []*symbols.Module {
	return func(sym *symbols.Symbol) []*symbols.Module {
		for _, u := range units {
			if u == nil {
				continue
			}
			if _, ok := u.ContainsModuleOrDynamic(sym); ok {
				return u.Roots()
			}
		}
		if sym == nil || sym.Module == nil {
			return nil
		}
		// модуль символа достижим только через ссылку ссылки
		for _, u := range units {
			if u == nil {
				continue
			}
			for _, m := range u.Roots() {
				if m == sym.Module || m.SameIdentity(sym.Module) {
					return u.Roots()
				}
			}
		}
		return nil
	}
}
