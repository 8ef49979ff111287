package symbols

// IsAccessible reports whether a symbol can be surfaced to identity and
// search features. Source-declared symbols are always accessible at this
// layer; visibility enforcement between source declarations is a separate
// concern. Symbols loaded from metadata-only references are accessible only
// when their declared accessibility crosses a module boundary.
func IsAccessible(s *Symbol) bool {
	if s == nil {
		return false
	}
	if s.FromSource {
		return true
	}
	switch s.Access {
	case AccessPublic, AccessProtected, AccessProtectedOrInternal:
		return true
	}
	return false
}
