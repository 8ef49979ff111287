package skeleton

import (
	"fmt"
	"strings"

	"ripple/internal/project"
	"ripple/internal/source"
	"ripple/internal/symbols"
	"ripple/internal/unit"
)

// Emit projects a compiled unit into a metadata-only image. Units with
// error diagnostics produce no image: the nil return is a definitive
// "nothing to link against", not a transient failure.
func Emit(u *unit.Unit, opts project.RefOptions) *Reference {
	if u == nil || u.Diagnostics().HasErrors() {
		return nil
	}
	stubs := make(map[*symbols.Module]*symbols.Module)
	img := emitModule(u.Module(), stubs, true)
	return &Reference{
		Module:  img,
		Source:  u.Project(),
		Options: opts,
		Fingerprint: source.Combine(
			source.DigestOfString("skeleton"),
			u.Fingerprint(),
			source.DigestOfString(opts.String()),
		),
	}
}

// emitModule copies one module into the image. Only the primary module
// gets its declarations copied; the reference closure becomes identity
// stubs that still carry their forward tables, so forwarded lookups
// resolve through the image the same way they resolve through the unit.
func emitModule(src *symbols.Module, stubs map[*symbols.Module]*symbols.Module, primary bool) *symbols.Module {
	if src == nil {
		return nil
	}
	if img, ok := stubs[src]; ok {
		return img
	}
	img := symbols.NewModule(src.Name, src.Version)
	// регистрируем до рекурсии, иначе цикл ссылок не завершится
	stubs[src] = img
	for _, fwd := range src.Forwards() {
		img.AddForward(fwd[0], fwd[1])
	}
	for _, ref := range src.Refs() {
		img.AddReference(emitModule(ref, stubs, false))
	}
	if primary {
		copySurface(src, img)
	}
	return img
}

// copySurface copies the exported declarations. Types() is sorted by
// metadata name, which puts every container strictly before its nested
// types, so one pass suffices.
func copySurface(src, img *symbols.Module) {
	for _, t := range src.Types() {
		if !exportedAccess(t.Access) {
			continue
		}
		if t.IsNested() {
			container := img.TypeByName(t.Container.FullMetadataName())
			if container == nil {
				// контейнер не экспортирован, вложенный тип тоже пропускаем
				continue
			}
			img.DefineNested(container, t.Name, t.Arity, t.Access, false)
			continue
		}
		img.DefineType(dottedName(t), t.Arity, t.Access, false)
	}
	for _, f := range src.Members() {
		if f.Kind != symbols.KindFunction || !exportedAccess(f.Access) {
			continue
		}
		img.DefineFunc(namespacePath(f), f.Name, f.Arity, f.Access, false)
	}
}

// exportedAccess mirrors the metadata accessibility set: everything a
// depending compilation could legally see through a reference.
func exportedAccess(a symbols.Access) bool {
	switch a {
	case symbols.AccessPublic, symbols.AccessProtected, symbols.AccessProtectedOrInternal:
		return true
	default:
		return false
	}
}

func dottedName(t *symbols.Symbol) string {
	full := t.FullMetadataName()
	if t.Arity > 0 {
		full = strings.TrimSuffix(full, fmt.Sprintf("`%d", t.Arity))
	}
	return full
}

func namespacePath(s *symbols.Symbol) string {
	if s.Container == nil {
		return ""
	}
	return s.Container.FullMetadataName()
}
