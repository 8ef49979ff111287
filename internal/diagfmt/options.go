package diagfmt

import "path/filepath"

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto chooses relative or absolute path automatically.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	Context   int8 // сколько строк исходника показать перед строкой со span
	PathMode  PathMode
	BaseDir   string // база для относительных путей
	Width     uint8  // максимальная ширина строки, 0 - не ограничено
	ShowNotes bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool // добавить line/col
	PathMode         PathMode
	BaseDir          string
	Max              int // обрезка вывода, не Bag
	IncludeNotes     bool
}

// formatPath приводит путь к выбранному режиму. Ошибка резолва не
// фатальна: возвращаем путь как есть.
func formatPath(path string, mode PathMode, baseDir string) string {
	if path == "" {
		return path
	}
	switch mode {
	case PathModeAbsolute:
		abs, err := filepath.Abs(path)
		if err != nil {
			return path
		}
		return filepath.ToSlash(abs)
	case PathModeRelative:
		if baseDir == "" {
			return filepath.ToSlash(path)
		}
		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return filepath.ToSlash(path)
		}
		return filepath.ToSlash(rel)
	case PathModeBasename:
		return filepath.Base(path)
	default:
		if baseDir != "" && filepath.IsAbs(path) {
			if rel, err := filepath.Rel(baseDir, path); err == nil && filepath.IsLocal(rel) {
				return filepath.ToSlash(rel)
			}
		}
		return filepath.ToSlash(path)
	}
}
