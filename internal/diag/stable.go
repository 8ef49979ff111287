package diag

import (
	"fmt"
	"sort"
	"strings"

	"ripple/internal/source"
)

// DocInfo carries what rendering needs to know about a document.
type DocInfo struct {
	Path string
	Text *source.Text
}

// DocResolver maps a document identity to its path and text. Snapshots
// implement this; tests pass small closures.
type DocResolver func(source.DocumentID) (DocInfo, bool)

type stableLine struct {
	path     string
	line     uint32
	col      uint32
	severity Severity
	code     Code
	text     string
}

// FormatStable renders diagnostics into a stable, single-line-per-entry
// representation suitable for golden files and CLI short output. Unresolvable
// documents render with the raw identity so nothing is silently dropped.
func FormatStable(diags []Diagnostic, resolve DocResolver, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}

	rendered := make([]stableLine, 0, len(diags))
	for _, d := range diags {
		path := d.Primary.Doc.Short()
		line, col := uint32(0), uint32(0)
		if resolve != nil {
			if info, ok := resolve(d.Primary.Doc); ok {
				path = info.Path
				if info.Text != nil {
					lc := info.Text.LineColAt(d.Primary.Start)
					line, col = lc.Line, lc.Col
				}
			}
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "%s %s %s:%d:%d %s", d.Severity, d.Code.ID(), path, line, col, d.Message)
		if includeNotes {
			for _, n := range d.Notes {
				fmt.Fprintf(&sb, "\n  note: %s", n.Msg)
			}
		}

		rendered = append(rendered, stableLine{
			path:     path,
			line:     line,
			col:      col,
			severity: d.Severity,
			code:     d.Code,
			text:     sb.String(),
		})
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		ri, rj := rendered[i], rendered[j]
		if ri.path != rj.path {
			return ri.path < rj.path
		}
		if ri.line != rj.line {
			return ri.line < rj.line
		}
		if ri.col != rj.col {
			return ri.col < rj.col
		}
		if ri.severity != rj.severity {
			return ri.severity > rj.severity
		}
		return ri.code < rj.code
	})

	lines := make([]string, 0, len(rendered))
	for _, r := range rendered {
		lines = append(lines, r.text)
	}
	return strings.Join(lines, "\n")
}
