package declc

import (
	"strings"

	"ripple/internal/source"
)

// rawLine is one significant line with its byte span in the document.
type rawLine struct {
	text string
	span source.Span
}

// scanLines splits normalized text into significant lines. Blank lines and
// '#' comments are dropped; spans stay byte-accurate so every diagnostic
// points at the offending line. Trailing comments are trimmed off the line
// but the span keeps the full extent up to the comment.
func scanLines(doc source.DocumentID, text *source.Text) []rawLine {
	s := text.String()
	lines := make([]rawLine, 0, 16)
	off := uint32(0)
	for len(s) > 0 {
		raw := s
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			raw, s = s[:i], s[i+1:]
		} else {
			s = ""
		}
		lineStart := off
		off += uint32(len(raw)) + 1

		if i := strings.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}
		lead := len(raw) - len(strings.TrimLeft(raw, " \t"))
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		start := lineStart + uint32(lead)
		lines = append(lines, rawLine{
			text: trimmed,
			span: source.Span{Doc: doc, Start: start, End: start + uint32(len(trimmed))},
		})
	}
	return lines
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}

// validIdent accepts one plain identifier segment.
func validIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

// validDotted accepts a dotted identifier path with non-empty segments.
func validDotted(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if !validIdent(seg) {
			return false
		}
	}
	return true
}
