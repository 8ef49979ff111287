package source

import (
	"fmt"

	"fortio.org/safecast"
)

// TextFlags encodes what normalization was applied when the text was created.
type TextFlags uint8

const (
	// TextHadBOM indicates a UTF-8 byte order mark was stripped.
	TextHadBOM TextFlags = 1 << iota
	// TextNormalizedCRLF indicates at least one \r\n was rewritten to \n.
	TextNormalizedCRLF
	// TextFromUTF16 indicates the raw bytes carried a UTF-16 BOM and were
	// transcoded to UTF-8.
	TextFromUTF16
)

// Text is an immutable normalized document content. Two Texts with equal
// digests are interchangeable; callers share Texts by pointer and never
// mutate Content or LineIdx.
type Text struct {
	Content []byte
	Hash    Digest
	Flags   TextFlags
	LineIdx []uint32 // байтовые позиции каждого '\n'
}

// LineCol represents a human-readable position in a document.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}

// NewText normalizes raw bytes (UTF-16 transcode, BOM strip, CRLF rewrite)
// and builds the line index and digest. Invalid input sequences are replaced,
// never rejected: the engine must be able to hold every file a user opens.
func NewText(raw []byte) *Text {
	content, flags := decodeBytes(raw)

	content, hadCRLF := normalizeCRLF(content)
	if hadCRLF {
		flags |= TextNormalizedCRLF
	}

	if _, err := safecast.Conv[uint32](len(content)); err != nil {
		panic(fmt.Errorf("text length overflow: %w", err))
	}

	return &Text{
		Content: content,
		Hash:    DigestOf(content),
		Flags:   flags,
		LineIdx: buildLineIndex(content),
	}
}

// NewTextFromString wraps in-memory content (tests, generators, stdin).
func NewTextFromString(s string) *Text {
	return NewText([]byte(s))
}

func (t *Text) Len() uint32 {
	n, err := safecast.Conv[uint32](len(t.Content))
	if err != nil {
		panic(fmt.Errorf("text length overflow: %w", err))
	}
	return n
}

func (t *Text) String() string {
	return string(t.Content)
}

// Equal compares by content digest.
func (t *Text) Equal(other *Text) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	return t.Hash == other.Hash
}

// LineColAt converts a byte offset into a 1-based line/column pair.
func (t *Text) LineColAt(off uint32) LineCol {
	return toLineCol(t.LineIdx, off)
}

// Resolve converts a span's offsets into line/column positions. The span's
// document identity is not checked here; the caller pairs span and text.
func (t *Text) Resolve(sp Span) (start, end LineCol) {
	return toLineCol(t.LineIdx, sp.Start), toLineCol(t.LineIdx, sp.End)
}

// Line возвращает строку с заданным номером (1-based), без завершающего \n.
// Несуществующий номер даёт пустую строку.
func (t *Text) Line(lineNum uint32) string {
	if lineNum == 0 {
		return ""
	}

	lenLineIdx, err := safecast.Conv[uint32](len(t.LineIdx))
	if err != nil {
		panic(fmt.Errorf("line index length overflow: %w", err))
	}
	lenContent := t.Len()

	var start uint32
	switch {
	case lineNum == 1:
		start = 0
	case (lineNum - 2) < lenLineIdx:
		start = t.LineIdx[lineNum-2] + 1
	default:
		return ""
	}

	var end uint32
	if (lineNum - 1) < lenLineIdx {
		end = t.LineIdx[lineNum-1]
	} else {
		end = lenContent
	}

	if start >= lenContent {
		return ""
	}
	if end > lenContent {
		end = lenContent
	}

	return string(t.Content[start:end])
}
