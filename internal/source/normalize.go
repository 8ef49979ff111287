package source

import (
	"slices"

	"golang.org/x/text/encoding/unicode"
)

// decodeBytes transcodes UTF-16 input (detected by BOM) to UTF-8 and strips a
// UTF-8 BOM when present.
func decodeBytes(raw []byte) ([]byte, TextFlags) {
	if len(raw) >= 2 {
		le := raw[0] == 0xFF && raw[1] == 0xFE
		be := raw[0] == 0xFE && raw[1] == 0xFF
		if le || be {
			// UseBOM: декодер сам выбирает порядок байт по BOM.
			dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
			if out, err := dec.Bytes(raw); err == nil {
				return out, TextFromUTF16
			}
			return raw, 0
		}
	}
	if out, had := removeUTF8BOM(raw); had {
		return out, TextHadBOM
	}
	return raw, 0
}

func removeUTF8BOM(content []byte) ([]byte, bool) {
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:], true
	}
	return content, false
}

// normalizeCRLF заменяет все \r\n на \n, не трогая одиночные \r.
func normalizeCRLF(content []byte) ([]byte, bool) {
	if !slices.Contains(content, '\r') {
		return content, false
	}

	out := make([]byte, 0, len(content))
	changed := false

	i := 0
	for i < len(content) {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			out = append(out, '\n')
			i += 2
			changed = true
		} else {
			out = append(out, content[i])
			i++
		}
	}
	return out, changed
}

func buildLineIndex(content []byte) []uint32 {
	var out []uint32
	for i, b := range content {
		if b == '\n' {
			out = append(out, uint32(i)) //nolint:gosec // length checked in NewText
		}
	}
	return out
}

func toLineCol(lineIdx []uint32, off uint32) LineCol {
	// Пустой индекс: весь текст - одна строка.
	if len(lineIdx) == 0 {
		return LineCol{Line: 1, Col: off + 1}
	}

	// бинпоиск: наибольший lineIdx[i] < off. Сам '\n' принадлежит строке,
	// которую он завершает.
	lo, hi := 0, len(lineIdx)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		if lineIdx[mid] < off {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	// hi == -1: до первого \n, это первая строка.
	if hi < 0 {
		return LineCol{Line: 1, Col: off + 1}
	}

	startOff := lineIdx[hi] + 1
	return LineCol{Line: uint32(hi + 2), Col: off - startOff + 1} //nolint:gosec // bounded by index length
}
