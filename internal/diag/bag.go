package diag

import (
	"bytes"
	"sort"

	"ripple/internal/source"
)

type Bag struct {
	items []Diagnostic
	max   int
}

func NewBag(max int) *Bag {
	if max < 0 {
		max = 0
	}
	return &Bag{
		items: make([]Diagnostic, 0, min(max, 64)),
		max:   max,
	}
}

// Add добавляет диагностику, учитывая лимит.
// Возвращает false, если диагностика не добавлена (достигнут лимит).
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() int {
	return b.max
}

// HasErrors возвращает true, если есть хотя бы одна диагностика с Severity >= Error
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// HasWarnings возвращает true, если есть хотя бы одна диагностика с Severity >= Warning
func (b *Bag) HasWarnings() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevWarning {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items возвращает read-only slice диагностик.
// ВАЖНО: не модифицируйте возвращаемый срез! (он указывает на внутренний массив Bag)
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Clone returns an independent copy. Snapshots hand bags across goroutines,
// so anything that mutates after publication must work on a clone.
func (b *Bag) Clone() *Bag {
	out := &Bag{
		items: make([]Diagnostic, len(b.items)),
		max:   b.max,
	}
	copy(out.items, b.items)
	return out
}

// Merge объединяет диагностики из другого Bag.
// Увеличивает max, если нужно вместить все элементы.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	newTotal := len(b.items) + len(other.items)
	if newTotal > b.max {
		b.max = newTotal
	}
	b.items = append(b.items, other.items...)
}

// Sort сортирует диагностики по: document, start, end, severity (desc), code (asc)
// для стабильного и детерминированного порядка вывода.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Primary.Doc != dj.Primary.Doc {
			return bytes.Compare(di.Primary.Doc[:], dj.Primary.Doc[:]) < 0
		}
		if di.Primary.Start != dj.Primary.Start {
			return di.Primary.Start < dj.Primary.Start
		}
		if di.Primary.End != dj.Primary.End {
			return di.Primary.End < dj.Primary.End
		}
		// severity по убыванию: Error > Warning > Info
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}

// Filter оставляет только диагностики, для которых keep вернул true.
func (b *Bag) Filter(keep func(d *Diagnostic) bool) {
	newitems := b.items[:0]
	for i := range b.items {
		if keep(&b.items[i]) {
			newitems = append(newitems, b.items[i])
		}
	}
	b.items = newitems
}

// Transform применяет f к каждой диагностике, nil результат удаляет её.
func (b *Bag) Transform(f func(d *Diagnostic) *Diagnostic) {
	newitems := b.items[:0]
	for i := range b.items {
		if d := f(&b.items[i]); d != nil {
			newitems = append(newitems, *d)
		}
	}
	b.items = newitems
}

type dedupKey struct {
	code  Code
	doc   source.DocumentID
	start uint32
	end   uint32
}

// простая дедупликация (по Code+Primary)
func (b *Bag) Dedup() {
	seen := make(map[dedupKey]bool, len(b.items))
	newitems := make([]Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		key := dedupKey{code: d.Code, doc: d.Primary.Doc, start: d.Primary.Start, end: d.Primary.End}
		if seen[key] {
			continue
		}
		seen[key] = true
		newitems = append(newitems, d)
	}
	b.items = newitems
}
