package diag

import (
	"strings"
	"testing"

	"ripple/internal/source"
)

func TestBagRespectsLimit(t *testing.T) {
	bag := NewBag(2)
	sp := source.Span{Doc: source.NewDocumentID()}

	if !bag.Add(NewError(CmpUnknownType, sp, "first")) {
		t.Fatalf("first add should succeed")
	}
	if !bag.Add(NewError(CmpUnknownType, sp, "second")) {
		t.Fatalf("second add should succeed")
	}
	if bag.Add(NewError(CmpUnknownType, sp, "third")) {
		t.Fatalf("third add should be rejected by the limit")
	}
	if bag.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", bag.Len())
	}
}

func TestBagMergeGrowsLimit(t *testing.T) {
	a := NewBag(1)
	b := NewBag(2)
	sp := source.Span{Doc: source.NewDocumentID()}

	a.Add(NewError(ProjMissingProject, sp, "a"))
	b.Add(NewError(ProjMissingProject, sp, "b1"))
	b.Add(NewWarning(ProjInvalidVersion, sp, "b2"))

	a.Merge(b)
	if a.Len() != 3 {
		t.Fatalf("expected merged bag to hold 3 items, got %d", a.Len())
	}
	if !a.HasErrors() || !a.HasWarnings() {
		t.Fatalf("expected merged bag to report errors and warnings")
	}
}

func TestBagSortIsDeterministic(t *testing.T) {
	doc := source.NewDocumentID()
	bag := NewBag(10)

	bag.Add(NewWarning(ProjInvalidVersion, source.Span{Doc: doc, Start: 5, End: 6}, "late"))
	bag.Add(NewError(CmpUnknownType, source.Span{Doc: doc, Start: 1, End: 2}, "early"))
	bag.Add(NewError(CmpDuplicateType, source.Span{Doc: doc, Start: 5, End: 6}, "same span, error wins"))

	bag.Sort()
	items := bag.Items()
	if items[0].Message != "early" {
		t.Fatalf("expected position order first, got %q", items[0].Message)
	}
	if items[1].Severity != SevError {
		t.Fatalf("expected error before warning at the same span, got %v", items[1].Severity)
	}
}

func TestBagDedupByCodeAndSpan(t *testing.T) {
	doc := source.NewDocumentID()
	sp := source.Span{Doc: doc, Start: 3, End: 7}
	bag := NewBag(10)

	bag.Add(NewError(CmpUnknownType, sp, "once"))
	bag.Add(NewError(CmpUnknownType, sp, "twice"))
	bag.Add(NewError(CmpUnknownType, source.Span{Doc: doc, Start: 8, End: 9}, "elsewhere"))

	bag.Dedup()
	if bag.Len() != 2 {
		t.Fatalf("expected dedup to keep 2 items, got %d", bag.Len())
	}
}

func TestBagCloneIsIndependent(t *testing.T) {
	bag := NewBag(4)
	sp := source.Span{Doc: source.NewDocumentID()}
	bag.Add(NewError(GenFailed, sp, "original"))

	clone := bag.Clone()
	clone.Add(NewWarning(GenInvalidHint, sp, "extra"))

	if bag.Len() != 1 {
		t.Fatalf("expected original bag untouched, got %d items", bag.Len())
	}
	if clone.Len() != 2 {
		t.Fatalf("expected clone to hold 2 items, got %d", clone.Len())
	}
}

func TestDedupReporterSuppressesRepeats(t *testing.T) {
	bag := NewBag(10)
	rep := NewDedupReporter(BagReporter{Bag: bag})
	sp := source.Span{Doc: source.NewDocumentID(), Start: 1, End: 4}

	rep.Report(CmpUnknownType, SevError, sp, "missing type", nil)
	rep.Report(CmpUnknownType, SevError, sp, "missing type", nil)
	rep.Report(CmpUnknownType, SevError, sp, "different message", nil)

	if bag.Len() != 2 {
		t.Fatalf("expected 2 unique diagnostics, got %d", bag.Len())
	}
}

func TestCodeIDUsesRangePrefix(t *testing.T) {
	cases := []struct {
		code Code
		want string
	}{
		{IOReadFile, "IO1001"},
		{ProjReferenceCycle, "PRJ2004"},
		{CmpUnknownType, "CMP3004"},
		{GenFailed, "GEN4001"},
		{SklSourceHasErrors, "SKL5001"},
		{ObsTimings, "OBS6001"},
		{UnknownCode, "E0000"},
	}
	for _, tc := range cases {
		if got := tc.code.ID(); got != tc.want {
			t.Fatalf("code %d: expected %q, got %q", tc.code, tc.want, got)
		}
	}
}

func TestFormatStableSortsByPath(t *testing.T) {
	docA := source.NewDocumentID()
	docB := source.NewDocumentID()
	textA := source.NewTextFromString("one\ntwo\n")
	textB := source.NewTextFromString("alpha")

	resolver := func(id source.DocumentID) (DocInfo, bool) {
		switch id {
		case docA:
			return DocInfo{Path: "b.rpl", Text: textA}, true
		case docB:
			return DocInfo{Path: "a.rpl", Text: textB}, true
		}
		return DocInfo{}, false
	}

	diags := []Diagnostic{
		NewError(CmpUnknownType, source.Span{Doc: docA, Start: 4, End: 7}, "from b"),
		NewError(CmpUnknownType, source.Span{Doc: docB, Start: 0, End: 5}, "from a"),
	}

	out := FormatStable(diags, resolver, false)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "a.rpl:1:1") {
		t.Fatalf("expected a.rpl first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "b.rpl:2:1") {
		t.Fatalf("expected b.rpl second with line 2, got %q", lines[1])
	}
}
