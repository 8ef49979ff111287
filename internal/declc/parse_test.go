package declc

import (
	"testing"

	"ripple/internal/diag"
	"ripple/internal/source"
)

func parseText(t *testing.T, text string) (*File, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(DefaultBagCap)
	f := ParseFile(source.NewDocumentID(), source.NewTextFromString(text), diag.BagReporter{Bag: bag})
	return f, bag
}

func TestParseFileFullGrammar(t *testing.T) {
	f, bag := parseText(t, `
module app

import core        # внешний модуль
pub type Box/1
type hidden
pub nested Box/1 Item
pub fn util.open/2
fn close
forward Old/1 = core
`)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	if f.Module != "app" {
		t.Fatalf("module = %q", f.Module)
	}
	want := []struct {
		kind  DeclKind
		pub   bool
		name  string
		arity int
	}{
		{DeclModule, false, "app", 0},
		{DeclImport, false, "core", 0},
		{DeclType, true, "Box", 1},
		{DeclType, false, "hidden", 0},
		{DeclNested, true, "Item", 0},
		{DeclFunc, true, "open", 2},
		{DeclFunc, false, "close", 0},
		{DeclForward, false, "Old", 1},
	}
	if len(f.Decls) != len(want) {
		t.Fatalf("parsed %d decls, want %d: %+v", len(f.Decls), len(want), f.Decls)
	}
	for i, w := range want {
		d := f.Decls[i]
		if d.Kind != w.kind || d.Pub != w.pub || d.Name != w.name || d.Arity != w.arity {
			t.Fatalf("decl %d = %+v, want %+v", i, d, w)
		}
	}
	nested := f.Decls[4]
	if nested.Container != "Box" || nested.ContainerArity != 1 {
		t.Fatalf("nested container = %q/%d", nested.Container, nested.ContainerArity)
	}
	if fn := f.Decls[5]; fn.NS != "util" {
		t.Fatalf("fn namespace = %q", fn.NS)
	}
	if fwd := f.Decls[7]; fwd.Target != "core" {
		t.Fatalf("forward target = %q", fwd.Target)
	}
}

func TestParseFileRecovers(t *testing.T) {
	cases := []struct {
		text string
		code diag.Code
	}{
		{"type Early\nmodule app", diag.CmpMissingModuleHeader},
		{"module app\nmodule app", diag.CmpDuplicateModuleHeader},
		{"module app\ntype Box/x", diag.CmpInvalidArity},
		{"module app\ntype 9lives", diag.CmpInvalidName},
		{"module app\nwidget Box", diag.CmpUnexpectedLine},
		{"module app\npub import core", diag.CmpUnexpectedLine},
		{"module app\npub", diag.CmpUnexpectedLine},
		{"module app\nforward Old core", diag.CmpUnexpectedLine},
		{"module app\nnested Box", diag.CmpUnexpectedLine},
		{"module bad name", diag.CmpUnexpectedLine},
	}
	for _, tc := range cases {
		_, bag := parseText(t, tc.text)
		found := false
		for _, d := range bag.Items() {
			if d.Code == tc.code {
				found = true
			}
		}
		if !found {
			t.Fatalf("%q: diagnostics %+v miss code %s", tc.text, bag.Items(), tc.code.ID())
		}
	}
}

func TestParseFileKeepsGoingAfterErrors(t *testing.T) {
	f, bag := parseText(t, "module app\ntype Box/x\npub type Ok\n")
	if bag.Len() != 1 {
		t.Fatalf("diagnostics = %+v", bag.Items())
	}
	// хорошая строка после плохой всё равно в файле
	if len(f.Decls) != 2 || f.Decls[1].Name != "Ok" {
		t.Fatalf("decls = %+v", f.Decls)
	}
}

func TestScanLinesSpans(t *testing.T) {
	doc := source.NewDocumentID()
	text := source.NewTextFromString("  # lead\nmodule app\n\npub type Box # tail\n")
	lines := scanLines(doc, text)
	if len(lines) != 2 {
		t.Fatalf("scanned %d lines, want 2", len(lines))
	}
	if lines[0].text != "module app" || lines[0].span.Start != 9 || lines[0].span.End != 19 {
		t.Fatalf("line 0 = %+v", lines[0])
	}
	if lines[1].text != "pub type Box" {
		t.Fatalf("line 1 = %+v", lines[1])
	}
	if got := text.String()[lines[1].span.Start:lines[1].span.End]; got != "pub type Box" {
		t.Fatalf("span slices %q", got)
	}
}
