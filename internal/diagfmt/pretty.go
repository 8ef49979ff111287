package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"ripple/internal/diag"
	"ripple/internal/source"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	gutterColor  = color.New(color.FgBlue)
	caretColor   = color.New(color.FgGreen, color.Bold)
)

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes с аналогичным форматом.
// Скрытые диагностики не печатаются: это машинный контекст, не сообщение
// пользователю. Цвет включается опцией.
func Pretty(w io.Writer, bag *diag.Bag, resolve diag.DocResolver, opts PrettyOpts) {
	for _, d := range bag.Items() {
		if d.Severity == diag.SevHidden {
			continue
		}
		writeHeading(w, d.Severity, d.Code, d.Primary, d.Message, resolve, opts)
		writeSnippet(w, d.Primary, resolve, opts)
		if opts.ShowNotes {
			for _, n := range d.Notes {
				fmt.Fprintf(w, "  note: %s%s\n", locationPrefix(n.Span, resolve, opts), n.Msg)
			}
		}
	}
}

func writeHeading(w io.Writer, sev diag.Severity, code diag.Code, sp source.Span, msg string, resolve diag.DocResolver, opts PrettyOpts) {
	label := sev.String()
	codeID := code.ID()
	if opts.Color {
		c := severityColor(sev)
		label = c.Sprint(label)
		codeID = c.Sprint(codeID)
	}
	fmt.Fprintf(w, "%s%s %s: %s\n", locationPrefix(sp, resolve, opts), label, codeID, msg)
}

// locationPrefix даёт "path:line:col: " либо пустую строку, когда span не
// привязан к документу (диагностики уровня workspace).
func locationPrefix(sp source.Span, resolve diag.DocResolver, opts PrettyOpts) string {
	if resolve == nil || !sp.Doc.IsValid() {
		return ""
	}
	info, ok := resolve(sp.Doc)
	if !ok {
		return sp.Doc.Short() + ": "
	}
	path := formatPath(info.Path, opts.PathMode, opts.BaseDir)
	if info.Text == nil {
		return path + ": "
	}
	lc := info.Text.LineColAt(sp.Start)
	return fmt.Sprintf("%s:%d:%d: ", path, lc.Line, lc.Col)
}

// writeSnippet печатает строки контекста, строку со span и подчёркивание
// ^~~~ под ней. Ширина подчёркивания считается в экранных колонках, иначе
// каретка уезжает на широких рунах.
func writeSnippet(w io.Writer, sp source.Span, resolve diag.DocResolver, opts PrettyOpts) {
	if resolve == nil || !sp.Doc.IsValid() {
		return
	}
	info, ok := resolve(sp.Doc)
	if !ok || info.Text == nil {
		return
	}
	start, end := info.Text.Resolve(sp)

	first := start.Line
	if opts.Context > 0 {
		ctx := uint32(opts.Context)
		if ctx >= first {
			first = 1
		} else {
			first -= ctx
		}
	}
	for ln := first; ln <= start.Line; ln++ {
		writeSourceLine(w, ln, info.Text.Line(ln), opts)
	}

	line := info.Text.Line(start.Line)
	prefix := sliceColumns(line, 1, start.Col)
	var spanned string
	if end.Line == start.Line {
		spanned = sliceColumns(line, start.Col, end.Col)
	} else {
		// многострочный span подчёркиваем до конца первой строки
		spanned = sliceColumns(line, start.Col, uint32(len(line))+1)
	}
	pad := strings.Repeat(" ", runewidth.StringWidth(prefix))
	width := runewidth.StringWidth(spanned)
	if width < 1 {
		width = 1
	}
	caret := "^" + strings.Repeat("~", width-1)
	if opts.Color {
		caret = caretColor.Sprint(caret)
	}
	gutter := "     | "
	if opts.Color {
		gutter = gutterColor.Sprint(gutter)
	}
	fmt.Fprintf(w, "%s%s%s\n", gutter, pad, caret)
}

func writeSourceLine(w io.Writer, num uint32, text string, opts PrettyOpts) {
	if opts.Width > 0 {
		text = runewidth.Truncate(text, int(opts.Width), "...")
	}
	gutter := fmt.Sprintf("%4d | ", num)
	if opts.Color {
		gutter = gutterColor.Sprint(gutter)
	}
	fmt.Fprintf(w, "%s%s\n", gutter, text)
}

// sliceColumns вырезает [fromCol, toCol) из строки, колонки 1-based в байтах
// совпадают с тем, как Text считает колонки.
func sliceColumns(line string, fromCol, toCol uint32) string {
	n := uint32(len(line))
	if fromCol < 1 {
		fromCol = 1
	}
	if fromCol > n+1 {
		fromCol = n + 1
	}
	if toCol < fromCol {
		toCol = fromCol
	}
	if toCol > n+1 {
		toCol = n + 1
	}
	return line[fromCol-1 : toCol-1]
}

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return errorColor
	case diag.SevWarning:
		return warningColor
	default:
		return infoColor
	}
}
