package declc

import (
	"fmt"
	"strconv"
	"strings"

	"ripple/internal/diag"
	"ripple/internal/source"
)

// ParseFile parses one declaration document. Every malformed line becomes
// a diagnostic and is skipped; the returned file carries whatever parsed.
func ParseFile(doc source.DocumentID, text *source.Text, rep diag.Reporter) *File {
	f := &File{Doc: doc}
	headerMissing := false
	for _, ln := range scanLines(doc, text) {
		fields := strings.Fields(ln.text)
		pub := false
		if fields[0] == "pub" {
			pub = true
			fields = fields[1:]
			if len(fields) == 0 {
				diag.ReportError(rep, diag.CmpUnexpectedLine, ln.span, "'pub' needs a declaration").Emit()
				continue
			}
		}
		kw, rest := fields[0], fields[1:]

		if f.Module == "" && !headerMissing && kw != "module" {
			diag.ReportError(rep, diag.CmpMissingModuleHeader, ln.span,
				"declaration file must start with a module header").Emit()
			// дальше разбираем как есть, модуль останется пустым
			headerMissing = true
		}

		switch kw {
		case "module":
			if pub || len(rest) != 1 {
				diag.ReportError(rep, diag.CmpUnexpectedLine, ln.span, "malformed module header").Emit()
				continue
			}
			if !validIdent(rest[0]) {
				diag.ReportError(rep, diag.CmpInvalidName, ln.span,
					fmt.Sprintf("invalid module name %q", rest[0])).Emit()
				continue
			}
			if f.Module != "" {
				diag.ReportError(rep, diag.CmpDuplicateModuleHeader, ln.span,
					"module header declared twice").WithNote(f.ModuleSpan, "first header here").Emit()
				continue
			}
			f.Module = rest[0]
			f.ModuleSpan = ln.span
			f.Decls = append(f.Decls, Decl{Kind: DeclModule, Name: rest[0], Span: ln.span})

		case "import":
			if pub || len(rest) != 1 {
				diag.ReportError(rep, diag.CmpUnexpectedLine, ln.span, "malformed import").Emit()
				continue
			}
			if !validIdent(rest[0]) {
				diag.ReportError(rep, diag.CmpInvalidName, ln.span,
					fmt.Sprintf("invalid import name %q", rest[0])).Emit()
				continue
			}
			f.Decls = append(f.Decls, Decl{Kind: DeclImport, Name: rest[0], Span: ln.span})

		case "type":
			name, arity, ok := parseNameArity(rest, ln.span, rep)
			if !ok {
				continue
			}
			f.Decls = append(f.Decls, Decl{Kind: DeclType, Pub: pub, Name: name, Arity: arity, Span: ln.span})

		case "nested":
			if len(rest) != 2 {
				diag.ReportError(rep, diag.CmpUnexpectedLine, ln.span,
					"nested declaration needs a container and a name").Emit()
				continue
			}
			outer, outerArity, ok := parseNameArity(rest[:1], ln.span, rep)
			if !ok {
				continue
			}
			name, arity, ok := parseNameArity(rest[1:], ln.span, rep)
			if !ok {
				continue
			}
			f.Decls = append(f.Decls, Decl{
				Kind: DeclNested, Pub: pub, Name: name, Arity: arity,
				Container: outer, ContainerArity: outerArity, Span: ln.span,
			})

		case "fn":
			if len(rest) != 1 {
				diag.ReportError(rep, diag.CmpUnexpectedLine, ln.span, "malformed function declaration").Emit()
				continue
			}
			path, arity, err := splitArity(rest[0])
			if err != nil {
				diag.ReportError(rep, diag.CmpInvalidArity, ln.span, err.Error()).Emit()
				continue
			}
			if !validDotted(path) {
				diag.ReportError(rep, diag.CmpInvalidName, ln.span,
					fmt.Sprintf("invalid function name %q", path)).Emit()
				continue
			}
			ns := ""
			name := path
			if i := strings.LastIndexByte(path, '.'); i >= 0 {
				ns, name = path[:i], path[i+1:]
			}
			f.Decls = append(f.Decls, Decl{Kind: DeclFunc, Pub: pub, Name: name, NS: ns, Arity: arity, Span: ln.span})

		case "forward":
			if pub || len(rest) != 3 || rest[1] != "=" {
				diag.ReportError(rep, diag.CmpUnexpectedLine, ln.span,
					"forward declaration must be 'forward Name = module'").Emit()
				continue
			}
			name, arity, ok := parseNameArity(rest[:1], ln.span, rep)
			if !ok {
				continue
			}
			if !validIdent(rest[2]) {
				diag.ReportError(rep, diag.CmpInvalidName, ln.span,
					fmt.Sprintf("invalid forward target %q", rest[2])).Emit()
				continue
			}
			f.Decls = append(f.Decls, Decl{Kind: DeclForward, Name: name, Arity: arity, Target: rest[2], Span: ln.span})

		default:
			diag.ReportError(rep, diag.CmpUnexpectedLine, ln.span,
				fmt.Sprintf("unexpected declaration %q", kw)).Emit()
		}
	}
	return f
}

// parseNameArity parses exactly one NAME[/N] token.
func parseNameArity(rest []string, sp source.Span, rep diag.Reporter) (string, int, bool) {
	if len(rest) != 1 {
		diag.ReportError(rep, diag.CmpExpectIdentifier, sp, "expected one name").Emit()
		return "", 0, false
	}
	name, arity, err := splitArity(rest[0])
	if err != nil {
		diag.ReportError(rep, diag.CmpInvalidArity, sp, err.Error()).Emit()
		return "", 0, false
	}
	if !validIdent(name) {
		diag.ReportError(rep, diag.CmpInvalidName, sp, fmt.Sprintf("invalid name %q", name)).Emit()
		return "", 0, false
	}
	return name, arity, true
}

// splitArity peels a '/N' arity suffix off a declaration token.
func splitArity(tok string) (string, int, error) {
	i := strings.IndexByte(tok, '/')
	if i < 0 {
		return tok, 0, nil
	}
	n, err := strconv.Atoi(tok[i+1:])
	if err != nil || n < 0 {
		return "", 0, fmt.Errorf("invalid arity %q", tok[i+1:])
	}
	return tok[:i], n, nil
}
