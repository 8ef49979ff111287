package declc

import (
	"context"
	"fmt"
	"strings"

	"ripple/internal/diag"
	"ripple/internal/project"
	"ripple/internal/source"
	"ripple/internal/symbols"
	"ripple/internal/syntax"
	"ripple/internal/unit"
)

// DefaultBagCap bounds the diagnostics one bind collects.
const DefaultBagCap = 128

// Binder rebuilds the module surface from declaration trees. The engine
// holds on to it for replays: after a tree swap the same binder re-parses
// and rebinds, so replayed units agree with fresh compiles.
type Binder struct {
	// Module is the declared module name every file header must match.
	Module string
	// Version is the module's semantic version, straight from the project.
	Version string
}

func (b *Binder) Bind(ctx context.Context, _ project.ProjectID, trees []*syntax.Tree, refs []*unit.ExternalRef) (*symbols.Module, *diag.Bag, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	bag := diag.NewBag(DefaultBagCap)
	rep := diag.BagReporter{Bag: bag}

	m := symbols.NewModule(b.Module, b.Version)
	importable := make(map[string]*symbols.Module, len(refs))
	for _, r := range refs {
		m.AddReference(r.Module)
		importable[r.Module.Name] = r.Module
		if r.Options.Aliases != "" {
			for _, alias := range strings.Split(r.Options.Aliases, ",") {
				importable[alias] = r.Module
			}
		}
	}

	files := make([]*File, 0, len(trees))
	for _, tree := range trees {
		files = append(files, ParseFile(tree.Doc, tree.Text, rep))
	}

	// заголовки и импорты до объявлений: форварды смотрят в imported
	imported := make(map[string]bool, len(refs))
	importSpan := make(map[string]source.Span, len(refs))
	for _, f := range files {
		if f.Module != "" && f.Module != b.Module {
			diag.ReportError(rep, diag.CmpInvalidName, f.ModuleSpan,
				fmt.Sprintf("module header %q does not match project module %q", f.Module, b.Module)).Emit()
		}
		for i := range f.Decls {
			d := &f.Decls[i]
			if d.Kind != DeclImport {
				continue
			}
			target, ok := importable[d.Name]
			if !ok {
				diag.ReportError(rep, diag.CmpUnresolvedImport, d.Span,
					fmt.Sprintf("no reference provides module %q", d.Name)).Emit()
				continue
			}
			if imported[target.Name] {
				diag.ReportWarning(rep, diag.CmpDuplicateImport, d.Span,
					fmt.Sprintf("module %q imported twice", d.Name)).
					WithNote(importSpan[target.Name], "first import here").Emit()
				continue
			}
			imported[target.Name] = true
			importSpan[target.Name] = d.Span
		}
	}

	declared := make(map[string]source.Span)
	define := func(key string, sp source.Span) bool {
		if first, dup := declared[key]; dup {
			diag.ReportError(rep, diag.CmpDuplicateType, sp,
				fmt.Sprintf("type %s is already declared", key)).
				WithNote(first, "first declaration here").Emit()
			return false
		}
		declared[key] = sp
		return true
	}
	access := func(pub bool) symbols.Access {
		if pub {
			return symbols.AccessPublic
		}
		return symbols.AccessInternal
	}

	// типы раньше nested и forward: те ссылаются на готовый индекс
	for _, f := range files {
		for i := range f.Decls {
			d := &f.Decls[i]
			if d.Kind != DeclType {
				continue
			}
			full := b.Module + "." + d.Name
			if define(b.Module+"."+metaName(d.Name, d.Arity), d.Span) {
				m.DefineType(full, d.Arity, access(d.Pub), true)
			}
		}
	}
	for _, f := range files {
		for i := range f.Decls {
			d := &f.Decls[i]
			switch d.Kind {
			case DeclNested:
				outerKey := b.Module + "." + metaName(d.Container, d.ContainerArity)
				outer := m.TypeByName(outerKey)
				if outer == nil {
					diag.ReportError(rep, diag.CmpUnknownType, d.Span,
						fmt.Sprintf("container type %s is not declared in this module", outerKey)).Emit()
					continue
				}
				if define(outerKey+"+"+metaName(d.Name, d.Arity), d.Span) {
					m.DefineNested(outer, d.Name, d.Arity, access(d.Pub), true)
				}
			case DeclFunc:
				ns := b.Module
				if d.NS != "" {
					ns += "." + d.NS
				}
				m.DefineFunc(ns, d.Name, d.Arity, access(d.Pub), true)
			case DeclForward:
				key := b.Module + "." + metaName(d.Name, d.Arity)
				if first, local := declared[key]; local {
					diag.ReportError(rep, diag.CmpDuplicateType, d.Span,
						fmt.Sprintf("cannot forward %s: the type is declared in this module", key)).
						WithNote(first, "declared here").Emit()
					continue
				}
				target, ok := importable[d.Target]
				if !ok || !imported[target.Name] {
					diag.ReportError(rep, diag.CmpForwardUnknownModule, d.Span,
						fmt.Sprintf("forward target module %q is not imported", d.Target)).Emit()
					continue
				}
				if _, dup := m.ForwardTarget(key); dup {
					diag.ReportError(rep, diag.CmpDuplicateForward, d.Span,
						fmt.Sprintf("type %s is already forwarded", key)).Emit()
					continue
				}
				m.AddForward(key, target.Name)
			}
		}
	}
	return m, bag, nil
}
