package gen

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"ripple/internal/diag"
	"ripple/internal/project"
)

var errCrashed = errors.New("generator crashed")

// Runner executes the generators a project state names, in the state's
// declaration order. Unknown and failing generators become diagnostics,
// not errors; only cancellation aborts the pass.
type Runner struct {
	gens map[string]Generator
}

func NewRunner(gens ...Generator) *Runner {
	r := &Runner{gens: make(map[string]Generator, len(gens))}
	for _, g := range gens {
		r.gens[g.Name()] = g
	}
	return r
}

// Names lists registered generators sorted for stable rendering.
func (r *Runner) Names() []string {
	out := make([]string, 0, len(r.gens))
	for name := range r.gens {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run executes the pass for one project state.
func (r *Runner) Run(ctx context.Context, st *project.State, maxDiags int) (*Result, error) {
	start := time.Now()
	bag := diag.NewBag(maxDiags)
	reporter := &diag.BagReporter{Bag: bag}

	var docs []project.GeneratedDocumentState
	stats := make([]Stats, 0, len(st.Generators()))

	for _, spec := range st.Generators() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		genStart := time.Now()
		g, ok := r.gens[spec.Name]
		if !ok {
			reporter.Report(diag.GenFailed, diag.SevError, noSpan,
				fmt.Sprintf("generator %q is not registered", spec.Name), nil)
			stats = append(stats, Stats{Name: spec.Name, Failed: true})
			continue
		}

		outputs, err := runOne(ctx, g, Input{State: st, Reporter: reporter})
		stat := Stats{Name: spec.Name, Elapsed: time.Since(genStart)}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			code := diag.GenFailed
			if errors.Is(err, errCrashed) {
				code = diag.GenCrashed
			}
			reporter.Report(code, diag.SevError, noSpan,
				fmt.Sprintf("generator %q: %v", spec.Name, err), nil)
			stat.Failed = true
			stats = append(stats, stat)
			continue
		}

		seenHints := make(map[string]bool, len(outputs))
		for _, out := range outputs {
			if out.Hint == "" {
				reporter.Report(diag.GenInvalidHint, diag.SevError, noSpan,
					fmt.Sprintf("generator %q produced a document without a hint", spec.Name), nil)
				stat.Failed = true
				continue
			}
			if seenHints[out.Hint] {
				reporter.Report(diag.GenDuplicateHint, diag.SevError, noSpan,
					fmt.Sprintf("generator %q produced hint %q twice", spec.Name, out.Hint), nil)
				stat.Failed = true
				continue
			}
			seenHints[out.Hint] = true
			identity := project.GeneratorIdentity{Generator: spec.Name, Hint: out.Hint}
			docs = append(docs, project.NewGeneratedDocumentState(st.ID(), identity, out.Text))
			stat.Outputs++
		}
		stats = append(stats, stat)
	}

	return &Result{
		Docs:  project.NewGeneratedSet(docs...),
		Diags: bag,
		Host: &RunResult{
			Stamp:   start,
			Elapsed: time.Since(start),
			Stats:   stats,
		},
	}, nil
}

// runOne contains generator panics: generators are plugin-shaped code and
// must not take the whole pass down.
func runOne(ctx context.Context, g Generator, in Input) (outputs []Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			outputs = nil
			err = fmt.Errorf("%w: %v", errCrashed, r)
		}
	}()
	return g.Generate(ctx, in)
}
