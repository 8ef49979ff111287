package workspace

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"ripple/internal/diag"
	"ripple/internal/observ"
	"ripple/internal/project"
	"ripple/internal/project/dag"
	"ripple/internal/source"
	"ripple/internal/trace"
	"ripple/internal/unit"
)

// BuildOptions controls a full workspace build.
type BuildOptions struct {
	// Jobs bounds per-wave parallelism; <=0 means GOMAXPROCS.
	Jobs int
	// Sink receives progress events. Optional.
	Sink Sink
}

// ProjectResult is one project's build outcome.
type ProjectResult struct {
	Project project.ProjectID
	Name    string
	Unit    *unit.Unit
	// Diags merges graph, compile and generator diagnostics, sorted.
	Diags  *diag.Bag
	Loaded bool
	// Stale lists frozen generated documents the live generators no
	// longer produce.
	Stale   []source.DocumentID
	Elapsed time.Duration
}

// Result is a full workspace build: per-project outcomes in workspace
// order plus timings.
type Result struct {
	Projects []ProjectResult
	Timings  observ.Report
	Elapsed  time.Duration
}

func (r *Result) HasErrors() bool {
	for i := range r.Projects {
		if r.Projects[i].Diags.HasErrors() {
			return true
		}
	}
	return false
}

// ByName finds one project's result.
func (r *Result) ByName(name string) *ProjectResult {
	for i := range r.Projects {
		if r.Projects[i].Name == name {
			return &r.Projects[i]
		}
	}
	return nil
}

// BuildAll compiles every project, dependencies before dependents, waves
// of independent projects in parallel. Diagnostics land in the result;
// the error return is for cancellation and infrastructure failures only.
func (s *Snapshot) BuildAll(ctx context.Context, opts BuildOptions) (*Result, error) {
	start := time.Now()
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "workspace_build", 0)
	detail := ""
	defer func() {
		span.End(detail)
	}()
	timer := observ.NewTimer()

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	emit := func(evt Event) {
		if opts.Sink != nil {
			opts.Sink.OnEvent(evt)
		}
	}

	phase := timer.Begin("graph")
	emit(Event{Stage: StageGraph, Status: StatusWorking})
	graphBags := make(map[project.ProjectID]*diag.Bag, len(s.order))
	for _, id := range s.order {
		graphBags[id] = diag.NewBag(s.host.maxDiags)
	}
	nodes := dagNodes(s.order, s.states, graphBags)
	idx := dag.BuildIndex(nodes)
	graph, slots := dag.BuildGraph(idx, nodes)
	topo := dag.ToposortKahn(graph)
	dag.ReportCycles(idx, slots, topo)
	phase.End(fmt.Sprintf("%d nodes", len(idx.IDs)))
	emit(Event{Stage: StageGraph, Status: StatusDone})

	for _, id := range s.order {
		emit(Event{Project: s.states[id].Name(), Stage: StageBuild, Status: StatusQueued})
	}

	type buildOut struct {
		unit     *unit.Unit
		genDiags *diag.Bag
		loaded   bool
		elapsed  time.Duration
	}
	pos := make(map[project.ProjectID]int, len(s.order))
	for i, id := range s.order {
		pos[id] = i
	}
	// индекс проекта уникален в своей волне, мьютекс не нужен
	outs := make([]buildOut, len(s.order))

	buildOne := func(ctx context.Context, id project.ProjectID) error {
		name := s.states[id].Name()
		emit(Event{Project: name, Stage: StageBuild, Status: StatusWorking})
		pstart := time.Now()
		tr := s.trackers[id]
		u, err := tr.GetCompiledUnit(ctx, s)
		if err == nil {
			var genDiags *diag.Bag
			_, genDiags, err = tr.GeneratedDocuments(ctx, s, true)
			if err == nil {
				var loaded bool
				loaded, err = tr.HasSuccessfullyLoaded(ctx, s)
				if err == nil {
					outs[pos[id]] = buildOut{
						unit:     u,
						genDiags: genDiags,
						loaded:   loaded,
						elapsed:  time.Since(pstart),
					}
					emit(Event{Project: name, Stage: StageBuild, Status: StatusDone, Elapsed: outs[pos[id]].elapsed})
					return nil
				}
			}
		}
		emit(Event{Project: name, Stage: StageBuild, Status: StatusError, Err: err, Elapsed: time.Since(pstart)})
		return fmt.Errorf("build %s: %w", name, err)
	}

	phase = timer.Begin("build")
	// волны в обратном порядке: зависимости компилируются раньше зависимых
	for bi := len(topo.Batches) - 1; bi >= 0; bi-- {
		batch := topo.Batches[bi]
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(jobs, len(batch)))
		for _, nid := range batch {
			id := idx.IDs[int(nid)]
			if _, ok := s.states[id]; !ok {
				// проект только упомянут в require, строить нечего
				continue
			}
			g.Go(func() error {
				return buildOne(gctx, id)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	// участники циклов не попали в топологический порядок, добираем их
	for _, nid := range topo.Cycles {
		id := idx.IDs[int(nid)]
		if _, ok := s.states[id]; !ok {
			continue
		}
		if err := buildOne(ctx, id); err != nil {
			return nil, err
		}
	}
	phase.End(fmt.Sprintf("%d projects", len(s.order)))

	phase = timer.Begin("report")
	for i := range slots {
		id := slots[i].Project
		if _, ok := s.states[id]; !ok {
			continue
		}
		out := &outs[pos[id]]
		broken, firstErr := buildStatus(graphBags[id], out.unit, out.genDiags)
		if broken {
			slots[i].Broken = true
			if slots[i].FirstErr == nil {
				slots[i].FirstErr = firstErr
			}
		}
	}
	dag.ReportBrokenDeps(idx, slots)

	res := &Result{Projects: make([]ProjectResult, 0, len(s.order))}
	for _, id := range s.order {
		out := &outs[pos[id]]
		bag := diag.NewBag(s.host.maxDiags)
		bag.Merge(graphBags[id])
		var stale []source.DocumentID
		if out.unit != nil {
			bag.Merge(out.unit.Diagnostics())
			stale = out.unit.StaleDocs()
			for _, docID := range stale {
				bag.Add(diag.New(diag.SevInfo, diag.ProjStaleGeneratedDocument, source.Span{Doc: docID},
					"frozen generated document is no longer produced; analysis over it is best-effort"))
			}
		}
		if out.genDiags != nil {
			bag.Merge(out.genDiags)
		}
		bag.Sort()
		res.Projects = append(res.Projects, ProjectResult{
			Project: id,
			Name:    s.states[id].Name(),
			Unit:    out.unit,
			Diags:   bag,
			Loaded:  out.loaded,
			Stale:   stale,
			Elapsed: out.elapsed,
		})
	}
	phase.End("")

	res.Timings = timer.Report()
	res.Elapsed = time.Since(start)
	detail = fmt.Sprintf("projects=%d", len(res.Projects))
	return res, nil
}

// buildStatus decides whether a project's build is broken for dependency
// reporting and picks the first error shown to dependents.
func buildStatus(graph *diag.Bag, u *unit.Unit, gen *diag.Bag) (bool, *diag.Diagnostic) {
	bags := []*diag.Bag{graph, nil, gen}
	if u != nil {
		bags[1] = u.Diagnostics()
	}
	broken := false
	var first *diag.Diagnostic
	for _, bag := range bags {
		if bag == nil {
			continue
		}
		for _, d := range bag.Items() {
			if d.Severity != diag.SevError {
				continue
			}
			broken = true
			if first == nil {
				first = &d
			}
			break
		}
	}
	return broken, first
}
