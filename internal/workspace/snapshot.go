package workspace

import (
	"context"
	"fmt"
	"maps"

	"ripple/internal/diag"
	"ripple/internal/project"
	"ripple/internal/project/dag"
	"ripple/internal/skeleton"
	"ripple/internal/source"
	"ripple/internal/symbols"
	"ripple/internal/tracker"
	"ripple/internal/unit"
)

// Snapshot is one immutable view of the workspace: every project's state
// and the tracker compiling it. Edit operations fork a fresh snapshot;
// trackers of untouched projects carry over with their memoized builds,
// the edited project's tracker forks with the matching translation action,
// and every transitive dependent forks with a replace-all action so its
// next build observes the new dependency surface.
type Snapshot struct {
	host     *Host
	order    []project.ProjectID
	states   map[project.ProjectID]*project.State
	trackers map[project.ProjectID]tracker.Tracker
	// cyclic marks projects caught in a reference cycle; references onto
	// them do not resolve (see ResolveProjectReference).
	cyclic map[project.ProjectID]bool
}

// Snapshot freezes a set of project states into the initial snapshot.
func (h *Host) Snapshot(states ...*project.State) (*Snapshot, error) {
	s := &Snapshot{
		host:     h,
		order:    make([]project.ProjectID, 0, len(states)),
		states:   make(map[project.ProjectID]*project.State, len(states)),
		trackers: make(map[project.ProjectID]tracker.Tracker, len(states)),
	}
	for _, st := range states {
		if st == nil {
			return nil, fmt.Errorf("workspace: nil project state")
		}
		if prev, dup := s.states[st.ID()]; dup {
			return nil, fmt.Errorf("workspace: projects %q and %q share id %s", prev.Name(), st.Name(), st.ID().Short())
		}
		s.order = append(s.order, st.ID())
		s.states[st.ID()] = st
		s.trackers[st.ID()] = tracker.NewRegular(st)
	}
	s.cyclic = findCycles(s.order, s.states)
	return s, nil
}

// Projects lists project ids in workspace declaration order.
func (s *Snapshot) Projects() []project.ProjectID {
	out := make([]project.ProjectID, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Snapshot) State(id project.ProjectID) (*project.State, bool) {
	st, ok := s.states[id]
	return st, ok
}

func (s *Snapshot) Tracker(id project.ProjectID) (tracker.Tracker, bool) {
	tr, ok := s.trackers[id]
	return tr, ok
}

// ProjectByName finds a project id by its manifest name.
func (s *Snapshot) ProjectByName(name string) (project.ProjectID, bool) {
	for _, id := range s.order {
		if s.states[id].Name() == name {
			return id, true
		}
	}
	return project.ProjectID{}, false
}

// DocumentByPath finds the project and document state for an authored
// document path, as watch loops report them.
func (s *Snapshot) DocumentByPath(path string) (project.ProjectID, project.DocumentState, bool) {
	for _, id := range s.order {
		docs := s.states[id].Documents()
		for i := 0; i < docs.Len(); i++ {
			if d := docs.At(i); d.Path == path {
				return id, d, true
			}
		}
	}
	return project.ProjectID{}, project.DocumentState{}, false
}

// GetCompiledUnit builds (or returns) one project's unit with this
// snapshot as the resolution context.
func (s *Snapshot) GetCompiledUnit(ctx context.Context, id project.ProjectID) (*unit.Unit, error) {
	tr, ok := s.trackers[id]
	if !ok {
		return nil, fmt.Errorf("workspace: unknown project %s", id.Short())
	}
	return tr.GetCompiledUnit(ctx, s)
}

// WithDocumentText forks the snapshot with one document's text replaced.
func (s *Snapshot) WithDocumentText(id source.DocumentID, text *source.Text) (*Snapshot, error) {
	proj, ok := s.ownerOf(id)
	if !ok {
		return nil, fmt.Errorf("workspace: no project owns document %s", id.Short())
	}
	st, err := s.states[proj].WithDocumentText(id, text)
	if err != nil {
		return nil, err
	}
	return s.withForkedProject(proj, st, tracker.TouchDocument{Doc: id, Text: text}, false), nil
}

// WithAddedDocument forks the snapshot with a document appended to proj.
func (s *Snapshot) WithAddedDocument(proj project.ProjectID, doc project.DocumentState) (*Snapshot, error) {
	base, ok := s.states[proj]
	if !ok {
		return nil, fmt.Errorf("workspace: unknown project %s", proj.Short())
	}
	st, err := base.WithAddedDocuments(doc)
	if err != nil {
		return nil, err
	}
	return s.withForkedProject(proj, st, tracker.AddDocuments{Docs: []project.DocumentState{doc}}, false), nil
}

// WithRemovedDocument forks the snapshot with one document dropped.
func (s *Snapshot) WithRemovedDocument(id source.DocumentID) (*Snapshot, error) {
	proj, ok := s.ownerOf(id)
	if !ok {
		return nil, fmt.Errorf("workspace: no project owns document %s", id.Short())
	}
	st, err := s.states[proj].WithRemovedDocuments(id)
	if err != nil {
		return nil, err
	}
	return s.withForkedProject(proj, st, tracker.RemoveDocuments{IDs: []source.DocumentID{id}}, false), nil
}

// WithProjectConfig swaps a project's whole state: references, language
// options, generators. Too coarse to replay, so the project and its
// dependents all recompile.
func (s *Snapshot) WithProjectConfig(st *project.State) (*Snapshot, error) {
	if st == nil {
		return nil, fmt.Errorf("workspace: nil project state")
	}
	if _, ok := s.states[st.ID()]; !ok {
		return nil, fmt.Errorf("workspace: unknown project %q", st.Name())
	}
	return s.withForkedProject(st.ID(), st, tracker.ReplaceAll{Reason: "project configuration replaced"}, true), nil
}

// FreezeGeneratedDocuments pins a project's generated documents to the
// given content. The project's tracker becomes a frozen overlay over the
// current one; dependents fork so their next build compiles against the
// pinned surface.
func (s *Snapshot) FreezeGeneratedDocuments(proj project.ProjectID, repl *project.GeneratedSet) (*Snapshot, error) {
	tr, ok := s.trackers[proj]
	if !ok {
		return nil, fmt.Errorf("workspace: unknown project %s", proj.Short())
	}
	out := s.clone()
	out.trackers[proj] = tr.WithReplacementDocumentStates(repl)
	out.forkDependents(s, proj, "dependency "+s.states[proj].Name()+" frozen")
	return out, nil
}

func (s *Snapshot) clone() *Snapshot {
	return &Snapshot{
		host:     s.host,
		order:    s.order,
		states:   maps.Clone(s.states),
		trackers: maps.Clone(s.trackers),
		cyclic:   s.cyclic,
	}
}

func (s *Snapshot) withForkedProject(proj project.ProjectID, st *project.State, action tracker.Action, refsChanged bool) *Snapshot {
	out := s.clone()
	out.states[proj] = st
	out.trackers[proj] = s.trackers[proj].Fork(st, action)
	out.forkDependents(s, proj, "dependency "+st.Name()+" changed")
	if refsChanged {
		out.cyclic = findCycles(out.order, out.states)
	}
	return out
}

// forkDependents reforks every transitive dependent of proj off its
// tracker in prev, keeping its state.
func (out *Snapshot) forkDependents(prev *Snapshot, proj project.ProjectID, reason string) {
	for _, dep := range prev.dependentsOf(proj) {
		out.trackers[dep] = prev.trackers[dep].Fork(prev.states[dep], tracker.ReplaceAll{Reason: reason})
	}
}

// dependentsOf returns the transitive dependents of proj in workspace
// order, not including proj itself.
func (s *Snapshot) dependentsOf(proj project.ProjectID) []project.ProjectID {
	rev := make(map[project.ProjectID][]project.ProjectID, len(s.order))
	for _, id := range s.order {
		for _, pr := range s.states[id].ProjectRefs() {
			rev[pr.Project] = append(rev[pr.Project], id)
		}
	}
	marked := make(map[project.ProjectID]bool, len(s.order))
	queue := []project.ProjectID{proj}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range rev[cur] {
			if marked[dep] || dep == proj {
				continue
			}
			marked[dep] = true
			queue = append(queue, dep)
		}
	}
	out := make([]project.ProjectID, 0, len(marked))
	for _, id := range s.order {
		if marked[id] {
			out = append(out, id)
		}
	}
	return out
}

func (s *Snapshot) ownerOf(id source.DocumentID) (project.ProjectID, bool) {
	for _, proj := range s.order {
		if _, ok := s.states[proj].Documents().Get(id); ok {
			return proj, true
		}
	}
	return project.ProjectID{}, false
}

// Compiler, Generators, MaxDiagnostics and the Resolve methods make the
// snapshot the resolution context its own trackers build against.
func (s *Snapshot) Compiler() tracker.Compiler        { return s.host.compiler }
func (s *Snapshot) Generators() tracker.GeneratorHost { return s.host.gens }
func (s *Snapshot) MaxDiagnostics() int               { return s.host.maxDiags }

// ResolveProjectReference serves a dependency's skeleton image through
// the dependency's own tracker, building it on demand. References onto
// cycle members do not resolve: following one would recurse through the
// cycle forever, and the graph diagnostics already name the cycle.
func (s *Snapshot) ResolveProjectReference(ctx context.Context, ref project.ProjectReference) (*skeleton.Reference, error) {
	if s.cyclic[ref.Project] {
		return nil, nil
	}
	tr, ok := s.trackers[ref.Project]
	if !ok {
		return nil, nil
	}
	return tr.SkeletonReference(ctx, s, ref.Options)
}

func (s *Snapshot) ResolveModuleReference(_ context.Context, ref project.ModuleReference) (*symbols.Module, error) {
	return s.host.resolveModule(ref)
}

// findCycles runs the graph construction with no reporters just to learn
// which projects sit in a cycle.
func findCycles(order []project.ProjectID, states map[project.ProjectID]*project.State) map[project.ProjectID]bool {
	nodes := dagNodes(order, states, nil)
	idx := dag.BuildIndex(nodes)
	graph, _ := dag.BuildGraph(idx, nodes)
	topo := dag.ToposortKahn(graph)
	if !topo.Cyclic {
		return nil
	}
	out := make(map[project.ProjectID]bool, len(topo.Cycles))
	for _, nid := range topo.Cycles {
		out[idx.IDs[int(nid)]] = true
	}
	return out
}

// dagNodes shapes the snapshot's states for graph construction. bags may
// be nil when no diagnostics are wanted.
func dagNodes(order []project.ProjectID, states map[project.ProjectID]*project.State, bags map[project.ProjectID]*diag.Bag) []dag.Node {
	nodes := make([]dag.Node, 0, len(order))
	for _, id := range order {
		st := states[id]
		refs := make([]dag.Ref, 0, len(st.ProjectRefs()))
		for _, pr := range st.ProjectRefs() {
			name := pr.Project.Short()
			if target, ok := states[pr.Project]; ok {
				name = target.Name()
			}
			refs = append(refs, dag.Ref{Project: pr.Project, Name: name})
		}
		node := dag.Node{Project: id, Name: st.Name(), Refs: refs}
		if bags != nil {
			node.Reporter = diag.BagReporter{Bag: bags[id]}
		}
		nodes = append(nodes, node)
	}
	return nodes
}
