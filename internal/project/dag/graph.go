package dag

import (
	"fmt"
	"slices"
	"strings"

	"ripple/internal/diag"
	"ripple/internal/project"
	"ripple/internal/source"
)

type Graph struct {
	Edges   [][]NodeID // Edges[from] = []to, from ссылается на to
	Indeg   []int      // входящие степени для Kahn (учитывает только присутствующие проекты)
	Present []bool     // признак, что проект реально определён (а не только упомянут в require)
}

// Ref is one project-to-project reference as declared in a manifest.
type Ref struct {
	Project project.ProjectID
	Name    string
	Span    source.Span
}

// Node is one defined project entering graph construction.
type Node struct {
	Project  project.ProjectID
	Name     string
	Span     source.Span
	Refs     []Ref
	Reporter diag.Reporter
	Broken   bool
	FirstErr *diag.Diagnostic
}

// Slot is the settled per-project record after graph construction. Broken
// and FirstErr are updated by the build scheduler as compilation proceeds.
type Slot struct {
	Project  project.ProjectID
	Name     string
	Span     source.Span
	Refs     []Ref
	Reporter diag.Reporter
	Present  bool
	Broken   bool
	FirstErr *diag.Diagnostic
}

func BuildGraph(idx Index, nodes []Node) (Graph, []Slot) {
	nodeCount := len(idx.IDs)
	g := Graph{
		Edges:   make([][]NodeID, nodeCount),
		Indeg:   make([]int, nodeCount),
		Present: make([]bool, nodeCount),
	}
	slots := make([]Slot, nodeCount)
	for i := range slots {
		slots[i].Project = idx.IDs[i]
		slots[i].Name = idx.Names[i]
	}

	for _, node := range nodes {
		if !node.Project.IsValid() {
			continue
		}
		id, ok := idx.ToID[node.Project]
		if !ok {
			// не должно происходить, индекс строится на тех же узлах
			continue
		}
		slot := &slots[int(id)]
		if slot.Present {
			if node.Reporter != nil {
				notes := make([]diag.Note, 0, 1)
				if slot.Span != (source.Span{}) {
					notes = append(notes, diag.Note{
						Span: slot.Span,
						Msg:  fmt.Sprintf("previous definition of %q", slot.Name),
					})
				}
				node.Reporter.Report(
					diag.ProjDuplicateProject,
					diag.SevError,
					node.Span,
					fmt.Sprintf("duplicate project %q", node.Name),
					notes,
				)
			}
			continue
		}
		slot.Name = node.Name
		slot.Span = node.Span
		slot.Refs = node.Refs
		slot.Reporter = node.Reporter
		slot.Present = true
		slot.Broken = node.Broken
		slot.FirstErr = node.FirstErr
		g.Present[int(id)] = true
	}

	for from := range slots {
		slot := &slots[from]
		if !slot.Present || len(slot.Refs) == 0 {
			continue
		}
		seen := make(map[NodeID]struct{}, len(slot.Refs))
		for _, ref := range slot.Refs {
			if !ref.Project.IsValid() {
				continue
			}
			toID, ok := idx.ToID[ref.Project]
			if !ok {
				if slot.Reporter != nil {
					slot.Reporter.Report(
						diag.ProjMissingProject,
						diag.SevError,
						ref.Span,
						fmt.Sprintf("project %q references unknown project %q", slot.Name, ref.Name),
						nil,
					)
				}
				continue
			}
			if NodeID(from) == toID {
				if slot.Reporter != nil {
					slot.Reporter.Report(
						diag.ProjSelfReference,
						diag.SevError,
						ref.Span,
						fmt.Sprintf("project %q references itself", slot.Name),
						nil,
					)
				}
				continue
			}
			if _, dup := seen[toID]; dup {
				continue
			}
			seen[toID] = struct{}{}

			g.Edges[from] = append(g.Edges[from], toID)
			if g.Present[int(toID)] {
				g.Indeg[int(toID)]++
			} else if slot.Reporter != nil {
				slot.Reporter.Report(
					diag.ProjMissingProject,
					diag.SevError,
					ref.Span,
					fmt.Sprintf("project %q references missing project %q", slot.Name, idx.Names[int(toID)]),
					nil,
				)
			}
		}
		if len(g.Edges[from]) > 1 {
			slices.Sort(g.Edges[from])
		}
	}

	return g, slots
}

func ReportCycles(idx Index, slots []Slot, topo *Topo) {
	if !topo.Cyclic || len(topo.Cycles) == 0 {
		return
	}
	names := make([]string, 0, len(topo.Cycles))
	for _, id := range topo.Cycles {
		names = append(names, idx.Names[int(id)])
	}
	summary := strings.Join(names, " -> ")

	for _, id := range topo.Cycles {
		slot := slots[int(id)]
		if !slot.Present || slot.Reporter == nil {
			continue
		}
		msg := fmt.Sprintf("project %q participates in a reference cycle: %s", slot.Name, summary)
		slot.Reporter.Report(diag.ProjReferenceCycle, diag.SevError, slot.Span, msg, nil)
	}
}

func ReportBrokenDeps(idx Index, slots []Slot) {
	for i := range slots {
		slotFrom := &slots[i]
		if !slotFrom.Present || slotFrom.Reporter == nil || len(slotFrom.Refs) == 0 {
			continue
		}
		emitted := make(map[string]struct{}, len(slotFrom.Refs))
		for _, ref := range slotFrom.Refs {
			toID, ok := idx.ToID[ref.Project]
			if !ok {
				continue
			}
			depSlot := slots[int(toID)]
			if !depSlot.Broken {
				continue
			}
			key := ref.Name + "|" + ref.Span.String()
			if _, seen := emitted[key]; seen {
				continue
			}
			emitted[key] = struct{}{}

			notes := []diag.Note(nil)
			if depSlot.FirstErr != nil {
				notes = append(notes, diag.Note{
					Span: depSlot.FirstErr.Primary,
					Msg:  fmt.Sprintf("first error in dependency: %s", depSlot.FirstErr.Message),
				})
			}

			msg := fmt.Sprintf("dependency project %q has errors", ref.Name)
			slotFrom.Reporter.Report(diag.ProjDependencyFailed, diag.SevError, ref.Span, msg, notes)
		}
	}
}
