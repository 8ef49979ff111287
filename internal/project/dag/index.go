package dag

import (
	"bytes"
	"sort"

	"ripple/internal/project"
)

type NodeID uint32

// Index раздаёт плотные id всем проектам, включая те, на которые только
// ссылаются (без определения в workspace).
type Index struct {
	ToID  map[project.ProjectID]NodeID
	IDs   []project.ProjectID
	Names []string // параллелен IDs, только для вывода
}

// BuildIndex collects every defined and referenced project, orders them by
// name (ties broken by id bytes) and assigns ids in that order.
func BuildIndex(nodes []Node) Index {
	names := make(map[project.ProjectID]string, len(nodes))
	for _, n := range nodes {
		if !n.Project.IsValid() {
			continue
		}
		if _, ok := names[n.Project]; !ok {
			names[n.Project] = n.Name
		}
	}
	for _, n := range nodes {
		for _, ref := range n.Refs {
			if !ref.Project.IsValid() {
				continue
			}
			if _, ok := names[ref.Project]; !ok {
				names[ref.Project] = ref.Name
			}
		}
	}

	ids := make([]project.ProjectID, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ni, nj := names[ids[i]], names[ids[j]]
		if ni != nj {
			return ni < nj
		}
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})

	toID := make(map[project.ProjectID]NodeID, len(ids))
	idxNames := make([]string, len(ids))
	for i, id := range ids {
		toID[id] = NodeID(i)
		idxNames[i] = names[id]
	}

	return Index{
		ToID:  toID,
		IDs:   ids,
		Names: idxNames,
	}
}
