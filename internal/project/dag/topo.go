package dag

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

type Topo struct {
	Order   []NodeID   // линейный порядок: корни первыми, зависимости в конце
	Batches [][]NodeID // волны независимых проектов
	Cyclic  bool
	Cycles  []NodeID // узлы, оставшиеся в цикле
}

func nodeID(i int) NodeID {
	id, err := safecast.Conv[NodeID](i)
	if err != nil {
		panic(fmt.Errorf("dag node id overflow: %w", err))
	}
	return id
}

// ToposortKahn layers the graph into waves. Edges point from a project to
// its dependencies, so Order lists consumers before the projects they
// reference; walk it backwards to compile dependencies first. Waves are
// sorted by NodeID, which the index assigns by name, so the layering is
// deterministic run to run.
func ToposortKahn(g Graph) *Topo {
	nodeCount := len(g.Edges)
	indeg := make([]int, len(g.Indeg))
	copy(indeg, g.Indeg)

	topo := &Topo{Order: make([]NodeID, 0, nodeCount)}

	// Проекты без определения (только упомянутые в require) в сортировку
	// не входят: им нечего компилировать.
	active := 0
	current := make([]NodeID, 0, nodeCount)
	for i := 0; i < nodeCount; i++ {
		if !g.Present[i] {
			continue
		}
		active++
		if indeg[i] == 0 {
			current = append(current, nodeID(i))
		}
	}

	// Первая волна отсортирована по построению, последующие собираются
	// в порядке прихода рёбер и сортируются явно.
	visited := 0
	for len(current) > 0 {
		topo.Batches = append(topo.Batches, current)
		topo.Order = append(topo.Order, current...)
		visited += len(current)

		var next []NodeID
		for _, id := range current {
			for _, to := range g.Edges[int(id)] {
				if !g.Present[int(to)] {
					continue
				}
				indeg[int(to)]--
				if indeg[int(to)] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if visited != active {
		topo.Cyclic = true
		for i := 0; i < nodeCount; i++ {
			if g.Present[i] && indeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, nodeID(i))
			}
		}
	}

	return topo
}
