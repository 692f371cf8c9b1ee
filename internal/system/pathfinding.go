package system

import (
	"container/heap"

	"github.com/sandbox/server/internal/core/geom"
)

// findPath runs A* on the 8-connected grid with unit step cost and the
// Chebyshev heuristic. passable is asked for every cell except start and
// goal. The path excludes start and ends at goal. Ties break on lower h,
// then on insertion order, so the result is stable for a given grid.
// Search gives up after maxNodes expansions.
func findPath(start, goal geom.Cell, passable func(geom.Cell) bool, maxNodes int) ([]geom.Cell, bool) {
	if start == goal {
		return nil, true
	}
	open := &nodeHeap{}
	gScore := map[geom.Cell]int32{start: 0}
	cameFrom := map[geom.Cell]geom.Cell{}
	closed := map[geom.Cell]struct{}{}
	var seq uint64

	heap.Push(open, &pathNode{cell: start, h: geom.Chebyshev(start, goal), f: geom.Chebyshev(start, goal)})
	for expanded := 0; open.Len() > 0 && expanded < maxNodes; expanded++ {
		cur := heap.Pop(open).(*pathNode)
		if cur.cell == goal {
			return unwind(cameFrom, start, goal), true
		}
		if _, done := closed[cur.cell]; done {
			continue
		}
		closed[cur.cell] = struct{}{}

		for _, d := range geom.Neighbours8 {
			next := cur.cell.Add(d)
			if _, done := closed[next]; done {
				continue
			}
			if next != goal && !passable(next) {
				continue
			}
			g := gScore[cur.cell] + 1
			if old, seen := gScore[next]; seen && old <= g {
				continue
			}
			gScore[next] = g
			cameFrom[next] = cur.cell
			seq++
			h := geom.Chebyshev(next, goal)
			heap.Push(open, &pathNode{cell: next, f: g + h, h: h, seq: seq})
		}
	}
	return nil, false
}

func unwind(cameFrom map[geom.Cell]geom.Cell, start, goal geom.Cell) []geom.Cell {
	var path []geom.Cell
	for c := goal; c != start; c = cameFrom[c] {
		path = append(path, c)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type pathNode struct {
	cell geom.Cell
	f, h int32
	seq  uint64
}

type nodeHeap []*pathNode

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	if h[i].h != h[j].h {
		return h[i].h < h[j].h
	}
	return h[i].seq < h[j].seq
}

func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x any) { *h = append(*h, x.(*pathNode)) }

func (h *nodeHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*h = old[:len(old)-1]
	return n
}
