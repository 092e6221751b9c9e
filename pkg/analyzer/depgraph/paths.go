package depgraph

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/knitgraph/pkg/models"
)

// longestPaths keeps the longest simple path from each root, then returns
// the top candidates by length and the largest returned length.
// budget caps DFS steps per root; the best path found so far is kept when it runs out.
func (g *indexedGraph) longestPaths(top, budget int) ([]models.GraphPath, int) {
	var candidates []models.GraphPath
	onPath := roaring.New()

	for root := range g.ids {
		if g.in[root] != 0 {
			continue
		}

		var best []int
		path := []int{root}
		steps := 0

		var walk func(n int)
		walk = func(n int) {
			steps++
			if len(path) > len(best) {
				best = append(best[:0], path...)
			}
			if steps > budget {
				return
			}
			onPath.Add(uint32(n))
			for _, next := range g.out[n] {
				if onPath.Contains(uint32(next)) {
					continue
				}
				path = append(path, next)
				walk(next)
				path = path[:len(path)-1]
			}
			onPath.Remove(uint32(n))
		}
		walk(root)

		candidates = append(candidates, models.GraphPath{Path: g.names(best), Length: len(best)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Length > candidates[j].Length
	})
	candidates = truncate(candidates, top)

	maxDepth := 0
	for _, c := range candidates {
		if c.Length > maxDepth {
			maxDepth = c.Length
		}
	}
	if candidates == nil {
		candidates = []models.GraphPath{}
	}
	return candidates, maxDepth
}

// criticalNodes counts, for every ordered pair of distinct nodes, the nodes on
// each path from start to end found by a DFS limited to maxDepth edges. The
// visited set of one search is never cleared, so each search is bounded by
// the graph size rather than the number of simple paths.
func (g *indexedGraph) criticalNodes(top, maxDepth int) []models.CriticalNode {
	counts := make([]int, len(g.ids))
	visited := roaring.New()
	path := make([]int, 0, maxDepth+1)

	var search func(n, end, depth int)
	search = func(n, end, depth int) {
		if n == end {
			for _, p := range path {
				counts[p]++
			}
			return
		}
		if depth >= maxDepth {
			return
		}
		visited.Add(uint32(n))
		for _, next := range g.out[n] {
			if visited.Contains(uint32(next)) {
				continue
			}
			path = append(path, next)
			search(next, end, depth+1)
			path = path[:len(path)-1]
		}
	}

	for start := range g.ids {
		if len(g.out[start]) == 0 {
			continue
		}
		for end := range g.ids {
			if start == end || g.in[end] == 0 {
				continue
			}
			visited.Clear()
			path = append(path[:0], start)
			search(start, end, 0)
		}
	}

	ranked := []models.CriticalNode{}
	for i, c := range counts {
		if c > 0 {
			ranked = append(ranked, models.CriticalNode{ID: g.ids[i], PathCount: c})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PathCount > ranked[j].PathCount
	})
	return truncate(ranked, top)
}
