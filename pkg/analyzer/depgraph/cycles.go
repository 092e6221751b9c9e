package depgraph

import (
	"sort"
	"strings"

	"github.com/panbanda/knitgraph/pkg/models"
)

// cycleSearch is the state of one detectCycles run.
type cycleSearch struct {
	g       *indexedGraph
	visited []bool
	onStack []bool
	path    []int
	seen    map[string]bool

	report models.CycleReport
	nodes  map[string]bool
	edges  map[string]bool
}

// detectCycles runs a DFS with a recursion stack from every unvisited node.
// A back edge to a node on the stack closes a cycle, which is recorded unless
// a cycle with the same node set was already recorded. The first cycle found
// ends the branch that found it, so disjoint cycles reachable from the same
// start may go unreported.
func (g *indexedGraph) detectCycles() models.CycleReport {
	s := &cycleSearch{
		g:       g,
		visited: make([]bool, len(g.ids)),
		onStack: make([]bool, len(g.ids)),
		seen:    make(map[string]bool),
		nodes:   make(map[string]bool),
		edges:   make(map[string]bool),
		report:  models.CycleReport{Cycles: [][]string{}},
	}

	for i := range g.ids {
		if !s.visited[i] {
			s.dfs(i)
		}
	}

	s.report.CycleNodes = sortedKeys(s.nodes)
	s.report.CycleEdges = sortedKeys(s.edges)
	return s.report
}

func (s *cycleSearch) dfs(n int) bool {
	s.visited[n] = true
	s.onStack[n] = true
	s.path = append(s.path, n)
	defer func() {
		s.onStack[n] = false
		s.path = s.path[:len(s.path)-1]
	}()

	for _, next := range s.g.out[n] {
		if !s.visited[next] {
			if s.dfs(next) {
				return true
			}
			continue
		}
		if s.onStack[next] {
			s.record(next)
			return true
		}
	}
	return false
}

// record closes the cycle that starts at the first occurrence of head on the path.
func (s *cycleSearch) record(head int) {
	start := 0
	for i, n := range s.path {
		if n == head {
			start = i
			break
		}
	}

	members := s.g.names(s.path[start:])
	key := cycleKey(members)
	if s.seen[key] {
		return
	}
	s.seen[key] = true

	cycle := append(members, s.g.ids[head])
	s.report.Cycles = append(s.report.Cycles, cycle)
	for i, id := range cycle {
		s.nodes[id] = true
		if i > 0 {
			s.edges[models.EdgePairKey(cycle[i-1], id)] = true
		}
	}
}

// cycleKey identifies a cycle by its node set, ignoring rotation.
func cycleKey(members []string) string {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
