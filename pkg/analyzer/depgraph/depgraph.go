// Package depgraph computes structural metrics over a DI graph: cycles,
// heaviest nodes, roots and leaves, longest paths and critical nodes.
//
// Every function is a pure function of its inputs. Critical-node ranking
// enumerates paths between every ordered node pair and is O(n² × paths);
// callers bound it with Options.MaxCriticalNodes.
package depgraph

import (
	"sort"

	"github.com/panbanda/knitgraph/pkg/models"
)

// Defaults for Options fields left at zero.
const (
	DefaultTopHeaviest      = 5
	DefaultTopCritical      = 5
	DefaultTopPaths         = 3
	DefaultCriticalDepth    = 10
	DefaultMaxCriticalNodes = 500
	DefaultTopInfluential   = 5

	// DefaultPathBudget caps DFS steps per root in the longest-path search.
	DefaultPathBudget = 1_000_000
)

// Options tunes the analysis.
type Options struct {
	TopHeaviest      int
	TopCritical      int
	TopPaths         int
	CriticalDepth    int
	MaxCriticalNodes int // 0 disables the ceiling
	PathBudget       int // <= 0 uses DefaultPathBudget
}

// DefaultOptions returns the options used by the CLI when nothing is configured.
func DefaultOptions() Options {
	return Options{
		TopHeaviest:      DefaultTopHeaviest,
		TopCritical:      DefaultTopCritical,
		TopPaths:         DefaultTopPaths,
		CriticalDepth:    DefaultCriticalDepth,
		MaxCriticalNodes: DefaultMaxCriticalNodes,
		PathBudget:       DefaultPathBudget,
	}
}

func (o Options) normalized() Options {
	if o.TopHeaviest <= 0 {
		o.TopHeaviest = DefaultTopHeaviest
	}
	if o.TopCritical <= 0 {
		o.TopCritical = DefaultTopCritical
	}
	if o.TopPaths <= 0 {
		o.TopPaths = DefaultTopPaths
	}
	if o.CriticalDepth <= 0 {
		o.CriticalDepth = DefaultCriticalDepth
	}
	if o.PathBudget <= 0 {
		o.PathBudget = DefaultPathBudget
	}
	return o
}

// Analyze runs every metric over nodes and edges.
func Analyze(nodes []models.GraphNode, edges []models.Edge, opts Options) *models.GraphAnalysis {
	opts = opts.normalized()
	g := newIndexedGraph(nodes, edges)

	analysis := &models.GraphAnalysis{
		Cycles:        g.detectCycles(),
		HeaviestNodes: g.heaviest(opts.TopHeaviest),
		RootNodes:     g.roots(),
		LeafNodes:     g.leaves(),
		IsolatedNodes: g.isolated(),
		Summary:       g.summary(DefaultTopInfluential),
	}

	analysis.LongestPaths, analysis.MaxDepth = g.longestPaths(opts.TopPaths, opts.PathBudget)

	if opts.MaxCriticalNodes > 0 && len(g.ids) > opts.MaxCriticalNodes {
		analysis.CriticalNodes = []models.CriticalNode{}
		analysis.CriticalSkipped = true
	} else {
		analysis.CriticalNodes = g.criticalNodes(opts.TopCritical, opts.CriticalDepth)
	}

	return analysis
}

// DetectCycles reports dependency cycles. See indexedGraph.detectCycles.
func DetectCycles(nodes []models.GraphNode, edges []models.Edge) models.CycleReport {
	return newIndexedGraph(nodes, edges).detectCycles()
}

// HeaviestNodes ranks nodes by incoming plus outgoing edge count.
func HeaviestNodes(nodes []models.GraphNode, edges []models.Edge, top int) []models.NodeWeight {
	return newIndexedGraph(nodes, edges).heaviest(top)
}

// LongestPaths returns the longest simple path from each root, top first,
// and the largest length among them.
func LongestPaths(nodes []models.GraphNode, edges []models.Edge, top int) ([]models.GraphPath, int) {
	return newIndexedGraph(nodes, edges).longestPaths(top, DefaultPathBudget)
}

// CriticalNodes ranks nodes by membership in bounded paths between all node pairs.
func CriticalNodes(nodes []models.GraphNode, edges []models.Edge, top, maxDepth int) []models.CriticalNode {
	return newIndexedGraph(nodes, edges).criticalNodes(top, maxDepth)
}

// indexedGraph maps node ids to dense indices in first-seen order.
// Edges whose endpoints are not nodes are ignored.
type indexedGraph struct {
	ids   []string
	index map[string]int
	out   [][]int
	in    []int
	edges int
}

func newIndexedGraph(nodes []models.GraphNode, edges []models.Edge) *indexedGraph {
	g := &indexedGraph{index: make(map[string]int, len(nodes))}
	for _, n := range nodes {
		if _, ok := g.index[n.ID]; ok {
			continue
		}
		g.index[n.ID] = len(g.ids)
		g.ids = append(g.ids, n.ID)
	}

	g.out = make([][]int, len(g.ids))
	g.in = make([]int, len(g.ids))
	for _, e := range edges {
		from, ok := g.index[e.Source]
		if !ok {
			continue
		}
		to, ok := g.index[e.Target]
		if !ok {
			continue
		}
		g.out[from] = append(g.out[from], to)
		g.in[to]++
		g.edges++
	}
	return g
}

func (g *indexedGraph) heaviest(top int) []models.NodeWeight {
	weights := make([]models.NodeWeight, len(g.ids))
	for i, id := range g.ids {
		weights[i] = models.NodeWeight{
			ID:                id,
			Incoming:          g.in[i],
			Outgoing:          len(g.out[i]),
			TotalDependencies: g.in[i] + len(g.out[i]),
		}
	}
	sort.SliceStable(weights, func(i, j int) bool {
		return weights[i].TotalDependencies > weights[j].TotalDependencies
	})
	return truncate(weights, top)
}

func (g *indexedGraph) roots() []string {
	return g.filter(func(i int) bool { return g.in[i] == 0 })
}

func (g *indexedGraph) leaves() []string {
	return g.filter(func(i int) bool { return len(g.out[i]) == 0 })
}

func (g *indexedGraph) isolated() []string {
	return g.filter(func(i int) bool { return g.in[i] == 0 && len(g.out[i]) == 0 })
}

func (g *indexedGraph) filter(keep func(int) bool) []string {
	out := []string{}
	for i, id := range g.ids {
		if keep(i) {
			out = append(out, id)
		}
	}
	return out
}

func (g *indexedGraph) names(path []int) []string {
	out := make([]string, len(path))
	for i, n := range path {
		out[i] = g.ids[n]
	}
	return out
}

func truncate[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
