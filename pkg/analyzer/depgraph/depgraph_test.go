package depgraph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/knitgraph/pkg/models"
)

func graphOf(ids []string, pairs ...[2]string) ([]models.GraphNode, []models.Edge) {
	nodes := make([]models.GraphNode, len(ids))
	for i, id := range ids {
		nodes[i] = models.GraphNode{ID: id, Kind: models.NodeClass, UsedIn: []models.Location{}}
	}
	edges := make([]models.Edge, len(pairs))
	for i, p := range pairs {
		edges[i] = models.Edge{Source: p[0], Target: p[1], Kind: models.EdgeConsumerRequests}
	}
	return nodes, edges
}

func TestDetectCycles_ThreeNodeCycle(t *testing.T) {
	nodes, edges := graphOf([]string{"A", "B", "C"}, [2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "A"})

	report := DetectCycles(nodes, edges)
	require.Len(t, report.Cycles, 1)
	assert.Equal(t, []string{"A", "B", "C", "A"}, report.Cycles[0])
	assert.Equal(t, []string{"A", "B", "C"}, report.CycleNodes)
	assert.ElementsMatch(t, []string{"A-B", "B-C", "C-A"}, report.CycleEdges)
	assert.True(t, report.HasEdge("C", "A"))
}

func TestDetectCycles_DAG(t *testing.T) {
	nodes, edges := graphOf([]string{"A", "B", "C"}, [2]string{"A", "B"}, [2]string{"B", "C"})

	report := DetectCycles(nodes, edges)
	assert.Empty(t, report.Cycles)
	assert.Empty(t, report.CycleNodes)
	assert.Empty(t, report.CycleEdges)
}

func TestDetectCycles_FirstCyclePerBranch(t *testing.T) {
	// Two cycles share A; the search from A stops at the first one.
	nodes, edges := graphOf([]string{"A", "B", "C"},
		[2]string{"A", "B"}, [2]string{"B", "A"},
		[2]string{"A", "C"}, [2]string{"C", "A"},
	)

	report := DetectCycles(nodes, edges)
	require.Len(t, report.Cycles, 1)
	assert.Equal(t, []string{"A", "B", "A"}, report.Cycles[0])
	assert.False(t, report.HasNode("C"))

	summary := Analyze(nodes, edges, Options{}).Summary
	assert.Equal(t, [][]string{{"A", "B", "C"}}, summary.StronglyConnected)
}

func TestDetectCycles_SelfLoop(t *testing.T) {
	nodes, edges := graphOf([]string{"A"}, [2]string{"A", "A"})

	report := DetectCycles(nodes, edges)
	require.Len(t, report.Cycles, 1)
	assert.Equal(t, []string{"A", "A"}, report.Cycles[0])
	assert.Equal(t, []string{"A-A"}, report.CycleEdges)
	assert.True(t, Analyze(nodes, edges, Options{}).Summary.IsCyclic)
}

func TestDetectCycles_DisjointComponents(t *testing.T) {
	nodes, edges := graphOf([]string{"A", "B", "C", "D"},
		[2]string{"A", "B"}, [2]string{"B", "A"},
		[2]string{"C", "D"}, [2]string{"D", "C"},
	)

	report := DetectCycles(nodes, edges)
	assert.Len(t, report.Cycles, 2)
	assert.Equal(t, []string{"A", "B", "C", "D"}, report.CycleNodes)
}

func TestRootsLeavesIsolated(t *testing.T) {
	nodes, edges := graphOf([]string{"A", "B", "C"}, [2]string{"A", "B"}, [2]string{"B", "C"})

	a := Analyze(nodes, edges, DefaultOptions())
	assert.Equal(t, []string{"A"}, a.RootNodes)
	assert.Equal(t, []string{"C"}, a.LeafNodes)
	assert.Equal(t, []string{}, a.IsolatedNodes)

	nodes, edges = graphOf([]string{"A", "B", "Lonely"}, [2]string{"A", "B"})
	a = Analyze(nodes, edges, DefaultOptions())
	assert.Equal(t, []string{"A", "Lonely"}, a.RootNodes)
	assert.Equal(t, []string{"B", "Lonely"}, a.LeafNodes)
	assert.Equal(t, []string{"Lonely"}, a.IsolatedNodes)
}

func TestHeaviestNodes(t *testing.T) {
	ids := []string{"Leaf1", "Hub", "Leaf2", "Leaf3", "Leaf4", "Leaf5", "Leaf6"}
	var pairs [][2]string
	for _, id := range ids {
		if id != "Hub" {
			pairs = append(pairs, [2]string{"Hub", id})
		}
	}
	pairs = append(pairs, [2]string{"Leaf1", "Leaf2"})
	nodes, edges := graphOf(ids, pairs...)

	heaviest := HeaviestNodes(nodes, edges, DefaultTopHeaviest)
	require.Len(t, heaviest, 5)
	assert.Equal(t, models.NodeWeight{ID: "Hub", Incoming: 0, Outgoing: 6, TotalDependencies: 6}, heaviest[0])
	assert.Equal(t, "Leaf1", heaviest[1].ID)
	assert.Equal(t, 2, heaviest[1].TotalDependencies)
	assert.Equal(t, "Leaf2", heaviest[2].ID)
}

func TestLongestPaths(t *testing.T) {
	nodes, edges := graphOf([]string{"A", "B", "C", "D", "E", "F"},
		[2]string{"A", "D"},
		[2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "D"},
		[2]string{"E", "F"},
	)

	paths, maxDepth := LongestPaths(nodes, edges, DefaultTopPaths)
	require.Len(t, paths, 2)
	assert.Equal(t, models.GraphPath{Path: []string{"A", "B", "C", "D"}, Length: 4}, paths[0])
	assert.Equal(t, models.GraphPath{Path: []string{"E", "F"}, Length: 2}, paths[1])
	assert.Equal(t, 4, maxDepth)
}

func TestLongestPaths_TopThree(t *testing.T) {
	nodes, edges := graphOf([]string{"R1", "R2", "R3", "R4", "X", "Y"},
		[2]string{"R1", "X"}, [2]string{"X", "Y"},
		[2]string{"R2", "X"},
		[2]string{"R3", "Y"},
	)

	paths, maxDepth := LongestPaths(nodes, edges, 3)
	require.Len(t, paths, 3)
	assert.Equal(t, []string{"R1", "X", "Y"}, paths[0].Path)
	assert.Equal(t, []string{"R2", "X", "Y"}, paths[1].Path)
	assert.Equal(t, []string{"R3", "Y"}, paths[2].Path)
	assert.Equal(t, 3, maxDepth)
}

func TestLongestPaths_NoRoots(t *testing.T) {
	nodes, edges := graphOf([]string{"A", "B"}, [2]string{"A", "B"}, [2]string{"B", "A"})

	paths, maxDepth := LongestPaths(nodes, edges, 3)
	assert.Empty(t, paths)
	assert.Zero(t, maxDepth)
}

func TestLongestPaths_BacktracksAroundCycles(t *testing.T) {
	nodes, edges := graphOf([]string{"R", "A", "B", "C"},
		[2]string{"R", "A"}, [2]string{"A", "B"}, [2]string{"B", "A"}, [2]string{"B", "C"},
	)

	paths, _ := LongestPaths(nodes, edges, 3)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"R", "A", "B", "C"}, paths[0].Path)
}

func TestCriticalNodes_Chain(t *testing.T) {
	nodes, edges := graphOf([]string{"A", "B", "C"}, [2]string{"A", "B"}, [2]string{"B", "C"})

	critical := CriticalNodes(nodes, edges, DefaultTopCritical, DefaultCriticalDepth)
	assert.Equal(t, []models.CriticalNode{
		{ID: "B", PathCount: 3},
		{ID: "A", PathCount: 2},
		{ID: "C", PathCount: 2},
	}, critical)
}

func TestCriticalNodes_Diamond(t *testing.T) {
	nodes, edges := graphOf([]string{"A", "B", "C", "D"},
		[2]string{"A", "B"}, [2]string{"A", "C"}, [2]string{"B", "D"}, [2]string{"C", "D"},
	)

	critical := CriticalNodes(nodes, edges, DefaultTopCritical, DefaultCriticalDepth)
	assert.Equal(t, []models.CriticalNode{
		{ID: "A", PathCount: 4},
		{ID: "D", PathCount: 4},
		{ID: "B", PathCount: 3},
		{ID: "C", PathCount: 3},
	}, critical)
}

func TestCriticalNodes_DepthLimit(t *testing.T) {
	nodes, edges := graphOf([]string{"A", "B", "C", "D"},
		[2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "D"},
	)

	critical := CriticalNodes(nodes, edges, DefaultTopCritical, 1)
	assert.Equal(t, []models.CriticalNode{
		{ID: "B", PathCount: 2},
		{ID: "C", PathCount: 2},
		{ID: "A", PathCount: 1},
		{ID: "D", PathCount: 1},
	}, critical)
}

func TestAnalyze_CriticalCeiling(t *testing.T) {
	nodes, edges := graphOf([]string{"A", "B", "C"}, [2]string{"A", "B"}, [2]string{"B", "C"})

	a := Analyze(nodes, edges, Options{MaxCriticalNodes: 2})
	assert.True(t, a.CriticalSkipped)
	assert.NotNil(t, a.CriticalNodes)
	assert.Empty(t, a.CriticalNodes)

	a = Analyze(nodes, edges, Options{MaxCriticalNodes: 3})
	assert.False(t, a.CriticalSkipped)
	assert.Len(t, a.CriticalNodes, 3)
}

func TestAnalyze_Summary(t *testing.T) {
	nodes, edges := graphOf([]string{"A", "B", "C"}, [2]string{"A", "B"}, [2]string{"B", "C"})

	s := Analyze(nodes, edges, DefaultOptions()).Summary
	assert.Equal(t, 3, s.TotalNodes)
	assert.Equal(t, 2, s.TotalEdges)
	assert.InDelta(t, 4.0/3.0, s.AvgDegree, 1e-9)
	assert.InDelta(t, 2.0/6.0, s.Density, 1e-9)
	assert.Equal(t, 2, s.MaxDegree)
	assert.Equal(t, 2.0, s.DegreeP90)
	assert.False(t, s.IsCyclic)
	assert.Empty(t, s.StronglyConnected)
	require.Len(t, s.Influential, 3)
	assert.Equal(t, "C", s.Influential[0].ID)
	assert.Greater(t, s.Influential[0].Score, s.Influential[2].Score)
}

func TestAnalyze_IgnoresDanglingEdgesAndDuplicateNodes(t *testing.T) {
	nodes, edges := graphOf([]string{"A", "B", "A"}, [2]string{"A", "B"}, [2]string{"A", "External"})

	a := Analyze(nodes, edges, DefaultOptions())
	assert.Equal(t, 2, a.Summary.TotalNodes)
	assert.Equal(t, 1, a.Summary.TotalEdges)
	assert.Equal(t, []string{"B"}, a.LeafNodes)
}

func TestAnalyze_EmptyGraphSerializesArrays(t *testing.T) {
	a := Analyze(nil, nil, DefaultOptions())
	assert.Zero(t, a.MaxDepth)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "null")
}

func TestAnalyze_Deterministic(t *testing.T) {
	nodes, edges := graphOf([]string{"A", "B", "C", "D", "E"},
		[2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "A"},
		[2]string{"C", "D"}, [2]string{"E", "D"},
	)

	first := Analyze(nodes, edges, DefaultOptions())
	for range 50 {
		assert.Equal(t, first, Analyze(nodes, edges, DefaultOptions()))
	}
}

func TestLongestPaths_BudgetKeepsBestSoFar(t *testing.T) {
	nodes, edges := graphOf([]string{"A", "B", "C", "D"}, [2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "D"})

	full := Analyze(nodes, edges, DefaultOptions())
	assert.Equal(t, 4, full.MaxDepth)

	capped := Analyze(nodes, edges, Options{PathBudget: 1})
	assert.Equal(t, 2, capped.MaxDepth)
	require.Len(t, capped.LongestPaths, 1)
	assert.Equal(t, []string{"A", "B"}, capped.LongestPaths[0].Path)
}

func TestPageRank(t *testing.T) {
	t.Run("cycle is uniform", func(t *testing.T) {
		nodes, edges := graphOf([]string{"A", "B", "C"}, [2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "A"})
		ranks := newIndexedGraph(nodes, edges).pageRank(pageRankDamping, pageRankTolerance)
		for _, r := range ranks {
			assert.InDelta(t, 1.0/3.0, r, 1e-9)
		}
	})

	t.Run("ranks sum to one with dangling nodes", func(t *testing.T) {
		nodes, edges := graphOf([]string{"A", "B", "C", "D"}, [2]string{"A", "B"}, [2]string{"A", "C"}, [2]string{"B", "C"})
		ranks := newIndexedGraph(nodes, edges).pageRank(pageRankDamping, pageRankTolerance)
		sum := 0.0
		for _, r := range ranks {
			sum += r
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
		assert.Greater(t, ranks[2], ranks[1])
		assert.Greater(t, ranks[1], ranks[0])
	})

	t.Run("bit-identical across runs", func(t *testing.T) {
		nodes, edges := graphOf([]string{"A", "B", "C", "D", "E"},
			[2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "A"},
			[2]string{"C", "D"}, [2]string{"E", "D"},
		)
		g := newIndexedGraph(nodes, edges)
		first := g.pageRank(pageRankDamping, pageRankTolerance)
		for range 20 {
			assert.Equal(t, first, g.pageRank(pageRankDamping, pageRankTolerance))
		}
	})
}

func TestOptionsNormalized(t *testing.T) {
	o := Options{}.normalized()
	assert.Equal(t, DefaultTopHeaviest, o.TopHeaviest)
	assert.Equal(t, DefaultTopCritical, o.TopCritical)
	assert.Equal(t, DefaultTopPaths, o.TopPaths)
	assert.Equal(t, DefaultCriticalDepth, o.CriticalDepth)
	assert.Equal(t, DefaultPathBudget, o.PathBudget)
	assert.Zero(t, o.MaxCriticalNodes)
}
