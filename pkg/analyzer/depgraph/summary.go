package depgraph

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/panbanda/knitgraph/pkg/models"
	"github.com/panbanda/knitgraph/pkg/stats"
)

// toGonum builds a simple directed graph over the dense indices.
// Self-loops are skipped as gonum simple graphs don't support them.
func (g *indexedGraph) toGonum() (*simple.DirectedGraph, bool) {
	directed := simple.NewDirectedGraph()
	for i := range g.ids {
		directed.AddNode(simple.Node(int64(i)))
	}

	selfLoop := false
	for from, targets := range g.out {
		for _, to := range targets {
			if from == to {
				selfLoop = true
				continue
			}
			directed.SetEdge(simple.Edge{F: simple.Node(int64(from)), T: simple.Node(int64(to))})
		}
	}
	return directed, selfLoop
}

// summary computes aggregate statistics, strongly connected components and
// the most influential nodes by PageRank.
func (g *indexedGraph) summary(topInfluential int) models.GraphSummary {
	s := models.GraphSummary{
		TotalNodes:        len(g.ids),
		TotalEdges:        g.edges,
		StronglyConnected: [][]string{},
		Influential:       []models.RankedNode{},
	}
	if len(g.ids) == 0 {
		return s
	}

	s.AvgDegree = float64(2*g.edges) / float64(len(g.ids))
	// Density = E / (V * (V-1)) for a directed graph
	if len(g.ids) > 1 {
		s.Density = float64(g.edges) / float64(len(g.ids)*(len(g.ids)-1))
	}

	degrees := make([]float64, len(g.ids))
	for i := range g.ids {
		d := len(g.out[i]) + g.in[i]
		degrees[i] = float64(d)
		s.MaxDegree = max(s.MaxDegree, d)
	}
	sort.Float64s(degrees)
	s.DegreeP90 = stats.Percentile(degrees, 90)

	directed, selfLoop := g.toGonum()

	for _, scc := range topo.TarjanSCC(directed) {
		if len(scc) < 2 {
			continue
		}
		members := make([]string, len(scc))
		for i, n := range scc {
			members[i] = g.ids[n.ID()]
		}
		sort.Strings(members)
		s.StronglyConnected = append(s.StronglyConnected, members)
	}
	sort.Slice(s.StronglyConnected, func(i, j int) bool {
		a, b := s.StronglyConnected[i], s.StronglyConnected[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a[0] < b[0]
	})
	s.IsCyclic = selfLoop || len(s.StronglyConnected) > 0

	ranks := g.pageRank(pageRankDamping, pageRankTolerance)
	for i, id := range g.ids {
		s.Influential = append(s.Influential, models.RankedNode{ID: id, Score: round6(ranks[i])})
	}
	sort.SliceStable(s.Influential, func(i, j int) bool {
		return s.Influential[i].Score > s.Influential[j].Score
	})
	s.Influential = truncate(s.Influential, topInfluential)

	return s
}

const (
	pageRankDamping       = 0.85
	pageRankTolerance     = 1e-10
	pageRankMaxIterations = 100
)

// pageRank runs sparse power iteration over the dense indices. Nodes and
// edges are visited in index order, so equal inputs give bit-identical ranks.
// Dangling nodes spread their rank evenly over every node.
func (g *indexedGraph) pageRank(damping, tolerance float64) []float64 {
	n := len(g.ids)
	rank := make([]float64, n)
	next := make([]float64, n)
	if n == 0 {
		return rank
	}
	for i := range rank {
		rank[i] = 1.0 / float64(n)
	}
	teleport := (1.0 - damping) / float64(n)

	for range pageRankMaxIterations {
		dangling := 0.0
		for i := range rank {
			if len(g.out[i]) == 0 {
				dangling += rank[i]
			}
		}
		base := teleport + damping*dangling/float64(n)
		for i := range next {
			next[i] = base
		}
		for i, targets := range g.out {
			if len(targets) == 0 {
				continue
			}
			contrib := damping * rank[i] / float64(len(targets))
			for _, j := range targets {
				next[j] += contrib
			}
		}

		diff := 0.0
		for i := range rank {
			diff += math.Abs(next[i] - rank[i])
		}
		rank, next = next, rank
		if diff < tolerance {
			break
		}
	}
	return rank
}

// round6 keeps scores readable in reports.
func round6(x float64) float64 {
	return math.Round(x*1e6) / 1e6
}
