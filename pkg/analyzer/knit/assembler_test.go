package knit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/knitgraph/pkg/models"
)

func node(id, file string, line int) models.GraphNode {
	return models.GraphNode{ID: id, Kind: models.NodeClass, DefinedIn: models.Location{File: file, Line: line}, UsedIn: []models.Location{}}
}

func edge(src, tgt string, kind models.EdgeKind, file string, line int) models.Edge {
	return models.Edge{Source: src, Target: tgt, Kind: kind, SourceLocation: models.Location{File: file, Line: line}}
}

func TestParseDedupMode(t *testing.T) {
	m, err := ParseDedupMode("")
	require.NoError(t, err)
	assert.Equal(t, DedupMeaning, m)

	m, err = ParseDedupMode("location")
	require.NoError(t, err)
	assert.Equal(t, DedupLocation, m)

	_, err = ParseDedupMode("fuzzy")
	assert.Error(t, err)
}

func TestAssemblerIdempotentRegistration(t *testing.T) {
	a := NewAssembler(DedupMeaning)
	fg := &FileGraph{Path: "A.kt", Nodes: []models.GraphNode{node("p.A", "A.kt", 3)}}
	a.AddFile(fg)
	a.AddFile(fg)
	a.AddFile(&FileGraph{Path: "Z.kt", Nodes: []models.GraphNode{node("p.A", "Z.kt", 9)}})

	res := a.Result()
	require.Len(t, res.Nodes, 1)
	assert.Equal(t, models.Location{File: "A.kt", Line: 3}, res.Nodes[0].DefinedIn)
	assert.Equal(t, []string{"p.A"}, res.FileToDefinedNodes["A.kt"])
	assert.Equal(t, []string{"p.A"}, res.FileToDefinedNodes["Z.kt"])
	assert.Equal(t, 1, a.NodeCount())
}

func TestAssemblerFiltersUnknownEndpoints(t *testing.T) {
	a := NewAssembler(DedupMeaning)
	a.AddFile(&FileGraph{
		Path:  "A.kt",
		Nodes: []models.GraphNode{node("p.A", "A.kt", 1), node("p.B", "A.kt", 2)},
		Edges: []models.Edge{
			edge("p.A", "p.B", models.EdgeProviderParam, "A.kt", 1),
			edge("p.A", "kotlin.String", models.EdgeProviderParam, "A.kt", 1),
			edge(UnknownOwner, "p.B", models.EdgeConsumerRequests, "A.kt", 5),
		},
	})

	res := a.Result()
	ids := res.NodeIDs()
	for _, e := range res.Edges {
		assert.True(t, ids[e.Source], "source %s must be a node", e.Source)
		assert.True(t, ids[e.Target], "target %s must be a node", e.Target)
	}
	assert.Len(t, res.Edges, 1)
	n, _ := res.Node("p.B")
	assert.Empty(t, n.UsedIn, "filtered consumer edges do not count as usages")
}

func TestAssemblerMeaningDedupKeepsFirstLocation(t *testing.T) {
	a := NewAssembler(DedupMeaning)
	a.AddFile(&FileGraph{
		Path:  "A.kt",
		Nodes: []models.GraphNode{node("p.A", "A.kt", 1), node("p.B", "B.kt", 1)},
		Edges: []models.Edge{
			edge("p.A", "p.B", models.EdgeProviderParam, "A.kt", 4),
			edge("p.A", "p.B", models.EdgeProviderParam, "A.kt", 9),
			edge("p.A", "p.B", models.EdgeConsumerRequests, "A.kt", 12),
		},
	})

	res := a.Result()
	require.Len(t, res.Edges, 2)
	assert.Equal(t, 4, res.Edges[0].SourceLocation.Line)
	assert.Equal(t, models.EdgeConsumerRequests, res.Edges[1].Kind)
}

func TestAssemblerLocationDedup(t *testing.T) {
	a := NewAssembler(DedupLocation)
	a.AddFile(&FileGraph{
		Path:  "A.kt",
		Nodes: []models.GraphNode{node("p.A", "A.kt", 1), node("p.B", "A.kt", 2)},
		Edges: []models.Edge{
			edge("p.A", "p.B", models.EdgeProviderParam, "A.kt", 4),
			edge("p.A", "p.B", models.EdgeProviderParam, "A.kt", 4),
			edge("p.A", "p.B", models.EdgeProviderParam, "A.kt", 9),
		},
	})

	res := a.Result()
	assert.Len(t, res.Edges, 2)
}

func TestAssemblerUsedIn(t *testing.T) {
	a := NewAssembler(DedupMeaning)
	a.AddFile(&FileGraph{
		Path:  "A.kt",
		Nodes: []models.GraphNode{node("p.A", "A.kt", 1), node("p.S", "S.kt", 1)},
		Edges: []models.Edge{
			edge("p.A", "p.S", models.EdgeConsumerRequests, "A.kt", 3),
			edge("p.A", "p.S", models.EdgeConsumerRequests, "A.kt", 4),
			edge("p.A", "p.S", models.EdgeConsumerRequests, "A.kt", 3),
			edge("p.A", "p.S", models.EdgeProviderParam, "A.kt", 8),
		},
	})

	res := a.Result()
	s, ok := res.Node("p.S")
	require.True(t, ok)
	assert.Equal(t, []models.Location{{File: "A.kt", Line: 3}, {File: "A.kt", Line: 4}}, s.UsedIn)

	owner, _ := res.Node("p.A")
	assert.Empty(t, owner.UsedIn)
	assert.NotNil(t, owner.UsedIn)
}

func TestAssemblerErrors(t *testing.T) {
	a := NewAssembler("")
	assert.Nil(t, a.Result().Errors)

	a.AddError("Bad.kt: boom")
	assert.Equal(t, []string{"Bad.kt: boom"}, a.Result().Errors)
}
