package models

// CycleReport lists detected dependency cycles and the nodes and edges they touch.
type CycleReport struct {
	Cycles     [][]string `json:"cycles" toon:"cycles" yaml:"cycles"`
	CycleNodes []string   `json:"cycleNodes" toon:"cycleNodes" yaml:"cycleNodes"`
	CycleEdges []string   `json:"cycleEdges" toon:"cycleEdges" yaml:"cycleEdges"`
}

// HasNode reports whether id participates in any recorded cycle.
func (c CycleReport) HasNode(id string) bool {
	for _, n := range c.CycleNodes {
		if n == id {
			return true
		}
	}
	return false
}

// HasEdge reports whether the "source-target" edge closes or lies on a cycle.
func (c CycleReport) HasEdge(source, target string) bool {
	key := EdgePairKey(source, target)
	for _, e := range c.CycleEdges {
		if e == key {
			return true
		}
	}
	return false
}

// NodeWeight holds degree counts for one node.
type NodeWeight struct {
	ID                string `json:"id" toon:"id" yaml:"id"`
	Incoming          int    `json:"incoming" toon:"incoming" yaml:"incoming"`
	Outgoing          int    `json:"outgoing" toon:"outgoing" yaml:"outgoing"`
	TotalDependencies int    `json:"totalDependencies" toon:"totalDependencies" yaml:"totalDependencies"`
}

// GraphPath is a simple path through the graph. Length counts nodes.
type GraphPath struct {
	Path   []string `json:"path" toon:"path" yaml:"path"`
	Length int      `json:"length" toon:"length" yaml:"length"`
}

// CriticalNode is a node ranked by how many enumerated paths pass through it.
type CriticalNode struct {
	ID        string `json:"id" toon:"id" yaml:"id"`
	PathCount int    `json:"pathCount" toon:"pathCount" yaml:"pathCount"`
}

// RankedNode pairs a node with a centrality score.
type RankedNode struct {
	ID    string  `json:"id" toon:"id" yaml:"id"`
	Score float64 `json:"score" toon:"score" yaml:"score"`
}

// GraphSummary holds aggregate graph statistics.
type GraphSummary struct {
	TotalNodes        int          `json:"totalNodes" toon:"totalNodes" yaml:"totalNodes"`
	TotalEdges        int          `json:"totalEdges" toon:"totalEdges" yaml:"totalEdges"`
	AvgDegree         float64      `json:"avgDegree" toon:"avgDegree" yaml:"avgDegree"`
	Density           float64      `json:"density" toon:"density" yaml:"density"`
	MaxDegree         int          `json:"maxDegree" toon:"maxDegree" yaml:"maxDegree"`
	DegreeP90         float64      `json:"degreeP90" toon:"degreeP90" yaml:"degreeP90"`
	IsCyclic          bool         `json:"isCyclic" toon:"isCyclic" yaml:"isCyclic"`
	StronglyConnected [][]string   `json:"stronglyConnected" toon:"stronglyConnected" yaml:"stronglyConnected"`
	Influential       []RankedNode `json:"influential" toon:"influential" yaml:"influential"`
}

// GraphAnalysis is derived from nodes and edges and never persisted.
type GraphAnalysis struct {
	Cycles          CycleReport    `json:"cycles" toon:"cycles" yaml:"cycles"`
	HeaviestNodes   []NodeWeight   `json:"heaviestNodes" toon:"heaviestNodes" yaml:"heaviestNodes"`
	LongestPaths    []GraphPath    `json:"longestPaths" toon:"longestPaths" yaml:"longestPaths"`
	MaxDepth        int            `json:"maxDepth" toon:"maxDepth" yaml:"maxDepth"`
	CriticalNodes   []CriticalNode `json:"criticalNodes" toon:"criticalNodes" yaml:"criticalNodes"`
	CriticalSkipped bool           `json:"criticalSkipped,omitempty" toon:"criticalSkipped,omitempty" yaml:"criticalSkipped,omitempty"`
	RootNodes       []string       `json:"rootNodes" toon:"rootNodes" yaml:"rootNodes"`
	LeafNodes       []string       `json:"leafNodes" toon:"leafNodes" yaml:"leafNodes"`
	IsolatedNodes   []string       `json:"isolatedNodes" toon:"isolatedNodes" yaml:"isolatedNodes"`
	Summary         GraphSummary   `json:"summary" toon:"summary" yaml:"summary"`
}
