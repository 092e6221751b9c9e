package models

import "strconv"

// Location identifies a line within a source file.
type Location struct {
	File string `json:"file" toon:"file" yaml:"file"`
	Line int    `json:"line" toon:"line" yaml:"line"`
}

// String returns "file:line".
func (l Location) String() string {
	return l.File + ":" + strconv.Itoa(l.Line)
}

// NodeKind classifies a graph node. Interfaces and objects collapse into NodeClass.
type NodeKind string

const (
	NodeClass NodeKind = "class"
)

// GraphNode represents one declared type.
type GraphNode struct {
	ID        string     `json:"id" toon:"id" yaml:"id"`
	Kind      NodeKind   `json:"kind" toon:"kind" yaml:"kind"`
	DefinedIn Location   `json:"definedIn" toon:"definedIn" yaml:"definedIn"`
	UsedIn    []Location `json:"usedIn" toon:"usedIn" yaml:"usedIn"`
}

// EdgeKind is the type of DI relationship an edge expresses.
type EdgeKind string

const (
	// EdgeProviderParam means the source requires or constructs the target.
	EdgeProviderParam EdgeKind = "provider-param"
	// EdgeConsumerRequests means the source requests the target via injection.
	EdgeConsumerRequests EdgeKind = "consumer-requests"
)

// Valid reports whether k is a known edge kind.
func (k EdgeKind) Valid() bool {
	return k == EdgeProviderParam || k == EdgeConsumerRequests
}

// Edge is a directed dependency between two FQNs.
type Edge struct {
	Source         string   `json:"source" toon:"source" yaml:"source"`
	Target         string   `json:"target" toon:"target" yaml:"target"`
	Kind           EdgeKind `json:"kind" toon:"kind" yaml:"kind"`
	SourceLocation Location `json:"sourceLocation" toon:"sourceLocation" yaml:"sourceLocation"`
}

// Key is the meaning-based identity of the edge: source|target|kind.
func (e Edge) Key() string {
	return e.Source + "|" + e.Target + "|" + string(e.Kind)
}

// LocationKey extends Key with the source location.
func (e Edge) LocationKey() string {
	return e.Key() + "|" + e.SourceLocation.File + "|" + strconv.Itoa(e.SourceLocation.Line)
}

// PairKey is the "source-target" key used for cycle edge highlighting.
func (e Edge) PairKey() string {
	return EdgePairKey(e.Source, e.Target)
}

// EdgePairKey joins two node ids into the cycle edge key format.
func EdgePairKey(source, target string) string {
	return source + "-" + target
}

// SourceFile is one Kotlin file handed to the extractor.
type SourceFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// AnalysisResult is the canonical output of graph extraction.
type AnalysisResult struct {
	Nodes              []GraphNode         `json:"nodes" toon:"nodes" yaml:"nodes"`
	Edges              []Edge              `json:"edges" toon:"edges" yaml:"edges"`
	FileToDefinedNodes map[string][]string `json:"fileToDefinedNodes" toon:"fileToDefinedNodes" yaml:"fileToDefinedNodes"`
	Errors             []string            `json:"errors,omitempty" toon:"errors,omitempty" yaml:"errors,omitempty"`
}

// NewAnalysisResult returns an empty result with non-nil collections.
func NewAnalysisResult() *AnalysisResult {
	return &AnalysisResult{
		Nodes:              make([]GraphNode, 0),
		Edges:              make([]Edge, 0),
		FileToDefinedNodes: make(map[string][]string),
	}
}

// NodeIDs returns the set of node ids in the result.
func (r *AnalysisResult) NodeIDs() map[string]bool {
	ids := make(map[string]bool, len(r.Nodes))
	for _, n := range r.Nodes {
		ids[n.ID] = true
	}
	return ids
}

// Node returns the node with the given id.
func (r *AnalysisResult) Node(id string) (GraphNode, bool) {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return GraphNode{}, false
}
