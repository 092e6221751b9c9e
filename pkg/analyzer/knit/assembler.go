package knit

import (
	"fmt"

	"github.com/panbanda/knitgraph/pkg/models"
)

// DedupMode selects how duplicate edges collapse during assembly.
type DedupMode string

const (
	// DedupMeaning collapses edges with the same source, target and kind.
	DedupMeaning DedupMode = "meaning"
	// DedupLocation additionally keeps edges from distinct source locations.
	DedupLocation DedupMode = "location"
)

// ParseDedupMode validates a dedup mode name. Empty means DedupMeaning.
func ParseDedupMode(s string) (DedupMode, error) {
	switch DedupMode(s) {
	case "", DedupMeaning:
		return DedupMeaning, nil
	case DedupLocation:
		return DedupLocation, nil
	default:
		return "", fmt.Errorf("unknown dedup mode %q (want %q or %q)", s, DedupMeaning, DedupLocation)
	}
}

// Assembler merges per-file graphs into one canonical graph.
// Files must be added in a fixed order for reproducible output.
type Assembler struct {
	mode DedupMode

	nodes     map[string]*models.GraphNode
	nodeOrder []string
	fileDefs  map[string][]string
	fileSeen  map[string]map[string]bool
	rawEdges  []models.Edge
	errors    []string
}

// NewAssembler creates an empty assembler.
func NewAssembler(mode DedupMode) *Assembler {
	if mode == "" {
		mode = DedupMeaning
	}
	return &Assembler{
		mode:     mode,
		nodes:    make(map[string]*models.GraphNode),
		fileDefs: make(map[string][]string),
		fileSeen: make(map[string]map[string]bool),
	}
}

// AddFile registers a file's nodes and raw edges. Node registration is
// idempotent: the first definedIn seen for an id is kept.
func (a *Assembler) AddFile(fg *FileGraph) {
	if fg == nil {
		return
	}
	for _, n := range fg.Nodes {
		if _, ok := a.nodes[n.ID]; !ok {
			node := n
			node.UsedIn = []models.Location{}
			a.nodes[n.ID] = &node
			a.nodeOrder = append(a.nodeOrder, n.ID)
		}

		seen := a.fileSeen[fg.Path]
		if seen == nil {
			seen = make(map[string]bool)
			a.fileSeen[fg.Path] = seen
		}
		if !seen[n.ID] {
			seen[n.ID] = true
			a.fileDefs[fg.Path] = append(a.fileDefs[fg.Path], n.ID)
		}
	}
	a.rawEdges = append(a.rawEdges, fg.Edges...)
}

// AddError records a non-fatal per-file failure.
func (a *Assembler) AddError(msg string) {
	a.errors = append(a.errors, msg)
}

// NodeCount returns the number of distinct nodes registered so far.
func (a *Assembler) NodeCount() int {
	return len(a.nodeOrder)
}

// Result filters edges to known nodes, deduplicates them, fills usedIn
// from consumer sites and returns the canonical graph.
func (a *Assembler) Result() *models.AnalysisResult {
	result := models.NewAnalysisResult()

	usedSeen := make(map[string]map[models.Location]bool)
	edgeSeen := make(map[string]bool)

	for _, e := range a.rawEdges {
		_, srcOK := a.nodes[e.Source]
		tgt, tgtOK := a.nodes[e.Target]
		if !srcOK || !tgtOK {
			continue
		}

		if e.Kind == models.EdgeConsumerRequests {
			seen := usedSeen[e.Target]
			if seen == nil {
				seen = make(map[models.Location]bool)
				usedSeen[e.Target] = seen
			}
			if !seen[e.SourceLocation] {
				seen[e.SourceLocation] = true
				tgt.UsedIn = append(tgt.UsedIn, e.SourceLocation)
			}
		}

		key := e.Key()
		if a.mode == DedupLocation {
			key = e.LocationKey()
		}
		if edgeSeen[key] {
			continue
		}
		edgeSeen[key] = true
		result.Edges = append(result.Edges, e)
	}

	for _, id := range a.nodeOrder {
		result.Nodes = append(result.Nodes, *a.nodes[id])
	}
	for file, ids := range a.fileDefs {
		result.FileToDefinedNodes[file] = append([]string(nil), ids...)
	}
	if len(a.errors) > 0 {
		result.Errors = append([]string(nil), a.errors...)
	}
	return result
}
