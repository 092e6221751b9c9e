package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/panbanda/knitgraph/pkg/models"
)

// GraphDocument is the serialized form of an analyze run.
type GraphDocument struct {
	Graph    *models.AnalysisResult `json:"graph" toon:"graph" yaml:"graph"`
	Analysis *models.GraphAnalysis  `json:"analysis,omitempty" toon:"analysis,omitempty" yaml:"analysis,omitempty"`
}

// GraphReport builds the report for an extracted graph. When analysis is nil
// the report lists nodes and edges and serializes the bare AnalysisResult,
// so the output can be fed back into the metrics command.
func GraphReport(title string, result *models.AnalysisResult, analysis *models.GraphAnalysis) *Report {
	r := &Report{Title: title}

	var cycles *models.CycleReport
	if analysis == nil {
		r.Data = result
		r.Sections = append(r.Sections, overview(result, nil), nodesTable(result), edgesTable(result))
	} else {
		cycles = &analysis.Cycles
		r.Data = GraphDocument{Graph: result, Analysis: analysis}
		r.Sections = append(r.Sections, AnalysisSections(result, analysis)...)
	}
	if len(result.Errors) > 0 {
		r.Sections = append(r.Sections, errorsTable(result.Errors))
	}
	r.Diagram = result.ToMermaid(cycles)
	return r
}

// MetricsReport builds the report for an analysis of an existing graph. Only
// the GraphAnalysis is serialized.
func MetricsReport(title string, result *models.AnalysisResult, analysis *models.GraphAnalysis) *Report {
	return &Report{
		Title:    title,
		Sections: AnalysisSections(result, analysis),
		Data:     analysis,
		Diagram:  result.ToMermaid(&analysis.Cycles),
	}
}

// AnalysisSections renders a GraphAnalysis as report sections.
func AnalysisSections(result *models.AnalysisResult, a *models.GraphAnalysis) []Renderable {
	sections := []Renderable{overview(result, a)}

	cycleRows := make([][]string, len(a.Cycles.Cycles))
	for i, c := range a.Cycles.Cycles {
		cycleRows[i] = []string{strconv.Itoa(i + 1), strings.Join(c, " -> ")}
	}
	sections = append(sections, NewTable("Cycles", []string{"#", "Cycle"}, cycleRows, nil, a.Cycles))

	heavyRows := make([][]string, len(a.HeaviestNodes))
	for i, n := range a.HeaviestNodes {
		heavyRows[i] = []string{n.ID, strconv.Itoa(n.Incoming), strconv.Itoa(n.Outgoing), strconv.Itoa(n.TotalDependencies)}
	}
	sections = append(sections, NewTable("Heaviest Nodes", []string{"Node", "In", "Out", "Total"}, heavyRows, nil, a.HeaviestNodes))

	pathRows := make([][]string, len(a.LongestPaths))
	for i, p := range a.LongestPaths {
		pathRows[i] = []string{strconv.Itoa(p.Length), strings.Join(p.Path, " -> ")}
	}
	var pathFooter []string
	if len(pathRows) > 0 {
		pathFooter = []string{"Max depth", strconv.Itoa(a.MaxDepth)}
	}
	sections = append(sections, NewTable("Longest Paths", []string{"Length", "Path"}, pathRows, pathFooter, a.LongestPaths))

	if a.CriticalSkipped {
		sections = append(sections, &Section{
			Title:   "Critical Nodes",
			Content: fmt.Sprintf("Skipped: %d nodes exceeds the critical-node ceiling.", a.Summary.TotalNodes),
		})
	} else {
		critRows := make([][]string, len(a.CriticalNodes))
		for i, n := range a.CriticalNodes {
			critRows[i] = []string{n.ID, strconv.Itoa(n.PathCount)}
		}
		sections = append(sections, NewTable("Critical Nodes", []string{"Node", "Paths"}, critRows, nil, a.CriticalNodes))
	}

	rankRows := make([][]string, len(a.Summary.Influential))
	for i, n := range a.Summary.Influential {
		rankRows[i] = []string{n.ID, strconv.FormatFloat(n.Score, 'f', 4, 64)}
	}
	sections = append(sections, NewTable("Most Influential", []string{"Node", "PageRank"}, rankRows, nil, a.Summary.Influential))

	return sections
}

func overview(result *models.AnalysisResult, a *models.GraphAnalysis) *Section {
	var provider, consumer int
	for _, e := range result.Edges {
		if e.Kind == models.EdgeConsumerRequests {
			consumer++
		} else {
			provider++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Nodes:    %d\n", len(result.Nodes))
	fmt.Fprintf(&b, "Edges:    %d (%d provider-param, %d consumer-requests)\n", len(result.Edges), provider, consumer)
	fmt.Fprintf(&b, "Files:    %d\n", len(result.FileToDefinedNodes))
	if len(result.Errors) > 0 {
		fmt.Fprintf(&b, "Errors:   %d\n", len(result.Errors))
	}
	if a != nil {
		s := a.Summary
		fmt.Fprintf(&b, "Avg degree: %.2f\n", s.AvgDegree)
		fmt.Fprintf(&b, "Density:    %.4f\n", s.Density)
		fmt.Fprintf(&b, "Degree:     max %d, p90 %.0f\n", s.MaxDegree, s.DegreeP90)
		fmt.Fprintf(&b, "Cyclic:     %s\n", yesNo(s.IsCyclic))
		fmt.Fprintf(&b, "Roots: %d  Leaves: %d  Isolated: %d\n", len(a.RootNodes), len(a.LeafNodes), len(a.IsolatedNodes))
		if len(s.StronglyConnected) > 0 {
			fmt.Fprintf(&b, "Strongly connected components: %d\n", len(s.StronglyConnected))
		}
	}
	return &Section{Title: "Summary", Content: strings.TrimRight(b.String(), "\n")}
}

func nodesTable(result *models.AnalysisResult) *Table {
	rows := make([][]string, len(result.Nodes))
	for i, n := range result.Nodes {
		rows[i] = []string{n.ID, n.DefinedIn.String(), strconv.Itoa(len(n.UsedIn))}
	}
	return NewTable("Nodes", []string{"Node", "Defined In", "Used In"}, rows, nil, result.Nodes)
}

func edgesTable(result *models.AnalysisResult) *Table {
	rows := make([][]string, len(result.Edges))
	for i, e := range result.Edges {
		rows[i] = []string{e.Source, e.Target, string(e.Kind), e.SourceLocation.String()}
	}
	return NewTable("Edges", []string{"Source", "Target", "Kind", "Location"}, rows, nil, result.Edges)
}

func errorsTable(errs []string) *Table {
	rows := make([][]string, len(errs))
	for i, e := range errs {
		file, msg, ok := strings.Cut(e, ": ")
		if !ok {
			file, msg = "", e
		}
		rows[i] = []string{file, msg}
	}
	return NewTable("Errors", []string{"File", "Error"}, rows, nil, errs)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
