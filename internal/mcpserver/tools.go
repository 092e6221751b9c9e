package mcpserver

import (
	"bytes"
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/knitgraph/internal/graphfile"
	"github.com/panbanda/knitgraph/internal/output"
	"github.com/panbanda/knitgraph/internal/service/analysis"
	"github.com/panbanda/knitgraph/pkg/models"
)

// AnalyzeInput is the base input for source-reading tools.
type AnalyzeInput struct {
	Paths  []string `json:"paths,omitempty" jsonschema:"Paths to analyze. Defaults to current directory if empty."`
	Format string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, markdown or mermaid."`
}

// KnitGraphInput adds extraction options.
type KnitGraphInput struct {
	AnalyzeInput
	Ref       string `json:"ref,omitempty" jsonschema:"Git revision to read instead of the working tree. Requires a single path."`
	Dedup     string `json:"dedup,omitempty" jsonschema:"Edge deduplication: meaning (default) or location."`
	GraphOnly bool   `json:"graph_only,omitempty" jsonschema:"Return only the extracted graph without cycle and path analysis."`
}

// GraphMetricsInput names an existing graph document.
type GraphMetricsInput struct {
	Path   string `json:"path,omitempty" jsonschema:"Path to a graph JSON file produced by analyze_knit_graph with graph_only."`
	Graph  string `json:"graph,omitempty" jsonschema:"Inline graph JSON document. Takes precedence over path."`
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, markdown or mermaid."`
}

// Helper functions

func getPaths(input AnalyzeInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(format string) output.Format {
	if format == "" {
		return output.FormatTOON
	}
	return output.ParseFormat(format)
}

func formatOutput(data any, format output.Format) (string, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(format, &buf).Output(data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// Tool handlers

func (s *Server) handleAnalyzeKnitGraph(ctx context.Context, req *mcp.CallToolRequest, input KnitGraphInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.Format)

	src, err := s.service.LoadSources(ctx, analysis.Input{
		Paths: getPaths(input.AnalyzeInput),
		Ref:   input.Ref,
	})
	if err != nil {
		return toolError(err.Error())
	}
	if len(src.Files) == 0 {
		return toolError("no Kotlin files found")
	}

	result, err := s.service.ExtractGraph(ctx, src, analysis.ExtractOptions{Dedup: input.Dedup})
	if err != nil {
		return toolError(err.Error())
	}

	var a *models.GraphAnalysis
	if !input.GraphOnly {
		a = s.service.AnalyzeGraph(result)
	}
	return toolResult(output.GraphReport("Knit Graph", result, a), format)
}

func (s *Server) handleAnalyzeGraphMetrics(ctx context.Context, req *mcp.CallToolRequest, input GraphMetricsInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.Format)

	var (
		result *models.AnalysisResult
		err    error
	)
	switch {
	case input.Graph != "":
		result, err = graphfile.Decode([]byte(input.Graph))
	case input.Path != "":
		result, err = graphfile.Load(input.Path)
	default:
		err = errors.New("either graph or path is required")
	}
	if err != nil {
		return toolError(err.Error())
	}

	a := s.service.AnalyzeGraph(result)
	return toolResult(output.MetricsReport("Graph Metrics", result, a), format)
}
