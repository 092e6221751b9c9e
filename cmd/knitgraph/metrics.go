package main

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/knitgraph/internal/graphfile"
	"github.com/panbanda/knitgraph/internal/output"
	"github.com/panbanda/knitgraph/internal/service/analysis"
)

func metricsCmd() *cli.Command {
	return &cli.Command{
		Name:      "metrics",
		Aliases:   []string{"m"},
		Usage:     "Analyze a previously extracted graph",
		ArgsUsage: "<graph.json|->",
		Description: `Reads a graph document written by "analyze --graph-only -f json" and
runs the graph analysis on it. Use "-" to read from stdin.

Examples:
  knitgraph analyze --graph-only -f json -o graph.json
  knitgraph metrics graph.json
  knitgraph analyze --graph-only -f json | knitgraph metrics -`,
		Flags:  outputFlags(),
		Action: runMetricsCmd,
	}
}

func runMetricsCmd(c *cli.Context) error {
	args := getPaths(c)
	if c.Args().Len() == 0 {
		return errors.New("a graph file is required (use - for stdin)")
	}

	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}

	result, err := graphfile.Load(args[0])
	if err != nil {
		return err
	}

	svc := analysis.New(analysis.WithConfig(cfg), analysis.WithLogger(newLogger(c, cfg)))
	a := svc.AnalyzeGraph(result)

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.MetricsReport("Graph Metrics", result, a))
}
