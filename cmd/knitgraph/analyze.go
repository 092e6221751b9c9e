package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/knitgraph/internal/output"
	"github.com/panbanda/knitgraph/internal/progress"
	"github.com/panbanda/knitgraph/internal/service/analysis"
	"github.com/panbanda/knitgraph/pkg/models"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Extract the Knit dependency graph and analyze it",
		ArgsUsage: "[path...]",
		Description: `Scans Kotlin sources for @Provides declarations and "by di" consumers,
builds the dependency graph and reports cycles, the heaviest nodes, the
longest dependency chains and critical nodes.

Examples:
  knitgraph analyze                          # Analyze the current directory
  knitgraph analyze app/src -f mermaid       # Mermaid diagram with cycles highlighted
  knitgraph analyze --graph-only -f json -o graph.json
  knitgraph analyze --ref main .             # Analyze a git revision
  knitgraph analyze --fail-on-cycles         # Exit non-zero when cycles exist`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "ref",
				Usage: "Read sources from a git revision instead of the working tree",
			},
			&cli.StringFlag{
				Name:  "dedup",
				Usage: "Edge deduplication: meaning or location (default from config)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of parallel parsers (0 = config default)",
			},
			&cli.BoolFlag{
				Name:  "graph-only",
				Usage: "Output only the extracted graph, without analysis",
			},
			&cli.BoolFlag{
				Name:  "fail-on-cycles",
				Usage: "Exit with an error when dependency cycles are found",
			},
		}, outputFlags()...),
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	workers, err := getTrailingInt(c, "workers")
	if err != nil {
		return err
	}
	graphOnly := hasTrailingBool(c, "graph-only")
	failOnCycles := hasTrailingBool(c, "fail-on-cycles")

	svc := analysis.New(analysis.WithConfig(cfg), analysis.WithLogger(newLogger(c, cfg)))
	in := analysis.Input{
		Paths: getPaths(c),
		Ref:   getTrailingFlag(c, "ref", "", ""),
	}

	var src *analysis.Sources
	if in.Ref != "" {
		spinner := progress.NewSpinnerTo(progressWriter, "Reading revision "+in.Ref+"...")
		src, err = svc.LoadSources(c.Context, in)
		if err != nil {
			spinner.FinishError(err)
			return err
		}
		spinner.FinishSuccess()
	} else if src, err = svc.LoadSources(c.Context, in); err != nil {
		return err
	}

	if len(src.Files) == 0 {
		color.Yellow("No Kotlin files found")
		return nil
	}
	if src.Dropped > 0 {
		color.Yellow("Skipping %d files beyond max_files (%d)", src.Dropped, cfg.Analysis.MaxFiles)
	}

	tracker := progress.NewTrackerTo(progressWriter, "Extracting Knit graph...", len(src.Files))
	result, err := svc.ExtractGraph(c.Context, src, analysis.ExtractOptions{
		OnProgress: tracker.Tick,
		Dedup:      getTrailingFlag(c, "dedup", "", ""),
		Workers:    workers,
	})
	if err != nil {
		tracker.FinishError(err)
		return err
	}
	tracker.FinishSuccess()

	var a *models.GraphAnalysis
	if !graphOnly || failOnCycles {
		a = svc.AnalyzeGraph(result)
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	report := a
	if graphOnly {
		report = nil
	}
	if err := formatter.Output(output.GraphReport(graphTitle(src), result, report)); err != nil {
		return err
	}

	if failOnCycles && len(a.Cycles.Cycles) > 0 {
		return fmt.Errorf("found %d dependency cycles", len(a.Cycles.Cycles))
	}
	return nil
}

func graphTitle(src *analysis.Sources) string {
	if src.Revision == nil {
		return "Knit Graph"
	}
	return fmt.Sprintf("Knit Graph (%s @ %s)", src.Revision.Ref, src.Revision.ShortCommit())
}
