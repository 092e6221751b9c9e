package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/knitgraph/internal/output"
	"github.com/panbanda/knitgraph/internal/service/analysis"
	"github.com/panbanda/knitgraph/pkg/watch"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Aliases:   []string{"w"},
		Usage:     "Re-analyze the Knit graph whenever Kotlin files change",
		ArgsUsage: "[path]",
		Flags: append([]cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before a batch of changes is analyzed",
			},
		}, outputFlags()...),
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	paths := getPaths(c)
	if len(paths) > 1 {
		return errors.New("watch takes a single directory")
	}
	root, err := filepath.Abs(paths[0])
	if err != nil {
		return fmt.Errorf("invalid path %s: %w", paths[0], err)
	}

	svc := analysis.New(analysis.WithConfig(cfg), analysis.WithLogger(newLogger(c, cfg)))
	w, err := watch.NewWatcher(root, cfg, c.Duration("debounce"))
	if err != nil {
		return err
	}
	defer w.Stop()

	run := func() {
		if err := analyzeOnce(c, svc, root); err != nil {
			color.Red("Error: %v", err)
		}
	}
	w.OnChange(func(changed []string) {
		for _, p := range changed {
			rel, err := filepath.Rel(root, p)
			if err != nil {
				rel = p
			}
			color.Yellow("Changed: %s", rel)
		}
		run()
	})
	w.OnError(func(err error) {
		color.Red("Watch error: %v", err)
	})

	run()
	color.Cyan("Watching for changes in %s...", root)
	color.Cyan("Press Ctrl+C to stop")

	err = w.Start(c.Context)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// analyzeOnce extracts and analyzes root and writes the report.
func analyzeOnce(c *cli.Context, svc *analysis.Service, root string) error {
	src, err := svc.LoadSources(c.Context, analysis.Input{Paths: []string{root}})
	if err != nil {
		return err
	}
	if len(src.Files) == 0 {
		color.Yellow("No Kotlin files found")
		return nil
	}
	result, err := svc.ExtractGraph(c.Context, src, analysis.ExtractOptions{})
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, svc.Config())
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(output.GraphReport("Knit Graph", result, svc.AnalyzeGraph(result)))
}
