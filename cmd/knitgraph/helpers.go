package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/knitgraph/internal/output"
	"github.com/panbanda/knitgraph/pkg/config"
)

// valueFlags take a separate argument when written as "-f json".
var valueFlags = map[string]bool{
	"format": true, "f": true,
	"output": true, "o": true,
	"ref": true, "dedup": true, "workers": true, "debounce": true,
}

// outputFlags returns the flags shared by every command that writes a report.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, json, markdown, toon, yaml, mermaid (default from config)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write output to file",
		},
	}
}

// getPaths returns positional paths, defaulting to ["."]. Flags written
// after the first path are not parsed by urfave/cli and are skipped here.
func getPaths(c *cli.Context) []string {
	var paths []string
	args := c.Args().Slice()
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			paths = append(paths, arg)
			continue
		}
		name := strings.TrimLeft(arg, "-")
		if !strings.Contains(name, "=") && valueFlags[name] {
			i++
		}
	}
	if len(paths) == 0 {
		return []string{"."}
	}
	return paths
}

// getTrailingFlag returns a string flag value, also looking at trailing
// arguments the flag parser left untouched.
func getTrailingFlag(c *cli.Context, name, short, defaultValue string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	prefixes := []string{"--" + name}
	if short != "" {
		prefixes = append(prefixes, "-"+short)
	}
	args := c.Args().Slice()
	for i, arg := range args {
		for _, prefix := range prefixes {
			if arg == prefix && i+1 < len(args) {
				return args[i+1]
			}
			if v, ok := strings.CutPrefix(arg, prefix+"="); ok {
				return v
			}
		}
	}
	if v := c.String(name); v != "" {
		return v
	}
	return defaultValue
}

// getTrailingInt is getTrailingFlag for integer flags.
func getTrailingInt(c *cli.Context, name string) (int, error) {
	if c.IsSet(name) {
		return c.Int(name), nil
	}
	v := getTrailingFlag(c, name, "", "")
	if v == "" {
		return c.Int(name), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("--%s must be an integer (got %q)", name, v)
	}
	return n, nil
}

// hasTrailingBool reports whether a boolean flag is set, before or after the
// positional arguments.
func hasTrailingBool(c *cli.Context, name string) bool {
	if c.Bool(name) {
		return true
	}
	for _, arg := range c.Args().Slice() {
		if arg == "--"+name || arg == "-"+name {
			return true
		}
	}
	return false
}

// loadConfig resolves and validates the configuration named by --config.
func loadConfig(c *cli.Context) (*config.Config, string, error) {
	cfg, path, err := config.Resolve(c.String("config"))
	if err != nil {
		return nil, path, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

// newLogger returns a stderr logger. Warnings only unless verbose.
func newLogger(c *cli.Context, cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	if c.Bool("verbose") || cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newFormatter builds the report formatter from flags, falling back to the
// config's output section.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := getTrailingFlag(c, "format", "f", cfg.Output.Format)
	colored := cfg.Output.Color && !c.Bool("no-color")
	return output.NewFormatter(output.ParseFormat(format), getTrailingFlag(c, "output", "o", ""), colored)
}

// progressWriter is where spinners and progress bars go.
var progressWriter io.Writer = os.Stderr
