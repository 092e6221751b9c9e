package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/knitgraph/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Validate a configuration file",
				Description: `Validates a knitgraph configuration file for syntax errors and invalid values.

Examples:
  knitgraph config validate                    # Validates default config locations
  knitgraph -c knitgraph.toml config validate  # Validates specific file`,
				Action: runConfigValidate,
			},
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Description: `Shows the merged configuration from defaults and config file.

Examples:
  knitgraph config show
  knitgraph -c knitgraph.toml config show`,
				Action: runConfigShow,
			},
			{
				Name:  "init",
				Usage: "Write a default configuration file",
				Description: `Creates a knitgraph.toml file with the default settings.

Examples:
  knitgraph config init                                # Creates knitgraph.toml
  knitgraph config init -o .knitgraph/knitgraph.toml   # Creates config in .knitgraph
  knitgraph config init --force                        # Overwrite existing file`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   "knitgraph.toml",
						Usage:   "Output file path",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite existing config file",
					},
				},
				Action: runConfigInit,
			},
		},
	}
}

func runConfigValidate(c *cli.Context) error {
	_, src, err := loadConfig(c)
	if err != nil {
		color.Red("Configuration validation failed:")
		fmt.Fprintf(c.App.Writer, "  - %s\n", err)
		return err
	}

	if src != "" {
		color.Green("Configuration valid: %s", src)
	} else {
		color.Yellow("No config file found. Default configuration is valid.")
	}
	return nil
}

func runConfigShow(c *cli.Context) error {
	cfg, src, err := loadConfig(c)
	if err != nil {
		return err
	}

	w := c.App.Writer
	if src != "" {
		fmt.Fprintf(w, "# Configuration from: %s\n\n", src)
	} else {
		fmt.Fprintln(w, "# Default configuration (no config file found)")
	}

	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprint(w, string(content))
	return nil
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if _, err := os.Stat(outputPath); err == nil && !c.Bool("force") {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", outputPath)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	content, err := generateDefaultConfig()
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	color.Green("Created %s", outputPath)
	return nil
}

func generateDefaultConfig() (string, error) {
	content, err := toml.Marshal(config.DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("failed to marshal config to TOML: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# knitgraph configuration\n")
	buf.WriteString("# Documentation: https://github.com/panbanda/knitgraph\n\n")
	buf.Write(content)
	return buf.String(), nil
}
