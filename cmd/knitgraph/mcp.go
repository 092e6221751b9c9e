package main

import (
	"github.com/urfave/cli/v2"

	"github.com/panbanda/knitgraph/internal/mcpserver"
	"github.com/panbanda/knitgraph/internal/service/analysis"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes the Knit graph
extractor and graph analysis as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "knitgraph": {
        "command": "knitgraph",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_knit_graph     Extract and analyze the Knit dependency graph
  - analyze_graph_metrics  Analyze a previously extracted graph document`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry manifest (server.json)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "image",
						Value: mcpserver.DefaultImage,
						Usage: "OCI image to advertise, without a tag",
					},
				},
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc := analysis.New(analysis.WithConfig(cfg), analysis.WithLogger(newLogger(c, cfg)))
	return mcpserver.NewServer(version, svc).Run(c.Context)
}

func runMCPManifestCmd(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(mcpserver.ManifestOptions{
		Version: version,
		Image:   c.String("image"),
	})
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(append(data, '\n'))
	return err
}
