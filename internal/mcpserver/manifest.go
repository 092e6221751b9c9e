package mcpserver

import (
	"encoding/json"
	"strings"
)

const (
	serverName     = "knitgraph"
	registryName   = "io.github.panbanda/" + serverName
	repositoryURL  = "https://github.com/panbanda/" + serverName
	manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"

	// DefaultImage is the OCI image advertised in the manifest, without a tag.
	DefaultImage = "ghcr.io/panbanda/" + serverName
)

// Manifest is the registry server.json document.
type Manifest struct {
	Schema      string      `json:"$schema"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	Repository  *Repository `json:"repository,omitempty"`
	Packages    []Package   `json:"packages,omitempty"`
}

type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package is one way of running the server. The config file location is
// passed through KNITGRAPH_CONFIG, which the CLI reads for --config.
type Package struct {
	RegistryType     string        `json:"registryType"`
	Identifier       string        `json:"identifier"`
	PackageArguments []Argument    `json:"packageArguments,omitempty"`
	Environment      []EnvVariable `json:"environmentVariables,omitempty"`
	Transport        Transport     `json:"transport"`
}

type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

type EnvVariable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsRequired  bool   `json:"isRequired"`
}

type Transport struct {
	Type string `json:"type"`
}

// ManifestOptions selects the version and image written to the manifest.
type ManifestOptions struct {
	Version string
	Image   string
}

// GenerateManifest renders server.json for the registry. Development builds
// ("dev" or empty) are published as 0.0.0.
func GenerateManifest(opts ManifestOptions) ([]byte, error) {
	version := strings.TrimPrefix(opts.Version, "v")
	if version == "" || version == "dev" {
		version = "0.0.0"
	}
	image := opts.Image
	if image == "" {
		image = DefaultImage
	}

	manifest := Manifest{
		Schema:      manifestSchema,
		Name:        registryName,
		Description: "Knit dependency-injection graph extraction and cycle analysis for Kotlin",
		Version:     version,
		Repository:  &Repository{URL: repositoryURL, Source: "github"},
		Packages: []Package{{
			RegistryType:     "oci",
			Identifier:       image + ":" + version,
			PackageArguments: []Argument{{Type: "positional", Value: "mcp"}},
			Environment: []EnvVariable{{
				Name:        "KNITGRAPH_CONFIG",
				Description: "Path to a knitgraph config file (TOML, YAML, or JSON)",
			}},
			Transport: Transport{Type: "stdio"},
		}},
	}
	return json.MarshalIndent(manifest, "", "  ")
}
