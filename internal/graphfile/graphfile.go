// Package graphfile loads AnalysisResult JSON produced elsewhere (an earlier
// run, or an external service that edits the graph) so it can be analysed.
package graphfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/panbanda/knitgraph/pkg/models"
)

// ErrInvalidGraph is returned when a document does not match the graph schema.
var ErrInvalidGraph = errors.New("invalid graph document")

const schemaURL = "https://github.com/panbanda/knitgraph/graph.schema.json"

//go:embed graph.schema.json
var schemaJSON []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("failed to parse graph schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("failed to register graph schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Validate checks a raw JSON document against the graph schema.
func Validate(data []byte) error {
	sch, err := schema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}
	return nil
}

// Decode validates and decodes a graph document. Missing optional
// collections are filled in so the result serialises like a fresh run.
func Decode(data []byte) (*models.AnalysisResult, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	result := models.NewAnalysisResult()
	if err := json.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}
	if result.Nodes == nil {
		result.Nodes = []models.GraphNode{}
	}
	if result.Edges == nil {
		result.Edges = []models.Edge{}
	}
	if result.FileToDefinedNodes == nil {
		result.FileToDefinedNodes = make(map[string][]string)
	}
	for i := range result.Nodes {
		if result.Nodes[i].Kind == "" {
			result.Nodes[i].Kind = models.NodeClass
		}
		if result.Nodes[i].UsedIn == nil {
			result.Nodes[i].UsedIn = []models.Location{}
		}
	}
	return result, nil
}

// Read decodes a graph document from r.
func Read(r io.Reader) (*models.AnalysisResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Load decodes a graph document from a file; "-" reads standard input.
func Load(path string) (*models.AnalysisResult, error) {
	if path == "-" {
		return Read(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph %s: %w", path, err)
	}
	result, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return result, nil
}
