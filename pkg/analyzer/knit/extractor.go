package knit

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/knitgraph/pkg/models"
	"github.com/panbanda/knitgraph/pkg/parser"
)

const (
	// DefaultAnnotation is the provider annotation name, without '@'.
	DefaultAnnotation = "Provides"
	// DefaultDelegate is the identifier after "by" in consumer properties.
	DefaultDelegate = "di"
	// UnknownOwner is the source of consumer edges with no enclosing declaration.
	UnknownOwner = "UnknownOwner"

	// annotationWindow is how many bytes before a node are searched for an annotation.
	annotationWindow = 160
)

// DefaultWrappers are the generic wrappers unwrapped from consumer types.
var DefaultWrappers = []string{"Loadable", "knit.Loadable"}

// Syntax node types.
const (
	nodeClass         = "class_declaration"
	nodeInterface     = "interface_declaration"
	nodeObject        = "object_declaration"
	nodeCompanion     = "companion_object"
	nodeProperty      = "property_declaration"
	nodeFunction      = "function_declaration"
	nodePrimaryCtor   = "primary_constructor"
	nodeSecondaryCtor = "secondary_constructor"
	nodeModifiers     = "modifiers"
)

// FileGraph is the raw extraction output for one file.
type FileGraph struct {
	Path  string
	Nodes []models.GraphNode
	Edges []models.Edge
}

// Extractor holds the compiled patterns used to find DI sites.
// It is immutable after construction and safe to share between workers.
type Extractor struct {
	annotation string

	providesPattern *regexp.Regexp
	targetPattern   *regexp.Regexp
	delegatePattern *regexp.Regexp
	consumerPattern *regexp.Regexp
	wrapperPattern  *regexp.Regexp
}

// NewExtractor compiles patterns for the given annotation name, delegate
// identifier and wrapper types. Empty values fall back to the defaults.
func NewExtractor(annotation, delegate string, wrappers []string) *Extractor {
	if annotation == "" {
		annotation = DefaultAnnotation
	}
	if delegate == "" {
		delegate = DefaultDelegate
	}
	if wrappers == nil {
		wrappers = DefaultWrappers
	}

	ann := regexp.QuoteMeta(annotation)
	del := regexp.QuoteMeta(delegate)

	x := &Extractor{
		annotation:      annotation,
		providesPattern: regexp.MustCompile(`@` + ann + `\b`),
		targetPattern:   regexp.MustCompile(`@` + ann + `\s*\(\s*(?:\w+\s*=\s*)?([A-Za-z_][\w.]*)\s*::\s*class\s*\)`),
		delegatePattern: regexp.MustCompile(`\bby\s+` + del + `\b`),
		consumerPattern: regexp.MustCompile(`(?:val|var)\s+(\w+)\s*(?::\s*(.+?))?\s+by\s+` + del + `\b`),
	}

	if len(wrappers) > 0 {
		quoted := make([]string, len(wrappers))
		for i, w := range wrappers {
			quoted[i] = regexp.QuoteMeta(w)
		}
		x.wrapperPattern = regexp.MustCompile(`^(?:` + strings.Join(quoted, "|") + `)<(.+)>\??$`)
	}
	return x
}

// ExtractFile parses one file and collects its declarations and raw edges.
func (x *Extractor) ExtractFile(ctx context.Context, p *parser.Parser, file models.SourceFile) (*FileGraph, error) {
	res, err := p.Parse(ctx, []byte(file.Content), file.Path)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return x.Extract(res), nil
}

// Extract walks an already parsed file.
func (x *Extractor) Extract(res *parser.ParseResult) *FileGraph {
	fc := NewFileContext(res.Path, string(res.Source))
	fg := &FileGraph{Path: res.Path}
	seen := make(map[string]bool)

	parser.WalkTyped(res.Root(), res.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		switch nodeType {
		case nodeClass, nodeInterface, nodeObject:
			if n, ok := x.declaration(node, nodeType, source, fc); ok && !seen[n.ID] {
				seen[n.ID] = true
				fg.Nodes = append(fg.Nodes, n)
			}
			if nodeType == nodeClass {
				fg.Edges = append(fg.Edges, x.ProvidedByClass(node, source, fc)...)
			}
		case nodePrimaryCtor, nodeSecondaryCtor:
			fg.Edges = append(fg.Edges, x.ProvidedByConstructor(node, source, fc)...)
		case nodeFunction:
			fg.Edges = append(fg.Edges, x.ProvidedByFunction(node, source, fc)...)
		case nodeProperty:
			fg.Edges = append(fg.Edges, x.ProvidedByProperty(node, source, fc)...)
			fg.Edges = append(fg.Edges, x.ConsumedByProperty(node, source, fc)...)
		}
		return true
	})

	return fg
}

// annotated reports whether the node carries the provider annotation, either
// in its modifiers or in the raw text window just before it.
func (x *Extractor) annotated(node *sitter.Node, source []byte) bool {
	if x.modifiersAnnotated(node, source) {
		return true
	}
	return x.providesPattern.MatchString(parser.PrecedingText(node, source, annotationWindow))
}

func (x *Extractor) modifiersAnnotated(node *sitter.Node, source []byte) bool {
	mods := parser.FindChildByType(node, nodeModifiers)
	return mods != nil && x.providesPattern.MatchString(parser.GetNodeText(mods, source))
}

// explicitTarget returns the X in @Provides(X::class). The node's own
// modifiers are searched first, then the last match in the preceding window.
func (x *Extractor) explicitTarget(node *sitter.Node, source []byte) string {
	if mods := parser.FindChildByType(node, nodeModifiers); mods != nil {
		if m := x.targetPattern.FindStringSubmatch(parser.GetNodeText(mods, source)); m != nil {
			return m[1]
		}
	}
	matches := x.targetPattern.FindAllStringSubmatch(parser.PrecedingText(node, source, annotationWindow), -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}

// declaredName returns the first identifier child of a declaration.
func declaredName(node *sitter.Node, source []byte) string {
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "type_identifier", "simple_identifier":
			return parser.GetNodeText(child, source)
		}
	}
	return ""
}

func newEdge(source, target string, kind models.EdgeKind, file string, node *sitter.Node) models.Edge {
	return models.Edge{
		Source:         source,
		Target:         target,
		Kind:           kind,
		SourceLocation: models.Location{File: file, Line: parser.Line(node)},
	}
}

// recoverFile converts a panic inside extraction into an error.
func recoverFile(path string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("extraction panicked in %s: %v", path, r)
	}
}
