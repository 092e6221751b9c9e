package knit

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/knitgraph/pkg/models"
	"github.com/panbanda/knitgraph/pkg/parser"
)

var companionPrefixPattern = regexp.MustCompile(`\bcompanion\s*$`)

// declaration turns a class, interface or object declaration into a graph node.
// Companion objects are not independent nodes.
func (x *Extractor) declaration(node *sitter.Node, nodeType string, source []byte, fc *FileContext) (models.GraphNode, bool) {
	if nodeType == nodeObject && isCompanion(node, source) {
		return models.GraphNode{}, false
	}

	name := declaredName(node, source)
	if name == "" {
		return models.GraphNode{}, false
	}

	return models.GraphNode{
		ID:        fc.Qualify(name),
		Kind:      models.NodeClass,
		DefinedIn: models.Location{File: fc.Path, Line: parser.Line(node)},
		UsedIn:    []models.Location{},
	}, true
}

func isCompanion(node *sitter.Node, source []byte) bool {
	if companionPrefixPattern.MatchString(parser.PrecedingText(node, source, annotationWindow)) {
		return true
	}
	return strings.HasPrefix(strings.TrimSpace(parser.GetNodeText(node, source)), "companion")
}
