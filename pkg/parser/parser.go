package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/kotlin"
)

// Language represents a supported source language.
type Language string

const (
	LangKotlin       Language = "kotlin"
	LangKotlinScript Language = "kotlin-script"
	LangUnknown      Language = "unknown"
)

// Parser wraps a tree-sitter parser configured for Kotlin.
// A Parser is not safe for concurrent use; give each worker its own.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed syntax tree and metadata.
type ParseResult struct {
	Tree     *sitter.Tree
	Language Language
	Source   []byte
	Path     string
}

// New creates a new parser instance.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(kotlin.GetLanguage())
	return &Parser{parser: p}
}

// Parse parses Kotlin source. The path is carried through for reporting only.
func (p *Parser) Parse(ctx context.Context, source []byte, path string) (*ParseResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("failed to parse: no tree produced")
	}

	lang := DetectLanguage(path)
	if lang == LangUnknown {
		lang = LangKotlin
	}

	return &ParseResult{
		Tree:     tree,
		Language: lang,
		Source:   source,
		Path:     path,
	}, nil
}

// Root returns the root node of the parse tree.
func (r *ParseResult) Root() *sitter.Node {
	if r == nil || r.Tree == nil {
		return nil
	}
	return r.Tree.RootNode()
}

// Close releases the tree held by the result.
func (r *ParseResult) Close() {
	if r != nil && r.Tree != nil {
		r.Tree.Close()
	}
}

// DetectLanguage determines the language from a file path.
func DetectLanguage(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".kt":
		return LangKotlin
	case ".kts":
		return LangKotlinScript
	default:
		return LangUnknown
	}
}

// IsKotlin reports whether path names a Kotlin source or script file.
func IsKotlin(path string) bool {
	return DetectLanguage(path) != LangUnknown
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// NodeVisitor is a function that visits syntax nodes.
type NodeVisitor func(node *sitter.Node, source []byte) bool

// TypedNodeVisitor visits syntax nodes with pre-cached node type to avoid CGO overhead.
type TypedNodeVisitor func(node *sitter.Node, nodeType string, source []byte) bool

// Walk traverses the tree depth-first calling visitor for each node.
// Returning false from the visitor skips the node's children.
func Walk(node *sitter.Node, source []byte, visitor NodeVisitor) {
	if node == nil {
		return
	}

	if !visitor(node, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), source, visitor)
	}
}

// WalkTyped traverses the tree with cached node types to reduce CGO overhead.
func WalkTyped(node *sitter.Node, source []byte, visitor TypedNodeVisitor) {
	if node == nil {
		return
	}

	nodeType := node.Type()
	if !visitor(node, nodeType, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		WalkTyped(node.Child(i), source, visitor)
	}
}

// FindNodes returns all nodes matching a predicate.
func FindNodes(root *sitter.Node, source []byte, predicate func(*sitter.Node) bool) []*sitter.Node {
	var results []*sitter.Node
	Walk(root, source, func(node *sitter.Node, source []byte) bool {
		if predicate(node) {
			results = append(results, node)
		}
		return true
	})
	return results
}

// FindNodesByType returns all nodes of a specific type.
func FindNodesByType(root *sitter.Node, source []byte, nodeType string) []*sitter.Node {
	return FindNodes(root, source, func(n *sitter.Node) bool {
		return n.Type() == nodeType
	})
}

// FindChildByType returns the first direct child of the given type.
func FindChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		if child != nil && child.Type() == nodeType {
			return child
		}
	}
	return nil
}

// FindAncestor walks parent links until a node whose type is in types is found.
func FindAncestor(node *sitter.Node, types ...string) *sitter.Node {
	if node == nil {
		return nil
	}
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		t := cur.Type()
		for _, want := range types {
			if t == want {
				return cur
			}
		}
	}
	return nil
}

// GetNodeText extracts the source text for a node.
// Returns empty string if node is nil or byte offsets are out of bounds.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}

// PrecedingText returns up to n bytes of source immediately before the node.
func PrecedingText(node *sitter.Node, source []byte, n int) string {
	if node == nil {
		return ""
	}
	end := int(node.StartByte())
	if end > len(source) {
		end = len(source)
	}
	start := end - n
	if start < 0 {
		start = 0
	}
	return string(source[start:end])
}

// Line returns the 1-based start line of a node.
func Line(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.StartPoint().Row) + 1
}
