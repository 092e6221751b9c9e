package knit

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/knitgraph/pkg/models"
	"github.com/panbanda/knitgraph/pkg/parser"
)

// typeNodes are the syntax node types that can hold a parameter's declared type.
var typeNodes = map[string]bool{
	"user_type":          true,
	"nullable_type":      true,
	"function_type":      true,
	"parenthesized_type": true,
	"not_nullable_type":  true,
}

// ProvidedByClass handles an annotated class. With an explicit target the
// class is recorded as the target's implementation (target -> class);
// otherwise the class depends on each primary constructor parameter type.
func (x *Extractor) ProvidedByClass(node *sitter.Node, source []byte, fc *FileContext) []models.Edge {
	if !x.annotated(node, source) {
		return nil
	}
	name := declaredName(node, source)
	if name == "" {
		return nil
	}
	class := fc.Qualify(name)

	if target := x.explicitTarget(node, source); target != "" {
		return []models.Edge{newEdge(fc.Qualify(target), class, models.EdgeProviderParam, fc.Path, node)}
	}

	ctor := parser.FindChildByType(node, nodePrimaryCtor)
	if ctor == nil {
		return nil
	}
	header := annotationUsePattern.ReplaceAllString(parser.GetNodeText(ctor, source), "")

	var edges []models.Edge
	for _, dep := range parameterTypes(header) {
		edges = append(edges, newEdge(class, fc.Qualify(dep), models.EdgeProviderParam, fc.Path, node))
	}
	return edges
}

// ProvidedByConstructor handles an annotated primary or secondary constructor:
// the owning class depends on each constructor parameter type.
// The text window before a primary constructor covers the class header, so
// an annotated class also marks its primary constructor.
func (x *Extractor) ProvidedByConstructor(node *sitter.Node, source []byte, fc *FileContext) []models.Edge {
	var annotated bool
	var params []*sitter.Node
	switch node.Type() {
	case nodePrimaryCtor:
		annotated = x.annotated(node, source)
		header := parser.FindChildByType(node, "class_parameters")
		if header == nil {
			header = node
		}
		params = childrenOfType(header, "class_parameter")
	case nodeSecondaryCtor:
		annotated = x.annotated(node, source)
		if header := parser.FindChildByType(node, "function_value_parameters"); header != nil {
			params = childrenOfType(header, "parameter")
		}
	}
	if !annotated {
		return nil
	}

	owner := parser.FindAncestor(node, nodeClass)
	if owner == nil {
		return nil
	}
	name := declaredName(owner, source)
	if name == "" {
		return nil
	}
	class := fc.Qualify(name)

	var edges []models.Edge
	for _, param := range params {
		dep := declaredParamType(param, source)
		if dep == "" {
			continue
		}
		edges = append(edges, newEdge(class, fc.Qualify(dep), models.EdgeProviderParam, fc.Path, node))
	}
	return edges
}

// ProvidedByFunction handles an annotated function: its return type depends
// on each parameter type. Functions without a declared return type yield nothing.
func (x *Extractor) ProvidedByFunction(node *sitter.Node, source []byte, fc *FileContext) []models.Edge {
	if !x.annotated(node, source) {
		return nil
	}

	signature := textAfterFun(node, source)
	open := strings.IndexByte(signature, '(')
	if open < 0 {
		return nil
	}
	end := matchingClose(signature, open)
	if end < 0 {
		return nil
	}

	ret := returnType(signature[end+1:])
	if ret == "" {
		return nil
	}
	provided := fc.Qualify(ret)

	var edges []models.Edge
	for _, dep := range parameterTypes(signature[open : end+1]) {
		edges = append(edges, newEdge(provided, fc.Qualify(dep), models.EdgeProviderParam, fc.Path, node))
	}
	return edges
}

// ProvidedByProperty handles a property annotated with an explicit target:
// the target is provided by the property's declared type.
func (x *Extractor) ProvidedByProperty(node *sitter.Node, source []byte, fc *FileContext) []models.Edge {
	target := x.explicitTarget(node, source)
	if target == "" {
		return nil
	}
	decl := parser.FindChildByType(node, "variable_declaration")
	if decl == nil {
		return nil
	}
	declared := paramType(parser.GetNodeText(decl, source))
	if declared == "" {
		return nil
	}
	return []models.Edge{newEdge(fc.Qualify(target), fc.Qualify(declared), models.EdgeProviderParam, fc.Path, node)}
}

// textAfterFun returns the function text following the "fun" keyword, so
// annotation arguments are never mistaken for the parameter list.
func textAfterFun(node *sitter.Node, source []byte) string {
	if kw := parser.FindChildByType(node, "fun"); kw != nil {
		end := kw.EndByte()
		if end <= node.EndByte() && node.EndByte() <= uint32(len(source)) {
			return string(source[end:node.EndByte()])
		}
	}
	text := parser.GetNodeText(node, source)
	if i := strings.Index(text, "fun "); i >= 0 {
		return text[i+len("fun"):]
	}
	return text
}

// declaredParamType reads a parameter's type from its type child, falling
// back to the text after ':'.
func declaredParamType(param *sitter.Node, source []byte) string {
	for i := range int(param.ChildCount()) {
		child := param.Child(i)
		if child != nil && typeNodes[child.Type()] {
			return parser.GetNodeText(child, source)
		}
	}
	return paramType(parser.GetNodeText(param, source))
}

func childrenOfType(node *sitter.Node, nodeType string) []*sitter.Node {
	var out []*sitter.Node
	for i := range int(node.ChildCount()) {
		if child := node.Child(i); child != nil && child.Type() == nodeType {
			out = append(out, child)
		}
	}
	return out
}
