package knit

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/knitgraph/pkg/models"
	"github.com/panbanda/knitgraph/pkg/parser"
)

// ConsumedByProperty handles "val x: T by di": the enclosing declaration
// requests T. Properties without a declared type are skipped.
func (x *Extractor) ConsumedByProperty(node *sitter.Node, source []byte, fc *FileContext) []models.Edge {
	text := parser.GetNodeText(node, source)
	if !x.delegatePattern.MatchString(text) {
		return nil
	}
	m := x.consumerPattern.FindStringSubmatch(text)
	if m == nil || m[2] == "" {
		return nil
	}

	requested := fc.Qualify(x.unwrap(m[2]))
	owner := ownerOf(node, source, fc)
	return []models.Edge{newEdge(owner, requested, models.EdgeConsumerRequests, fc.Path, node)}
}

// unwrap strips one configured wrapper such as Loadable<T>.
func (x *Extractor) unwrap(typ string) string {
	compact := whitespacePattern.ReplaceAllString(typ, "")
	if x.wrapperPattern != nil {
		if m := x.wrapperPattern.FindStringSubmatch(compact); m != nil {
			return m[1]
		}
	}
	return compact
}

// ownerOf finds the declaration a property belongs to. Properties in a
// companion object belong to the companion's enclosing type.
func ownerOf(node *sitter.Node, source []byte, fc *FileContext) string {
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		switch cur.Type() {
		case nodeClass, nodeObject, nodeInterface:
			if name := declaredName(cur, source); name != "" {
				return fc.Qualify(name)
			}
		}
	}
	return UnknownOwner
}
