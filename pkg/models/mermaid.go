package models

import (
	"fmt"
	"strings"
)

// ToMermaid renders the graph as a Mermaid flowchart. Edges listed in
// cycles are drawn in red and cycle nodes get the "cycle" class.
func (r *AnalysisResult) ToMermaid(cycles *CycleReport) string {
	var b strings.Builder
	b.WriteString("graph LR\n")

	for _, node := range r.Nodes {
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", SanitizeMermaidID(node.ID), EscapeMermaidLabel(shortName(node.ID)))
	}

	var cycleLinks []int
	for i, edge := range r.Edges {
		arrow := "-->"
		if edge.Kind == EdgeConsumerRequests {
			arrow = "-.->"
		}
		fmt.Fprintf(&b, "    %s %s %s\n", SanitizeMermaidID(edge.Source), arrow, SanitizeMermaidID(edge.Target))
		if cycles != nil && cycles.HasEdge(edge.Source, edge.Target) {
			cycleLinks = append(cycleLinks, i)
		}
	}

	if cycles != nil && len(cycles.CycleNodes) > 0 {
		b.WriteString("    classDef cycle fill:#fdd,stroke:#c00\n")
		ids := make([]string, len(cycles.CycleNodes))
		for i, id := range cycles.CycleNodes {
			ids[i] = SanitizeMermaidID(id)
		}
		fmt.Fprintf(&b, "    class %s cycle\n", strings.Join(ids, ","))
	}
	for _, idx := range cycleLinks {
		fmt.Fprintf(&b, "    linkStyle %d stroke:#c00,stroke-width:2px\n", idx)
	}

	return b.String()
}

// SanitizeMermaidID makes an id safe for Mermaid.
func SanitizeMermaidID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, c := range id {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteRune(c)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// EscapeMermaidLabel escapes characters that break quoted Mermaid labels.
func EscapeMermaidLabel(label string) string {
	r := strings.NewReplacer(`"`, "#quot;", "<", "#lt;", ">", "#gt;")
	return r.Replace(label)
}

func shortName(fqn string) string {
	if i := strings.LastIndex(fqn, "."); i >= 0 && i < len(fqn)-1 {
		return fqn[i+1:]
	}
	return fqn
}
