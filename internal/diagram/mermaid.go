package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a DiagramModel as a Mermaid flowchart string.
func RenderMermaid(model *DiagramModel) string {
	var b strings.Builder

	b.WriteString("graph TD\n")

	if model.Title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", model.Title))
	}

	for _, node := range model.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(node)))
	}

	for _, edge := range model.Edges {
		b.WriteString(fmt.Sprintf("    %s --> %s\n", mermaidSafeID(edge.From), mermaidSafeID(edge.To)))
	}

	b.WriteString("\n")
	b.WriteString("    classDef external fill:#1a5276,stroke:#0e3a52,color:#fff\n")
	b.WriteString("    classDef free fill:#e8e8e8,stroke:#888,color:#555,stroke-dasharray:5 5\n")

	for _, node := range model.Nodes {
		if cls := mermaidKindClass(node.Kind); cls != "" {
			b.WriteString(fmt.Sprintf("    class %s %s\n", mermaidSafeID(node.ID), cls))
		}
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape.
func mermaidNodeDef(node *Node) string {
	id := mermaidSafeID(node.ID)
	label := mermaidEscapeLabel(firstLine(node.Label))

	switch node.Kind {
	case NodeKindVariable:
		return fmt.Sprintf("%s([%q])", id, label)
	case NodeKindExternal:
		return fmt.Sprintf("%s{{%q}}", id, label)
	case NodeKindFree:
		return fmt.Sprintf("%s((%q))", id, label)
	default: // function
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

// mermaidSafeID prefixes node IDs so names such as "end" or "graph" do not
// collide with Mermaid keywords.
func mermaidSafeID(id string) string {
	return "n_" + id
}

// mermaidEscapeLabel replaces characters Mermaid treats as markup.
func mermaidEscapeLabel(s string) string {
	r := strings.NewReplacer(`"`, "#quot;", "\\", "#92;")
	return r.Replace(s)
}

// mermaidKindClass maps a node kind to a Mermaid class name.
func mermaidKindClass(kind NodeKind) string {
	switch kind {
	case NodeKindExternal:
		return "external"
	case NodeKindFree:
		return "free"
	default:
		return ""
	}
}
