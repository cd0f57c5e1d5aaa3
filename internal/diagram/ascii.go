package diagram

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const boxGap = "  "

// kindTag returns a short ASCII indicator for nodes that are not bindings.
func kindTag(kind NodeKind) string {
	switch kind {
	case NodeKindExternal:
		return "[EXT]"
	case NodeKindFree:
		return "[FREE]"
	default:
		return ""
	}
}

// RenderASCII draws one row of boxes per dependency level, users above the
// names they use, followed by the edge list.
func RenderASCII(model *DiagramModel) string {
	var b strings.Builder

	if model.Title != "" {
		fmt.Fprintf(&b, "=== %s ===\n\n", model.Title)
	}
	if len(model.Nodes) == 0 {
		b.WriteString("(no definitions)\n")
		return b.String()
	}

	byID := make(map[string]*Node, len(model.Nodes))
	for _, n := range model.Nodes {
		byID[n.ID] = n
	}

	for i, level := range model.Levels {
		boxes := make([]asciiBox, 0, len(level))
		for _, id := range level {
			if n, ok := byID[id]; ok {
				boxes = append(boxes, makeBox(n))
			}
		}
		if len(boxes) == 0 {
			continue
		}
		writeRow(&b, boxes)
		if i < len(model.Levels)-1 {
			writeArrow(&b, rowWidth(boxes))
		}
	}

	if len(model.Edges) > 0 {
		b.WriteString("\n--- uses ---\n")
		for _, e := range model.Edges {
			fmt.Fprintf(&b, "  %s ─→ %s\n", e.From, e.To)
		}
	}
	return b.String()
}

type asciiBox struct {
	lines []string
	width int
}

// makeBox frames the node label, plus its kind tag when it has one.
func makeBox(node *Node) asciiBox {
	content := []string{firstLine(node.Label)}
	if tag := kindTag(node.Kind); tag != "" {
		content = append(content, tag)
	}

	inner := 0
	for _, c := range content {
		inner = max(inner, utf8.RuneCountInString(c))
	}

	lines := make([]string, 0, len(content)+2)
	lines = append(lines, "┌"+strings.Repeat("─", inner+2)+"┐")
	for _, c := range content {
		pad := inner - utf8.RuneCountInString(c)
		lines = append(lines, "│ "+c+strings.Repeat(" ", pad)+" │")
	}
	lines = append(lines, "└"+strings.Repeat("─", inner+2)+"┘")

	return asciiBox{lines: lines, width: inner + 4}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// writeRow prints boxes side by side, padding shorter boxes with blanks.
func writeRow(b *strings.Builder, boxes []asciiBox) {
	height := 0
	for _, box := range boxes {
		height = max(height, len(box.lines))
	}
	for row := 0; row < height; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString(boxGap)
			}
			if row < len(box.lines) {
				b.WriteString(box.lines[row])
			} else {
				b.WriteString(strings.Repeat(" ", box.width))
			}
		}
		b.WriteByte('\n')
	}
}

func rowWidth(boxes []asciiBox) int {
	w := 0
	for _, box := range boxes {
		w += box.width
	}
	return w + len(boxGap)*(len(boxes)-1)
}

// writeArrow draws a down arrow centered under a row of the given width.
func writeArrow(b *strings.Builder, width int) {
	indent := strings.Repeat(" ", max(width/2, 1))
	b.WriteString(indent + "│\n")
	b.WriteString(indent + "▼\n")
}
