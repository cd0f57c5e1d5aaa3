package diagram

import (
	"strings"
	"testing"

	"github.com/rendis/graphcalc/internal/resolver"
	"github.com/stretchr/testify/assert"
)

func TestRenderASCIIChain(t *testing.T) {
	output := RenderASCII(Build(chainSession(t), isExternal))
	assert.NotEmpty(t, output)

	assert.Contains(t, output, "=== session chain ===")

	// Verify box-drawing characters.
	assert.Contains(t, output, "┌")
	assert.Contains(t, output, "┐")
	assert.Contains(t, output, "└")
	assert.Contains(t, output, "┘")
	assert.Contains(t, output, "│")
	assert.Contains(t, output, "▼")

	assert.Contains(t, output, "f(x) = x*(h(x))")
	assert.Contains(t, output, "[EXT]")
	assert.Contains(t, output, "[FREE]")
	assert.Contains(t, output, "y ─→ f")

	// y sits in the first level, h in the last.
	assert.Less(t, strings.Index(output, "y = f(a)+sin(a)"), strings.Index(output, "h(x) = x*2"))
}

func TestRenderASCIIEmpty(t *testing.T) {
	output := RenderASCII(Build(resolver.NewSessionWithID("empty"), nil))
	assert.Contains(t, output, "(no definitions)")
	assert.NotContains(t, output, "uses")
}

func TestMakeBoxWidth(t *testing.T) {
	box := makeBox(&Node{ID: "z", Label: "z", Kind: NodeKindFree})
	// Label "z" and tag "[FREE]" share the widest content width.
	assert.Equal(t, len("[FREE]")+4, box.width)
	assert.Len(t, box.lines, 4)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "a", firstLine("a\nb"))
	assert.Equal(t, "abc", firstLine("abc"))
}
