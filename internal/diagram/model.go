// Package diagram renders the dependency graph of a session's definitions.
package diagram

// NodeKind classifies a diagram node by what the name is bound to.
type NodeKind string

const (
	NodeKindFunction NodeKind = "function"
	NodeKindVariable NodeKind = "variable"
	NodeKindExternal NodeKind = "external"
	NodeKindFree     NodeKind = "free"
)

// DiagramModel is the intermediate representation used by all renderers.
type DiagramModel struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string
}

// Node is one name: a binding, an external function or a free symbol.
type Node struct {
	ID    string
	Label string
	Kind  NodeKind
}

// Edge points from a definition to a name its body uses.
type Edge struct {
	From string
	To   string
}
