package diagram

import (
	"fmt"
	"sort"

	"github.com/rendis/graphcalc/internal/resolver"
)

// Build constructs a DiagramModel from the bindings of s. Names used by a
// body but not bound become external or free nodes depending on isExternal.
// The caller must hold the session lock.
func Build(s *resolver.Session, isExternal func(string) bool) *DiagramModel {
	nodeIndex := make(map[string]*Node)
	var edges []Edge

	for _, name := range s.Names() {
		def, _ := s.Lookup(name)
		node := &Node{ID: name, Label: def.String(), Kind: NodeKindVariable}
		if def.Kind() == resolver.KindFunction {
			node.Kind = NodeKindFunction
		}
		nodeIndex[name] = node
	}

	for _, name := range s.Names() {
		deps, _ := s.Dependencies(name)
		for _, dep := range deps {
			if _, ok := nodeIndex[dep]; !ok {
				kind := NodeKindFree
				if isExternal != nil && isExternal(dep) {
					kind = NodeKindExternal
				}
				nodeIndex[dep] = &Node{ID: dep, Label: dep, Kind: kind}
			}
			edges = append(edges, Edge{From: name, To: dep})
		}
	}

	ids := make([]string, 0, len(nodeIndex))
	for id := range nodeIndex {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	nodes := make([]*Node, len(ids))
	for i, id := range ids {
		nodes[i] = nodeIndex[id]
	}

	return &DiagramModel{
		Title:  fmt.Sprintf("session %s", s.ID()),
		Nodes:  nodes,
		Edges:  edges,
		Levels: buildLevels(ids, edges),
	}
}

// buildLevels layers the graph top-down: level 0 holds names nothing else
// uses, each following level the names used only by earlier levels. Names
// on a cycle land together in a final level. Each level is sorted.
func buildLevels(ids []string, edges []Edge) [][]string {
	inDegree := make(map[string]int, len(ids))
	out := make(map[string][]string, len(ids))
	for _, e := range edges {
		if e.From == e.To {
			continue
		}
		inDegree[e.To]++
		out[e.From] = append(out[e.From], e.To)
	}

	var levels [][]string
	placed := make(map[string]bool, len(ids))
	var current []string
	for _, id := range ids {
		if inDegree[id] == 0 {
			current = append(current, id)
		}
	}

	for len(current) > 0 {
		sort.Strings(current)
		levels = append(levels, current)
		var next []string
		for _, id := range current {
			placed[id] = true
			for _, to := range out[id] {
				inDegree[to]--
				if inDegree[to] == 0 {
					next = append(next, to)
				}
			}
		}
		current = next
	}

	var cyclic []string
	for _, id := range ids {
		if !placed[id] {
			cyclic = append(cyclic, id)
		}
	}
	if len(cyclic) > 0 {
		levels = append(levels, cyclic)
	}
	return levels
}
