package graph

import (
	"fmt"
	"io"
	"strings"
)

// Visualizer renders a graph for diagnostics.
type Visualizer[K comparable] struct {
	graph *Graph[K]
}

// NewVisualizer creates a new graph visualizer
func NewVisualizer[K comparable](g *Graph[K]) *Visualizer[K] {
	return &Visualizer[K]{graph: g}
}

// WriteDOT writes the graph in Graphviz DOT format
func (v *Visualizer[K]) WriteDOT(w io.Writer) error {
	var b strings.Builder

	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	ids := make(map[K]string, v.graph.Size())
	for i, n := range v.graph.Nodes() {
		id := fmt.Sprintf("n%d", i)
		ids[n.Key] = id
		fmt.Fprintf(&b, "  %s [label=\"%s\", fillcolor=\"%s\", style=filled];\n",
			id, v.label(n), nodeColor(n))
	}

	for _, n := range v.graph.Nodes() {
		for _, dep := range n.Dependencies {
			fmt.Fprintf(&b, "  %s -> %s;\n", ids[n.Key], ids[dep])
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteText writes the graph grouped by dependency depth.
func (v *Visualizer[K]) WriteText(w io.Writer) error {
	var b strings.Builder

	b.WriteString("Dependency Graph:\n")
	b.WriteString("=================\n\n")

	depths := v.graph.Depths()
	maxDepth := -1
	for _, d := range depths {
		maxDepth = max(maxDepth, d)
	}

	for depth := 0; depth <= maxDepth; depth++ {
		fmt.Fprintf(&b, "Level %d:\n", depth)
		b.WriteString("--------\n")
		for _, n := range v.graph.Nodes() {
			if d, ok := depths[n.Key]; ok && d == depth {
				v.writeNode(&b, n)
			}
		}
		b.WriteString("\n")
	}

	if _, cyclic := v.graph.TopologicalSort(); len(cyclic) > 0 {
		b.WriteString("Nodes in Cycles:\n")
		b.WriteString("----------------\n")
		for _, k := range cyclic {
			n, _ := v.graph.Node(k)
			v.writeNode(&b, n)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Total nodes: %d\n", v.graph.Size())

	_, err := io.WriteString(w, b.String())
	return err
}

func (v *Visualizer[K]) writeNode(b *strings.Builder, n Node[K]) {
	fmt.Fprintf(b, "  %s\n", v.name(n))
	if n.Missing {
		b.WriteString("    (no binding)\n")
		return
	}
	if n.Lifetime != "" {
		fmt.Fprintf(b, "    Lifetime: %s\n", n.Lifetime)
	}
	if len(n.Dependencies) > 0 {
		deps := make([]string, len(n.Dependencies))
		for i, dep := range n.Dependencies {
			dn, _ := v.graph.Node(dep)
			deps[i] = v.name(dn)
		}
		fmt.Fprintf(b, "    Depends on: %s\n", strings.Join(deps, ", "))
	}
}

func (v *Visualizer[K]) name(n Node[K]) string {
	if n.Label != "" {
		return n.Label
	}
	return fmt.Sprintf("%v", n.Key)
}

func (v *Visualizer[K]) label(n Node[K]) string {
	name := v.name(n)
	if n.Lifetime == "" {
		return name
	}
	return name + "\\n" + n.Lifetime
}

// nodeColor determines the color for a node based on its lifetime
func nodeColor[K comparable](n Node[K]) string {
	if n.Missing {
		return "lightgray"
	}

	switch n.Lifetime {
	case "Singleton":
		return "lightblue"
	case "Scoped":
		return "lightgreen"
	case "Transient":
		return "lightyellow"
	default:
		return "white"
	}
}
