// Package graph analyzes declared dependency relationships between services.
package graph

import "slices"

// Node is a service in the dependency graph.
type Node[K comparable] struct {
	Key K

	// Label is the display name used by the visualizer.
	Label string

	// Lifetime is a display attribute; the graph does not interpret it.
	Lifetime string

	// Dependencies are the services this node depends on, in declared order.
	Dependencies []K

	// Missing marks nodes referenced as dependencies but never added.
	Missing bool
}

// Graph is a snapshot of dependency relationships. It is not safe for
// concurrent mutation; build it, then read it.
type Graph[K comparable] struct {
	nodes map[K]*Node[K]
	order []K
}

// New creates an empty graph.
func New[K comparable]() *Graph[K] {
	return &Graph[K]{nodes: make(map[K]*Node[K])}
}

// Add inserts or replaces a node. Dependencies that are not yet in the
// graph are added as missing placeholders.
func (g *Graph[K]) Add(node Node[K]) {
	if existing, ok := g.nodes[node.Key]; ok {
		*existing = node
	} else {
		n := node
		g.nodes[node.Key] = &n
		g.order = append(g.order, node.Key)
	}

	for _, dep := range node.Dependencies {
		if _, ok := g.nodes[dep]; !ok {
			g.nodes[dep] = &Node[K]{Key: dep, Missing: true}
			g.order = append(g.order, dep)
		}
	}
}

// Node returns the node for key.
func (g *Graph[K]) Node(key K) (Node[K], bool) {
	n, ok := g.nodes[key]
	if !ok {
		return Node[K]{}, false
	}
	return *n, true
}

// Nodes returns all nodes in insertion order.
func (g *Graph[K]) Nodes() []Node[K] {
	out := make([]Node[K], 0, len(g.order))
	for _, k := range g.order {
		out = append(out, *g.nodes[k])
	}
	return out
}

// Size returns the number of nodes, including missing placeholders.
func (g *Graph[K]) Size() int {
	return len(g.order)
}

// FindCycle returns the first cycle reachable from start, as a path that
// begins and ends with the same key, or nil when there is none.
func (g *Graph[K]) FindCycle(start K) []K {
	return FindCycle(start, func(k K) []K {
		if n, ok := g.nodes[k]; ok {
			return n.Dependencies
		}
		return nil
	})
}

// FindCycle runs a depth-first search from start using edges to enumerate
// dependencies. It returns the first cycle found, as a path that begins and
// ends with the same key, or nil.
func FindCycle[K comparable](start K, edges func(K) []K) []K {
	var (
		path    []K
		onPath  = make(map[K]bool)
		visited = make(map[K]bool)
		cycle   []K
	)

	var visit func(k K) bool
	visit = func(k K) bool {
		if onPath[k] {
			i := slices.Index(path, k)
			cycle = append(slices.Clone(path[i:]), k)
			return true
		}
		if visited[k] {
			return false
		}

		onPath[k] = true
		path = append(path, k)
		for _, dep := range edges(k) {
			if visit(dep) {
				return true
			}
		}
		path = path[:len(path)-1]
		onPath[k] = false
		visited[k] = true
		return false
	}

	visit(start)
	return cycle
}

// TopologicalSort returns keys with dependencies before dependents, using
// insertion order to break ties. Keys that sit on or behind a cycle are
// returned separately.
func (g *Graph[K]) TopologicalSort() (sorted []K, cyclic []K) {
	remaining := make(map[K]int, len(g.nodes))
	dependents := make(map[K][]K, len(g.nodes))
	for _, k := range g.order {
		n := g.nodes[k]
		remaining[k] = len(n.Dependencies)
		for _, dep := range n.Dependencies {
			dependents[dep] = append(dependents[dep], k)
		}
	}

	var queue []K
	for _, k := range g.order {
		if remaining[k] == 0 {
			queue = append(queue, k)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		for _, dependent := range dependents[current] {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	for _, k := range g.order {
		if remaining[k] > 0 {
			cyclic = append(cyclic, k)
		}
	}
	return sorted, cyclic
}

// Depths returns the longest dependency chain below each sorted key.
// Leaves have depth 0. Keys on a cycle are absent.
func (g *Graph[K]) Depths() map[K]int {
	sorted, _ := g.TopologicalSort()
	depths := make(map[K]int, len(sorted))
	for _, k := range sorted {
		d := 0
		for _, dep := range g.nodes[k].Dependencies {
			if dd, ok := depths[dep]; ok && dd+1 > d {
				d = dd + 1
			}
		}
		depths[k] = d
	}
	return depths
}
