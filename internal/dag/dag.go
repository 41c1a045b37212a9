// Package dag provides a small directed acyclic graph with deterministic
// topological ordering and cycle detection. It backs both the project
// dependency graph and the build task graph.
package dag

import (
	"fmt"
	"slices"
	"strings"
)

// CycleError indicates that the graph contains a cycle, preventing topological ordering.
type CycleError struct {
	// Cycle contains the nodes left with unresolved in-edges; enough to identify the problem.
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Graph is a directed graph. An edge from A to B means A must complete before B starts.
type Graph struct {
	adjacency map[string][]string
	reverse   map[string][]string
	nodes     []string
	nodeSet   map[string]bool
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		reverse:   make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// HasNode reports whether name was added.
func (g *Graph) HasNode(name string) bool {
	return g.nodeSet[name]
}

// AddEdge adds a directed edge from -> to. Both nodes are implicitly added.
// Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if slices.Contains(g.adjacency[from], to) {
		return
	}
	g.adjacency[from] = append(g.adjacency[from], to)
	g.reverse[to] = append(g.reverse[to], from)
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.nodes)
}

// Successors returns the nodes that directly depend on name.
func (g *Graph) Successors(name string) []string {
	return slices.Clone(g.adjacency[name])
}

// Predecessors returns the nodes name directly depends on.
func (g *Graph) Predecessors(name string) []string {
	return slices.Clone(g.reverse[name])
}

// Descendants returns every node reachable from name, in insertion order.
func (g *Graph) Descendants(name string) []string {
	return g.reach(name, g.adjacency)
}

// Ancestors returns every node from which name is reachable, in insertion order.
func (g *Graph) Ancestors(name string) []string {
	return g.reach(name, g.reverse)
}

func (g *Graph) reach(start string, edges map[string][]string) []string {
	seen := map[string]bool{}
	stack := slices.Clone(edges[start])
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, edges[n]...)
	}
	out := make([]string, 0, len(seen))
	for _, n := range g.nodes {
		if seen[n] && n != start {
			out = append(out, n)
		}
	}
	return out
}

// TopologicalSort returns a valid execution order using Kahn's algorithm.
// Returns CycleError if the graph contains a cycle.
// Nodes at the same topological level appear in insertion order.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = len(g.reverse[node])
	}

	queue := make([]string, 0)
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}
