// Package dag provides directed acyclic graph operations for layered layout.
// It supports cycle detection, longest-path rank assignment and
// insertion-ordered traversal so identical input yields identical output.
package dag

import (
	"fmt"
)

// Node represents a node in the DAG.
type Node struct {
	// ID is the unique identifier
	ID string
	// Data holds arbitrary node data
	Data any
}

// Graph represents a directed acyclic graph.
// Nodes and edges remember the order in which they were added.
type Graph struct {
	nodes   map[string]*Node
	order   []string            // node ids in insertion order
	edges   map[string][]string // parent -> children
	parents map[string][]string // child -> parents
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node to the graph. Re-adding an id replaces its data
// but keeps its original position in the insertion order.
func (g *Graph) AddNode(id string, data any) {
	if n, exists := g.nodes[id]; exists {
		n.Data = data
		return
	}
	g.nodes[id] = &Node{ID: id, Data: data}
	g.order = append(g.order, id)
	g.edges[id] = []string{}
	g.parents[id] = []string{}
}

// AddEdge adds a directed edge from parent to child.
func (g *Graph) AddEdge(parentID, childID string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child node %q does not exist", childID)
	}
	if parentID == childID {
		return fmt.Errorf("self-loop detected: %s", parentID)
	}

	if !contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.edges[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] && dfs(id) {
			return true, cyclePath
		}
	}
	return false, nil
}

// Ranks returns the rank of every node: roots are rank 0 and every other
// node sits one past its deepest parent (longest path from a root).
func (g *Graph) Ranks() (map[string]int, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	ranks := make(map[string]int, len(g.nodes))

	var rankOf func(id string) int
	rankOf = func(id string) int {
		if r, ok := ranks[id]; ok {
			return r
		}
		r := 0
		for _, parentID := range g.parents[id] {
			if pr := rankOf(parentID) + 1; pr > r {
				r = pr
			}
		}
		ranks[id] = r
		return r
	}

	for _, id := range g.order {
		rankOf(id)
	}
	return ranks, nil
}

// Levels returns node ids grouped by rank. Within a level, nodes appear
// in insertion order.
func (g *Graph) Levels() ([][]string, error) {
	ranks, err := g.Ranks()
	if err != nil {
		return nil, err
	}

	maxRank := -1
	for _, r := range ranks {
		if r > maxRank {
			maxRank = r
		}
	}

	levels := make([][]string, maxRank+1)
	for _, id := range g.order {
		r := ranks[id]
		levels[r] = append(levels[r], id)
	}
	return levels, nil
}

// contains checks if a slice contains a string.
func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
