package core

import "fmt"

// NodeKind classifies graph nodes by taxonomy depth.
type NodeKind string

// Node kinds.
const (
	KindRoot     NodeKind = "root"
	KindCategory NodeKind = "category"
	KindService  NodeKind = "service"
)

// Orientation selects the main layout axis.
type Orientation string

// Layout orientations.
const (
	TopDown   Orientation = "TB"
	LeftRight Orientation = "LR"
)

// ParseOrientation parses "TB" or "LR". An empty string yields TopDown.
func ParseOrientation(s string) (Orientation, error) {
	switch Orientation(s) {
	case "", TopDown:
		return TopDown, nil
	case LeftRight:
		return LeftRight, nil
	default:
		return "", fmt.Errorf("unknown orientation %q (want TB or LR)", s)
	}
}

// Position is the top-left corner of a laid-out node.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GraphNode is a positioned node of the taxonomy graph.
type GraphNode struct {
	ID         string       `json:"id"`
	Kind       NodeKind     `json:"kind"`
	Label      string       `json:"label"`
	Rank       int          `json:"rank"`
	Position   Position     `json:"position"`
	Provenance *TraceRecord `json:"provenance,omitempty"`
}

// GraphEdge is a parent-to-child relation.
type GraphEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the positioned taxonomy graph.
type Graph struct {
	Orientation Orientation `json:"orientation"`
	Nodes       []GraphNode `json:"nodes"`
	Edges       []GraphEdge `json:"edges"`
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
}

// Node returns the node with the given id.
func (g Graph) Node(id string) (GraphNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return GraphNode{}, false
}

// Children returns the ids of the direct children of id in edge order.
func (g Graph) Children(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e.Target)
		}
	}
	return out
}
