// Package graph turns a taxonomy and its trace ledger into a positioned,
// provenance-linked graph.
package graph

import (
	"fmt"

	"github.com/leapstack-labs/leapcurate/internal/dag"
	"github.com/leapstack-labs/leapcurate/internal/layout"
	"github.com/leapstack-labs/leapcurate/internal/ledger"
	"github.com/leapstack-labs/leapcurate/internal/provenance"
	"github.com/leapstack-labs/leapcurate/internal/taxonomy"
	"github.com/leapstack-labs/leapcurate/pkg/core"
)

// RootID is the id of the implicit root node.
const RootID = "root"

// CategoryID returns the node id of the i-th category.
func CategoryID(i int) string { return fmt.Sprintf("cat-%d", i) }

// ServiceID returns the node id of the j-th service of the i-th category.
func ServiceID(i, j int) string { return fmt.Sprintf("svc-%d-%d", i, j) }

// EdgeID returns the id of the edge from source to target.
func EdgeID(source, target string) string { return "e-" + source + "-" + target }

// Build lays out the taxonomy held by m. Service nodes carry the trace
// record resolved from the records embedded in the taxonomy and from l,
// which may be nil.
func Build(m *taxonomy.Model, l *ledger.Ledger, opts layout.Options) (core.Graph, error) {
	if err := opts.Validate(); err != nil {
		return core.Graph{}, fmt.Errorf("invalid layout options: %w", err)
	}
	orientation, _ := core.ParseOrientation(string(opts.Orientation))
	opts.Orientation = orientation

	index := provenance.NewIndex(ledger.Merge(m.FiledRecords(), l).Records())

	g := dag.NewGraph()
	g.AddNode(RootID, core.GraphNode{ID: RootID, Kind: core.KindRoot, Label: m.RootLabel()})

	var edges []core.GraphEdge
	link := func(source, target string) error {
		if err := g.AddEdge(source, target); err != nil {
			return err
		}
		edges = append(edges, core.GraphEdge{ID: EdgeID(source, target), Source: source, Target: target})
		return nil
	}

	for i, c := range m.Categories() {
		catID := CategoryID(i)
		g.AddNode(catID, core.GraphNode{ID: catID, Kind: core.KindCategory, Label: c.Name})
		if err := link(RootID, catID); err != nil {
			return core.Graph{}, err
		}
		for j, s := range c.Services {
			svcID := ServiceID(i, j)
			g.AddNode(svcID, core.GraphNode{
				ID:         svcID,
				Kind:       core.KindService,
				Label:      s,
				Provenance: index.Match(s),
			})
			if err := link(catID, svcID); err != nil {
				return core.Graph{}, err
			}
		}
	}

	levels, err := g.Levels()
	if err != nil {
		return core.Graph{}, fmt.Errorf("failed to rank taxonomy graph: %w", err)
	}
	positions := layout.Place(levels, opts)

	out := core.Graph{
		Orientation: opts.Orientation,
		Nodes:       make([]core.GraphNode, 0, g.NodeCount()),
		Edges:       edges,
	}
	out.Width, out.Height = layout.Size(levels, opts)
	for rank, level := range levels {
		for _, id := range level {
			n, _ := g.GetNode(id)
			node := n.Data.(core.GraphNode)
			node.Rank = rank
			node.Position = positions[id]
			out.Nodes = append(out.Nodes, node)
		}
	}
	return out, nil
}
