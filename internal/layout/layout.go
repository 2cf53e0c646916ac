// Package layout assigns coordinates to the ranked levels of a DAG.
//
// Ranks run along the main axis and nodes within a rank run along the
// cross axis, both with fixed spacing. Each rank is centered against the
// widest rank. Orientation TB uses y as the main axis; LR swaps x and y.
package layout

import (
	"fmt"

	"github.com/leapstack-labs/leapcurate/pkg/core"
)

// Default spacing, in canvas units.
const (
	DefaultNodeWidth  = 220
	DefaultNodeHeight = 80
	DefaultNodeSep    = 50
	DefaultRankSep    = 50
)

// Options controls node size and spacing.
type Options struct {
	NodeWidth   float64
	NodeHeight  float64
	NodeSep     float64 // gap between neighbours in a rank
	RankSep     float64 // gap between consecutive ranks
	Orientation core.Orientation
}

// DefaultOptions returns top-down layout options with default spacing.
func DefaultOptions() Options {
	return Options{
		NodeWidth:   DefaultNodeWidth,
		NodeHeight:  DefaultNodeHeight,
		NodeSep:     DefaultNodeSep,
		RankSep:     DefaultRankSep,
		Orientation: core.TopDown,
	}
}

// Validate checks that sizes are positive and spacing is non-negative.
func (o Options) Validate() error {
	if o.NodeWidth <= 0 || o.NodeHeight <= 0 {
		return fmt.Errorf("node size must be positive, got %vx%v", o.NodeWidth, o.NodeHeight)
	}
	if o.NodeSep < 0 || o.RankSep < 0 {
		return fmt.Errorf("spacing must be non-negative, got node_sep=%v rank_sep=%v", o.NodeSep, o.RankSep)
	}
	if _, err := core.ParseOrientation(string(o.Orientation)); err != nil {
		return err
	}
	return nil
}

// pitches returns the distance between node origins along the cross and main axes.
func (o Options) pitches() (cross, main float64) {
	if o.Orientation == core.LeftRight {
		return o.NodeHeight + o.NodeSep, o.NodeWidth + o.RankSep
	}
	return o.NodeWidth + o.NodeSep, o.NodeHeight + o.RankSep
}

// Place returns the top-left position of every node id in levels.
// levels[r] lists the ids of rank r in display order.
func Place(levels [][]string, opts Options) map[string]core.Position {
	crossPitch, mainPitch := opts.pitches()

	widest := 0
	for _, level := range levels {
		if len(level) > widest {
			widest = len(level)
		}
	}

	positions := make(map[string]core.Position)
	for rank, level := range levels {
		offset := float64(widest-len(level)) * crossPitch / 2
		main := float64(rank) * mainPitch
		for i, id := range level {
			cross := offset + float64(i)*crossPitch
			if opts.Orientation == core.LeftRight {
				positions[id] = core.Position{X: main, Y: cross}
			} else {
				positions[id] = core.Position{X: cross, Y: main}
			}
		}
	}
	return positions
}

// Size returns the width and height of the canvas occupied by levels.
func Size(levels [][]string, opts Options) (width, height float64) {
	if len(levels) == 0 {
		return 0, 0
	}
	widest := 0
	for _, level := range levels {
		if len(level) > widest {
			widest = len(level)
		}
	}

	crossPitch, mainPitch := opts.pitches()
	crossLen := float64(widest)*crossPitch - opts.NodeSep
	mainLen := float64(len(levels))*mainPitch - opts.RankSep

	if opts.Orientation == core.LeftRight {
		return mainLen, crossLen
	}
	return crossLen, mainLen
}
