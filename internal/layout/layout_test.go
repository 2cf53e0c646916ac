package layout

import (
	"testing"

	"github.com/leapstack-labs/leapcurate/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlace_TopDown(t *testing.T) {
	levels := [][]string{{"root"}, {"a", "b"}}
	pos := Place(levels, DefaultOptions())

	// Widest rank has 2 nodes, pitch 270: root is centered half a pitch in.
	assert.Equal(t, core.Position{X: 135, Y: 0}, pos["root"])
	assert.Equal(t, core.Position{X: 0, Y: 130}, pos["a"])
	assert.Equal(t, core.Position{X: 270, Y: 130}, pos["b"])
}

func TestPlace_LeftRightSwapsAxes(t *testing.T) {
	levels := [][]string{{"root"}, {"a", "b"}}
	opts := DefaultOptions()
	opts.Orientation = core.LeftRight
	pos := Place(levels, opts)

	// Cross pitch is height+sep=130, main pitch is width+sep=270.
	assert.Equal(t, core.Position{X: 0, Y: 65}, pos["root"])
	assert.Equal(t, core.Position{X: 270, Y: 0}, pos["a"])
	assert.Equal(t, core.Position{X: 270, Y: 130}, pos["b"])
}

func TestPlace_Deterministic(t *testing.T) {
	levels := [][]string{{"r"}, {"c1", "c2", "c3"}, {"s1", "s2"}}
	first := Place(levels, DefaultOptions())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Place(levels, DefaultOptions()))
	}
}

func TestPlace_NoOverlapWithinRank(t *testing.T) {
	levels := [][]string{{"r"}, {"a", "b", "c", "d"}}
	opts := DefaultOptions()
	pos := Place(levels, opts)

	ids := levels[1]
	for i := 1; i < len(ids); i++ {
		gap := pos[ids[i]].X - pos[ids[i-1]].X
		assert.GreaterOrEqual(t, gap, opts.NodeWidth, "nodes %s and %s overlap", ids[i-1], ids[i])
	}
}

func TestSize(t *testing.T) {
	levels := [][]string{{"root"}, {"a", "b"}}

	w, h := Size(levels, DefaultOptions())
	assert.Equal(t, 490.0, w)
	assert.Equal(t, 210.0, h)

	w, h = Size(nil, DefaultOptions())
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestOptions_Validate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())

	bad := DefaultOptions()
	bad.NodeWidth = 0
	assert.Error(t, bad.Validate())

	bad = DefaultOptions()
	bad.RankSep = -1
	assert.Error(t, bad.Validate())

	bad = DefaultOptions()
	bad.Orientation = "BT"
	assert.Error(t, bad.Validate())
}
