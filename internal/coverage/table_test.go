package coverage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapcurate/internal/refresh"
	"github.com/leapstack-labs/leapcurate/internal/testutil"
	"github.com/leapstack-labs/leapcurate/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const threeDims = `
dimensions:
  - key: persona
    name: Persona
    count: 5
    items: [founder, hr-manager]
  - key: tone
    name: Tone
    count: 3
  - key: phrasing
    name: Phrasing
    count: 20
`

func TestParseDimensions(t *testing.T) {
	got, err := ParseDimensions([]byte(threeDims))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, core.CoverageDimension{
		Key: "persona", Name: "Persona", Count: 5, Items: []string{"founder", "hr-manager"},
	}, got[0])
	assert.Equal(t, 300, EstimatedTotal(got))

	_, err = ParseDimensions([]byte("dimensions:\n  - name: Broken\n    count: 0\n"))
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, err = ParseDimensions([]byte("dimensions: [unclosed"))
	assert.Error(t, err)
}

func TestTable(t *testing.T) {
	tbl, err := NewTable(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDimensions(), tbl.Dimensions())

	require.NoError(t, tbl.Set(dims(2, 2)))
	assert.Equal(t, 4, EstimatedTotal(tbl.Dimensions()))

	assert.Error(t, tbl.Set(dims(0)))
	assert.Equal(t, 4, EstimatedTotal(tbl.Dimensions()), "invalid update keeps the old table")

	_, err = NewTable(dims(-1))
	assert.Error(t, err)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "dimensions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dimensions:\n  - name: Persona\n    count: 2\n"), 0o600))

	tbl, err := NewTable(nil)
	require.NoError(t, err)
	bus := refresh.NewBus()
	sub := bus.Subscribe(refresh.TopicDimensionsChanged)
	defer sub.Close()

	w := NewWatcher(path, tbl, bus, testutil.NewTestLogger(t))
	w.debounce = 5 * time.Millisecond
	require.NoError(t, w.Reload())
	<-sub.C()
	assert.Equal(t, 2, EstimatedTotal(tbl.Dimensions()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(threeDims), 0o600))

	select {
	case ev := <-sub.C():
		assert.Equal(t, refresh.TopicDimensionsChanged, ev.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("no dimensions_changed event after file write")
	}
	assert.Equal(t, 300, EstimatedTotal(tbl.Dimensions()))

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_InvalidFileKeepsTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dimensions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dimensions:\n  - name: X\n    count: -1\n"), 0o600))

	tbl, err := NewTable(dims(7))
	require.NoError(t, err)

	w := NewWatcher(path, tbl, nil, nil)
	assert.Error(t, w.Reload())
	assert.Equal(t, 7, EstimatedTotal(tbl.Dimensions()))
}
