package server

import (
	"net/http"
	"time"

	"github.com/leapstack-labs/leapcurate/internal/batch"
	"github.com/leapstack-labs/leapcurate/internal/refresh"
	"github.com/starfederation/datastar-go/datastar"
)

// UpdateSignals is the signal patch sent on every bus event. Clients
// refetch whatever the topic names.
type UpdateSignals struct {
	Topic        refresh.Topic `json:"topic"`
	Source       string        `json:"source"`
	At           time.Time     `json:"at"`
	Unresolved   int           `json:"unresolved"`
	BatchState   string        `json:"batchState"`
	BatchPending bool          `json:"batchPending"`
	Allowed      []string      `json:"allowed"`
	CoverageRate float64       `json:"coverageRate"`
	Notices      int           `json:"notices"`
}

// updates streams a signals patch for every bus event until the client
// disconnects. The first patch is sent immediately.
func (h *handlers) updates(w http.ResponseWriter, r *http.Request) {
	sub := h.engine.Bus().Subscribe()
	defer sub.Close()

	sse := datastar.NewSSE(w, r)
	if err := h.sendSignals(sse, refresh.Event{Source: "server", At: time.Now()}); err != nil {
		_ = sse.ConsoleError(err)
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if err := h.sendSignals(sse, ev); err != nil {
				_ = sse.ConsoleError(err)
				// Don't return - keep trying on next update
			}
		}
	}
}

func (h *handlers) sendSignals(sse *datastar.ServerSentEventGenerator, ev refresh.Event) error {
	snap := h.engine.Batch().Snapshot()
	signals := UpdateSignals{
		Topic:        ev.Topic,
		Source:       ev.Source,
		At:           ev.At,
		Unresolved:   h.engine.Queue().Unresolved(),
		BatchState:   string(snap.Status.State),
		BatchPending: snap.Pending,
		Allowed:      commandNames(snap.Allowed),
		CoverageRate: h.engine.Coverage().CoverageRate,
		Notices:      len(h.engine.Notices()),
	}
	return sse.MarshalAndPatchSignals(signals)
}

func commandNames(cmds []batch.Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = string(c)
	}
	return out
}
