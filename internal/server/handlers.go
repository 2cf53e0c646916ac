package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/leapcurate/internal/batch"
	"github.com/leapstack-labs/leapcurate/internal/engine"
	"github.com/leapstack-labs/leapcurate/internal/triage"
	"github.com/leapstack-labs/leapcurate/pkg/core"
)

type handlers struct {
	engine *engine.Engine
	logger *slog.Logger
}

func newHandlers(eng *engine.Engine, logger *slog.Logger) *handlers {
	return &handlers{engine: eng, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, triage.ErrQueueEmpty),
		errors.Is(err, triage.ErrInvalidTransition),
		errors.Is(err, batch.ErrCommandNotAllowed):
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) graph(w http.ResponseWriter, r *http.Request) {
	var orientation core.Orientation
	if s := r.URL.Query().Get("orientation"); s != "" {
		o, err := core.ParseOrientation(strings.ToUpper(s))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		orientation = o
	}
	g, err := h.engine.Graph(orientation)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *handlers) coverage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("source") == "remote" {
		stats, ok := h.engine.RemoteCoverage()
		if !ok {
			writeError(w, http.StatusServiceUnavailable, errors.New("remote coverage not loaded yet"))
			return
		}
		writeJSON(w, http.StatusOK, stats)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Coverage())
}

func (h *handlers) notices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Notices())
}

func (h *handlers) queueCurrent(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Queue().View())
}

func (h *handlers) queueReload(w http.ResponseWriter, r *http.Request) {
	q := h.engine.Queue()
	if err := q.Reload(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, q.View())
}

type saveRequest struct {
	Text string `json:"text"`
}

func (h *handlers) queueAction(w http.ResponseWriter, r *http.Request) {
	action, err := triage.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	q := h.engine.Queue()
	var text string
	if action == triage.ActionSaveEdit {
		var req saveRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		text = strings.TrimSpace(req.Text)
		if text == "" {
			// Save whatever the edit buffer holds.
			if cur, ok := q.Current(); ok {
				text = cur.Draft
			}
		}
	}

	if err := q.Do(action, text); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, q.View())
}

func (h *handlers) batchStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Batch().Snapshot())
}

func (h *handlers) batchCommand(w http.ResponseWriter, r *http.Request) {
	cmd, err := batch.ParseCommand(chi.URLParam(r, "command"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	var cfg core.BatchConfig
	if cmd == batch.CommandStart {
		if err := decodeBody(r, &cfg); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	m := h.engine.Batch()
	if err := m.Send(r.Context(), cmd, cfg); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, m.Snapshot())
}

// decodeBody decodes an optional JSON body into v.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
