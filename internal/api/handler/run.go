package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dusk-indust/bizdoc/internal/export"
	"github.com/dusk-indust/bizdoc/internal/orchestrator"
	"github.com/dusk-indust/bizdoc/internal/runstore"
	"github.com/dusk-indust/bizdoc/internal/service"
	"github.com/dusk-indust/bizdoc/pkg/apierr"
)

// RunService is the part of *service.Service the handlers use.
type RunService interface {
	Start(ctx context.Context, in orchestrator.Input) (*runstore.Run, error)
	RunSync(ctx context.Context, in orchestrator.Input) (*runstore.Run, *orchestrator.Result, error)
	Get(ctx context.Context, id uuid.UUID) (*runstore.Run, error)
	Events(ctx context.Context, id uuid.UUID, from int) ([]runstore.Event, error)
}

var _ RunService = (*service.Service)(nil)

// maxBodyBytes leaves room for JSON framing around the input text.
const maxBodyBytes = service.MaxInputBytes + 16*1024

type RunHandler struct {
	logger *zap.Logger
	svc    RunService

	// PollInterval is how often the event stream checks for new events.
	PollInterval time.Duration
}

func NewRunHandler(logger *zap.Logger, svc RunService) *RunHandler {
	return &RunHandler{logger: logger, svc: svc, PollInterval: 250 * time.Millisecond}
}

// SyncResponse is returned by CreateSync.
type SyncResponse struct {
	Run    *runstore.Run        `json:"run"`
	Result *orchestrator.Result `json:"result"`
}

func (h *RunHandler) decodeInput(w http.ResponseWriter, r *http.Request) (orchestrator.Input, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var in orchestrator.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeAPIError(w, h.logger, apierr.TextTooLong(service.MaxInputBytes))
		} else {
			writeAPIError(w, h.logger, apierr.InvalidRequestBody())
		}
		return in, false
	}
	return in, true
}

// Create starts a run in the background and returns 202 with its id.
func (h *RunHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	run, err := h.svc.Start(r.Context(), in)
	if err != nil {
		if e := apierr.FromRunError(err); e.Status() < 500 {
			writeAPIError(w, h.logger, e)
		} else {
			writeAPIError(w, h.logger, apierr.RunCreateFailed(err))
		}
		return
	}

	w.Header().Set("Location", "/api/v1/runs/"+run.ID.String())
	writeJSON(w, http.StatusAccepted, run)
}

// CreateSync runs a generation within the request and returns its result.
func (h *RunHandler) CreateSync(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	run, res, err := h.svc.RunSync(r.Context(), in)
	if run != nil {
		w.Header().Set("X-Run-ID", run.ID.String())
	}
	if err != nil {
		writeAPIError(w, h.logger, apierr.FromRunError(err))
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{Run: run, Result: res})
}

func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Document renders a completed run. The format query parameter selects
// markdown (default), json or mermaid.
func (h *RunHandler) Document(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	switch run.Status {
	case runstore.StatusCompleted:
	case runstore.StatusFailed:
		writeAPIError(w, h.logger, apierr.RunFailed(run.Error))
		return
	default:
		writeAPIError(w, h.logger, apierr.RunNotFinished())
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(export.Markdown(run.Result, orchestrator.DocumentPlan)))
	case "mermaid":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(export.Mermaid(run.Result)))
	case "json":
		writeJSON(w, http.StatusOK, export.ExportDocument(run.Result, orchestrator.DocumentPlan))
	default:
		writeAPIError(w, h.logger, apierr.InvalidFormat())
	}
}

// Events streams the run's progress events as SSE, starting at the "from"
// query parameter. The stream ends with a frame carrying the terminal run.
func (h *RunHandler) Events(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	from, _ := strconv.Atoi(r.URL.Query().Get("from"))

	sw := NewSSEWriter(w)
	sw.Init()

	ctx := r.Context()
	ticker := time.NewTicker(h.PollInterval)
	defer ticker.Stop()

	for {
		events, err := h.svc.Events(ctx, run.ID, from)
		if err != nil {
			h.logger.Warn("load run events", zap.Stringer("run", run.ID), zap.Error(err))
			return
		}
		for i := range events {
			if err := sw.WriteEvent(StreamEvent{Event: &events[i]}); err != nil {
				return
			}
			from = events[i].Seq + 1
		}

		if run.Status.Terminal() {
			sw.WriteEvent(StreamEvent{Run: run})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// Re-read the status before the next batch so that events recorded
		// before completion are always flushed first.
		if run, err = h.svc.Get(ctx, run.ID); err != nil {
			return
		}
	}
}

func (h *RunHandler) loadRun(w http.ResponseWriter, r *http.Request) (*runstore.Run, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		writeAPIError(w, h.logger, apierr.InvalidRunID())
		return nil, false
	}
	run, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if apierr.IsNotFound(err) {
			writeAPIError(w, h.logger, apierr.RunNotFound())
		} else {
			writeAPIError(w, h.logger, apierr.InternalError(err))
		}
		return nil, false
	}
	return run, true
}
