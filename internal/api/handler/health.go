package handler

import (
	"context"
	"net/http"

	"github.com/dusk-indust/bizdoc/pkg/apierr"
)

// Pinger reports whether a backing service is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	ready Pinger
}

// NewHealthHandler creates a HealthHandler. ready may be nil.
func NewHealthHandler(ready Pinger) *HealthHandler {
	return &HealthHandler{ready: ready}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			writeAPIError(w, nil, apierr.New(apierr.CodeInternalError, http.StatusServiceUnavailable, "Run store not ready"))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
