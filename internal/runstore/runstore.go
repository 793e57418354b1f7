// Package runstore tracks generation runs: their status, the progress events
// they emitted and their final result or error.
package runstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/bizdoc/internal/orchestrator"
)

// ErrNotFound is returned for unknown or expired run ids.
var ErrNotFound = errors.New("run not found")

// Status is the lifecycle state of a run.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions can follow s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Run is the stored record of one generation.
type Run struct {
	ID         uuid.UUID            `json:"id"`
	Status     Status               `json:"status"`
	Summary    string               `json:"summary"`
	ModuleHint string               `json:"moduleHint,omitempty"`
	Mode       orchestrator.Mode    `json:"mode"`
	Phase      orchestrator.Phase   `json:"phase,omitempty"`
	Result     *orchestrator.Result `json:"result,omitempty"`
	Error      string               `json:"error,omitempty"`
	Fatal      bool                 `json:"fatal,omitempty"`
	CreatedAt  time.Time            `json:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

// Event is a progress event with its position in the run's event log.
type Event struct {
	Seq int       `json:"seq"`
	At  time.Time `json:"at"`
	orchestrator.ProgressEvent
}

// Store persists runs and their event logs.
type Store interface {
	Create(ctx context.Context, in orchestrator.Input) (*Run, error)
	Get(ctx context.Context, id uuid.UUID) (*Run, error)
	// AppendEvent adds ev to the run's log and moves a queued run to running.
	AppendEvent(ctx context.Context, id uuid.UUID, ev orchestrator.ProgressEvent) error
	Complete(ctx context.Context, id uuid.UUID, res *orchestrator.Result) error
	Fail(ctx context.Context, id uuid.UUID, runErr error) error
	// Events returns the events with Seq >= from.
	Events(ctx context.Context, id uuid.UUID, from int) ([]Event, error)
}

const summaryLen = 120

// summarize shortens input text for listing.
func summarize(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > summaryLen {
		return string(r[:summaryLen-3]) + "..."
	}
	return text
}

func newRun(in orchestrator.Input, now time.Time) *Run {
	mode := in.Mode
	if mode == "" {
		mode = orchestrator.ModeAuto
	}
	return &Run{
		ID:         uuid.New(),
		Status:     StatusQueued,
		Summary:    summarize(in.Text),
		ModuleHint: in.ModuleHint,
		Mode:       mode,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (r *Run) complete(res *orchestrator.Result, now time.Time) {
	r.Status = StatusCompleted
	r.Phase = orchestrator.PhaseComplete
	r.Result = res
	r.UpdatedAt = now
}

func (r *Run) fail(runErr error, now time.Time) {
	r.Status = StatusFailed
	r.Phase = orchestrator.PhaseError
	if runErr != nil {
		r.Error = runErr.Error()
	}
	r.Fatal = orchestrator.IsFatal(runErr)
	r.UpdatedAt = now
}

func (r *Run) observe(ev orchestrator.ProgressEvent, now time.Time) {
	if r.Status == StatusQueued {
		r.Status = StatusRunning
	}
	if !r.Status.Terminal() {
		r.Phase = ev.Phase
	}
	r.UpdatedAt = now
}
