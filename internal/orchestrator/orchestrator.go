package orchestrator

import (
	"context"
	"fmt"

	"github.com/dusk-indust/bizdoc/internal/classify"
)

// Phase identifies a pipeline phase.
type Phase int

const (
	PhaseDirector Phase = iota + 1
	PhaseSpecialists
	PhaseFinalize
	PhaseComplete
	PhaseError
	PhaseSinglePass
)

func (p Phase) String() string {
	names := [...]string{
		"unknown",
		"director",
		"specialists",
		"finalize",
		"complete",
		"error",
		"single-pass",
	}
	if p > 0 && int(p) < len(names) {
		return names[p]
	}
	return "unknown"
}

// Number returns the 1-based position of a generating phase in the
// multi-phase pipeline, or 0 for phases outside it.
func (p Phase) Number() int {
	if p >= PhaseDirector && p <= PhaseFinalize {
		return int(p)
	}
	return 0
}

// Terminal reports whether no further transitions can follow p.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseError
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for c := PhaseDirector; c <= PhaseSinglePass; c++ {
		if c.String() == string(b) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// ProgressStatus is the state of a phase or of a task within a phase.
type ProgressStatus string

const (
	ProgressPending   ProgressStatus = "pending"
	ProgressRunning   ProgressStatus = "running"
	ProgressCompleted ProgressStatus = "completed"
	ProgressFailed    ProgressStatus = "failed"
)

// TaskDescriptor tracks one concurrent task of the specialist or finalize
// phase.
type TaskDescriptor struct {
	Name   string         `json:"name"`
	Role   string         `json:"role"`
	Status ProgressStatus `json:"status"`
}

// ProgressEvent is emitted to the progress sink during a run. Task is set
// when the event reports a single task's transition; Tasks is a snapshot of
// every descriptor in the phase at the time of emission.
type ProgressEvent struct {
	Phase   Phase            `json:"phase"`
	Status  ProgressStatus   `json:"status"`
	Message string           `json:"message,omitempty"`
	Task    string           `json:"task,omitempty"`
	Tasks   []TaskDescriptor `json:"tasks,omitempty"`
}

// TaskStatus returns the status of the task this event reports on.
func (e ProgressEvent) TaskStatus() (ProgressStatus, bool) {
	if e.Task == "" {
		return "", false
	}
	for _, t := range e.Tasks {
		if t.Name == e.Task {
			return t.Status, true
		}
	}
	return "", false
}

// Input is what a caller hands to a run.
type Input struct {
	Text         string `json:"text"`
	ModuleHint   string `json:"moduleHint,omitempty"`
	Language     string `json:"language,omitempty"`
	Depth        string `json:"depth,omitempty"`
	DocumentType string `json:"documentType,omitempty"`
	Guidance     string `json:"guidance,omitempty"`
	Mode         Mode   `json:"mode,omitempty"`
}

// Section is one assembled section of a document.
type Section struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Result is the sole return value of a successful run. Sections never holds
// an empty text.
type Result struct {
	Sections map[string]string `json:"sections"`
	Warnings []string          `json:"warnings"`
	Metadata Metadata          `json:"metadata"`
}

// Metadata describes how a Result was produced.
type Metadata struct {
	PrimaryModule   string               `json:"primaryModule"`
	ModuleName      string               `json:"moduleName,omitempty"`
	Classification  []classify.Candidate `json:"classification,omitempty"`
	CrossReferences []string             `json:"crossReferences,omitempty"`
	ProcessSteps    []string             `json:"processSteps,omitempty"`
	Terminology     map[string]string    `json:"terminology,omitempty"`
	CoherenceIssues []CoherenceIssue     `json:"coherenceIssues,omitempty"`
	Mode            Mode                 `json:"mode"`
	Generator       string               `json:"generator,omitempty"`
}

// Ordered returns the result's sections in plan order followed by any
// sections the plan does not name, sorted by id.
func (r *Result) Ordered(plan MergePlan) []Section {
	return NewMerger(plan).Order(r.Sections)
}

// Orchestrator runs a document generation for one input. Progress events
// are delivered to sink before Run returns; sink may be nil.
type Orchestrator interface {
	Run(ctx context.Context, in Input, sink ProgressSink) (*Result, error)
}
