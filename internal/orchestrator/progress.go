package orchestrator

import (
	"fmt"
	"sync"
)

// ProgressSink receives progress events. Calls for one run are serialized.
type ProgressSink interface {
	Emit(ProgressEvent)
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(ProgressEvent)

func (f SinkFunc) Emit(ev ProgressEvent) { f(ev) }

// Discard drops every event.
var Discard ProgressSink = SinkFunc(func(ProgressEvent) {})

// ProgressReporter delivers progress events through a buffered channel.
// Emit blocks while the buffer is full so that no transition is lost; it
// returns immediately once the reporter is closed.
type ProgressReporter struct {
	ch   chan ProgressEvent
	done chan struct{}
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch:   make(chan ProgressEvent, 64),
		done: make(chan struct{}),
	}
}

// Emit sends a progress event, waiting for buffer space if necessary.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	if pr.closed {
		return
	}
	select {
	case pr.ch <- event:
	case <-pr.done:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close unblocks pending emitters and closes the event channel. It is safe
// to call more than once.
func (pr *ProgressReporter) Close() {
	pr.once.Do(func() {
		close(pr.done)
		pr.mu.Lock()
		pr.closed = true
		close(pr.ch)
		pr.mu.Unlock()
	})
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	if event.Task != "" {
		status, _ := event.TaskStatus()
		switch status {
		case ProgressPending:
			return fmt.Sprintf("  ○ %s (pending)", event.Task)
		case ProgressRunning:
			return fmt.Sprintf("  ● %s...", event.Task)
		case ProgressCompleted:
			return fmt.Sprintf("  ✓ %s complete", event.Task)
		case ProgressFailed:
			return fmt.Sprintf("  ✗ %s failed: %s", event.Task, event.Message)
		default:
			return fmt.Sprintf("  ? %s (unknown status)", event.Task)
		}
	}

	header := FormatPhaseHeader(event.Phase)
	switch event.Status {
	case ProgressRunning:
		return header + "..."
	case ProgressFailed:
		return fmt.Sprintf("%s failed: %s", header, event.Message)
	case ProgressCompleted:
		if event.Message != "" {
			return fmt.Sprintf("%s complete (%s)", header, event.Message)
		}
		return header + " complete"
	default:
		return fmt.Sprintf("%s %s", header, event.Status)
	}
}

// FormatPhaseHeader returns "Phase {N}/3: {name}" for pipeline phases and
// the bare phase name otherwise.
func FormatPhaseHeader(phase Phase) string {
	if n := phase.Number(); n > 0 {
		return fmt.Sprintf("Phase %d/3: %s", n, phase)
	}
	return phase.String()
}

// runState owns the mutable state shared by the concurrent tasks of a run:
// the current phase, its task descriptors and the warning list. Every
// change and every sink call happens under mu, which keeps per-task event
// order intact even though tasks settle on different goroutines.
type runState struct {
	mu       sync.Mutex
	sink     ProgressSink
	phase    Phase
	tasks    []TaskDescriptor
	warnings []string
}

func newRunState(sink ProgressSink) *runState {
	if sink == nil {
		sink = Discard
	}
	return &runState{sink: sink}
}

// enter moves to phase and replaces the descriptor list with one pending
// descriptor per task. No event is emitted.
func (s *runState) enter(phase Phase, tasks []GenerationTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
	s.tasks = make([]TaskDescriptor, len(tasks))
	for i, t := range tasks {
		s.tasks[i] = TaskDescriptor{Name: t.Name, Role: t.Role, Status: ProgressPending}
	}
}

// phaseEvent emits a phase-level event for the current phase.
func (s *runState) phaseEvent(status ProgressStatus, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(ProgressEvent{Phase: s.phase, Status: status, Message: message})
}

// taskEvent records a task transition and emits a snapshot event for it.
func (s *runState) taskEvent(name string, status ProgressStatus, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].Name == name {
			s.tasks[i].Status = status
		}
	}
	s.emitLocked(ProgressEvent{
		Phase:   s.phase,
		Status:  ProgressRunning,
		Message: message,
		Task:    name,
	})
}

func (s *runState) emitLocked(ev ProgressEvent) {
	if len(s.tasks) > 0 {
		ev.Tasks = make([]TaskDescriptor, len(s.tasks))
		copy(ev.Tasks, s.tasks)
	}
	s.sink.Emit(ev)
}

// terminate moves to a terminal phase without emitting.
func (s *runState) terminate(phase Phase) {
	s.mu.Lock()
	s.phase = phase
	s.tasks = nil
	s.mu.Unlock()
}

func (s *runState) warn(format string, args ...any) {
	s.mu.Lock()
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
	s.mu.Unlock()
}

func (s *runState) currentPhase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *runState) snapshotWarnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.warnings))
	copy(out, s.warnings)
	return out
}
