package orchestrator

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReporter_DeliversInOrder(t *testing.T) {
	pr := NewProgressReporter()
	pr.Emit(ProgressEvent{Phase: PhaseDirector, Status: ProgressRunning})
	pr.Emit(ProgressEvent{Phase: PhaseDirector, Status: ProgressCompleted})
	pr.Close()

	var got []ProgressStatus
	for ev := range pr.Subscribe() {
		got = append(got, ev.Status)
	}
	assert.Equal(t, []ProgressStatus{ProgressRunning, ProgressCompleted}, got)
}

func TestProgressReporter_EmitBlocksUntilDrained(t *testing.T) {
	pr := NewProgressReporter()
	for i := 0; i < 64; i++ {
		pr.Emit(ProgressEvent{Phase: PhaseSpecialists})
	}

	sent := make(chan struct{})
	go func() {
		pr.Emit(ProgressEvent{Phase: PhaseFinalize})
		close(sent)
	}()

	select {
	case <-sent:
		t.Fatal("Emit returned while the buffer was full")
	case <-time.After(30 * time.Millisecond):
	}

	<-pr.Subscribe()
	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("Emit did not resume after the buffer drained")
	}
	pr.Close()
}

func TestProgressReporter_CloseUnblocksEmitters(t *testing.T) {
	pr := NewProgressReporter()
	for i := 0; i < 64; i++ {
		pr.Emit(ProgressEvent{})
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pr.Emit(ProgressEvent{})
		}()
	}
	time.Sleep(10 * time.Millisecond)
	pr.Close()
	pr.Close()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emitters still blocked after Close")
	}

	// Emit after Close is a no-op.
	pr.Emit(ProgressEvent{})
}

func TestFormatProgress(t *testing.T) {
	tasks := []TaskDescriptor{
		{Name: "process-design", Status: ProgressPending},
		{Name: "solution-design", Status: ProgressRunning},
		{Name: "configuration", Status: ProgressCompleted},
		{Name: "testing-strategy", Status: ProgressFailed},
	}
	taskEvent := func(name, msg string) ProgressEvent {
		return ProgressEvent{Phase: PhaseSpecialists, Status: ProgressRunning, Task: name, Message: msg, Tasks: tasks}
	}

	tests := []struct {
		name  string
		event ProgressEvent
		want  string
	}{
		{"phase running", ProgressEvent{Phase: PhaseDirector, Status: ProgressRunning}, "Phase 1/3: director..."},
		{"phase completed", ProgressEvent{Phase: PhaseSpecialists, Status: ProgressCompleted, Message: "3 of 4"}, "Phase 2/3: specialists complete (3 of 4)"},
		{"phase completed bare", ProgressEvent{Phase: PhaseFinalize, Status: ProgressCompleted}, "Phase 3/3: finalize complete"},
		{"phase failed", ProgressEvent{Phase: PhaseDirector, Status: ProgressFailed, Message: "boom"}, "Phase 1/3: director failed: boom"},
		{"task pending", taskEvent("process-design", ""), "  ○ process-design (pending)"},
		{"task running", taskEvent("solution-design", ""), "  ● solution-design..."},
		{"task completed", taskEvent("configuration", ""), "  ✓ configuration complete"},
		{"task failed", taskEvent("testing-strategy", "timeout"), "  ✗ testing-strategy failed: timeout"},
		{"task missing from snapshot", taskEvent("change-management", ""), "  ? change-management (unknown status)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatProgress(tt.event))
		})
	}
}

func TestFormatPhaseHeader(t *testing.T) {
	assert.Equal(t, "Phase 2/3: specialists", FormatPhaseHeader(PhaseSpecialists))
	assert.Equal(t, PhaseComplete.String(), FormatPhaseHeader(PhaseComplete))
}

func TestPhase_TextRoundTrip(t *testing.T) {
	for _, p := range []Phase{PhaseDirector, PhaseSpecialists, PhaseFinalize, PhaseComplete, PhaseError, PhaseSinglePass} {
		b, err := p.MarshalText()
		require.NoError(t, err)
		var got Phase
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, p, got)
	}
	var p Phase
	assert.Error(t, p.UnmarshalText([]byte("phase-nine")))
}

func TestPhase_Terminal(t *testing.T) {
	assert.True(t, PhaseComplete.Terminal())
	assert.True(t, PhaseError.Terminal())
	assert.False(t, PhaseDirector.Terminal())
	assert.False(t, PhaseFinalize.Terminal())
}
