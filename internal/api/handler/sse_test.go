package handler

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/bizdoc/internal/orchestrator"
	"github.com/dusk-indust/bizdoc/internal/runstore"
)

func TestSSEWriter_WritesValidSSEFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewSSEWriter(rec)
	w.Init()

	require.NoError(t, w.WriteEvent(StreamEvent{Event: &runstore.Event{Seq: 0, ProgressEvent: orchestrator.ProgressEvent{Phase: orchestrator.PhaseDirector}}}))
	require.NoError(t, w.WriteComment("keep-alive"))
	require.NoError(t, w.WriteEvent(StreamEvent{Run: &runstore.Run{Status: runstore.StatusCompleted}}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	var frames []string
	for _, f := range strings.Split(rec.Body.String(), "\n\n") {
		if strings.TrimSpace(f) != "" {
			frames = append(frames, f)
		}
	}
	require.Len(t, frames, 3)
	assert.True(t, strings.HasPrefix(frames[0], `data: {"event":{"seq":0`))
	assert.Contains(t, frames[0], `"phase":"director"`)
	assert.Equal(t, ": keep-alive", frames[1])
	assert.Contains(t, frames[2], `"status":"completed"`)
}
