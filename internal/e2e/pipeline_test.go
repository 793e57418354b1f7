//go:build e2e

package e2e

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dusk-indust/bizdoc/internal/api"
	"github.com/dusk-indust/bizdoc/internal/orchestrator"
	"github.com/dusk-indust/bizdoc/internal/runstore"
	"github.com/dusk-indust/bizdoc/internal/service"
)

func startServer(t *testing.T, backend *fakeBackend, autoFallback bool) (*httptest.Server, *service.Service) {
	t.Helper()
	cfg := orchestrator.DefaultConfig()
	cfg.AutoFallback = autoFallback

	router, err := orchestrator.New(cfg, backend)
	require.NoError(t, err)
	svc := service.New(router, runstore.NewMemStore(), 10*time.Second)
	srv := httptest.NewServer(api.NewRouter(zap.NewNop(), svc, nil))
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Wait(context.Background())
	})
	return srv, svc
}

func createRun(t *testing.T, baseURL, body string) uuid.UUID {
	t.Helper()
	resp, err := http.Post(baseURL+"/api/v1/runs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	loc := resp.Header.Get("Location")
	id, err := uuid.Parse(loc[strings.LastIndex(loc, "/")+1:])
	require.NoError(t, err)
	return id
}

func document(t *testing.T, baseURL string, id uuid.UUID) string {
	t.Helper()
	resp, err := http.Get(baseURL + "/api/v1/runs/" + id.String() + "/document?format=markdown")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestPipeline_DegradedRunOverHTTP(t *testing.T) {
	backend := newFakeBackend(orchestrator.SectionTestingStrategy)
	srv, _ := startServer(t, backend, false)
	client := api.NewClient(srv.URL)

	id := createRun(t, srv.URL, `{"text":`+quote(fixture(t))+`,"mode":"pipeline"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	events, err := client.Subscribe(ctx, id)
	require.NoError(t, err)

	var (
		lines []string
		final *runstore.Run
	)
	for ev := range events {
		require.NoError(t, ev.Err)
		if ev.Event != nil {
			lines = append(lines, orchestrator.FormatProgress(ev.Event.ProgressEvent))
		}
		if ev.Run != nil {
			final = ev.Run
		}
	}

	require.NotNil(t, final)
	assert.Equal(t, runstore.StatusCompleted, final.Status)
	assert.Contains(t, lines, "Phase 1/3: director...")
	assert.Contains(t, strings.Join(lines, "\n"), "testing-strategy failed")

	doc := document(t, srv.URL, id)
	assert.Contains(t, doc, "# Materials Management Design Document (MM)")
	assert.Contains(t, doc, "Buyers raise requisitions below the reorder point")
	assert.Contains(t, doc, "## Testing Strategy\n\n_This section was not generated._")
	assert.Contains(t, doc, `Specialist "testing-strategy"`)

	assert.Equal(t, 1, backend.count("director"))
	assert.Equal(t, 1, backend.count("review"))
	assert.Zero(t, backend.count("single-pass"))
}

func TestPipeline_AutoFallbackOverHTTP(t *testing.T) {
	backend := newFakeBackend("director")
	srv, svc := startServer(t, backend, true)

	id := createRun(t, srv.URL, `{"text":`+quote(fixture(t))+`}`)
	require.NoError(t, svc.Wait(context.Background()))

	run, err := api.NewClient(srv.URL).GetRun(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, runstore.StatusCompleted, run.Status)
	assert.Equal(t, orchestrator.ModeSinglePass, run.Result.Metadata.Mode)
	require.NotEmpty(t, run.Result.Warnings)
	assert.True(t, strings.HasPrefix(run.Result.Warnings[0], "Generated in single-pass mode after pipeline failure"))

	assert.Contains(t, document(t, srv.URL, id), "Requisition to payment in one pass.")
}

func TestPipeline_AllSpecialistsFailOverHTTP(t *testing.T) {
	backend := newFakeBackend(
		orchestrator.SectionProcessDesign,
		orchestrator.SectionSolutionDesign,
		orchestrator.SectionConfiguration,
		orchestrator.SectionTestingStrategy,
	)
	srv, _ := startServer(t, backend, false)

	resp, err := http.Post(srv.URL+"/api/v1/runs:sync", "application/json",
		strings.NewReader(`{"text":`+quote(fixture(t))+`,"mode":"pipeline"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "PIPELINE_FAILED")
	assert.Contains(t, string(body), "all 4 of 4 specialists failed")
	assert.Zero(t, backend.count("review"))
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
