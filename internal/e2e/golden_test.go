//go:build e2e

package e2e

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/bizdoc/internal/export"
	"github.com/dusk-indust/bizdoc/internal/orchestrator"
)

var update = flag.Bool("update", false, "update golden files")

func goldenDir() string {
	return filepath.Join("..", "..", "testdata", "golden")
}

// renderings maps golden filenames to the export that produces them. JSON is
// left out because it carries the export timestamp.
var renderings = []struct {
	golden string
	render func(*orchestrator.Result) string
}{
	{"procurement.md", func(res *orchestrator.Result) string { return export.Markdown(res, orchestrator.DocumentPlan) }},
	{"procurement.mmd", export.Mermaid},
}

func runPipelineForGolden(t *testing.T) *orchestrator.Result {
	t.Helper()

	cfg := orchestrator.DefaultConfig()
	p, err := orchestrator.NewPipeline(cfg, newFakeBackend())
	require.NoError(t, err)
	res, err := p.Run(context.Background(), orchestrator.Input{Text: fixture(t)}, orchestrator.Discard)
	require.NoError(t, err)
	return res
}

// TestGolden compares the rendered document against golden files. Missing
// golden files skip with a message to run with -update.
func TestGolden(t *testing.T) {
	res := runPipelineForGolden(t)

	for _, r := range renderings {
		t.Run(r.golden, func(t *testing.T) {
			golden, err := os.ReadFile(filepath.Join(goldenDir(), r.golden))
			if os.IsNotExist(err) {
				t.Skipf("golden file %s not found; run with -update to generate", r.golden)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, string(golden), r.render(res), "output does not match %s", r.golden)
		})
	}
}

// TestUpdateGolden regenerates golden files from the current pipeline output.
// Run with: go test -tags e2e -run TestUpdateGolden ./internal/e2e/ -update
func TestUpdateGolden(t *testing.T) {
	if !*update {
		t.Skip("skipping golden file update; run with -update flag")
	}

	res := runPipelineForGolden(t)
	require.NoError(t, os.MkdirAll(goldenDir(), 0o755))

	for _, r := range renderings {
		err := os.WriteFile(filepath.Join(goldenDir(), r.golden), []byte(r.render(res)), 0o644)
		require.NoError(t, err)
		t.Logf("updated %s", r.golden)
	}
}
