package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/bizdoc/internal/config"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 95*time.Second, cfg.Budgets.Total())
	assert.LessOrEqual(t, cfg.Budgets.Total(), cfg.Budgets.Caller*8/10)
	assert.False(t, cfg.AutoFallback)
}

func TestBudgets_Validate(t *testing.T) {
	tests := []struct {
		name    string
		budgets Budgets
		wantErr string
	}{
		{"exactly eighty percent", Budgets{Director: 20 * time.Second, Specialists: 40 * time.Second, Finalize: 20 * time.Second, Caller: 100 * time.Second}, ""},
		{"over headroom", Budgets{Director: 30 * time.Second, Specialists: 40 * time.Second, Finalize: 30 * time.Second, Caller: 100 * time.Second}, "exceeds 80%"},
		{"zero budget", Budgets{Director: 0, Specialists: time.Second, Finalize: time.Second, Caller: time.Minute}, "must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.budgets.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DegradedThreshold = 0
	assert.Error(t, cfg.Validate())
	cfg.DegradedThreshold = 1.5
	assert.Error(t, cfg.Validate())
	cfg.DegradedThreshold = 1
	assert.NoError(t, cfg.Validate())
}

func TestConfigFromSettings(t *testing.T) {
	cfg, err := ConfigFromSettings(config.PipelineSettings{
		DirectorBudgetMs:    10_000,
		SpecialistBudgetMs:  20_000,
		FinalizeBudgetMs:    10_000,
		CallerDeadlineMs:    60_000,
		DegradedThreshold:   0.5,
		AutoFallback:        true,
		SpecialistMaxTokens: 1024,
	})
	require.NoError(t, err)

	assert.Equal(t, Budgets{
		Director:    10 * time.Second,
		Specialists: 20 * time.Second,
		Finalize:    10 * time.Second,
		Caller:      time.Minute,
	}, cfg.Budgets)
	assert.Equal(t, 0.5, cfg.DegradedThreshold)
	assert.True(t, cfg.AutoFallback)
	assert.Equal(t, 1024, cfg.SpecialistMaxTokens)
	assert.Equal(t, DefaultConfig().ReviewerMaxTokens, cfg.ReviewerMaxTokens)
}

func TestConfigFromSettings_ZeroKeepsDefaults(t *testing.T) {
	cfg, err := ConfigFromSettings(config.PipelineSettings{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfigFromSettings_RejectsOverBudget(t *testing.T) {
	_, err := ConfigFromSettings(config.PipelineSettings{CallerDeadlineMs: 30_000})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline config")
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"":             ModeAuto,
		"auto":         ModeAuto,
		"Pipeline":     ModePipeline,
		" single-pass": ModeSinglePass,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("turbo")
	assert.Error(t, err)
}
