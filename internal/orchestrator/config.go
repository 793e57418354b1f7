package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/dusk-indust/bizdoc/internal/config"
)

// Mode selects how a document is generated.
type Mode string

const (
	// ModeAuto runs the multi-phase pipeline and, when auto-fallback is
	// enabled, retries a fatally failed run in single-pass mode.
	ModeAuto Mode = "auto"

	// ModePipeline runs director, specialists and finalize phases.
	ModePipeline Mode = "pipeline"

	// ModeSinglePass generates the whole document with one call.
	ModeSinglePass Mode = "single-pass"
)

// ParseMode accepts the mode names plus "" for auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModePipeline, ModeSinglePass:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want auto, pipeline or single-pass)", s)
	}
}

// Stage budgets. Together they must leave at least a fifth of the caller's
// deadline unused.
const (
	DefaultDirectorBudget   = 25 * time.Second
	DefaultSpecialistBudget = 40 * time.Second
	DefaultFinalizeBudget   = 30 * time.Second
	CallerDeadline          = 120 * time.Second

	budgetHeadroomPercent = 80

	DefaultDegradedThreshold = 0.75
)

// Fails to compile when the default stage budgets exceed 80% of the caller
// deadline.
const _ = uint64(CallerDeadline*budgetHeadroomPercent/100 -
	(DefaultDirectorBudget + DefaultSpecialistBudget + DefaultFinalizeBudget))

// Budgets holds the per-phase timeout budgets.
type Budgets struct {
	Director    time.Duration
	Specialists time.Duration
	Finalize    time.Duration
	Caller      time.Duration
}

// Total is the sum of the three phase budgets.
func (b Budgets) Total() time.Duration {
	return b.Director + b.Specialists + b.Finalize
}

// Validate checks that every budget is positive and that the phase budgets
// fit within 80% of the caller deadline.
func (b Budgets) Validate() error {
	if b.Director <= 0 || b.Specialists <= 0 || b.Finalize <= 0 || b.Caller <= 0 {
		return fmt.Errorf("budgets must be positive: %+v", b)
	}
	if b.Total()*100 > b.Caller*budgetHeadroomPercent {
		return fmt.Errorf("phase budgets total %s exceeds %d%% of caller deadline %s",
			b.Total(), budgetHeadroomPercent, b.Caller)
	}
	return nil
}

// Config holds runtime configuration for a generation run.
type Config struct {
	Budgets Budgets

	// DegradedThreshold is the failed/total specialist ratio at or above
	// which a degraded-quality warning is added. Total failure is fatal
	// regardless.
	DegradedThreshold float64

	// AutoFallback lets ModeAuto retry in single-pass mode after a fatal
	// pipeline error.
	AutoFallback bool

	DirectorMaxTokens      int
	SpecialistMaxTokens    int
	ReviewerMaxTokens      int
	SupplementaryMaxTokens int
	SinglePassMaxTokens    int
}

// DefaultConfig returns the built-in budgets and limits.
func DefaultConfig() Config {
	return Config{
		Budgets: Budgets{
			Director:    DefaultDirectorBudget,
			Specialists: DefaultSpecialistBudget,
			Finalize:    DefaultFinalizeBudget,
			Caller:      CallerDeadline,
		},
		DegradedThreshold:      DefaultDegradedThreshold,
		DirectorMaxTokens:      2048,
		SpecialistMaxTokens:    4096,
		ReviewerMaxTokens:      8192,
		SupplementaryMaxTokens: 2048,
		SinglePassMaxTokens:    8192,
	}
}

// Validate checks budgets and the degraded threshold.
func (c Config) Validate() error {
	if err := c.Budgets.Validate(); err != nil {
		return err
	}
	if c.DegradedThreshold <= 0 || c.DegradedThreshold > 1 {
		return fmt.Errorf("degraded threshold must be in (0, 1], got %v", c.DegradedThreshold)
	}
	return nil
}

// ConfigFromSettings applies non-zero file/env overrides to DefaultConfig
// and validates the result.
func ConfigFromSettings(s config.PipelineSettings) (Config, error) {
	cfg := DefaultConfig()
	if s.DirectorBudgetMs > 0 {
		cfg.Budgets.Director = time.Duration(s.DirectorBudgetMs) * time.Millisecond
	}
	if s.SpecialistBudgetMs > 0 {
		cfg.Budgets.Specialists = time.Duration(s.SpecialistBudgetMs) * time.Millisecond
	}
	if s.FinalizeBudgetMs > 0 {
		cfg.Budgets.Finalize = time.Duration(s.FinalizeBudgetMs) * time.Millisecond
	}
	if s.CallerDeadlineMs > 0 {
		cfg.Budgets.Caller = time.Duration(s.CallerDeadlineMs) * time.Millisecond
	}
	if s.DegradedThreshold > 0 {
		cfg.DegradedThreshold = s.DegradedThreshold
	}
	if s.SpecialistMaxTokens > 0 {
		cfg.SpecialistMaxTokens = s.SpecialistMaxTokens
	}
	cfg.AutoFallback = s.AutoFallback

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("pipeline config: %w", err)
	}
	return cfg, nil
}
