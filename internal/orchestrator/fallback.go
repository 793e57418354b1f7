package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dusk-indust/bizdoc/internal/llm"
	"github.com/dusk-indust/bizdoc/internal/prompts"
)

// Compile-time check.
var _ Orchestrator = (*SinglePass)(nil)

// singlePassTask names the one task a single-pass run performs.
const singlePassTask = "document"

// SinglePass generates the whole document with one backend call. It is the
// degraded alternative to Pipeline for callers that opt out of the
// multi-phase run or whose pipeline run failed fatally.
type SinglePass struct {
	deps
	cfg Config
	gen llm.Generator
}

// NewSinglePass creates a SinglePass that calls gen once per run.
func NewSinglePass(cfg Config, gen llm.Generator, opts ...Option) *SinglePass {
	s := &SinglePass{deps: defaultDeps(), cfg: cfg, gen: gen}
	for _, o := range opts {
		o(&s.deps)
	}
	return s
}

// Run generates the document and splits it on "## <section-id>" headings.
// The call is bounded by the sum of the phase budgets.
func (s *SinglePass) Run(ctx context.Context, in Input, sink ProgressSink) (*Result, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, ErrEmptyInput
	}

	state := newRunState(sink)
	prep := s.prepare(in)
	log := s.logger.With(zap.String("module", prep.primary), zap.String("mode", string(ModeSinglePass)))

	ids := s.generatedIDs()
	prompt, err := prompts.Render(prompts.SinglePass, prompts.SinglePassData{
		Request:    prep.request,
		SectionIDs: ids,
	})
	if err != nil {
		return nil, fmt.Errorf("single-pass: %w", err)
	}

	tasks := []GenerationTask{{
		Name:      singlePassTask,
		Role:      "solution architect",
		Prompt:    prompt,
		MaxTokens: s.cfg.SinglePassMaxTokens,
	}}
	state.enter(PhaseSinglePass, tasks)
	state.phaseEvent(ProgressRunning, "")

	out := NewFanOut(s.gen, "single-pass", state.taskEvent).Run(ctx, tasks, s.cfg.Budgets.Total())[0]
	if out.Err != nil {
		state.phaseEvent(ProgressFailed, out.Err.Error())
		state.terminate(PhaseError)
		log.Error("single-pass generation failed", zap.Error(out.Err))
		return nil, &PipelineError{Phase: PhaseSinglePass, Kind: ErrSinglePassFailed, Module: prep.primary, Cause: out.Err}
	}

	allowed := make(map[string]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}
	generated := splitSections(out.Text, allowed)
	if len(generated) == 0 {
		generated = map[string]string{SectionDocument: out.Text}
		state.warn("Single-pass output had no recognizable section headings; the full text is kept as section %q", SectionDocument)
	}

	state.phaseEvent(ProgressCompleted, fmt.Sprintf("%d sections", len(generated)))

	sections := NewMerger(s.plan).Combine(prep.staticSections(), generated)
	md := s.metadata(prep, ModeSinglePass, s.gen)

	state.terminate(PhaseComplete)
	state.phaseEvent(ProgressCompleted, fmt.Sprintf("%d sections", len(sections)))

	log.Info("single-pass complete", zap.Int("sections", len(sections)))
	return &Result{
		Sections: sections,
		Warnings: state.snapshotWarnings(),
		Metadata: md,
	}, nil
}
