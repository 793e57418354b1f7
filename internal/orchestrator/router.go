package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dusk-indust/bizdoc/internal/llm"
)

// Compile-time check.
var _ Orchestrator = (*Router)(nil)

// Router maps generation modes to their registered executors and handles
// the auto mode's fallback from the pipeline to single-pass.
type Router struct {
	executors    map[Mode]Orchestrator
	autoFallback bool
	logger       *zap.Logger
}

// NewRouter creates a Router with an empty executor registry.
func NewRouter(autoFallback bool, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		executors:    make(map[Mode]Orchestrator),
		autoFallback: autoFallback,
		logger:       logger,
	}
}

// New returns a Router with a Pipeline and a SinglePass registered, both
// built from cfg, gen and opts.
func New(cfg Config, gen llm.Generator, opts ...Option) (*Router, error) {
	d := defaultDeps()
	for _, o := range opts {
		o(&d)
	}
	pipeline, err := NewPipeline(cfg, gen, opts...)
	if err != nil {
		return nil, err
	}
	r := NewRouter(cfg.AutoFallback, d.logger)
	r.RegisterExecutor(ModePipeline, pipeline)
	r.RegisterExecutor(ModeSinglePass, NewSinglePass(cfg, gen, opts...))
	return r, nil
}

// RegisterExecutor associates an executor with a mode. ModeAuto cannot be
// registered; it always resolves to ModePipeline.
func (r *Router) RegisterExecutor(mode Mode, exec Orchestrator) {
	r.executors[mode] = exec
}

// Run implements Orchestrator by routing on in.Mode.
func (r *Router) Run(ctx context.Context, in Input, sink ProgressSink) (*Result, error) {
	return r.Route(ctx, in, sink)
}

// Route runs in with the executor registered for in.Mode. In auto mode a
// fatal pipeline error is retried once in single-pass mode when fallback is
// enabled; the pipeline error then becomes the first warning of the result.
func (r *Router) Route(ctx context.Context, in Input, sink ProgressSink) (*Result, error) {
	mode := in.Mode
	if mode == "" {
		mode = ModeAuto
	}
	if mode != ModeAuto {
		return r.exec(ctx, mode, in, sink)
	}

	res, err := r.exec(ctx, ModePipeline, in, sink)
	if err == nil || !r.autoFallback || !IsFatal(err) || ctx.Err() != nil {
		return res, err
	}
	if _, ok := r.executors[ModeSinglePass]; !ok {
		return nil, err
	}

	r.logger.Warn("pipeline failed, falling back to single-pass", zap.Error(err))
	res, fbErr := r.exec(ctx, ModeSinglePass, in, sink)
	if fbErr != nil {
		return nil, fmt.Errorf("single-pass fallback after pipeline failure (%v): %w", err, fbErr)
	}
	res.Warnings = append([]string{fmt.Sprintf("Generated in single-pass mode after pipeline failure: %v", err)}, res.Warnings...)
	return res, nil
}

func (r *Router) exec(ctx context.Context, mode Mode, in Input, sink ProgressSink) (*Result, error) {
	exec, ok := r.executors[mode]
	if !ok {
		return nil, fmt.Errorf("router: no executor registered for mode %q", mode)
	}
	return exec.Run(ctx, in, sink)
}
