// Package service runs document generations on behalf of the HTTP API, the
// MCP server and the CLI, and records them in a run store.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dusk-indust/bizdoc/internal/artifact"
	"github.com/dusk-indust/bizdoc/internal/export"
	"github.com/dusk-indust/bizdoc/internal/orchestrator"
	"github.com/dusk-indust/bizdoc/internal/runstore"
)

// MaxInputBytes bounds the description text accepted for one run.
const MaxInputBytes = 64 * 1024

// Uploader stores rendered documents. *artifact.Uploader implements it.
type Uploader interface {
	PutDocument(ctx context.Context, runID uuid.UUID, format artifact.Format, body []byte) (string, error)
}

// Service executes runs with an Orchestrator and tracks them in a Store.
type Service struct {
	orch     orchestrator.Orchestrator
	store    runstore.Store
	uploader Uploader
	deadline time.Duration
	logger   *zap.Logger

	wg sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithUploader stores the markdown and JSON renderings of every completed
// run.
func WithUploader(u Uploader) Option {
	return func(s *Service) { s.uploader = u }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service. deadline bounds each run; a non-positive value
// uses orchestrator.CallerDeadline.
func New(orch orchestrator.Orchestrator, store runstore.Store, deadline time.Duration, opts ...Option) *Service {
	if deadline <= 0 {
		deadline = orchestrator.CallerDeadline
	}
	s := &Service{
		orch:     orch,
		store:    store,
		deadline: deadline,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Normalize checks an input before a run is created and canonicalizes its
// mode.
func Normalize(in orchestrator.Input) (orchestrator.Input, error) {
	if strings.TrimSpace(in.Text) == "" {
		return in, orchestrator.ErrEmptyInput
	}
	if len(in.Text) > MaxInputBytes {
		return in, fmt.Errorf("%w: %d bytes exceeds %d", ErrInputTooLarge, len(in.Text), MaxInputBytes)
	}
	mode, err := orchestrator.ParseMode(string(in.Mode))
	if err != nil {
		return in, fmt.Errorf("%w: %v", ErrInvalidMode, err)
	}
	in.Mode = mode
	return in, nil
}

// Start creates a run and executes it in the background. The run outlives
// ctx; only the service deadline bounds it.
func (s *Service) Start(ctx context.Context, in orchestrator.Input) (*runstore.Run, error) {
	in, err := Normalize(in)
	if err != nil {
		return nil, err
	}
	run, err := s.store.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = s.execute(context.WithoutCancel(ctx), run.ID, in)
	}()
	return run, nil
}

// RunSync creates a run and executes it before returning. The returned run
// reflects the final stored state.
func (s *Service) RunSync(ctx context.Context, in orchestrator.Input) (*runstore.Run, *orchestrator.Result, error) {
	in, err := Normalize(in)
	if err != nil {
		return nil, nil, err
	}
	run, err := s.store.Create(ctx, in)
	if err != nil {
		return nil, nil, fmt.Errorf("create run: %w", err)
	}

	res, runErr := s.execute(ctx, run.ID, in)
	if final, err := s.store.Get(context.WithoutCancel(ctx), run.ID); err == nil {
		run = final
	}
	return run, res, runErr
}

func (s *Service) execute(ctx context.Context, id uuid.UUID, in orchestrator.Input) (*orchestrator.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	log := s.logger.With(zap.Stringer("run", id))
	storeCtx := context.WithoutCancel(ctx)

	sink := orchestrator.SinkFunc(func(ev orchestrator.ProgressEvent) {
		if err := s.store.AppendEvent(storeCtx, id, ev); err != nil {
			log.Warn("record progress event", zap.Error(err))
		}
	})

	start := time.Now()
	res, err := s.orch.Run(ctx, in, sink)
	if err != nil {
		log.Error("run failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		if ferr := s.store.Fail(storeCtx, id, err); ferr != nil {
			log.Error("record run failure", zap.Error(ferr))
		}
		return nil, err
	}

	log.Info("run completed",
		zap.String("module", res.Metadata.PrimaryModule),
		zap.String("mode", string(res.Metadata.Mode)),
		zap.Int("sections", len(res.Sections)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("elapsed", time.Since(start)))

	if err := s.store.Complete(storeCtx, id, res); err != nil {
		log.Error("record run result", zap.Error(err))
	}
	s.upload(storeCtx, id, res, log)
	return res, nil
}

// upload stores the run's renderings. Failures are logged; the run result
// is already recorded.
func (s *Service) upload(ctx context.Context, id uuid.UUID, res *orchestrator.Result, log *zap.Logger) {
	if s.uploader == nil {
		return
	}
	docs := map[artifact.Format][]byte{
		artifact.FormatMarkdown: []byte(export.Markdown(res, orchestrator.DocumentPlan)),
		artifact.FormatMermaid:  []byte(export.Mermaid(res)),
	}
	if data, err := export.JSON(res, orchestrator.DocumentPlan); err == nil {
		docs[artifact.FormatJSON] = data
	}
	for format, body := range docs {
		name, err := s.uploader.PutDocument(ctx, id, format, body)
		if err != nil {
			log.Warn("upload document", zap.String("format", string(format)), zap.Error(err))
			continue
		}
		log.Debug("uploaded document", zap.String("object", name))
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*runstore.Run, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Events(ctx context.Context, id uuid.UUID, from int) ([]runstore.Event, error) {
	return s.store.Events(ctx, id, from)
}

// Wait blocks until every background run has finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
