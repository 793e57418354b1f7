package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dusk-indust/bizdoc/internal/classify"
	"github.com/dusk-indust/bizdoc/internal/knowledge"
	"github.com/dusk-indust/bizdoc/internal/llm"
	"github.com/dusk-indust/bizdoc/internal/prompts"
)

// Compile-time interface checks.
var (
	_ Orchestrator = (*Pipeline)(nil)
	_ Classifier   = classify.Keyword{}
	_ References   = knowledge.Tables{}
)

// Classifier picks the primary module for an input.
type Classifier interface {
	Classify(text, hint string) (string, []classify.Candidate)
}

// References supplies static reference data for a module.
type References interface {
	Lookup(id string) (knowledge.Module, bool)
	Related(id string) []knowledge.Module
}

// deps are the collaborators shared by Pipeline and SinglePass.
type deps struct {
	logger        *zap.Logger
	classifier    Classifier
	refs          References
	specialists   []Role
	supplementary Role
	plan          MergePlan
}

func defaultDeps() deps {
	return deps{
		logger:        zap.NewNop(),
		classifier:    classify.Keyword{},
		refs:          knowledge.Tables{},
		specialists:   DefaultSpecialists,
		supplementary: DefaultSupplementary,
		plan:          DocumentPlan,
	}
}

// Option configures a Pipeline or SinglePass.
type Option func(*deps)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(d *deps) { d.logger = l }
}

// WithClassifier replaces the keyword classifier.
func WithClassifier(c Classifier) Option {
	return func(d *deps) { d.classifier = c }
}

// WithReferences replaces the static knowledge tables.
func WithReferences(r References) Option {
	return func(d *deps) { d.refs = r }
}

// WithSpecialists replaces the specialist roles.
func WithSpecialists(roles ...Role) Option {
	return func(d *deps) { d.specialists = roles }
}

// WithSupplementary replaces the supplementary role.
func WithSupplementary(r Role) Option {
	return func(d *deps) { d.supplementary = r }
}

// generatedIDs returns the section ids the generating roles own.
func (d *deps) generatedIDs() []string {
	ids := make([]string, 0, len(d.specialists)+1)
	for _, r := range d.specialists {
		ids = append(ids, r.SectionID)
	}
	return append(ids, d.supplementary.SectionID)
}

// prepared is the per-run data derived before any backend call.
type prepared struct {
	primary string
	ranked  []classify.Candidate
	module  knowledge.Module
	known   bool
	request prompts.Request
}

func (d *deps) prepare(in Input) prepared {
	primary, ranked := d.classifier.Classify(in.Text, in.ModuleHint)
	mod, known := d.refs.Lookup(primary)
	req := prompts.Request{
		Text:         in.Text,
		Module:       primary,
		Language:     in.Language,
		Depth:        in.Depth,
		DocumentType: in.DocumentType,
		Guidance:     in.Guidance,
	}
	if known {
		req.ModuleName = mod.Name
		req.ProcessAreas = mod.ProcessAreas
		req.BusinessObjects = mod.BusinessObjects
	}
	return prepared{primary: primary, ranked: ranked, module: mod, known: known, request: req}
}

// staticSections builds the non-generated sections from the knowledge tables.
func (p prepared) staticSections() map[string]string {
	if !p.known {
		return nil
	}
	return map[string]string{
		SectionProcessAreas:     p.module.ProcessAreasSection(),
		SectionReferenceObjects: p.module.ReferenceObjectsSection(),
	}
}

func (d *deps) metadata(p prepared, mode Mode, gen llm.Generator) Metadata {
	md := Metadata{
		PrimaryModule:  p.primary,
		Classification: p.ranked,
		Mode:           mode,
		Generator:      llm.NameOf(gen),
	}
	if p.known {
		md.ModuleName = p.module.Name
		for _, r := range d.refs.Related(p.primary) {
			md.CrossReferences = append(md.CrossReferences, fmt.Sprintf("%s: %s", r.ID, r.Name))
		}
	}
	return md
}

// Pipeline runs the three-phase generation: one director call producing the
// shared context, a fan-out of specialists, and a finalize fan-out of the
// consistency reviewer and the supplementary generator.
type Pipeline struct {
	deps
	cfg Config
	gen llm.Generator
}

// NewPipeline creates a Pipeline that calls gen for every task. It fails
// with ErrNoSpecialists when the options leave no specialist roles.
func NewPipeline(cfg Config, gen llm.Generator, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{deps: defaultDeps(), cfg: cfg, gen: gen}
	for _, o := range opts {
		o(&p.deps)
	}
	if len(p.specialists) == 0 {
		return nil, ErrNoSpecialists
	}
	return p, nil
}

// Run executes the pipeline. Fatal failures (director failure, every
// specialist failing) return a *PipelineError and no result; any other
// failure is reported in Result.Warnings.
func (p *Pipeline) Run(ctx context.Context, in Input, sink ProgressSink) (*Result, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, ErrEmptyInput
	}

	state := newRunState(sink)
	prep := p.prepare(in)
	log := p.logger.With(zap.String("module", prep.primary))

	// ---------------------------------------------------------------------------
	// Phase 1: director
	// ---------------------------------------------------------------------------

	shared, err := p.runDirector(ctx, state, prep, log)
	if err != nil {
		return nil, err
	}

	// ---------------------------------------------------------------------------
	// Phase 2: specialists
	// ---------------------------------------------------------------------------

	raw, err := p.runSpecialists(ctx, state, prep, shared, log)
	if err != nil {
		return nil, err
	}

	// ---------------------------------------------------------------------------
	// Phase 3: finalize
	// ---------------------------------------------------------------------------

	corrected, supplementary := p.runFinalize(ctx, state, prep, shared, raw, log)

	merger := NewMerger(p.plan)
	sections := merger.Combine(prep.staticSections(), raw, corrected, supplementary)

	md := p.metadata(prep, ModePipeline, p.gen)
	md.ProcessSteps = shared.ProcessSteps()
	md.Terminology = shared.Terminology()
	md.CoherenceIssues = CheckCoherence(merger.Order(sections), md.Terminology)
	for _, issue := range md.CoherenceIssues {
		log.Warn("coherence issue",
			zap.String("kind", issue.Kind),
			zap.String("section", issue.SectionA),
			zap.String("description", issue.Description))
	}

	state.terminate(PhaseComplete)
	state.phaseEvent(ProgressCompleted, fmt.Sprintf("%d sections", len(sections)))

	result := &Result{
		Sections: sections,
		Warnings: state.snapshotWarnings(),
		Metadata: md,
	}
	log.Info("pipeline complete",
		zap.Int("sections", len(sections)),
		zap.Int("warnings", len(result.Warnings)))
	return result, nil
}

func (p *Pipeline) runDirector(ctx context.Context, state *runState, prep prepared, log *zap.Logger) (*SharedContext, error) {
	state.enter(PhaseDirector, nil)
	state.phaseEvent(ProgressRunning, "")
	log.Debug("director started", zap.Duration("budget", p.cfg.Budgets.Director))

	fail := func(cause error) error {
		state.phaseEvent(ProgressFailed, cause.Error())
		state.terminate(PhaseError)
		log.Error("director failed", zap.Error(cause))
		return &PipelineError{Phase: PhaseDirector, Kind: ErrDirectorFailed, Module: prep.primary, Cause: cause}
	}

	prompt, err := prompts.Render(prompts.Director, prompts.DirectorData{Request: prep.request})
	if err != nil {
		return nil, fail(err)
	}

	shared, err := Guard(ctx, p.cfg.Budgets.Director, "director", func(ctx context.Context) (*SharedContext, error) {
		text, err := p.gen.Generate(ctx, prompt, p.cfg.DirectorMaxTokens)
		if err != nil {
			return nil, err
		}
		return ParseSharedContext(text)
	})
	if err != nil {
		return nil, fail(err)
	}

	state.phaseEvent(ProgressCompleted, fmt.Sprintf("%d process steps", len(shared.steps)))
	return shared, nil
}

func (p *Pipeline) runSpecialists(ctx context.Context, state *runState, prep prepared, shared *SharedContext, log *zap.Logger) (map[string]string, error) {
	tasks := make([]GenerationTask, 0, len(p.specialists))
	for _, role := range p.specialists {
		prompt, err := prompts.Render(prompts.Specialist, prompts.SpecialistData{
			Request:   prep.request,
			Context:   shared.view(),
			SectionID: role.SectionID,
			Role:      role.Name,
			Focus:     role.Focus,
		})
		if err != nil {
			return nil, fmt.Errorf("specialist %q: %w", role.SectionID, err)
		}
		tasks = append(tasks, GenerationTask{
			Name:      role.SectionID,
			Role:      role.Name,
			Prompt:    prompt,
			MaxTokens: p.cfg.SpecialistMaxTokens,
		})
	}

	state.enter(PhaseSpecialists, tasks)
	state.phaseEvent(ProgressRunning, "")

	outcomes := NewFanOut(p.gen, "specialist", state.taskEvent).Run(ctx, tasks, p.cfg.Budgets.Specialists)

	raw := make(map[string]string, len(outcomes))
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Name, o.Err))
			state.warn("Specialist %q (%s) failed: %v", o.Name, o.Role, o.Err)
			log.Warn("specialist failed", zap.String("section", o.Name), zap.Error(o.Err))
			continue
		}
		raw[o.Name] = o.Text
	}

	failed, total := len(errs), len(tasks)
	if failed == total {
		state.terminate(PhaseError)
		log.Error("all specialists failed", zap.Int("count", total))
		return nil, &PipelineError{
			Phase:  PhaseSpecialists,
			Kind:   ErrAllSpecialistsFailed,
			Module: prep.primary,
			Failed: failed,
			Total:  total,
			Cause:  errors.Join(errs...),
		}
	}
	if failed > 0 && float64(failed)/float64(total) >= p.cfg.DegradedThreshold {
		state.warn("Degraded quality: %d of %d specialists failed for module %s; the document is missing most generated sections",
			failed, total, prep.primary)
	}

	state.phaseEvent(ProgressCompleted, fmt.Sprintf("%d of %d specialists completed", total-failed, total))
	return raw, nil
}

// runFinalize never fails the run. A failed review leaves corrected nil so
// that raw specialist text stands; a failed supplementary task leaves its
// section out.
func (p *Pipeline) runFinalize(ctx context.Context, state *runState, prep prepared, shared *SharedContext, raw map[string]string, log *zap.Logger) (corrected, supplementary map[string]string) {
	reviewable := make(map[string]bool)
	var surviving []prompts.SectionText
	for _, role := range p.specialists {
		text, ok := raw[role.SectionID]
		if !ok {
			continue
		}
		surviving = append(surviving, prompts.SectionText{ID: role.SectionID, Text: text})
		if role.Reviewed {
			reviewable[role.SectionID] = true
		}
	}

	reviewPrompt, err := prompts.Render(prompts.Reviewer, prompts.ReviewerData{
		Request:  prep.request,
		Context:  shared.view(),
		Sections: surviving,
	})
	reviewErr := err
	if err != nil {
		reviewErr = fmt.Errorf("render reviewer prompt: %w", err)
		log.Error("render reviewer prompt", zap.Error(err))
	}
	suppPrompt, err := prompts.Render(prompts.Supplementary, prompts.SupplementaryData{
		Request:   prep.request,
		Context:   shared.view(),
		SectionID: p.supplementary.SectionID,
		Focus:     p.supplementary.Focus,
	})
	suppErr := err
	if err != nil {
		suppErr = fmt.Errorf("render supplementary prompt: %w", err)
		log.Error("render supplementary prompt", zap.Error(err))
	}

	tasks := []GenerationTask{
		{Name: TaskConsistencyReview, Role: "consistency reviewer", Prompt: reviewPrompt, MaxTokens: p.cfg.ReviewerMaxTokens, Err: reviewErr},
		{Name: p.supplementary.SectionID, Role: p.supplementary.Name, Prompt: suppPrompt, MaxTokens: p.cfg.SupplementaryMaxTokens, Err: suppErr},
	}

	state.enter(PhaseFinalize, tasks)
	state.phaseEvent(ProgressRunning, "")

	outcomes := NewFanOut(p.gen, "finalize", state.taskEvent).RunShared(ctx, tasks, p.cfg.Budgets.Finalize)
	review, supp := outcomes[0], outcomes[1]

	if review.Err != nil {
		state.warn("Consistency review failed (%v); using unreviewed specialist output", review.Err)
		log.Warn("consistency review failed", zap.Error(review.Err))
	} else {
		corrected = splitSections(review.Text, reviewable)
	}

	if supp.Err != nil {
		state.warn("Supplementary section %q failed: %v", supp.Name, supp.Err)
		log.Warn("supplementary failed", zap.String("section", supp.Name), zap.Error(supp.Err))
	} else {
		supplementary = map[string]string{supp.Name: supp.Text}
	}

	state.phaseEvent(ProgressCompleted, fmt.Sprintf("%d sections corrected", len(corrected)))
	return corrected, supplementary
}
