package orchestrator

import (
	"errors"
	"fmt"
)

// Sentinel kinds carried by PipelineError. Use errors.Is to test for them.
var (
	ErrDirectorFailed       = errors.New("director phase failed")
	ErrAllSpecialistsFailed = errors.New("all specialists failed")
	ErrSinglePassFailed     = errors.New("single-pass generation failed")
	ErrEmptyInput           = errors.New("input text is empty")
)

// ErrNoSpecialists is returned by NewPipeline when no specialist roles are
// configured.
var ErrNoSpecialists = errors.New("pipeline needs at least one specialist role")

// PipelineError is a fatal run failure. No partial result accompanies it.
type PipelineError struct {
	Phase  Phase
	Kind   error
	Module string
	Failed int
	Total  int
	Cause  error
}

func (e *PipelineError) Error() string {
	switch e.Kind {
	case ErrDirectorFailed:
		return fmt.Sprintf("Phase 1 (director) failed: %v; retry in single-pass mode to generate the document without the multi-phase pipeline", e.Cause)
	case ErrAllSpecialistsFailed:
		return fmt.Sprintf("Phase 2 (specialists) failed: all %d of %d specialists failed for module %s; verify the generation backend configuration (endpoint, credentials, model): %v",
			e.Failed, e.Total, e.Module, e.Cause)
	default:
		return fmt.Sprintf("%s failed: %v", e.Phase, e.Cause)
	}
}

func (e *PipelineError) Unwrap() []error {
	return []error{e.Kind, e.Cause}
}

// IsFatal reports whether err is a PipelineError.
func IsFatal(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe)
}
