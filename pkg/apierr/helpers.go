package apierr

import (
	"context"
	"errors"

	"github.com/dusk-indust/bizdoc/internal/orchestrator"
	"github.com/dusk-indust/bizdoc/internal/runstore"
	"github.com/dusk-indust/bizdoc/internal/service"
)

// IsNotFound reports whether err is or wraps runstore.ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, runstore.ErrNotFound)
}

// FromRunError maps an error returned by a generation run to an API error.
func FromRunError(err error) *Error {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, orchestrator.ErrEmptyInput):
		return TextRequired()
	case errors.Is(err, service.ErrInputTooLarge):
		return TextTooLong(service.MaxInputBytes)
	case errors.Is(err, service.ErrInvalidMode):
		return InvalidMode()
	case orchestrator.IsFatal(err):
		return PipelineFailed(err)
	case errors.Is(err, context.DeadlineExceeded):
		return DeadlineExceeded(err)
	default:
		return InternalError(err)
	}
}
