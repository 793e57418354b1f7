package apierr

// Code is a machine-readable error code returned in API responses.
type Code string

// Common errors.
const (
	CodeInvalidRequestBody Code = "INVALID_REQUEST_BODY"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeNotImplemented     Code = "NOT_IMPLEMENTED"
)

// Run errors.
const (
	CodeRunNotFound     Code = "RUN_NOT_FOUND"
	CodeInvalidRunID    Code = "INVALID_RUN_ID"
	CodeRunCreateFailed Code = "RUN_CREATE_FAILED"
	CodeRunNotFinished  Code = "RUN_NOT_FINISHED"
	CodeRunFailed       Code = "RUN_FAILED"
)

// Generation errors.
const (
	CodeTextRequired   Code = "TEXT_REQUIRED"
	CodeTextTooLong    Code = "TEXT_TOO_LONG"
	CodeInvalidMode    Code = "INVALID_MODE"
	CodeInvalidFormat  Code = "INVALID_FORMAT"
	CodePipelineFailed Code = "PIPELINE_FAILED"
	CodeDeadline       Code = "DEADLINE_EXCEEDED"
)
