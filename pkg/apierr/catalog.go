package apierr

import (
	"fmt"
	"net/http"
)

// --- Common ---

func InvalidRequestBody() *Error {
	return New(CodeInvalidRequestBody, http.StatusBadRequest, "Invalid request body")
}

func InternalError(cause error) *Error {
	return Wrap(CodeInternalError, http.StatusInternalServerError, "Internal server error", cause)
}

func NotImplemented(feature string) *Error {
	return New(CodeNotImplemented, http.StatusNotImplemented, feature+" is not implemented yet")
}

// --- Run ---

func RunNotFound() *Error {
	return New(CodeRunNotFound, http.StatusNotFound, "Run not found")
}

func InvalidRunID() *Error {
	return New(CodeInvalidRunID, http.StatusBadRequest, "Invalid run ID")
}

func RunCreateFailed(cause error) *Error {
	return Wrap(CodeRunCreateFailed, http.StatusInternalServerError, "Failed to create run", cause)
}

func RunNotFinished() *Error {
	return New(CodeRunNotFinished, http.StatusConflict, "Run has not finished yet")
}

// RunFailed reports a stored run that ended in an error.
func RunFailed(message string) *Error {
	return New(CodeRunFailed, http.StatusConflict, message)
}

// --- Generation ---

func TextRequired() *Error {
	return New(CodeTextRequired, http.StatusBadRequest, "text is required")
}

func TextTooLong(limit int) *Error {
	return New(CodeTextTooLong, http.StatusRequestEntityTooLarge, fmt.Sprintf("text exceeds the maximum input size of %d bytes", limit))
}

func InvalidMode() *Error {
	return New(CodeInvalidMode, http.StatusBadRequest, "mode must be one of: auto, pipeline, single-pass")
}

func InvalidFormat() *Error {
	return New(CodeInvalidFormat, http.StatusBadRequest, "format must be one of: markdown, json, mermaid")
}

// PipelineFailed carries the fatal run error's message to the client so it
// can act on it (for example by retrying in single-pass mode).
func PipelineFailed(cause error) *Error {
	return Wrap(CodePipelineFailed, http.StatusBadGateway, cause.Error(), cause)
}

func DeadlineExceeded(cause error) *Error {
	return Wrap(CodeDeadline, http.StatusGatewayTimeout, "Generation did not finish within the caller deadline", cause)
}
