// Package llm provides the generation backends the pipeline calls: an
// OpenAI-compatible chat client (optionally behind an OAuth gateway), Gemini
// through google.golang.org/genai, and Anthropic models on AWS Bedrock.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Generator produces text for a prompt. Implementations must be safe for
// concurrent use and should honour ctx cancellation where the transport allows.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, maxOutputTokens int) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	return f(ctx, prompt, maxOutputTokens)
}

// Named is implemented by generators that can report a provider/model label.
type Named interface {
	Name() string
}

// NameOf returns g's label, or "custom" when g does not implement Named.
func NameOf(g Generator) string {
	if n, ok := g.(Named); ok {
		return n.Name()
	}
	return "custom"
}

// ErrorKind classifies a backend failure.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindRateLimit   ErrorKind = "rate-limit"
	KindMalformed   ErrorKind = "malformed"
	KindUnavailable ErrorKind = "unavailable"
	KindAuth        ErrorKind = "auth"
	KindInvalid     ErrorKind = "invalid"
	KindUnknown     ErrorKind = "unknown"
)

// BackendError is returned by every Generator in this package.
type BackendError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s backend %s (status %d): %s", e.Provider, e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s backend %s: %s", e.Provider, e.Kind, msg)
}

func (e *BackendError) Unwrap() error { return e.Err }

// KindFromStatus maps an HTTP status code to an ErrorKind.
func KindFromStatus(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests || code == 529:
		return KindRateLimit
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return KindTimeout
	case code >= 500:
		return KindUnavailable
	case code >= 400:
		return KindInvalid
	default:
		return KindUnknown
	}
}

// Classify returns err's ErrorKind. Context deadlines count as timeouts.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// IsRetryable reports whether a backend-level retry may succeed.
func IsRetryable(err error) bool {
	switch Classify(err) {
	case KindRateLimit, KindUnavailable:
		return true
	default:
		return false
	}
}

func malformed(provider, msg string) *BackendError {
	return &BackendError{Kind: KindMalformed, Provider: provider, Message: msg}
}

// fromContext converts a transport error into a BackendError, treating
// cancellation and deadlines as timeouts.
func fromContext(provider string, err error) *BackendError {
	kind := KindUnavailable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = KindTimeout
	}
	return &BackendError{Kind: kind, Provider: provider, Err: err}
}
