package invoker

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"

	"github.com/pkg/errors"
)

// FatalError marks a non-retryable API failure: authentication problems,
// unknown model identifiers, malformed requests. A fatal error indicates a
// systemic misconfiguration, so the runner aborts the whole run instead of
// continuing with other cases.
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error { return e.Err }

// NewFatalError wraps err as a fatal, non-retryable failure.
func NewFatalError(reason string, err error) *FatalError {
	return &FatalError{Reason: reason, Err: err}
}

// IsFatal reports whether err is (or wraps) a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IsTransient reports whether err is worth retrying: rate limits, server
// errors, timeouts, and transport failures. Context cancellation and fatal
// errors are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsFatal(err) {
		return false
	}

	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return retryableStatus(anthropicErr.StatusCode)
	}

	var openaiErr *openai.APIError
	if errors.As(err, &openaiErr) {
		return retryableStatus(openaiErr.HTTPStatusCode)
	}
	var openaiReqErr *openai.RequestError
	if errors.As(err, &openaiReqErr) {
		return retryableStatus(openaiReqErr.HTTPStatusCode)
	}

	// Anything else is a transport-level failure (connection reset, DNS).
	return true
}

func retryableStatus(code int) bool {
	switch {
	case code == 408 || code == 429:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}

// classify converts an API error into the harness taxonomy: transient errors
// pass through untouched for the retry policy, everything else becomes fatal.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return NewFatalError(fatalReason(anthropicErr.StatusCode), err)
	}
	var openaiErr *openai.APIError
	if errors.As(err, &openaiErr) {
		return NewFatalError(fatalReason(openaiErr.HTTPStatusCode), err)
	}
	var openaiReqErr *openai.RequestError
	if errors.As(err, &openaiReqErr) {
		return NewFatalError(fatalReason(openaiReqErr.HTTPStatusCode), err)
	}
	return err
}

func fatalReason(code int) string {
	switch code {
	case 401, 403:
		return "authentication failed"
	case 404:
		return "model not found"
	default:
		return "request rejected by API"
	}
}
