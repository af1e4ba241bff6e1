package errx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies an AppError so callers can tell failure modes apart
// without string matching.
type Kind string

const (
	KindInternal        Kind = "internal_error"
	KindConfiguration   Kind = "configuration_error"
	KindProvider        Kind = "provider_error"
	KindLookup          Kind = "lookup_error"
	KindModelInvocation Kind = "model_invocation_error"
	KindValidation      Kind = "validation_error"
	KindToolLimit       Kind = "tool_limit_error"
	KindToolArguments   Kind = "tool_arguments_error"
	KindNotFound        Kind = "not_found"
	KindRedis           Kind = "redis_error"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage is used when a key does not exist.
	RedisNotFoundMessage = "record not found"
)

// AppError wraps an underlying error with a kind, an HTTP status and a safe message.
type AppError struct {
	Kind    Kind
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another *AppError of the same kind, so sentinel-style checks
// like errors.Is(err, &AppError{Kind: KindLookup}) work.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a new AppError with the provided information.
func New(kind Kind, err error, status int, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Configuration reports missing or invalid startup configuration.
func Configuration(message string) *AppError {
	return New(KindConfiguration, nil, http.StatusInternalServerError, message)
}

// Validation reports a malformed client request.
func Validation(message string) *AppError {
	return New(KindValidation, nil, http.StatusBadRequest, message)
}

// NotFound reports a missing resource.
func NotFound(message string) *AppError {
	return New(KindNotFound, nil, http.StatusNotFound, message)
}

// Lookup reports a value missing from an otherwise valid provider response,
// e.g. a currency code absent from the rate table.
func Lookup(message string) *AppError {
	return New(KindLookup, nil, http.StatusUnprocessableEntity, message)
}

// ToolArguments reports tool arguments from the model that fail validation.
func ToolArguments(tool, message string) *AppError {
	return New(KindToolArguments, nil, http.StatusBadGateway, fmt.Sprintf("%s: %s", tool, message))
}

// ToolLimit reports that the agent stopped at the tool round cap without an answer.
func ToolLimit(rounds int) *AppError {
	return New(KindToolLimit, nil, http.StatusBadGateway,
		fmt.Sprintf("agent reached the tool round limit (%d) without producing an answer", rounds))
}

// Provider wraps a failure talking to an upstream service. Timeouts map to 504.
func Provider(service string, err error) *AppError {
	status := http.StatusBadGateway
	if isTimeout(err) {
		status = http.StatusGatewayTimeout
	}
	return New(KindProvider, err, status, fmt.Sprintf("%s request failed", service))
}

// ProviderStatus reports a non-success HTTP status from an upstream service.
func ProviderStatus(service string, status int, body string) *AppError {
	return New(KindProvider, fmt.Errorf("status %d: %s", status, body), http.StatusBadGateway,
		fmt.Sprintf("%s request failed", service))
}

// ModelInvocation reports that no chat model handle could be constructed.
func ModelInvocation(err error) *AppError {
	return New(KindModelInvocation, err, http.StatusBadGateway, "chat model unavailable")
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP status for err. Deadline errors that never got
// wrapped as provider errors still map to 504.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	if isTimeout(err) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
