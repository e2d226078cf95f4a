package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the category of an audit error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates a malformed or incomplete request.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeFetch indicates the target page could not be retrieved.
	ErrorTypeFetch ErrorType = "fetch"

	// ErrorTypeRender indicates the headless renderer failed.
	ErrorTypeRender ErrorType = "render"

	// ErrorTypeProvider indicates an AI backend call failed.
	ErrorTypeProvider ErrorType = "provider"

	// ErrorTypeNormalization indicates a provider answered with an unusable shape.
	ErrorTypeNormalization ErrorType = "normalization"

	// ErrorTypeSystem indicates an unanticipated failure.
	ErrorTypeSystem ErrorType = "system"
)

// AuditError is a terminal pipeline error surfaced to the caller.
type AuditError struct {
	// Type is the category of error
	Type ErrorType `json:"-"`

	// Message is the machine-readable error label returned as "error"
	Message string `json:"error"`

	// Details is the human-readable explanation returned as "details"
	Details string `json:"details,omitempty"`

	// Err is the underlying cause
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *AuditError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AuditError) Unwrap() error { return e.Err }

// HTTPStatusCode returns the HTTP status code for this error.
func (e *AuditError) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest, ErrorTypeFetch:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewAuditError creates a new audit error.
func NewAuditError(errType ErrorType, message string) *AuditError {
	return &AuditError{Type: errType, Message: message}
}

// WithDetails sets the human-readable details.
func (e *AuditError) WithDetails(details string) *AuditError {
	e.Details = details
	return e
}

// WithCause records the underlying error and uses its text as details when none are set.
func (e *AuditError) WithCause(err error) *AuditError {
	e.Err = err
	if e.Details == "" && err != nil {
		e.Details = err.Error()
	}
	return e
}

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *AuditError {
	return NewAuditError(ErrorTypeInvalidRequest, message)
}

// ErrFetch creates a page fetch error.
func ErrFetch(cause error) *AuditError {
	return NewAuditError(ErrorTypeFetch, "Failed to fetch URL").WithCause(cause)
}

// ErrSystem creates a system error.
func ErrSystem(cause error) *AuditError {
	return NewAuditError(ErrorTypeSystem, "System Error").WithCause(cause)
}

// AsAuditError returns err as an *AuditError, wrapping unknown errors as system errors.
func AsAuditError(err error) *AuditError {
	var ae *AuditError
	if errors.As(err, &ae) {
		return ae
	}
	return ErrSystem(err)
}

// FetchError describes why the target page could not be retrieved.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RenderPhase names the renderer step that failed.
type RenderPhase string

const (
	RenderPhaseLaunch   RenderPhase = "launch"
	RenderPhaseNavigate RenderPhase = "navigate"
	RenderPhaseCapture  RenderPhase = "capture"
)

// RenderError is a recoverable renderer failure. It forecloses the AI path only.
type RenderError struct {
	Phase RenderPhase
	URL   string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s (%s): %v", e.URL, e.Phase, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// UserMessage returns a short human-readable explanation for the report.
func (e *RenderError) UserMessage() string {
	switch {
	case errors.Is(e.Err, context.DeadlineExceeded):
		return "the page took too long to render"
	case e.Phase == RenderPhaseLaunch:
		return "the headless browser could not be started"
	case e.Phase == RenderPhaseNavigate:
		return "the page could not be loaded in the headless browser"
	default:
		return "the screenshot could not be captured"
	}
}

// ErrorKind classifies provider failures into user-actionable groups.
type ErrorKind string

const (
	KindRateLimit      ErrorKind = "rate_limit"
	KindAuthentication ErrorKind = "authentication"
	KindNotFound       ErrorKind = "not_found"
	KindOverloaded     ErrorKind = "overloaded"
	KindTimeout        ErrorKind = "timeout"
	KindBadResponse    ErrorKind = "bad_response"
	KindNetwork        ErrorKind = "network"
	KindServer         ErrorKind = "server"
)

// ClassifyStatus maps an HTTP status from a provider to an ErrorKind.
func ClassifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuthentication
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusServiceUnavailable || code == 529:
		return KindOverloaded
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return KindTimeout
	case code >= 400 && code < 500:
		return KindBadResponse
	default:
		return KindServer
	}
}

// ProviderError is a recoverable failure of a single AI backend.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

// NewProviderError builds a ProviderError from an HTTP status and message.
func NewProviderError(provider string, status int, message string) *ProviderError {
	kind := ClassifyStatus(status)
	if kind == KindServer && quotaMessage(message) {
		kind = KindRateLimit
	}
	return &ProviderError{Provider: provider, Kind: kind, StatusCode: status, Message: message}
}

// WrapProviderError classifies a transport-level failure (no HTTP status).
func WrapProviderError(provider string, err error) *ProviderError {
	pe := &ProviderError{Provider: provider, Kind: KindNetwork, Message: err.Error(), Err: err}
	if errors.Is(err, context.DeadlineExceeded) {
		pe.Kind = KindTimeout
	}
	return pe
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// UserMessage maps the failure kind to an actionable explanation.
func (e *ProviderError) UserMessage() string {
	switch e.Kind {
	case KindRateLimit:
		return "AI Rate Limit Reached. The provider quota is exhausted or requests are too frequent; wait about 60 seconds and try again."
	case KindAuthentication:
		return "AI provider rejected the credentials. Check the configured API key."
	case KindNotFound:
		return "The configured AI model is not available for this API key."
	case KindOverloaded:
		return "The AI provider is temporarily overloaded."
	case KindTimeout:
		return "The AI provider did not answer in time."
	case KindBadResponse:
		return "The AI provider could not process the request."
	case KindNetwork:
		return "The AI provider could not be reached."
	default:
		return "The AI provider returned a server error."
	}
}

func quotaMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit")
}

// NormalizationError marks a provider response whose shape could not be used.
type NormalizationError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *NormalizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("normalize %s response: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("normalize %s response: %s", e.Provider, e.Reason)
}

func (e *NormalizationError) Unwrap() error { return e.Err }
