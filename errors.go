package sift

import (
	"errors"
	"fmt"
)

// ErrorType categorizes failures at the orchestration boundary.
type ErrorType string

const (
	ErrorTypeInput        ErrorType = "input"
	ErrorTypeUpstream     ErrorType = "upstream"
	ErrorTypeMalformed    ErrorType = "malformed"
	ErrorTypeUnresolvable ErrorType = "unresolvable"
	ErrorTypeInternal     ErrorType = "internal"
)

// Error codes surfaced in API failure payloads.
const (
	ErrCodeEmptyQuery          = "EMPTY_QUERY"
	ErrCodeUnknownEntity       = "UNKNOWN_ENTITY"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"
	ErrCodeMalformedResponse   = "MALFORMED_RESPONSE"
	ErrCodeUnresolvableQuery   = "UNRESOLVABLE_QUERY"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// Failure reasons distinguishing how the AI tier fell over.
const (
	ReasonNoResponse  = "no response at all"
	ReasonInvalidJSON = "invalid JSON received"
)

// SiftError is the unified error carried across the pipeline.
type SiftError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *SiftError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("[%s:%s] %s (%s)", e.Type, e.Code, e.Message, e.Reason)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *SiftError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a single diagnostic value.
func (e *SiftError) WithDetail(key string, value any) *SiftError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithReason records the failure discriminator surfaced to callers.
func (e *SiftError) WithReason(reason string) *SiftError {
	e.Reason = reason
	return e
}

// WithCause chains the underlying error.
func (e *SiftError) WithCause(cause error) *SiftError {
	e.Cause = cause
	return e
}

// NewSiftError creates a bare error with a type, code, and message.
func NewSiftError(errorType ErrorType, code, message string) *SiftError {
	return &SiftError{
		Type:    errorType,
		Code:    code,
		Message: message,
	}
}

// NewInputError reports a malformed request. Surfaced immediately,
// never retried.
func NewInputError(code, message string) *SiftError {
	return NewSiftError(ErrorTypeInput, code, message)
}

// NewUpstreamError reports an unreachable or failing text-generation
// service. The pipeline silently advances to the next tier.
func NewUpstreamError(message string, cause error) *SiftError {
	return NewSiftError(ErrorTypeUpstream, ErrCodeUpstreamUnavailable, message).WithCause(cause)
}

// NewMalformedError reports AI output that could not be parsed as a
// filter envelope.
func NewMalformedError(message string, cause error) *SiftError {
	return NewSiftError(ErrorTypeMalformed, ErrCodeMalformedResponse, message).WithCause(cause)
}

// NewUnresolvableError reports that no tier produced a filter referencing
// any known field.
func NewUnresolvableError(reason string) *SiftError {
	return NewSiftError(ErrorTypeUnresolvable, ErrCodeUnresolvableQuery,
		"query could not be resolved to a filter").WithReason(reason)
}

// AsSiftError extracts a SiftError from an error chain.
func AsSiftError(err error) (*SiftError, bool) {
	var se *SiftError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
