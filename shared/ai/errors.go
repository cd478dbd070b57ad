package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type ErrorType string

const (
	ErrorTypeEndpoint  ErrorType = "endpoint"
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeModel     ErrorType = "model"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeServer    ErrorType = "server"
	ErrorTypeTimeout   ErrorType = "timeout"
	ErrorTypeResponse  ErrorType = "response"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error is a transport-level failure reaching the model.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int
	Model      string
}

func (e *Error) Error() string {
	parts := []string{string(e.Type)}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}
	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// ClassifyError maps a provider SDK error onto a structured Error.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorTypeTimeout, "request timeout", true, err)
	}

	statusCode := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		statusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		statusCode = reqErr.HTTPStatusCode
	default:
		errStr := err.Error()
		for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504} {
			if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
				statusCode = code
				break
			}
		}
	}

	if statusCode > 0 {
		return classifyStatus(statusCode, err)
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		return NewError(ErrorTypeAuth, "authentication failed", false, err)
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		return NewError(ErrorTypeEndpoint, "connection failed", true, err)
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return NewError(ErrorTypeTimeout, "request timeout", true, err)
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "resource_exhausted"):
		return NewError(ErrorTypeRateLimit, "rate limited", true, err)
	}

	return NewError(ErrorTypeUnknown, "llm error", false, err)
}

func classifyStatus(code int, err error) *Error {
	var e *Error
	switch {
	case code == 401 || code == 403:
		e = NewError(ErrorTypeAuth, "authentication failed", false, err)
	case code == 404:
		if strings.Contains(strings.ToLower(err.Error()), "model") {
			e = NewError(ErrorTypeModel, "model not found", false, err)
		} else {
			e = NewError(ErrorTypeEndpoint, "endpoint not found", false, err)
		}
	case code == 429:
		e = NewError(ErrorTypeRateLimit, "rate limited", true, err)
	case code >= 500:
		e = NewError(ErrorTypeServer, "server error", true, err)
	default:
		e = NewError(ErrorTypeUnknown, "request rejected", false, err)
	}
	e.StatusCode = code
	return e
}

func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// ParseError reports model output that could not be decoded into the expected shape.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse model response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
