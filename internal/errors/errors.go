// Package errors provides custom error types for the aichat client.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common cases
var (
	ErrMissingAPIKey   = errors.New("API key is not set")
	ErrEmptyInput      = errors.New("message is empty")
	ErrBusy            = errors.New("a request is already in progress")
	ErrInvalidResponse = errors.New("invalid response format")
	ErrNoBody          = errors.New("no response body")
)

// APIError represents a non-success response from the backend
type APIError struct {
	StatusCode int
	Status     string // reason phrase, e.g. "Internal Server Error"
	Endpoint   string
	Body       string
	// Message is the error text of a JSON {error} or {detail} payload
	Message string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Status)
	}
	return fmt.Sprintf("API error at %s: %s", e.Endpoint, e.Status)
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, status, endpoint string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Status:     status,
		Endpoint:   endpoint,
	}
}

// NewAPIErrorWithBody creates a new APIError carrying the response body
func NewAPIErrorWithBody(statusCode int, status, endpoint, body string) *APIError {
	e := NewAPIError(statusCode, status, endpoint)
	e.Body = body
	return e
}

// NetworkError represents a transport failure before any response arrived
type NetworkError struct {
	Operation string
	Endpoint  string
	Err       error
}

func (e *NetworkError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("%s failed at %s: %v", e.Operation, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(operation string, err error) *NetworkError {
	return &NetworkError{Operation: operation, Err: err}
}

// NewNetworkErrorWithEndpoint creates a new NetworkError for a specific endpoint
func NewNetworkErrorWithEndpoint(operation, endpoint string, err error) *NetworkError {
	return &NetworkError{Operation: operation, Endpoint: endpoint, Err: err}
}

// StreamError represents a failure while reading a response body
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream read failed: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// NewStreamError creates a new StreamError
func NewStreamError(err error) *StreamError {
	return &StreamError{Err: err}
}

// ParseError represents a response parsing error
type ParseError struct {
	Message string
	Path    string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse error at %q: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *ParseError) Is(target error) bool {
	if target == ErrInvalidResponse {
		return true
	}
	_, ok := target.(*ParseError)
	return ok
}

// NewParseError creates a new ParseError
func NewParseError(message, path string) *ParseError {
	return &ParseError{Message: message, Path: path}
}

// UploadError represents a document upload failure
type UploadError struct {
	FileName string
	Message  string
	Err      error
}

func (e *UploadError) Error() string {
	var sb strings.Builder
	sb.WriteString("upload failed")
	if e.FileName != "" {
		sb.WriteString(" for ")
		sb.WriteString(e.FileName)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// NewUploadError creates a new UploadError
func NewUploadError(fileName, message string) *UploadError {
	return &UploadError{FileName: fileName, Message: message}
}

// NewUploadErrorWithCause creates a new UploadError wrapping err
func NewUploadErrorWithCause(fileName string, err error) *UploadError {
	return &UploadError{FileName: fileName, Err: err}
}

// GetHTTPStatus returns the HTTP status code carried by err, or 0
func GetHTTPStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// GetResponseBody returns the response body carried by err, or ""
func GetResponseBody(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Body
	}
	return ""
}

// GetErrorMessage returns the message of a JSON error payload, or ""
func GetErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// GetEndpoint returns the endpoint an error occurred at, or ""
func GetEndpoint(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Endpoint
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Endpoint
	}
	return ""
}

// IsAPIError reports whether err is a non-success backend response
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsNetworkError reports whether err is a transport failure
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsStreamError reports whether err happened while reading a response body
func IsStreamError(err error) bool {
	var streamErr *StreamError
	return errors.As(err, &streamErr)
}

// IsUploadError reports whether err is an upload failure
func IsUploadError(err error) bool {
	var uploadErr *UploadError
	return errors.As(err, &uploadErr)
}

// IsCancelled reports whether err was caused by context cancellation
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// DisplayText formats err as the text of an inline assistant message.
// Non-success responses render as "Error: <code> <status>\n<body>".
func DisplayText(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		detail := apiErr.Body
		if apiErr.Message != "" {
			detail = apiErr.Message
		}
		return fmt.Sprintf("Error: %d %s\n%s", apiErr.StatusCode, apiErr.Status, detail)
	}
	if IsCancelled(err) {
		return "Error: request cancelled"
	}
	return "Error: " + err.Error()
}
