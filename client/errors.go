package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned by the API.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeStateConflict = "STATE_CONFLICT"
)

// APIError is a structured error response.
type APIError struct {
	StatusCode int    `json:"-"`
	RequestID  string `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("housebook: %d %s: %s (request_id=%s)", e.StatusCode, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("housebook: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func IsForbidden(err error) bool {
	return IsCode(err, CodeForbidden)
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsClaimConflict reports a lost claim race; the job went to someone else.
func IsClaimConflict(err error) bool {
	return IsCode(err, CodeConflict)
}

func parseAPIError(statusCode int, requestID string, body []byte) *APIError {
	var wrapper struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil || wrapper.Error == nil || wrapper.Error.Code == "" {
		return &APIError{StatusCode: statusCode, RequestID: requestID, Code: "unknown", Message: string(body)}
	}
	wrapper.Error.StatusCode = statusCode
	wrapper.Error.RequestID = requestID
	return wrapper.Error
}
