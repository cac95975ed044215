package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getevo/evo/v2/lib/outcome"
	"github.com/getevo/evo/v2/lib/text"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Input validation errors
	ErrorCodeInvalidInput    ErrorCode = "invalid_input"
	ErrorCodeMissingRequired ErrorCode = "missing_required"
	ErrorCodeInvalidCompany  ErrorCode = "invalid_company"

	// Resource errors
	ErrorCodeNotFound ErrorCode = "not_found"

	// Attachment ingestion errors
	ErrorCodePayloadTooLarge ErrorCode = "payload_too_large"
	ErrorCodeInvalidEncoding ErrorCode = "invalid_encoding"
	ErrorCodeStorageError    ErrorCode = "storage_error"

	// Dispatch errors
	ErrorCodeEndpointUnavailable ErrorCode = "endpoint_unavailable"
	ErrorCodeProviderUnreachable ErrorCode = "provider_unreachable"
	ErrorCodeProviderRejected    ErrorCode = "provider_rejected"

	// Credit ledger errors
	ErrorCodeInsufficientBalance ErrorCode = "insufficient_balance"
	ErrorCodeLedgerConflict      ErrorCode = "ledger_conflict"

	// Internal errors
	ErrorCodeInternalError   ErrorCode = "internal_error"
	ErrorCodeDatabaseError   ErrorCode = "database_error"
	ErrorCodeTooManyRequests ErrorCode = "too_many_requests"
)

// AppError represents a structured application error
type AppError struct {
	Code       ErrorCode      `json:"error"`
	Message    string         `json:"message"`
	StatusCode int            `json:"-"`
	Details    string         `json:"details,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Error implements the error interface
func (e AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Response returns an outcome.Response for the error
func (e AppError) Response() outcome.Response {
	var body = map[string]interface{}{
		"error":   string(e.Code),
		"message": e.Message,
	}
	if e.Details != "" {
		body["details"] = e.Details
	}
	for k, v := range e.Extra {
		body[k] = v
	}
	return outcome.Response{
		StatusCode: e.StatusCode,
		Data:       text.ToJSON(body),
	}
}

// NewError creates a new AppError
func NewError(code ErrorCode, message string, statusCode int) AppError {
	return AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewErrorWithDetails creates a new AppError with additional details
func NewErrorWithDetails(code ErrorCode, message string, statusCode int, details string) AppError {
	return AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

// WithExtra attaches extra payload fields to the error body
func (e AppError) WithExtra(extra map[string]any) AppError {
	e.Extra = extra
	return e
}

// Predefined common errors
var (
	ErrInvalidInput = AppError{
		Code:       ErrorCodeInvalidInput,
		Message:    "Invalid request data",
		StatusCode: http.StatusBadRequest,
	}

	ErrMissingRequired = AppError{
		Code:       ErrorCodeMissingRequired,
		Message:    "Missing required fields",
		StatusCode: http.StatusBadRequest,
	}

	ErrInvalidCompany = AppError{
		Code:       ErrorCodeInvalidCompany,
		Message:    "Missing or invalid X-Company-ID header",
		StatusCode: http.StatusBadRequest,
	}

	ErrNotFound = AppError{
		Code:       ErrorCodeNotFound,
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrEndpointUnavailable = AppError{
		Code:       ErrorCodeEndpointUnavailable,
		Message:    "Channel instance is not connected",
		StatusCode: http.StatusConflict,
	}

	ErrInternalError = AppError{
		Code:       ErrorCodeInternalError,
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrDatabaseError = AppError{
		Code:       ErrorCodeDatabaseError,
		Message:    "Database operation failed",
		StatusCode: http.StatusInternalServerError,
	}
)

// Helper function to create outcome.Response from AppError
func Error(err AppError) outcome.Response {
	return err.Response()
}

// =====================================================
// STANDARDIZED SUCCESS RESPONSE SYSTEM
// =====================================================

// APIResponse represents a standardized API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
	Message string      `json:"message,omitempty"`
}

func (r APIResponse) ToJSON() []byte {
	b, _ := json.Marshal(r)
	return b
}

// Meta contains metadata for API responses
type Meta struct {
	// Pagination
	Page       int   `json:"page,omitempty"`
	Limit      int   `json:"limit,omitempty"`
	Total      int64 `json:"total,omitempty"`
	TotalPages int   `json:"total_pages,omitempty"`

	// List/Collection metadata
	Count  int `json:"count,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// OK creates a standardized success response
func OK(data interface{}) outcome.Response {
	return outcome.Response{
		ContentType: "application/json",
		StatusCode:  http.StatusOK,
		Data: APIResponse{
			Success: true,
			Data:    data,
		}.ToJSON(),
	}
}

// OKWithMessage creates a success response with a message
func OKWithMessage(data interface{}, message string) outcome.Response {
	return outcome.Response{
		StatusCode: http.StatusOK,
		Data: APIResponse{
			Success: true,
			Data:    data,
			Message: message,
		}.ToJSON(),
	}
}

// OKWithMeta creates a success response with metadata
func OKWithMeta(data interface{}, meta *Meta) outcome.Response {
	return outcome.Response{
		StatusCode: http.StatusOK,
		Data: APIResponse{
			Success: true,
			Data:    data,
			Meta:    meta,
		}.ToJSON(),
	}
}

// Created creates a 201 Created response
func Created(data interface{}) outcome.Response {
	return outcome.Response{
		StatusCode: http.StatusCreated,
		Data: APIResponse{
			Success: true,
			Data:    data,
		}.ToJSON(),
	}
}

// List creates a response for lists/collections with count
func List(data interface{}, count int) outcome.Response {
	return OKWithMeta(data, &Meta{Count: count})
}

// Message creates a response with only a success message
func Message(message string) outcome.Response {
	return outcome.Response{
		StatusCode: http.StatusOK,
		Data: APIResponse{
			Success: true,
			Message: message,
		}.ToJSON(),
	}
}

// BadRequest creates a 400 Bad Request response
func BadRequest(message string) outcome.Response {
	return Error(NewError(ErrorCodeInvalidInput, message, http.StatusBadRequest))
}

// NotFound creates a 404 Not Found response
func NotFound(message string) outcome.Response {
	return Error(NewError(ErrorCodeNotFound, message, http.StatusNotFound))
}

// InternalError creates a 500 Internal Server Error response
func InternalError(message string) outcome.Response {
	return Error(NewError(ErrorCodeInternalError, message, http.StatusInternalServerError))
}
