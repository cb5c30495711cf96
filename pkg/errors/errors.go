package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// AppError represents a normalized client-side error
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"status,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Data    json.RawMessage   `json:"-"`
	Err     error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Fields) > 0 {
		msg += " (" + e.fieldSummary() + ")"
	}
	return msg
}

// Unwrap exposes the underlying cause
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *AppError) fieldSummary() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return strings.Join(parts, "; ")
}

// Error codes
const (
	ErrCodeInvalidToken        = "INVALID_TOKEN"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeServerError         = "SERVER_ERROR"
	ErrCodeNetworkError        = "NETWORK_ERROR"
	ErrCodeNetworkRefreshError = "NETWORK_REFRESH_ERROR"
)

// User-facing messages
const (
	MsgInvalidCredentials = "Invalid username or password"
	MsgServerError        = "Something went wrong. Please try again later"
	MsgNetworkError       = "Unable to connect to server"
	MsgUnauthorized       = "You are not authorized to perform this action"
	MsgFormValidation     = "Please fill in all required fields correctly"
	MsgNotFound           = "Resource not found"
	MsgPayloadTooLarge    = "File size too large"
	MsgInvalidToken       = "Invalid token"
	MsgSessionExpired     = "Session expired, please log in again"
)

// NewAppError creates a new application error
func NewAppError(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// Sentinels for errors.Is matching
var (
	ErrInvalidToken     = NewAppError(ErrCodeInvalidToken, MsgInvalidToken, 0)
	ErrUnauthorized     = NewAppError(ErrCodeUnauthorized, MsgUnauthorized, http.StatusUnauthorized)
	ErrForbidden        = NewAppError(ErrCodeForbidden, MsgUnauthorized, http.StatusForbidden)
	ErrNotFound         = NewAppError(ErrCodeNotFound, MsgNotFound, http.StatusNotFound)
	ErrPayloadTooLarge  = NewAppError(ErrCodePayloadTooLarge, MsgPayloadTooLarge, http.StatusRequestEntityTooLarge)
	ErrValidationFailed = NewAppError(ErrCodeValidationFailed, MsgFormValidation, http.StatusUnprocessableEntity)
	ErrServer           = NewAppError(ErrCodeServerError, MsgServerError, http.StatusInternalServerError)
	ErrNetwork          = NewAppError(ErrCodeNetworkError, MsgNetworkError, 0)
	ErrNetworkRefresh   = NewAppError(ErrCodeNetworkRefreshError, MsgSessionExpired, 0)
)

// InvalidToken wraps a claims decoding failure
func InvalidToken(err error) *AppError {
	return &AppError{Code: ErrCodeInvalidToken, Message: MsgInvalidToken, Err: err}
}

// Unauthorized builds the error surfaced after a failed refresh
func Unauthorized(cause error) *AppError {
	return &AppError{Code: ErrCodeUnauthorized, Message: MsgUnauthorized, Status: http.StatusUnauthorized, Err: cause}
}

// Network wraps a transport failure where no response was received
func Network(err error) *AppError {
	return &AppError{Code: ErrCodeNetworkError, Message: MsgNetworkError, Err: err}
}

// NetworkRefresh wraps a failure of the refresh endpoint itself
func NetworkRefresh(err error) *AppError {
	return &AppError{Code: ErrCodeNetworkRefreshError, Message: MsgSessionExpired, Err: err}
}

// Validation builds a client-side validation failure (no request was sent)
func Validation(fields map[string]string) *AppError {
	return &AppError{Code: ErrCodeValidationFailed, Message: MsgFormValidation, Fields: fields}
}

// FromStatus maps a non-2xx response to an AppError. It is pure: the same
// status and body always yield the same error.
//
//	403 -> FORBIDDEN, 404 -> NOT_FOUND, 413 -> PAYLOAD_TOO_LARGE,
//	422 -> VALIDATION_FAILED (with fields), 401 -> UNAUTHORIZED,
//	anything else -> SERVER_ERROR
func FromStatus(status int, body []byte) *AppError {
	detail, fields := parseBody(body)

	var e *AppError
	switch status {
	case http.StatusUnauthorized:
		e = &AppError{Code: ErrCodeUnauthorized, Message: MsgUnauthorized}
	case http.StatusForbidden:
		e = &AppError{Code: ErrCodeForbidden, Message: MsgUnauthorized}
	case http.StatusNotFound:
		e = &AppError{Code: ErrCodeNotFound, Message: MsgNotFound}
	case http.StatusRequestEntityTooLarge:
		e = &AppError{Code: ErrCodePayloadTooLarge, Message: MsgPayloadTooLarge}
	case http.StatusUnprocessableEntity:
		e = &AppError{Code: ErrCodeValidationFailed, Message: firstNonEmpty(detail, MsgFormValidation), Fields: fields}
	default:
		e = &AppError{Code: ErrCodeServerError, Message: firstNonEmpty(detail, MsgServerError)}
	}

	e.Status = status
	if len(body) > 0 && json.Valid(body) {
		e.Data = json.RawMessage(body)
	}
	return e
}

// parseBody extracts a string detail and a field->message map from a
// DRF-style error body. detail may be a string, an object of field errors,
// or absent with field errors at the top level.
func parseBody(body []byte) (string, map[string]string) {
	if len(body) == 0 {
		return "", nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", nil
	}

	if d, ok := raw["detail"]; ok {
		var s string
		if err := json.Unmarshal(d, &s); err == nil {
			return s, nil
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(d, &obj); err == nil {
			return "", flattenFields(obj)
		}
		return "", nil
	}

	delete(raw, "error")
	return "", flattenFields(raw)
}

func flattenFields(obj map[string]json.RawMessage) map[string]string {
	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		if msg := fieldMessage(v); msg != "" {
			fields[k] = msg
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func fieldMessage(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(v, &list); err == nil {
		return strings.Join(list, " ")
	}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(v, &nested); err == nil {
		parts := make([]string, 0, len(nested))
		for k, nv := range nested {
			if m := fieldMessage(nv); m != "" {
				parts = append(parts, k+": "+m)
			}
		}
		sort.Strings(parts)
		return strings.Join(parts, "; ")
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// As is a convenience wrapper returning the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
