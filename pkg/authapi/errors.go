// Package authapi holds the wire types of the ReeUtil authentication service.
// Other services (marketplace, repairs, recycling) consume these when they
// call the auth endpoints or sit behind the access control gate, so the
// package lives under pkg rather than internal.
package authapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/reeutil/reeutil/pkg/httpx"
)

// Error codes surfaced to clients. Codes are stable; messages are not.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidCaptcha    = "INVALID_CAPTCHA"
	CodeInvalidCredential = "INVALID_CREDENTIALS"
	CodeAccountBlocked    = "ACCOUNT_BLOCKED"
	CodePasswordExpired   = "PASSWORD_EXPIRED"
	CodeSessionNotFound   = "SESSION_NOT_FOUND"
	CodeCodeMismatch      = "CODE_MISMATCH"
	CodePasswordReused    = "PASSWORD_REUSED"
	CodeDuplicate         = "DUPLICATE_RESOURCE"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeDependencyFailure = "DEPENDENCY_FAILURE"
)

// Error is the structured error body every auth endpoint returns on failure.
// It implements the error interface so handlers and SDK callers can treat it
// uniformly.
type Error struct {
	// StatusCode is the HTTP status for this error. Not serialized.
	StatusCode int `json:"-"`

	// Code is the stable machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable description. Credential failures keep this
	// deliberately generic to prevent account enumeration.
	Message string `json:"message"`

	// BlockedAt is set only for ACCOUNT_BLOCKED responses.
	BlockedAt *time.Time `json:"blockedAt,omitempty"`

	// RemainingAttempts is set on failed customer logins before lockout.
	RemainingAttempts *int `json:"remainingAttempts,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WriteError writes this error to an HTTP response writer.
func (e *Error) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

// Predefined responses for the common failure shapes. Variants that carry
// per-request data (blocked-at, remaining attempts) are built with the
// constructors below instead.
var (
	ErrValidation = &Error{
		StatusCode: http.StatusBadRequest,
		Code:       CodeValidation,
		Message:    "the request is malformed or missing required fields",
	}

	ErrInvalidCaptcha = &Error{
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidCaptcha,
		Message:    "captcha verification failed",
	}

	// ErrInvalidCredentials is returned for unknown emails and for wrong
	// passwords alike; the message must not distinguish the two.
	ErrInvalidCredentials = &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       CodeInvalidCredential,
		Message:    "invalid email or password",
	}

	ErrPasswordExpired = &Error{
		StatusCode: http.StatusForbidden,
		Code:       CodePasswordExpired,
		Message:    "password has expired and must be reset",
	}

	ErrSessionNotFound = &Error{
		StatusCode: http.StatusBadRequest,
		Code:       CodeSessionNotFound,
		Message:    "login session not found or expired",
	}

	ErrCodeMismatch = &Error{
		StatusCode: http.StatusBadRequest,
		Code:       CodeCodeMismatch,
		Message:    "incorrect verification code",
	}

	ErrCodeNotFound = &Error{
		StatusCode: http.StatusBadRequest,
		Code:       CodeSessionNotFound,
		Message:    "code not found or expired",
	}

	ErrPasswordReused = &Error{
		StatusCode: http.StatusBadRequest,
		Code:       CodePasswordReused,
		Message:    "new password must differ from the last 3 passwords",
	}

	ErrDuplicate = &Error{
		StatusCode: http.StatusBadRequest,
		Code:       CodeDuplicate,
		Message:    "resource already exists",
	}

	ErrUnauthorized = &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       CodeUnauthorized,
		Message:    "authentication required",
	}

	ErrForbidden = &Error{
		StatusCode: http.StatusForbidden,
		Code:       CodeForbidden,
		Message:    "insufficient permissions",
	}

	ErrDependencyFailure = &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeDependencyFailure,
		Message:    "a downstream dependency failed",
	}
)

// NewAccountBlocked builds an ACCOUNT_BLOCKED error carrying the lockout
// timestamp when one is known.
func NewAccountBlocked(blockedAt *time.Time) *Error {
	return &Error{
		StatusCode: http.StatusForbidden,
		Code:       CodeAccountBlocked,
		Message:    "account is blocked after repeated failed login attempts",
		BlockedAt:  blockedAt,
	}
}

// NewInvalidCredentials builds a 401 that surfaces how many attempts remain
// before lockout.
func NewInvalidCredentials(remaining int) *Error {
	return &Error{
		StatusCode:        http.StatusUnauthorized,
		Code:              CodeInvalidCredential,
		Message:           "invalid email or password",
		RemainingAttempts: &remaining,
	}
}

// NewValidation builds a 400 with a field-specific message.
func NewValidation(message string) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       CodeValidation,
		Message:    message,
	}
}
