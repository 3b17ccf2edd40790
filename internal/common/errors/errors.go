// Package errors provides standardized error handling for the purchase API.
package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Local validation errors, resolved before any settlement call.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeItemNotFound     ErrorCode = "ITEM_NOT_FOUND"

	// App ticket errors, ticket-authenticated routes only.
	ErrCodeTicketInvalid   ErrorCode = "TICKET_INVALID"
	ErrCodeTicketWrongApp  ErrorCode = "TICKET_WRONG_APPLICATION"
	ErrCodeTicketExpired   ErrorCode = "TICKET_EXPIRED"
	ErrCodeTicketKeyUnset  ErrorCode = "TICKET_KEY_NOT_CONFIGURED"

	// Settlement API errors.
	ErrCodeCredentialRejected ErrorCode = "SETTLEMENT_CREDENTIAL_REJECTED"
	ErrCodeSettlementFailed   ErrorCode = "SETTLEMENT_FAILED"

	// Outbound transport errors (timeout, unreachable).
	ErrCodeTransportFailed ErrorCode = "TRANSPORT_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// FieldError is a single (field path, message) validation violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError represents a structured application error carried to the
// transport boundary. Details are only surfaced in development mode.
type APIError struct {
	Code      ErrorCode    `json:"code"`
	Message   string       `json:"message"`
	Details   string       `json:"details,omitempty"`
	Fields    []FieldError `json:"fields,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("APIError[%s]: %s", e.Code, e.Message)
}

// HTTPStatus maps an error code to the response status used by the API.
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeTicketInvalid, ErrCodeTicketWrongApp, ErrCodeTicketExpired:
		return http.StatusUnauthorized
	case ErrCodeCredentialRejected:
		return http.StatusForbidden
	case ErrCodeTicketKeyUnset, ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError wraps an ordered list of schema violations.
func NewValidationError(fields []FieldError) *APIError {
	return &APIError{
		Code:      ErrCodeValidationFailed,
		Message:   "Validation failed",
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}
}

// NewItemNotFoundError is returned when an itemId has no catalog entry.
func NewItemNotFoundError(itemID int64) *APIError {
	return &APIError{
		Code:      ErrCodeItemNotFound,
		Message:   "ItemId not found in the game database",
		Details:   fmt.Sprintf("itemId: %d", itemID),
		Timestamp: time.Now().UTC(),
	}
}

// NewTicketInvalidError covers undecodable or malformed app tickets.
func NewTicketInvalidError(details string) *APIError {
	return &APIError{
		Code:      ErrCodeTicketInvalid,
		Message:   "Invalid app ticket",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewTicketVerifyFailedError covers unexpected failures inside the ticket
// decoder, normalized so raw internals never reach the client.
func NewTicketVerifyFailedError(details string) *APIError {
	return &APIError{
		Code:      ErrCodeTicketInvalid,
		Message:   "Failed to validate app ticket",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewTicketWrongAppError is returned when the decoded ticket does not
// belong to the configured application.
func NewTicketWrongAppError(gotAppID, wantAppID uint32) *APIError {
	return &APIError{
		Code:      ErrCodeTicketWrongApp,
		Message:   "App ticket is for wrong application",
		Details:   fmt.Sprintf("ticket appId: %d, expected: %d", gotAppID, wantAppID),
		Timestamp: time.Now().UTC(),
	}
}

// NewTicketExpiredError is returned when the ticket issuance time is older
// than the configured maximum age.
func NewTicketExpiredError(age, maxAge time.Duration) *APIError {
	return &APIError{
		Code:      ErrCodeTicketExpired,
		Message:   "App ticket has expired",
		Details:   fmt.Sprintf("age: %s, max: %s", age, maxAge),
		Timestamp: time.Now().UTC(),
	}
}

// NewTicketKeyUnsetError signals a missing decryption key, a deployment
// misconfiguration rather than a client fault.
func NewTicketKeyUnsetError() *APIError {
	return &APIError{
		Code:      ErrCodeTicketKeyUnset,
		Message:   "Steam app decryption key not configured",
		Timestamp: time.Now().UTC(),
	}
}

// NewCredentialRejectedError is returned when the settlement API rejects
// the server credential (HTTP 403 from Steam).
func NewCredentialRejectedError() *APIError {
	return &APIError{
		Code:      ErrCodeCredentialRejected,
		Message:   "Invalid Steam WebKey",
		Timestamp: time.Now().UTC(),
	}
}

// NewSettlementError carries the settlement-provided diagnostic when one
// exists, otherwise a generic message.
func NewSettlementError(errordesc string) *APIError {
	msg := errordesc
	if msg == "" {
		msg = "Steam API returned unknown error"
	}
	return &APIError{
		Code:      ErrCodeSettlementFailed,
		Message:   msg,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportError covers timeouts and unreachable settlement endpoints.
// The raw cause goes into Details and is never shown in production.
func NewTransportError(err error) *APIError {
	return &APIError{
		Code:      ErrCodeTransportFailed,
		Message:   "Something went wrong",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Boundary Normalization
// ==========================

// Normalize ensures any error reaching the transport boundary is an
// APIError so handlers never leak raw internals.
func Normalize(err error) *APIError {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return &APIError{
		Code:      ErrCodeInternal,
		Message:   "Something went wrong",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// IsLocal reports whether the error was resolved without a settlement call.
func IsLocal(code ErrorCode) bool {
	switch code {
	case ErrCodeValidationFailed, ErrCodeItemNotFound,
		ErrCodeTicketInvalid, ErrCodeTicketWrongApp, ErrCodeTicketExpired,
		ErrCodeTicketKeyUnset:
		return true
	}
	return false
}
