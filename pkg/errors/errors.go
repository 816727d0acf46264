package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrStorageUnavailable
	ErrInvalidEntry
	ErrInvalidTriggerDefinition
	ErrDeliveryRejected
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// StorageUnavailable marks a store read/write failure. Evaluation passes
// abort cleanly on it and retry on the next triggering event.
func StorageUnavailable(store string, err error) *AppError {
	return &AppError{
		Code:    ErrStorageUnavailable,
		Message: fmt.Sprintf("%s store unavailable", store),
		Err:     err,
	}
}

// InvalidEntry rejects a mood entry at the journal boundary.
func InvalidEntry(message string) *AppError {
	return &AppError{
		Code:    ErrInvalidEntry,
		Message: message,
	}
}

// InvalidTriggerDefinition marks a malformed catalog rule. The rule is
// excluded from evaluation; the rest of the catalog still runs.
func InvalidTriggerDefinition(triggerID string, err error) *AppError {
	return &AppError{
		Code:    ErrInvalidTriggerDefinition,
		Message: fmt.Sprintf("invalid trigger definition %s", triggerID),
		Err:     err,
	}
}

// DeliveryRejected marks a sink refusal. Recoverable: the notification
// stays unsent and is retried next pass.
func DeliveryRejected(reason string) *AppError {
	return &AppError{
		Code:    ErrDeliveryRejected,
		Message: fmt.Sprintf("delivery rejected: %s", reason),
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
