package domain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of engine failure
type ErrorCode string

const (
	ErrCodeInvalidState        ErrorCode = "INVALID_STATE"
	ErrCodeAlreadyExists       ErrorCode = "ALREADY_EXISTS"
	ErrCodeOutOfOrder          ErrorCode = "OUT_OF_ORDER"
	ErrCodeAlreadyTerminal     ErrorCode = "ALREADY_TERMINAL"
	ErrCodeNotScheduled        ErrorCode = "NOT_SCHEDULED"
	ErrCodeFinancingIncomplete ErrorCode = "FINANCING_INCOMPLETE"
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeAllStagesCompleted  ErrorCode = "ALL_STAGES_COMPLETED"
	ErrCodeInvalidInput        ErrorCode = "INVALID_INPUT"
)

// Error is a typed engine error carrying a human-readable reason
type Error struct {
	Code    ErrorCode
	Message string
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so callers can use the sentinels below
// with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons
var (
	ErrInvalidState        = &Error{Code: ErrCodeInvalidState, Message: "invalid state"}
	ErrAlreadyExists       = &Error{Code: ErrCodeAlreadyExists, Message: "already exists"}
	ErrOutOfOrder          = &Error{Code: ErrCodeOutOfOrder, Message: "stage completed out of order"}
	ErrAlreadyTerminal     = &Error{Code: ErrCodeAlreadyTerminal, Message: "already in a terminal state"}
	ErrNotScheduled        = &Error{Code: ErrCodeNotScheduled, Message: "title transfer is not scheduled"}
	ErrFinancingIncomplete = &Error{Code: ErrCodeFinancingIncomplete, Message: "financing is not completed"}
	ErrNotFound            = &Error{Code: ErrCodeNotFound, Message: "not found"}
	ErrAllStagesCompleted  = &Error{Code: ErrCodeAllStagesCompleted, Message: "all financing stages are completed"}
	ErrInvalidInput        = &Error{Code: ErrCodeInvalidInput, Message: "invalid input"}
)

// NewError creates an engine error with the given code and message
func NewError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown entity id
func NotFoundError(entity string, id fmt.Stringer) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: entity + " not found",
		Details: "id: " + id.String(),
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
