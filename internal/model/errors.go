package model

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound  ErrorCode = "NOT_FOUND"
	ErrCodeInvalid   ErrorCode = "INVALID"
	ErrCodeConflict  ErrorCode = "CONFLICT"
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
	ErrCodeInternal  ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Common domain errors.
var (
	ErrUserNotFound      = NewError(ErrCodeNotFound, "user not found")
	ErrDeskNotFound      = NewError(ErrCodeNotFound, "desk not found")
	ErrCategoryNotFound  = NewError(ErrCodeNotFound, "category not found")
	ErrTaskNotFound      = NewError(ErrCodeNotFound, "task not found")
	ErrTemplateNotFound  = NewError(ErrCodeNotFound, "schedule template not found")
	ErrTriggerNotFound   = NewError(ErrCodeNotFound, "trigger not found")
	ErrShareNotFound     = NewError(ErrCodeNotFound, "share not found")
	ErrJobNotFound       = NewError(ErrCodeNotFound, "job not found")
	ErrForbidden         = NewError(ErrCodeForbidden, "forbidden")
	ErrDuplicateTrigger  = NewError(ErrCodeConflict, "trigger already exists on template")
	ErrOwnerPermission   = NewError(ErrCodeForbidden, "owner permission cannot be changed")
	ErrInvalidPermission = NewError(ErrCodeInvalid, "permission must be view or admin")
)

// Invalid builds a validation error.
func Invalid(message string) *Error {
	return NewError(ErrCodeInvalid, message)
}

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
