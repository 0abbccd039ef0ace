package domain

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error code. Callers branch on codes,
// never on message text.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeModelNotFound     Code = "MODEL_NOT_FOUND"
	CodeNotFound          Code = "NOT_FOUND"
	CodeAccessDenied      Code = "ACCESS_DENIED"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeNotDeletable      Code = "NOT_DELETABLE"
	CodeNotCancellable    Code = "NOT_CANCELLABLE"
	CodeDuplicateKey      Code = "DUPLICATE_KEY"
	CodeStorage           Code = "STORAGE_ERROR"
)

// Error is the service error type. Validation errors additionally carry a
// per-field detail map listing every failure, not just the first.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches on code so errors.Is(err, &Error{Code: ...}) works for callers
// holding sentinel values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapStorage marks err as a persistence-layer failure. The cause is kept
// for logs; callers see a generic internal error.
func WrapStorage(err error, op string) *Error {
	return &Error{Code: CodeStorage, Message: "storage operation failed: " + op, cause: err}
}

func NewValidationError(fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: "request validation failed", Fields: fields}
}

func NewInvalidTransition(from, to Status) *Error {
	return Errorf(CodeInvalidTransition, "cannot transition job from %q to %q", from, to)
}

// CodeOf extracts the service error code, or empty for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsCode(err error, code Code) bool { return CodeOf(err) == code }
