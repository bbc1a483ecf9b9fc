package domain

import (
	"errors"
	"fmt"
)

// Application error codes.
// Background jobs never surface these to users; they drive logging, metrics
// labels and the run summary.
const (
	ECONFLICT = "conflict"  // duplicate cycle, lost optimistic update
	EINTERNAL = "internal"  // storage or infrastructure failure
	EINVALID  = "invalid"   // malformed template
	ENOTFOUND = "not_found" // template or tenant vanished
)

// Error represents an application error with a code and message.
// It implements the error interface and supports error wrapping.
type Error struct {
	// Code is a machine-readable error code (e.g., EINVALID, ENOTFOUND).
	Code string

	// Message is a human-readable description of the failure.
	Message string

	// Op is the operation where the error occurred (e.g., "sequence.allocate").
	Op string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel *Error with the same code and message.
// This lets callers match wrapped instances against the package-level sentinels
// with errors.Is even when Op or Err were attached.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && e.Code == t.Code && e.Message == t.Message
}

// ErrorCode extracts the error code from an error.
// Returns "" for nil and EINTERNAL for non-domain errors.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return EINTERNAL
}

// ErrorOp extracts the operation from an error (for logging).
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}

	return ""
}

// Wrap attaches an operation and cause to a sentinel error, keeping its code and message.
// Example: domain.ErrAllocationFailed.Wrap("sequence.allocate", err)
func (e *Error) Wrap(op string, err error) error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Op:      op,
		Err:     err,
	}
}

// IsCode returns true if err has the given error code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// NotFound creates a not found error for a resource.
// Example: domain.NotFound("template.get", "template", id.String())
func NotFound(op, resource, identifier string) error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

// Invalid creates a validation error for a single issue.
func Invalid(op, message string) error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error (wraps underlying error).
func Internal(err error, op, message string) error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Recurring invoice errors.
var (
	ErrAllocationFailed   = &Error{Code: EINTERNAL, Message: "Failed to allocate invoice number"}
	ErrTemplateNotFound   = &Error{Code: ENOTFOUND, Message: "Recurring template not found"}
	ErrInvalidTemplate    = &Error{Code: EINVALID, Message: "Recurring template is invalid"}
	ErrInvalidInterval    = &Error{Code: EINVALID, Message: "Unknown recurring interval"}
	ErrDuplicateCycle     = &Error{Code: ECONFLICT, Message: "Invoice already generated for this cycle"}
	ErrAdvanceConflict    = &Error{Code: ECONFLICT, Message: "Template schedule changed during advancement"}
	ErrTenantEnumeration  = &Error{Code: EINTERNAL, Message: "Failed to enumerate tenants"}
	ErrGenerationPanicked = &Error{Code: EINTERNAL, Message: "Invoice generation panicked"}
)
