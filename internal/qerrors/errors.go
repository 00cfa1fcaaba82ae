// Package qerrors defines the tagged error kinds raised by the query engine
// and its supporting packages: invalid queries, cell type mismatches,
// disabled capabilities, and broken invariants.
package qerrors

import (
	"errors"
	"fmt"
)

// Kind tags the category of a query engine error.
type Kind int

const (
	// InvalidQuery marks a parse or validation failure: an unknown column,
	// a type mismatch inside an expression, an illegal aggregation
	// placement, and so on. Raised before execution, except for a MATCHES
	// pattern that does not compile, which is reported while filtering.
	InvalidQuery Kind = iota
	// TypeMismatch marks a DataTable mutation with a cell whose type does
	// not match its column.
	TypeMismatch
	// NotSupported marks a feature disabled by declared engine capabilities.
	NotSupported
	// InternalError marks a broken invariant that should never occur in
	// production.
	InternalError
)

func (k Kind) String() string {
	switch k {
	case InvalidQuery:
		return "INVALID_QUERY"
	case TypeMismatch:
		return "TYPE_MISMATCH"
	case NotSupported:
		return "NOT_SUPPORTED"
	case InternalError:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Error is the tagged error type returned by every public engine operation.
// Clause and Column are best-effort context for INVALID_QUERY errors and may
// be empty.
type Error struct {
	Kind    Kind
	Clause  string
	Column  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Clause != "" {
		msg = fmt.Sprintf("%s (clause=%s)", msg, e.Clause)
	}
	if e.Column != "" {
		msg = fmt.Sprintf("%s (column=%s)", msg, e.Column)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a *Error with the same Kind, so that
// errors.Is(err, qerrors.InvalidQuery) style checks work via a sentinel
// built from New(kind, "").
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New builds a bare *Error of the given kind, primarily useful as an
// errors.Is sentinel: errors.Is(err, qerrors.New(qerrors.InvalidQuery, "")).
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// InvalidQueryf builds an INVALID_QUERY error, optionally tagging the
// offending clause and column.
func InvalidQueryf(clause, column, format string, args ...any) *Error {
	return &Error{Kind: InvalidQuery, Clause: clause, Column: column, Message: fmt.Sprintf(format, args...)}
}

// WrapInvalidQuery wraps cause as an INVALID_QUERY error.
func WrapInvalidQuery(clause, column string, cause error) *Error {
	return &Error{Kind: InvalidQuery, Clause: clause, Column: column, Message: "invalid query", Cause: cause}
}

// TypeMismatchf builds a TYPE_MISMATCH error.
func TypeMismatchf(column, format string, args ...any) *Error {
	return &Error{Kind: TypeMismatch, Column: column, Message: fmt.Sprintf(format, args...)}
}

// NotSupportedf builds a NOT_SUPPORTED error.
func NotSupportedf(clause, format string, args ...any) *Error {
	return &Error{Kind: NotSupported, Clause: clause, Message: fmt.Sprintf(format, args...)}
}

// Internalf builds an INTERNAL_ERROR error for a broken invariant.
func Internalf(format string, args ...any) *Error {
	return &Error{Kind: InternalError, Message: fmt.Sprintf(format, args...)}
}

// WrapInternal wraps cause as an INTERNAL_ERROR error.
func WrapInternal(cause error, format string, args ...any) *Error {
	return &Error{Kind: InternalError, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, and
// reports ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
