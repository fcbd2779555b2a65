package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Error kinds. Services return *Error values whose Kind is one of these, so
// callers match with errors.Is(err, apierror.ErrNotFound) and friends.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
	ErrPersistence       = errors.New("persistence error")
)

// Error is a classified service error.
type Error struct {
	Kind    error
	Message string

	// Stock context, set for ErrInsufficientStock and stock-related ErrConflict.
	ProductID uuid.UUID
	Requested int
	Available int

	// Fields holds per-field messages for ErrValidation.
	Fields map[string]string

	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func Validation(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// ValidationFields reports several malformed fields at once.
func ValidationFields(msg string, fields map[string]string) *Error {
	return &Error{Kind: ErrValidation, Message: msg, Fields: fields}
}

func NotFound(entity string, id uuid.UUID) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

func InsufficientStock(productID uuid.UUID, name string, requested, available int) *Error {
	return &Error{
		Kind:      ErrInsufficientStock,
		Message:   fmt.Sprintf("insufficient quantity for %s: available %d, requested %d", name, available, requested),
		ProductID: productID,
		Requested: requested,
		Available: available,
	}
}

func Conflict(msg string) *Error {
	return &Error{Kind: ErrConflict, Message: msg}
}

// StockConflict reports a guarded stock update that lost a race after validation passed.
func StockConflict(productID uuid.UUID, requested int) *Error {
	return &Error{
		Kind:      ErrConflict,
		Message:   fmt.Sprintf("concurrent modification of product %s", productID),
		ProductID: productID,
		Requested: requested,
	}
}

// Persistence wraps a storage failure. The cause is logged, never sent to clients.
func Persistence(op string, cause error) *Error {
	return &Error{Kind: ErrPersistence, Message: op, Cause: cause}
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
