// Package apperr carries the error kinds the commerce core distinguishes.
// Handlers map a kind to an HTTP status; everything else wraps and re-returns.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindNotFound          Kind = "not_found"
	KindOutOfStock        Kind = "out_of_stock"
	KindInsufficientStock Kind = "insufficient_stock"
	KindEmptyCart         Kind = "empty_cart"
	KindInternal          Kind = "server_error"
)

// Error is the one error type crossing package boundaries. Field is set for
// validation errors, Available for stock errors where the amount is known.
type Error struct {
	Kind      Kind
	Message   string
	Field     string
	Available int
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(field string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: fmt.Sprintf("%s is required", field),
		Field:   field,
	}
}

func Validationf(field, format string, args ...any) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func OutOfStock(title string) *Error {
	return &Error{Kind: KindOutOfStock, Message: fmt.Sprintf("product %s is out of stock", title)}
}

func InsufficientStock(title string, available int) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("only %d of %s available", available, title),
		Available: available,
	}
}

func EmptyCart() *Error {
	return &Error{Kind: KindEmptyCart, Message: "cart is empty"}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf reports the kind of err, or KindInternal for anything untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
