package service

import (
	"errors"
	"fmt"
)

// Error kinds that cross the service boundary. Cache and catalog failures
// never surface; they are logged and absorbed.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("durable store failure")
)

var (
	ErrMissingUserID    = &kindError{kind: ErrValidation, msg: "user id is required"}
	ErrMissingProductID = &kindError{kind: ErrValidation, msg: "product id is required"}
	ErrInvalidQuantity  = &kindError{kind: ErrValidation, msg: "quantity must be greater than 0"}
	ErrQuantityTooLarge = &kindError{kind: ErrValidation, msg: "quantity must not exceed 2147483647"}
	ErrUserIDTooLong    = &kindError{kind: ErrValidation, msg: "user id must be at most 64 characters"}
	ErrProductIDTooLong = &kindError{kind: ErrValidation, msg: "product id must be at most 64 characters"}
	ErrCartNotFound     = &kindError{kind: ErrNotFound, msg: "cart not found"}
	ErrLineNotFound     = &kindError{kind: ErrNotFound, msg: "product not found in cart"}
)

// Kinds returned by ErrorKind.
const (
	KindInvalid  = "invalid"
	KindNotFound = "not_found"
	KindInternal = "internal"
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// ErrorKind classifies err for transports. Unknown errors are internal.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindInvalid
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

var errNegativePrice = errors.New("catalog returned a negative price")
