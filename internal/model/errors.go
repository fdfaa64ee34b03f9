package model

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine errors. Codes are stable and appear in
// journal outcomes and CLI JSON output.
type ErrorCode string

const (
	ErrCodeEmptyCart         ErrorCode = "EMPTY_CART"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodePersistence       ErrorCode = "PERSISTENCE"
	ErrCodeUnknownProduct    ErrorCode = "UNKNOWN_PRODUCT"
	ErrCodeInvalidArgument   ErrorCode = "INVALID_ARGUMENT"
)

// ErrUnknownProduct is returned by catalog lookups that miss.
var ErrUnknownProduct = errors.New("unknown product")

// ErrInvalidArgument marks malformed command input (e.g. quantity < 1).
var ErrInvalidArgument = errors.New("invalid argument")

// EmptyCartError is returned when checkout is attempted with no cart lines.
// No state is mutated.
type EmptyCartError struct{}

func (e *EmptyCartError) Error() string {
	return fmt.Sprintf("%s: cart has no lines to check out", ErrCodeEmptyCart)
}

// InvalidTransitionError is returned when an operation is not allowed from
// the order's current status. No state is mutated.
type InvalidTransitionError struct {
	OrderID int64
	From    OrderStatus
	Op      Op
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s order %d in status %s", ErrCodeInvalidTransition, e.Op, e.OrderID, e.From)
}

// PersistenceError reports a failed durable write. It is non-fatal: the
// in-memory state remains authoritative for the session.
type PersistenceError struct {
	Key string
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s %q: %v", ErrCodePersistence, e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsEmptyCart reports whether err is or wraps an EmptyCartError.
func IsEmptyCart(err error) bool {
	var ec *EmptyCartError
	return errors.As(err, &ec)
}

// IsInvalidTransition reports whether err is or wraps an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var it *InvalidTransitionError
	return errors.As(err, &it)
}

// IsPersistence reports whether err is or wraps a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// CodeOf returns the ErrorCode for err, or "" for nil and unrecognized errors.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case IsEmptyCart(err):
		return ErrCodeEmptyCart
	case IsInvalidTransition(err):
		return ErrCodeInvalidTransition
	case IsPersistence(err):
		return ErrCodePersistence
	case errors.Is(err, ErrUnknownProduct):
		return ErrCodeUnknownProduct
	case errors.Is(err, ErrInvalidArgument):
		return ErrCodeInvalidArgument
	}
	return ""
}
