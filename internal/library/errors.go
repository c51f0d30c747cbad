package library

import (
	"errors"
	"fmt"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrBorrowNotFound  = errors.New("borrow record not found")
	ErrAlreadyReturned = errors.New("book already returned")

	// ErrTxConflict means the database aborted the transaction because of a
	// concurrent writer. Safe to retry; no effects were applied.
	ErrTxConflict = errors.New("transaction conflict")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Reason) }

// InsufficientStockError carries the current available count for display.
type InsufficientStockError struct {
	Available int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock, available: %d", e.Available)
}
