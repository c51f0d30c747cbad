package library

import (
	"context"
	"time"
)

// BorrowParams is everything the store needs to record a loan. The title/isbn
// snapshot is taken by the store inside the same transaction that checks stock.
type BorrowParams struct {
	ID           string
	BookID       string
	BorrowerName string
	Qty          int
	BorrowDate   time.Time
	DueDate      time.Time
}

// Store is the transactional contract the loan operations run against.
// Every mutating method is atomic: either all of its reads and writes take
// effect or none do, and concurrent calls touching the same book serialize.
// Implemented by LoanRepo (Postgres, FOR UPDATE row locks) and MemStore
// (in-memory, mutex) — the service never cares which.
type Store interface {
	// Borrow locks the book, checks available stock, decrements it and
	// inserts the record. Fails with ErrBookNotFound, InsufficientStockError
	// or ErrTxConflict; on failure nothing is written.
	Borrow(ctx context.Context, p BorrowParams) (*BorrowRecord, error)

	// Return marks the record returned at `at` and gives the stock back.
	// Fails with ErrBorrowNotFound, ErrAlreadyReturned, ErrBookNotFound
	// or ErrTxConflict.
	Return(ctx context.Context, borrowID, bookID string, at time.Time) (*BorrowRecord, error)

	// ListBorrows returns records newest borrow_date first, optionally
	// filtered to one borrower (exact match). Empty borrower = all.
	ListBorrows(ctx context.Context, borrowerName string) ([]BorrowRecord, error)

	// MarkOverdue flips open loans past their due date to overdue and
	// returns the affected records.
	MarkOverdue(ctx context.Context, now time.Time) ([]BorrowRecord, error)
}
