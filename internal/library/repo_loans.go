package library

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LoanRepo implements Store on Postgres. Concurrency strategy is pessimistic:
// SELECT ... FOR UPDATE on the book row, so two borrows on the same book can
// never both pass the stock check on stale data.
type LoanRepo struct{ DB *pgxpool.Pool }

var dialect = goqu.Dialect("postgres")

// asTxConflict maps serialization_failure / deadlock_detected onto the
// sentinel so callers can decide to retry.
func asTxConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return ErrTxConflict
	}
	return err
}

func (r *LoanRepo) Borrow(ctx context.Context, p BorrowParams) (*BorrowRecord, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, asTxConflict(err)
	}
	defer tx.Rollback(ctx)

	// Lock the book row; the snapshot fields are read under the same lock.
	var title, isbn string
	var available int
	err = tx.QueryRow(ctx, `
		SELECT title, isbn, available_stock
		FROM books WHERE id=$1
		FOR UPDATE`, p.BookID).Scan(&title, &isbn, &available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, asTxConflict(err)
	}

	if available < p.Qty {
		return nil, InsufficientStockError{Available: available} // rollback via defer
	}

	if _, err := tx.Exec(ctx, `
		UPDATE books SET available_stock = available_stock - $2
		WHERE id=$1`, p.BookID, p.Qty); err != nil {
		return nil, asTxConflict(err)
	}

	rec := &BorrowRecord{
		ID:           p.ID,
		BookID:       p.BookID,
		BookTitle:    title,
		BookISBN:     isbn,
		BorrowerName: p.BorrowerName,
		Qty:          p.Qty,
		BorrowDate:   p.BorrowDate,
		DueDate:      p.DueDate,
		Status:       StatusBorrowed,
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO borrows(id, book_id, book_title, book_isbn, borrower_name, qty,
		                    borrow_date, due_date, return_date, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULL,$9)`,
		rec.ID, rec.BookID, rec.BookTitle, rec.BookISBN, rec.BorrowerName, rec.Qty,
		rec.BorrowDate, rec.DueDate, rec.Status,
	); err != nil {
		return nil, asTxConflict(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, asTxConflict(err)
	}
	return rec, nil
}

func (r *LoanRepo) Return(ctx context.Context, borrowID, bookID string, at time.Time) (*BorrowRecord, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, asTxConflict(err)
	}
	defer tx.Rollback(ctx)

	rec := &BorrowRecord{ID: borrowID}
	var status string
	err = tx.QueryRow(ctx, `
		SELECT book_id, book_title, book_isbn, borrower_name, qty, borrow_date, due_date, status
		FROM borrows WHERE id=$1
		FOR UPDATE`, borrowID).Scan(
		&rec.BookID, &rec.BookTitle, &rec.BookISBN, &rec.BorrowerName,
		&rec.Qty, &rec.BorrowDate, &rec.DueDate, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBorrowNotFound
		}
		return nil, asTxConflict(err)
	}
	if BorrowStatus(status) == StatusReturned {
		return nil, ErrAlreadyReturned
	}

	// The book must still exist to take the stock back. A deleted book makes
	// the return impossible; that gap is deliberate.
	var available int
	err = tx.QueryRow(ctx, `
		SELECT available_stock FROM books WHERE id=$1
		FOR UPDATE`, bookID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, asTxConflict(err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE borrows SET status=$2, return_date=$3
		WHERE id=$1`, borrowID, StatusReturned, at); err != nil {
		return nil, asTxConflict(err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE books SET available_stock = available_stock + $2
		WHERE id=$1`, bookID, rec.Qty); err != nil {
		return nil, asTxConflict(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, asTxConflict(err)
	}
	rec.Status = StatusReturned
	rec.ReturnDate = &at
	return rec, nil
}

func (r *LoanRepo) ListBorrows(ctx context.Context, borrowerName string) ([]BorrowRecord, error) {
	ds := dialect.From("borrows").
		Select("id", "book_id", "book_title", "book_isbn", "borrower_name",
			"qty", "borrow_date", "due_date", "return_date", "status").
		Order(goqu.I("borrow_date").Desc())
	if borrowerName != "" {
		ds = ds.Where(goqu.C("borrower_name").Eq(borrowerName))
	}
	sqlStr, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BorrowRecord
	for rows.Next() {
		var rec BorrowRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.BookID, &rec.BookTitle, &rec.BookISBN,
			&rec.BorrowerName, &rec.Qty, &rec.BorrowDate, &rec.DueDate,
			&rec.ReturnDate, &status); err != nil {
			return nil, err
		}
		rec.Status = BorrowStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *LoanRepo) MarkOverdue(ctx context.Context, now time.Time) ([]BorrowRecord, error) {
	rows, err := r.DB.Query(ctx, `
		UPDATE borrows SET status=$1
		WHERE status=$2 AND due_date < $3
		RETURNING id, book_id, book_title, book_isbn, borrower_name, qty,
		          borrow_date, due_date, return_date, status`,
		StatusOverdue, StatusBorrowed, now)
	if err != nil {
		return nil, asTxConflict(err)
	}
	defer rows.Close()

	var out []BorrowRecord
	for rows.Next() {
		var rec BorrowRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.BookID, &rec.BookTitle, &rec.BookISBN,
			&rec.BorrowerName, &rec.Qty, &rec.BorrowDate, &rec.DueDate,
			&rec.ReturnDate, &status); err != nil {
			return nil, err
		}
		rec.Status = BorrowStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}
