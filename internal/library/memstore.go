package library

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store with the same transaction contract as
// LoanRepo: one mutex around each operation stands in for the row locks.
// Used in tests and for running the API without Postgres (STORE=memory).
type MemStore struct {
	mu      sync.Mutex
	books   map[string]*Book
	borrows map[string]*BorrowRecord
}

func NewMemStore() *MemStore {
	return &MemStore{
		books:   make(map[string]*Book),
		borrows: make(map[string]*BorrowRecord),
	}
}

// PutBook seeds or replaces a book.
func (s *MemStore) PutBook(b Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := b
	s.books[b.ID] = &cp
}

func (s *MemStore) GetBook(id string) (Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return Book{}, false
	}
	return *b, true
}

func (s *MemStore) DeleteBook(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.books, id)
}

func (s *MemStore) Borrow(_ context.Context, p BorrowParams) (*BorrowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[p.BookID]
	if !ok {
		return nil, ErrBookNotFound
	}
	if book.AvailableStock < p.Qty {
		return nil, InsufficientStockError{Available: book.AvailableStock}
	}

	book.AvailableStock -= p.Qty
	rec := &BorrowRecord{
		ID:           p.ID,
		BookID:       p.BookID,
		BookTitle:    book.Title,
		BookISBN:     book.ISBN,
		BorrowerName: p.BorrowerName,
		Qty:          p.Qty,
		BorrowDate:   p.BorrowDate,
		DueDate:      p.DueDate,
		Status:       StatusBorrowed,
	}
	s.borrows[rec.ID] = rec
	cp := *rec
	return &cp, nil
}

func (s *MemStore) Return(_ context.Context, borrowID, bookID string, at time.Time) (*BorrowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.borrows[borrowID]
	if !ok {
		return nil, ErrBorrowNotFound
	}
	if rec.Status == StatusReturned {
		return nil, ErrAlreadyReturned
	}
	book, ok := s.books[bookID]
	if !ok {
		return nil, ErrBookNotFound
	}

	rec.Status = StatusReturned
	ret := at
	rec.ReturnDate = &ret
	book.AvailableStock += rec.Qty

	cp := *rec
	return &cp, nil
}

func (s *MemStore) ListBorrows(_ context.Context, borrowerName string) ([]BorrowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []BorrowRecord
	for _, rec := range s.borrows {
		if borrowerName != "" && rec.BorrowerName != borrowerName {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BorrowDate.Equal(out[j].BorrowDate) {
			return out[i].BorrowDate.After(out[j].BorrowDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemStore) MarkOverdue(_ context.Context, now time.Time) ([]BorrowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []BorrowRecord
	for _, rec := range s.borrows {
		if rec.Status == StatusBorrowed && rec.DueDate.Before(now) {
			rec.Status = StatusOverdue
			out = append(out, *rec)
		}
	}
	return out, nil
}
