package library_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/danisworo/libadmin/internal/library"
)

// For any sequence of borrows and returns:
// available = total - damaged - sum(qty of open records).
func TestStockInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(0, 20).Draw(t, "total")
		damaged := rapid.IntRange(0, total).Draw(t, "damaged")

		store := library.NewMemStore()
		store.PutBook(library.Book{
			ID:             "b1",
			Title:          "invariant",
			TotalStock:     total,
			DamagedStock:   damaged,
			AvailableStock: total - damaged,
		})

		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		svc := &library.Service{Store: store, Now: func() time.Time { return now }}

		var open []library.BorrowRecord

		checkInvariant := func(t *rapid.T) {
			book, ok := store.GetBook("b1")
			if !ok {
				t.Fatal("book vanished")
			}
			hist, err := store.ListBorrows(context.Background(), "")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			outstanding := 0
			for _, rec := range hist {
				if rec.Status.Open() {
					outstanding += rec.Qty
				}
			}
			if got, want := book.AvailableStock, total-damaged-outstanding; got != want {
				t.Fatalf("available=%d, want %d (total=%d damaged=%d outstanding=%d)",
					got, want, total, damaged, outstanding)
			}
			if book.AvailableStock < 0 {
				t.Fatalf("available went negative: %d", book.AvailableStock)
			}
		}

		t.Repeat(map[string]func(*rapid.T){
			"borrow": func(t *rapid.T) {
				qty := rapid.IntRange(1, 6).Draw(t, "qty")
				rec, err := svc.Borrow(context.Background(), library.BorrowRequest{
					BorrowerName: "prop", BookID: "b1", Qty: qty,
				})
				now = now.Add(time.Minute)
				if err != nil {
					var ise library.InsufficientStockError
					if !errors.As(err, &ise) {
						t.Fatalf("borrow: %v", err)
					}
					return
				}
				open = append(open, *rec)
			},
			"return": func(t *rapid.T) {
				if len(open) == 0 {
					t.Skip("nothing borrowed")
				}
				i := rapid.IntRange(0, len(open)-1).Draw(t, "i")
				rec := open[i]
				if _, err := svc.Return(context.Background(), rec.ID, rec.BookID); err != nil {
					t.Fatalf("return: %v", err)
				}
				open = append(open[:i], open[i+1:]...)
			},
			"returnAgain": func(t *rapid.T) {
				// a double return must be rejected and change nothing
				hist, err := store.ListBorrows(context.Background(), "")
				if err != nil {
					t.Fatalf("list: %v", err)
				}
				for _, rec := range hist {
					if rec.Status == library.StatusReturned {
						if _, err := svc.Return(context.Background(), rec.ID, rec.BookID); !errors.Is(err, library.ErrAlreadyReturned) {
							t.Fatalf("double return: got %v", err)
						}
						return
					}
				}
				t.Skip("nothing returned yet")
			},
			"sweep": func(t *rapid.T) {
				// marking overdue must not move stock
				if _, err := store.MarkOverdue(context.Background(), now.Add(15*24*time.Hour)); err != nil {
					t.Fatalf("sweep: %v", err)
				}
			},
			"": checkInvariant,
		})
	})
}
