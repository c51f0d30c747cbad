package library_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danisworo/libadmin/internal/library"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return t0 }

type publisherSpy struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (p *publisherSpy) Publish(key, value []byte, headers ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, value)
}

func (p *publisherSpy) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

// countingStore wraps a Store and counts calls, to prove validation failures
// never reach the store.
type countingStore struct {
	library.Store
	calls int
}

func (c *countingStore) Borrow(ctx context.Context, p library.BorrowParams) (*library.BorrowRecord, error) {
	c.calls++
	return c.Store.Borrow(ctx, p)
}

func seedBook(store *library.MemStore, id string, available int) {
	store.PutBook(library.Book{
		ID:             id,
		Title:          "The Go Programming Language",
		ISBN:           "978-0134190440",
		TotalStock:     available,
		AvailableStock: available,
	})
}

func newService(store library.Store) *library.Service {
	return &library.Service{Store: store, ServiceName: "test", Now: fixedNow}
}

func TestBorrow_Success_DecrementsStockAndCreatesRecord(t *testing.T) {
	store := library.NewMemStore()
	seedBook(store, "b1", 5)
	svc := newService(store)

	rec, err := svc.Borrow(context.Background(), library.BorrowRequest{
		BorrowerName: "Alice", BookID: "b1", Qty: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, rec.Qty)
	assert.Equal(t, library.StatusBorrowed, rec.Status)
	assert.Equal(t, "Alice", rec.BorrowerName)
	assert.Equal(t, t0, rec.BorrowDate)
	assert.Nil(t, rec.ReturnDate)

	book, ok := store.GetBook("b1")
	require.True(t, ok)
	assert.Equal(t, 2, book.AvailableStock)
}

func TestBorrow_SnapshotsTitleAndISBN(t *testing.T) {
	store := library.NewMemStore()
	seedBook(store, "b1", 5)
	svc := newService(store)

	rec, err := svc.Borrow(context.Background(), library.BorrowRequest{
		BorrowerName: "Alice", BookID: "b1", Qty: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "The Go Programming Language", rec.BookTitle)
	assert.Equal(t, "978-0134190440", rec.BookISBN)

	// later edits to the book must not touch the record
	book, _ := store.GetBook("b1")
	book.Title = "renamed"
	store.PutBook(book)

	hist, err := svc.History(context.Background(), "Alice")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "The Go Programming Language", hist[0].BookTitle)
}

func TestBorrow_DefaultDueDateIsTwoWeeks(t *testing.T) {
	store := library.NewMemStore()
	seedBook(store, "b1", 1)
	svc := newService(store)

	rec, err := svc.Borrow(context.Background(), library.BorrowRequest{
		BorrowerName: "Alice", BookID: "b1", Qty: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, t0.Add(14*24*time.Hour), rec.DueDate)
}

func TestBorrow_CustomDueDateWins(t *testing.T) {
	store := library.NewMemStore()
	seedBook(store, "b1", 1)
	svc := newService(store)

	due := t0.Add(3 * 24 * time.Hour)
	rec, err := svc.Borrow(context.Background(), library.BorrowRequest{
		BorrowerName: "Alice", BookID: "b1", Qty: 1, DueDate: &due,
	})
	require.NoError(t, err)
	assert.Equal(t, due, rec.DueDate)
}

func TestBorrow_ValidationFailsBeforeStoreAccess(t *testing.T) {
	store := &countingStore{Store: library.NewMemStore()}
	svc := newService(store)

	cases := []library.BorrowRequest{
		{BorrowerName: "", BookID: "b1", Qty: 1},
		{BorrowerName: "Alice", BookID: "b1", Qty: 0},
		{BorrowerName: "Alice", BookID: "b1", Qty: -2},
		{BorrowerName: "Alice", BookID: "", Qty: 1},
	}
	for _, req := range cases {
		_, err := svc.Borrow(context.Background(), req)
		var ve library.ValidationError
		assert.ErrorAs(t, err, &ve, "req %+v", req)
	}
	assert.Equal(t, 0, store.calls)
}

func TestBorrow_InsufficientStock_NoStateChange(t *testing.T) {
	store := library.NewMemStore()
	seedBook(store, "b1", 2)
	svc := newService(store)

	_, err := svc.Borrow(context.Background(), library.BorrowRequest{
		BorrowerName: "Bob", BookID: "b1", Qty: 5,
	})
	var ise library.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 2, ise.Available)

	// no record created, stock untouched
	book, _ := store.GetBook("b1")
	assert.Equal(t, 2, book.AvailableStock)
	hist, err := svc.History(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestBorrow_UnknownBook(t *testing.T) {
	svc := newService(library.NewMemStore())
	_, err := svc.Borrow(context.Background(), library.BorrowRequest{
		BorrowerName: "Alice", BookID: "nope", Qty: 1,
	})
	assert.ErrorIs(t, err, library.ErrBookNotFound)
}

func TestReturn_RestoresStockOnce(t *testing.T) {
	store := library.NewMemStore()
	seedBook(store, "b1", 5)
	svc := newService(store)

	rec, err := svc.Borrow(context.Background(), library.BorrowRequest{
		BorrowerName: "Alice", BookID: "b1", Qty: 3,
	})
	require.NoError(t, err)
	book, _ := store.GetBook("b1")
	require.Equal(t, 2, book.AvailableStock)

	ret, err := svc.Return(context.Background(), rec.ID, "b1")
	require.NoError(t, err)
	assert.Equal(t, library.StatusReturned, ret.Status)
	require.NotNil(t, ret.ReturnDate)
	assert.Equal(t, t0, *ret.ReturnDate)

	book, _ = store.GetBook("b1")
	assert.Equal(t, 5, book.AvailableStock)

	// second return fails and stock stays put
	_, err = svc.Return(context.Background(), rec.ID, "b1")
	assert.ErrorIs(t, err, library.ErrAlreadyReturned)
	book, _ = store.GetBook("b1")
	assert.Equal(t, 5, book.AvailableStock)
}

func TestReturn_UnknownRecordAndDeletedBook(t *testing.T) {
	store := library.NewMemStore()
	seedBook(store, "b1", 1)
	svc := newService(store)

	_, err := svc.Return(context.Background(), "nope", "b1")
	assert.ErrorIs(t, err, library.ErrBorrowNotFound)

	rec, err := svc.Borrow(context.Background(), library.BorrowRequest{
		BorrowerName: "Alice", BookID: "b1", Qty: 1,
	})
	require.NoError(t, err)

	// deleting the book makes the return impossible
	store.DeleteBook("b1")
	_, err = svc.Return(context.Background(), rec.ID, "b1")
	assert.ErrorIs(t, err, library.ErrBookNotFound)
}

func TestHistory_FilterAndOrder(t *testing.T) {
	store := library.NewMemStore()
	seedBook(store, "b1", 10)
	now := t0
	svc := &library.Service{Store: store, Now: func() time.Time { return now }}

	for _, name := range []string{"Alice", "Bob", "Alice"} {
		_, err := svc.Borrow(context.Background(), library.BorrowRequest{
			BorrowerName: name, BookID: "b1", Qty: 1,
		})
		require.NoError(t, err)
		now = now.Add(time.Hour)
	}

	all, err := svc.History(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	// newest first
	assert.True(t, all[0].BorrowDate.After(all[1].BorrowDate))
	assert.True(t, all[1].BorrowDate.After(all[2].BorrowDate))

	alice, err := svc.History(context.Background(), "Alice")
	require.NoError(t, err)
	require.Len(t, alice, 2)
	for _, rec := range alice {
		assert.Equal(t, "Alice", rec.BorrowerName)
	}
}

func TestBorrowAndReturn_PublishEvents(t *testing.T) {
	store := library.NewMemStore()
	seedBook(store, "b1", 2)
	borrowed := &publisherSpy{}
	returned := &publisherSpy{}
	svc := newService(store)
	svc.ProducerBorrowed = borrowed
	svc.ProducerReturned = returned

	rec, err := svc.Borrow(context.Background(), library.BorrowRequest{
		BorrowerName: "Alice", BookID: "b1", Qty: 1,
	})
	require.NoError(t, err)
	_, err = svc.Return(context.Background(), rec.ID, "b1")
	require.NoError(t, err)

	assert.Equal(t, 1, borrowed.count())
	assert.Equal(t, 1, returned.count())
}

func TestConcurrentBorrows_NeverOversell(t *testing.T) {
	store := library.NewMemStore()
	seedBook(store, "b1", 5)
	svc := newService(store)

	// two racing borrows of 3 against 5 available: at most one can win
	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Borrow(context.Background(), library.BorrowRequest{
				BorrowerName: "racer", BookID: "b1", Qty: 3,
			})
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	var successes, rejections int
	for err := range errCh {
		if err == nil {
			successes++
			continue
		}
		var ise library.InsufficientStockError
		if errors.As(err, &ise) || errors.Is(err, library.ErrTxConflict) {
			rejections++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, rejections)

	book, _ := store.GetBook("b1")
	assert.Equal(t, 2, book.AvailableStock)
}
