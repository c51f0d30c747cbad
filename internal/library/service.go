package library

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/danisworo/libadmin/internal/kafka"
	"github.com/danisworo/libadmin/internal/redisx"
)

// DefaultLoanPeriod is applied when the caller does not pick a due date.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// Publisher is what the service needs from a kafka producer.
// Satisfied by *kafkax.Producer; tests plug in a spy.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type BorrowRequest struct {
	BorrowerName string     `json:"borrower_name"`
	BookID       string     `json:"book_id"`
	Qty          int        `json:"qty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
}

// Service holds the loan operations. Store does the atomic part; the service
// validates input, picks timestamps, and handles cache + events after commit.
type Service struct {
	Store            Store
	Redis            *redis.Client // optional: book cache invalidation
	ProducerBorrowed Publisher     // optional: publish loan.borrowed
	ProducerReturned Publisher     // optional: publish loan.returned
	ServiceName      string
	Now              func() time.Time // nil = time.Now().UTC()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) Borrow(ctx context.Context, req BorrowRequest) (*BorrowRecord, error) {
	// Validation happens before any store access.
	if req.BorrowerName == "" {
		return nil, ValidationError{Field: "borrower_name", Reason: "required"}
	}
	if req.Qty <= 0 {
		return nil, ValidationError{Field: "qty", Reason: "must be greater than 0"}
	}
	if req.BookID == "" {
		return nil, ValidationError{Field: "book_id", Reason: "required"}
	}

	now := s.now()
	due := now.Add(DefaultLoanPeriod)
	if req.DueDate != nil {
		due = *req.DueDate
	}

	rec, err := s.Store.Borrow(ctx, BorrowParams{
		ID:           uuid.NewString(),
		BookID:       req.BookID,
		BorrowerName: req.BorrowerName,
		Qty:          req.Qty,
		BorrowDate:   now,
		DueDate:      due,
	})
	if err != nil {
		return nil, err
	}

	s.invalidateBook(ctx, rec.BookID)
	s.publish(s.ProducerBorrowed, EventLoanBorrowed, rec.ID, rec.BookID, LoanBorrowedPayload{
		BorrowID:     rec.ID,
		BookID:       rec.BookID,
		BookTitle:    rec.BookTitle,
		BorrowerName: rec.BorrowerName,
		Qty:          rec.Qty,
		DueDate:      rec.DueDate,
	})
	return rec, nil
}

func (s *Service) Return(ctx context.Context, borrowID, bookID string) (*BorrowRecord, error) {
	if borrowID == "" {
		return nil, ValidationError{Field: "borrow_id", Reason: "required"}
	}
	if bookID == "" {
		return nil, ValidationError{Field: "book_id", Reason: "required"}
	}

	rec, err := s.Store.Return(ctx, borrowID, bookID, s.now())
	if err != nil {
		return nil, err
	}

	s.invalidateBook(ctx, bookID)
	s.publish(s.ProducerReturned, EventLoanReturned, rec.ID, rec.BookID, LoanReturnedPayload{
		BorrowID:   rec.ID,
		BookID:     rec.BookID,
		Qty:        rec.Qty,
		ReturnDate: *rec.ReturnDate,
	})
	return rec, nil
}

func (s *Service) History(ctx context.Context, borrowerName string) ([]BorrowRecord, error) {
	return s.Store.ListBorrows(ctx, borrowerName)
}

func (s *Service) invalidateBook(ctx context.Context, bookID string) {
	if s.Redis == nil {
		return
	}
	_ = s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyBook, bookID)).Err()
}

func (s *Service) publish(p Publisher, eventType, borrowID, bookID string, payload any) {
	if p == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.now(),
		Producer:      s.ServiceName,
		CorrelationID: borrowID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(bookID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
