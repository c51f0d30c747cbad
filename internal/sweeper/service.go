package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/danisworo/libadmin/internal/kafka"
	"github.com/danisworo/libadmin/internal/library"
)

// Service flips open loans past their due date to overdue and publishes one
// loan.overdue event per affected record.
type Service struct {
	Store       library.Store
	Producer    library.Publisher // optional
	ServiceName string
	Now         func() time.Time // nil = time.Now().UTC()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Sweep runs one pass and returns the number of loans marked overdue.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	recs, err := s.Store.MarkOverdue(ctx, now)
	if err != nil {
		return 0, err
	}

	for _, rec := range recs {
		s.publishOverdue(rec, now)
	}
	return len(recs), nil
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				log.Printf("sweep: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("sweep: %d loans marked overdue", n)
			}
		}
	}
}

func (s *Service) publishOverdue(rec library.BorrowRecord, at time.Time) {
	if s.Producer == nil {
		return
	}
	ev := library.Envelope{
		EventID:       uuid.NewString(),
		EventType:     library.EventLoanOverdue,
		EventVersion:  1,
		OccurredAt:    at,
		Producer:      s.ServiceName,
		CorrelationID: rec.ID,
		Payload: kafkax.MustMarshal(library.LoanOverduePayload{
			BorrowID:     rec.ID,
			BookID:       rec.BookID,
			BookTitle:    rec.BookTitle,
			BorrowerName: rec.BorrowerName,
			DueDate:      rec.DueDate,
		}),
	}
	s.Producer.Publish(library.PartitionKey(rec.BookID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(library.EventLoanOverdue)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
