package notifier

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/danisworo/libadmin/internal/kafka"
	"github.com/danisworo/libadmin/internal/library"
	"github.com/danisworo/libadmin/internal/redisx"
)

// Service consumes loan.overdue events and notifies the librarian desk.
// Notification here is a log line; the hook is the place a mailer would go.
type Service struct {
	Redis       *redis.Client // optional: event dedup
	ServiceName string
}

// HandleOverdue is wired as the consumer handler.
func (s *Service) HandleOverdue(ctx context.Context, m kafkago.Message) error {
	var env library.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != library.EventLoanOverdue {
		return nil // ignore
	}

	// dedup via Redis on event_id
	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
		exists, _ := redisx.Exists(ctx, s.Redis, dkey)
		if exists {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	p, err := kafkax.UnwrapPayload[library.LoanOverduePayload](env.Payload)
	if err != nil {
		return err
	}

	log.Printf("overdue notice: borrower=%s book=%q due=%s borrow_id=%s",
		p.BorrowerName, p.BookTitle, p.DueDate.Format("2006-01-02"), p.BorrowID)
	return nil
}
