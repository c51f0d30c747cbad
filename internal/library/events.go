package library

import (
	"encoding/json"
	"time"
)

const (
	EventLoanBorrowed = "LoanBorrowed"
	EventLoanReturned = "LoanReturned"
	EventLoanOverdue  = "LoanOverdue"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // borrow record id
	Payload       json.RawMessage `json:"payload"`
}

// ---- payload per event ----

type LoanBorrowedPayload struct {
	BorrowID     string    `json:"borrow_id"`
	BookID       string    `json:"book_id"`
	BookTitle    string    `json:"book_title"`
	BorrowerName string    `json:"borrower_name"`
	Qty          int       `json:"qty"`
	DueDate      time.Time `json:"due_date"`
}

type LoanReturnedPayload struct {
	BorrowID   string    `json:"borrow_id"`
	BookID     string    `json:"book_id"`
	Qty        int       `json:"qty"`
	ReturnDate time.Time `json:"return_date"`
}

type LoanOverduePayload struct {
	BorrowID     string    `json:"borrow_id"`
	BookID       string    `json:"book_id"`
	BookTitle    string    `json:"book_title"`
	BorrowerName string    `json:"borrower_name"`
	DueDate      time.Time `json:"due_date"`
}
