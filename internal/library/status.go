package library

type BorrowStatus string

const (
	StatusBorrowed BorrowStatus = "borrowed"
	StatusOverdue  BorrowStatus = "overdue"
	StatusReturned BorrowStatus = "returned"
)

var validNext = map[BorrowStatus]map[BorrowStatus]bool{
	StatusBorrowed: {StatusOverdue: true, StatusReturned: true},
	StatusOverdue:  {StatusReturned: true},
	StatusReturned: {},
}

func CanTransition(from, to BorrowStatus) bool {
	return validNext[from][to]
}

// Open reports whether the loan still holds stock (not yet returned).
func (s BorrowStatus) Open() bool {
	return s == StatusBorrowed || s == StatusOverdue
}
