package library

const (
	TopicLoanBorrowed = "loan.borrowed"
	TopicLoanReturned = "loan.returned"
	TopicLoanOverdue  = "loan.overdue"
)

// Partition key = book_id, so events about one book keep their order.
func PartitionKey(bookID string) []byte { return []byte(bookID) }
