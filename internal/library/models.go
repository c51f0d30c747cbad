package library

import "time"

type Book struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Author         string     `json:"author"`
	Category       string     `json:"category"`
	ISBN           string     `json:"isbn"`
	ImageURL       string     `json:"image_url,omitempty"`
	ArrivalDate    *time.Time `json:"arrival_date,omitempty"`
	TotalStock     int        `json:"total_stock"`
	AvailableStock int        `json:"available_stock"`
	DamagedStock   int        `json:"damaged_stock"`
	CreatedAt      time.Time  `json:"created_at"`
}

// BorrowRecord is one loan. book_title/book_isbn are snapshots taken at borrow
// time so history stays intact when the book is edited or deleted later.
type BorrowRecord struct {
	ID           string       `json:"id"`
	BookID       string       `json:"book_id"`
	BookTitle    string       `json:"book_title"`
	BookISBN     string       `json:"book_isbn,omitempty"`
	BorrowerName string       `json:"borrower_name"`
	Qty          int          `json:"qty"`
	BorrowDate   time.Time    `json:"borrow_date"`
	DueDate      time.Time    `json:"due_date"`
	ReturnDate   *time.Time   `json:"return_date,omitempty"`
	Status       BorrowStatus `json:"status"`
}

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
