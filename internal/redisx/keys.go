package redisx

import "time"

const (
	// Cache of a book document: book:{book_id} -> book JSON.
	// Invalidated on borrow/return and on catalog edits.
	KeyBook = "book:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLBookCache = 5 * time.Minute
	TTLDedup     = 48 * time.Hour
)
