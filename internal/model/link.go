package model

import "time"

// ShortIDLength is the fixed length of generated short identifiers.
const ShortIDLength = 10

// Link represents a shortened URL entity.
//
// ShortID is globally unique; the database enforces this with a unique index.
// OwnerID is a back-reference into the user space for listing, not ownership
// in the cascading-delete sense.
type Link struct {
	ID          string    `json:"id"`
	ShortID     string    `json:"short_id"`
	OriginalURL string    `json:"original_url"`
	OwnerID     string    `json:"owner_id"`
	VisitCount  int64     `json:"visit_count"`
	CreatedAt   time.Time `json:"created_at"`
}
