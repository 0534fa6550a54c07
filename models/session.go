package models

import (
	"time"

	"github.com/google/uuid"
)

// ReadingSession ties one reader's selection to a document.
// The selection itself lives in the key-value store, not on this row.
type ReadingSession struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
