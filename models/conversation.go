package models

import "time"

// Conversation is the persisted record for a single chat. PDFContext holds a
// denormalized concatenation of all chunk texts from the attached document,
// used as a fallback context source when vector retrieval yields nothing.
type Conversation struct {
	ID         string    `json:"id"`
	PDFName    string    `json:"pdf_name,omitempty"`
	PDFContext string    `json:"-"`
	UpdatedAt  time.Time `json:"updated_at"`
}
