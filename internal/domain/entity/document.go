package entity

import "time"

type DocumentStatus string

const (
	StatusPending DocumentStatus = "pending"
	StatusIndexed DocumentStatus = "indexed"
	StatusFailed  DocumentStatus = "failed"
)

// IsTerminal reports whether the status may no longer change. A document that
// failed ingestion is re-uploaded as a new document, never reprocessed in place.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusIndexed || s == StatusFailed
}

type Document struct {
	ID          string         `db:"id" json:"id"`
	OwnerID     string         `db:"owner_id" json:"ownerId"`
	Filename    string         `db:"filename" json:"filename"`
	FileSize    int64          `db:"file_size" json:"fileSize"`
	PageCount   int            `db:"page_count" json:"pageCount"`
	Status      DocumentStatus `db:"status" json:"status"`
	TotalChunks int            `db:"total_chunks" json:"totalChunks"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// Queryable reports whether the document's chunks may appear in retrieval
// results.
func (d *Document) Queryable() bool {
	return d.Status == StatusIndexed && d.TotalChunks >= 1
}
