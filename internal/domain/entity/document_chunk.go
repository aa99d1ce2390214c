package entity

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

type DocumentChunk struct {
	ID         string          `db:"id" json:"id"`
	DocumentID string          `db:"document_id" json:"documentId"`
	Position   int             `db:"position" json:"position"`
	PageNumber int             `db:"page_number" json:"pageNumber"` // 0 when unknown
	Content    string          `db:"content" json:"content"`
	Embedding  pgvector.Vector `db:"embedding" json:"-"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// SimilarChunk is a chunk scored against a query embedding.
type SimilarChunk struct {
	DocumentChunk
	Similarity float64 `db:"similarity" json:"similarity"`
}

// RetrievedPassage is the per-query view of a chunk handed from the retriever
// to the context assembler. It is never persisted; the subset that makes it
// into the prompt is recorded on the assistant message as sources.
type RetrievedPassage struct {
	ChunkID      string
	DocumentID   string
	DocumentName string
	PageNumber   int
	Position     int
	Content      string
	Similarity   float64
}

// Source converts the passage into the attribution record stored on the
// assistant message.
func (p RetrievedPassage) Source() MessageSource {
	return MessageSource{
		ChunkID:      p.ChunkID,
		DocumentID:   p.DocumentID,
		DocumentName: p.DocumentName,
		PageNumber:   p.PageNumber,
		Similarity:   p.Similarity,
		Snippet:      Snippet(p.Content, 200),
	}
}

// Snippet truncates s to at most max runes, appending an ellipsis when
// anything was cut.
func Snippet(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
