package repository

import (
	"context"

	"ragchat-api/internal/domain/entity"

	"github.com/pgvector/pgvector-go"
)

// SimilaritySearchParams scopes a nearest-neighbour query to one owner.
type SimilaritySearchParams struct {
	OwnerID   string
	Embedding pgvector.Vector
	TopK      int
	Threshold float64
}

// ChunkRepository is the vector index: it stores chunk embeddings alongside
// chunk metadata and answers owner-scoped similarity queries.
//
// CreateBatch is atomic: either every chunk is stored or none is. SearchSimilar
// only returns chunks of documents that belong to params.OwnerID and are in
// indexed status, ordered by non-increasing similarity with ties broken by
// (document_id, position) so ranking is stable across calls. DeleteByDocumentID
// is idempotent.
type ChunkRepository interface {
	CreateBatch(ctx context.Context, chunks []entity.DocumentChunk) error
	SearchSimilar(ctx context.Context, params SimilaritySearchParams) ([]entity.SimilarChunk, error)
	DeleteByDocumentID(ctx context.Context, documentID string) error
}
