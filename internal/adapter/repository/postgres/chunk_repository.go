package postgres

import (
	"context"
	"time"

	"ragchat-api/internal/domain/entity"
	"ragchat-api/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type chunkRepository struct {
	db *sqlx.DB
}

func NewChunkRepository(db *sqlx.DB) repository.ChunkRepository {
	return &chunkRepository{db: db}
}

// CreateBatch inserts all chunks in one transaction: a failure on any row
// rolls the whole batch back so the index never holds a partial document.
func (r *chunkRepository) CreateBatch(ctx context.Context, chunks []entity.DocumentChunk) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO document_chunks (id, document_id, position, page_number, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i := range chunks {
		chunks[i].ID = uuid.New().String()
		chunks[i].CreatedAt = time.Now()

		_, err := tx.ExecContext(ctx, query,
			chunks[i].ID,
			chunks[i].DocumentID,
			chunks[i].Position,
			chunks[i].PageNumber,
			chunks[i].Content,
			chunks[i].Embedding,
			chunks[i].CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SearchSimilar ranks the owner's indexed chunks by cosine similarity. The
// secondary ordering keys make equal scores resolve the same way on every
// call.
func (r *chunkRepository) SearchSimilar(ctx context.Context, params repository.SimilaritySearchParams) ([]entity.SimilarChunk, error) {
	query := `
		SELECT
			dc.id,
			dc.document_id,
			dc.position,
			dc.page_number,
			dc.content,
			dc.created_at,
			1 - (dc.embedding <=> $1) AS similarity
		FROM document_chunks dc
		INNER JOIN documents d ON dc.document_id = d.id
		WHERE d.owner_id = $2
		AND d.status = 'indexed'
		AND (1 - (dc.embedding <=> $1)) >= $3
		ORDER BY dc.embedding <=> $1, dc.document_id, dc.position
		LIMIT $4
	`

	rows, err := r.db.QueryContext(ctx, query, params.Embedding, params.OwnerID, params.Threshold, params.TopK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []entity.SimilarChunk
	for rows.Next() {
		var chunk entity.SimilarChunk
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.Position,
			&chunk.PageNumber,
			&chunk.Content,
			&chunk.CreatedAt,
			&chunk.Similarity,
		)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}

// DeleteByDocumentID removes all chunks of the document. Deleting an unknown
// document is a no-op.
func (r *chunkRepository) DeleteByDocumentID(ctx context.Context, documentID string) error {
	query := `DELETE FROM document_chunks WHERE document_id = $1`
	_, err := r.db.ExecContext(ctx, query, documentID)
	return err
}
