package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ragchat-api/internal/domain/entity"
	"ragchat-api/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type documentRepository struct {
	db *sqlx.DB
}

func NewDocumentRepository(db *sqlx.DB) repository.DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *entity.Document) error {
	doc.ID = uuid.New().String()
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt

	query := `
		INSERT INTO documents (id, owner_id, filename, file_size, page_count, status, total_chunks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.OwnerID, doc.Filename, doc.FileSize, doc.PageCount, doc.Status, doc.TotalChunks, doc.CreatedAt, doc.UpdatedAt)
	return err
}

func (r *documentRepository) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*entity.Document, error) {
	var doc entity.Document
	query := `SELECT * FROM documents WHERE id = $1 AND owner_id = $2`
	err := r.db.GetContext(ctx, &doc, query, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) List(ctx context.Context, ownerID string, page, limit int) ([]entity.Document, int, error) {
	offset := (page - 1) * limit

	var docs []entity.Document
	query := `SELECT * FROM documents WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	err := r.db.SelectContext(ctx, &docs, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	var total int
	query = `SELECT COUNT(*) FROM documents WHERE owner_id = $1`
	err = r.db.GetContext(ctx, &total, query, ownerID)
	if err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

func (r *documentRepository) UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus) error {
	query := `UPDATE documents SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, status, id)
	return err
}

func (r *documentRepository) UpdateCounts(ctx context.Context, id string, totalChunks, pageCount int) error {
	query := `UPDATE documents SET total_chunks = $1, page_count = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, totalChunks, pageCount, id)
	return err
}

func (r *documentRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
