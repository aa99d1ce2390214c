package repository

import (
	"context"

	"ragchat-api/internal/domain/entity"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	FindByIDAndOwner(ctx context.Context, id, ownerID string) (*entity.Document, error)
	List(ctx context.Context, ownerID string, page, limit int) ([]entity.Document, int, error)
	UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus) error
	UpdateCounts(ctx context.Context, id string, totalChunks, pageCount int) error
	Delete(ctx context.Context, id string) error
}
