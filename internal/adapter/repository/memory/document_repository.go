package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ragchat-api/internal/domain/entity"
	"ragchat-api/internal/domain/repository"

	"github.com/google/uuid"
)

// DocumentRepository is an in-process document store. It backs tests and the
// embedded mode where no DATABASE_URL is configured.
type DocumentRepository struct {
	mu   sync.RWMutex
	docs map[string]entity.Document
}

func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{docs: make(map[string]entity.Document)}
}

var _ repository.DocumentRepository = (*DocumentRepository)(nil)

func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	doc.ID = uuid.New().String()
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt

	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = *doc
	return nil
}

func (r *DocumentRepository) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*entity.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return nil, nil
	}
	copied := doc
	return &copied, nil
}

func (r *DocumentRepository) List(ctx context.Context, ownerID string, page, limit int) ([]entity.Document, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var docs []entity.Document
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	total := len(docs)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return docs[offset:end], total, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return entity.ErrNotFound
	}
	doc.Status = status
	doc.UpdatedAt = time.Now()
	r.docs[id] = doc
	return nil
}

func (r *DocumentRepository) UpdateCounts(ctx context.Context, id string, totalChunks, pageCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return entity.ErrNotFound
	}
	doc.TotalChunks = totalChunks
	doc.PageCount = pageCount
	doc.UpdatedAt = time.Now()
	r.docs[id] = doc
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

// lookup is used by the chunk repository to resolve owner and status without
// exporting internals.
func (r *DocumentRepository) lookup(id string) (entity.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	return doc, ok
}
