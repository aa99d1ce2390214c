package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"ragchat-api/internal/domain/entity"
	"ragchat-api/internal/domain/repository"

	"github.com/google/uuid"
)

// ChunkRepository is a brute-force cosine-similarity vector index over an
// in-process chunk table. It needs the document repository to enforce owner
// scoping and the indexed-only visibility rule.
type ChunkRepository struct {
	mu     sync.RWMutex
	chunks []entity.DocumentChunk
	docs   *DocumentRepository
}

func NewChunkRepository(docs *DocumentRepository) *ChunkRepository {
	return &ChunkRepository{docs: docs}
}

var _ repository.ChunkRepository = (*ChunkRepository)(nil)

func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []entity.DocumentChunk) error {
	now := time.Now()
	stored := make([]entity.DocumentChunk, len(chunks))
	for i := range chunks {
		chunks[i].ID = uuid.New().String()
		chunks[i].CreatedAt = now
		stored[i] = chunks[i]
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, stored...)
	return nil
}

func (r *ChunkRepository) SearchSimilar(ctx context.Context, params repository.SimilaritySearchParams) ([]entity.SimilarChunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := params.Embedding.Slice()

	var results []entity.SimilarChunk
	for _, chunk := range r.chunks {
		doc, ok := r.docs.lookup(chunk.DocumentID)
		if !ok || doc.OwnerID != params.OwnerID || !doc.Queryable() {
			continue
		}
		sim := cosineSimilarity(query, chunk.Embedding.Slice())
		if sim < params.Threshold {
			continue
		}
		results = append(results, entity.SimilarChunk{DocumentChunk: chunk, Similarity: sim})
	}

	// descending similarity, ties resolved by document and position so the
	// ranking is stable across calls
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if results[i].DocumentID != results[j].DocumentID {
			return results[i].DocumentID < results[j].DocumentID
		}
		return results[i].Position < results[j].Position
	})

	if params.TopK > 0 && len(results) > params.TopK {
		results = results[:params.TopK]
	}
	return results, nil
}

func (r *ChunkRepository) DeleteByDocumentID(ctx context.Context, documentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.chunks[:0]
	for _, chunk := range r.chunks {
		if chunk.DocumentID != documentID {
			kept = append(kept, chunk)
		}
	}
	r.chunks = kept
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
