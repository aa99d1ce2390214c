package memory

import (
	"context"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat-api/internal/domain/entity"
	"ragchat-api/internal/domain/repository"
)

func indexedDocument(t *testing.T, docs *DocumentRepository, ownerID string) *entity.Document {
	t.Helper()
	doc := &entity.Document{OwnerID: ownerID, Filename: "report.pdf", Status: entity.StatusPending}
	require.NoError(t, docs.Create(context.Background(), doc))
	require.NoError(t, docs.UpdateCounts(context.Background(), doc.ID, 1, 1))
	require.NoError(t, docs.UpdateStatus(context.Background(), doc.ID, entity.StatusIndexed))
	doc.Status = entity.StatusIndexed
	doc.TotalChunks = 1
	return doc
}

func storeChunk(t *testing.T, chunks *ChunkRepository, docID string, position int, embedding []float32) {
	t.Helper()
	err := chunks.CreateBatch(context.Background(), []entity.DocumentChunk{{
		DocumentID: docID,
		Position:   position,
		PageNumber: 1,
		Content:    "chunk content",
		Embedding:  pgvector.NewVector(embedding),
	}})
	require.NoError(t, err)
}

func TestChunkRepository_SearchScopedToOwner(t *testing.T) {
	docs := NewDocumentRepository()
	chunks := NewChunkRepository(docs)

	mine := indexedDocument(t, docs, "alice")
	theirs := indexedDocument(t, docs, "bob")
	storeChunk(t, chunks, mine.ID, 0, []float32{1, 0, 0})
	storeChunk(t, chunks, theirs.ID, 0, []float32{1, 0, 0})

	results, err := chunks.SearchSimilar(context.Background(), repository.SimilaritySearchParams{
		OwnerID:   "alice",
		Embedding: pgvector.NewVector([]float32{1, 0, 0}),
		TopK:      10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, mine.ID, results[0].DocumentID)
}

func TestChunkRepository_OnlyIndexedDocumentsVisible(t *testing.T) {
	docs := NewDocumentRepository()
	chunks := NewChunkRepository(docs)

	pending := &entity.Document{OwnerID: "alice", Filename: "draft.pdf", Status: entity.StatusPending}
	require.NoError(t, docs.Create(context.Background(), pending))
	storeChunk(t, chunks, pending.ID, 0, []float32{1, 0, 0})

	failed := &entity.Document{OwnerID: "alice", Filename: "broken.pdf", Status: entity.StatusPending}
	require.NoError(t, docs.Create(context.Background(), failed))
	require.NoError(t, docs.UpdateStatus(context.Background(), failed.ID, entity.StatusFailed))
	storeChunk(t, chunks, failed.ID, 0, []float32{1, 0, 0})

	results, err := chunks.SearchSimilar(context.Background(), repository.SimilaritySearchParams{
		OwnerID:   "alice",
		Embedding: pgvector.NewVector([]float32{1, 0, 0}),
		TopK:      10,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChunkRepository_ThresholdAndOrdering(t *testing.T) {
	docs := NewDocumentRepository()
	chunks := NewChunkRepository(docs)
	doc := indexedDocument(t, docs, "alice")

	storeChunk(t, chunks, doc.ID, 0, []float32{1, 0, 0})
	storeChunk(t, chunks, doc.ID, 1, []float32{0.9, 0.1, 0})
	storeChunk(t, chunks, doc.ID, 2, []float32{0, 1, 0})

	results, err := chunks.SearchSimilar(context.Background(), repository.SimilaritySearchParams{
		OwnerID:   "alice",
		Embedding: pgvector.NewVector([]float32{1, 0, 0}),
		TopK:      10,
		Threshold: 0.5,
	})
	require.NoError(t, err)
	require.Len(t, results, 2, "the orthogonal chunk falls below the threshold")
	assert.Equal(t, 0, results[0].Position)
	assert.Equal(t, 1, results[1].Position)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestChunkRepository_TiesBreakByDocumentAndPosition(t *testing.T) {
	docs := NewDocumentRepository()
	chunks := NewChunkRepository(docs)
	doc := indexedDocument(t, docs, "alice")

	storeChunk(t, chunks, doc.ID, 3, []float32{1, 0, 0})
	storeChunk(t, chunks, doc.ID, 1, []float32{1, 0, 0})

	results, err := chunks.SearchSimilar(context.Background(), repository.SimilaritySearchParams{
		OwnerID:   "alice",
		Embedding: pgvector.NewVector([]float32{1, 0, 0}),
		TopK:      10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Position)
	assert.Equal(t, 3, results[1].Position)
}

func TestChunkRepository_TopKTruncates(t *testing.T) {
	docs := NewDocumentRepository()
	chunks := NewChunkRepository(docs)
	doc := indexedDocument(t, docs, "alice")

	for i := 0; i < 8; i++ {
		storeChunk(t, chunks, doc.ID, i, []float32{1, 0, 0})
	}

	results, err := chunks.SearchSimilar(context.Background(), repository.SimilaritySearchParams{
		OwnerID:   "alice",
		Embedding: pgvector.NewVector([]float32{1, 0, 0}),
		TopK:      3,
	})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestChunkRepository_DeleteByDocumentIDIdempotent(t *testing.T) {
	docs := NewDocumentRepository()
	chunks := NewChunkRepository(docs)
	doc := indexedDocument(t, docs, "alice")
	storeChunk(t, chunks, doc.ID, 0, []float32{1, 0, 0})

	ctx := context.Background()
	require.NoError(t, chunks.DeleteByDocumentID(ctx, doc.ID))
	require.NoError(t, chunks.DeleteByDocumentID(ctx, doc.ID))
	require.NoError(t, chunks.DeleteByDocumentID(ctx, "never-existed"))

	results, err := chunks.SearchSimilar(ctx, repository.SimilaritySearchParams{
		OwnerID:   "alice",
		Embedding: pgvector.NewVector([]float32{1, 0, 0}),
		TopK:      10,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChunkRepository_DeletedDocumentChunksUnreachable(t *testing.T) {
	docs := NewDocumentRepository()
	chunks := NewChunkRepository(docs)
	doc := indexedDocument(t, docs, "alice")
	storeChunk(t, chunks, doc.ID, 0, []float32{1, 0, 0})

	ctx := context.Background()
	require.NoError(t, docs.Delete(ctx, doc.ID))

	// chunk rows may still exist, the search must not surface them
	results, err := chunks.SearchSimilar(ctx, repository.SimilaritySearchParams{
		OwnerID:   "alice",
		Embedding: pgvector.NewVector([]float32{1, 0, 0}),
		TopK:      10,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}
