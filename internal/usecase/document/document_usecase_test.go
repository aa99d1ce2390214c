package document

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat-api/internal/adapter/repository/memory"
	"ragchat-api/internal/domain/entity"
	"ragchat-api/internal/domain/repository"
)

// fakeEmbedder returns a deterministic unit vector per input, or a fixed
// error when primed with one.
type fakeEmbedder struct {
	dim int
	err error
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([]pgvector.Vector, len(texts))
	for i := range texts {
		v := make([]float32, f.dim)
		v[i%f.dim] = 1
		vectors[i] = pgvector.NewVector(v)
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

func newTestUsecase(embedder EmbeddingService) (*DocumentUsecase, *memory.DocumentRepository, *memory.ChunkRepository) {
	docs := memory.NewDocumentRepository()
	chunks := memory.NewChunkRepository(docs)
	uc := NewDocumentUsecase(docs, chunks, embedder, 100, 20, nil)
	return uc, docs, chunks
}

func searchAll(t *testing.T, chunks *memory.ChunkRepository, ownerID string) []entity.SimilarChunk {
	t.Helper()
	results, err := chunks.SearchSimilar(context.Background(), repository.SimilaritySearchParams{
		OwnerID:   ownerID,
		Embedding: pgvector.NewVector([]float32{1, 0, 0, 0}),
		TopK:      100,
		Threshold: -1,
	})
	require.NoError(t, err)
	return results
}

func TestIndexPages_FullPipeline(t *testing.T) {
	uc, docs, chunks := newTestUsecase(&fakeEmbedder{dim: 4})
	ctx := context.Background()

	doc := &entity.Document{OwnerID: "alice", Filename: "paper.pdf", Status: entity.StatusPending}
	require.NoError(t, docs.Create(ctx, doc))

	pages := []PageText{
		{Number: 1, Text: strings.Repeat("First page sentence. ", 10)},
		{Number: 2, Text: strings.Repeat("Second page sentence. ", 10)},
	}
	require.NoError(t, uc.IndexPages(ctx, doc.ID, pages))

	indexed, err := uc.GetDocumentByID(ctx, doc.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusIndexed, indexed.Status)
	assert.Equal(t, 2, indexed.PageCount)
	assert.Greater(t, indexed.TotalChunks, 1)

	results := searchAll(t, chunks, "alice")
	require.Len(t, results, indexed.TotalChunks)

	positions := make(map[int]bool)
	for _, chunk := range results {
		positions[chunk.Position] = true
		assert.Contains(t, []int{1, 2}, chunk.PageNumber)
		assert.NotEmpty(t, chunk.Content)
	}
	assert.Len(t, positions, indexed.TotalChunks, "positions must be distinct")
}

func TestIndexPages_PageAttributionFollowsOffsets(t *testing.T) {
	uc, docs, chunks := newTestUsecase(&fakeEmbedder{dim: 4})
	ctx := context.Background()

	doc := &entity.Document{OwnerID: "alice", Filename: "paper.pdf", Status: entity.StatusPending}
	require.NoError(t, docs.Create(ctx, doc))

	// each page is smaller than one chunk, so chunk starts land on known pages
	pages := []PageText{
		{Number: 1, Text: strings.Repeat("alpha. ", 20)},
		{Number: 3, Text: strings.Repeat("gamma. ", 20)},
	}
	require.NoError(t, uc.IndexPages(ctx, doc.ID, pages))

	results := searchAll(t, chunks, "alice")
	require.NotEmpty(t, results)

	sawPageThree := false
	for _, chunk := range results {
		if strings.HasPrefix(chunk.Content, "gamma") {
			assert.Equal(t, 3, chunk.PageNumber)
			sawPageThree = true
		}
	}
	assert.True(t, sawPageThree, "chunks starting on the second page carry its number")
}

func TestIndexPages_EmptyTextFails(t *testing.T) {
	uc, docs, _ := newTestUsecase(&fakeEmbedder{dim: 4})
	ctx := context.Background()

	doc := &entity.Document{OwnerID: "alice", Filename: "blank.pdf", Status: entity.StatusPending}
	require.NoError(t, docs.Create(ctx, doc))

	err := uc.IndexPages(ctx, doc.ID, []PageText{{Number: 1, Text: "   "}})
	assert.ErrorIs(t, err, entity.ErrEmptyDocument)
}

func TestIndexPages_EmbeddingFailureLeavesNoChunks(t *testing.T) {
	embedErr := &entity.EmbeddingError{BatchStart: 0, BatchEnd: 3, Err: errors.New("quota exhausted")}
	uc, docs, chunks := newTestUsecase(&fakeEmbedder{dim: 4, err: embedErr})
	ctx := context.Background()

	doc := &entity.Document{OwnerID: "alice", Filename: "paper.pdf", Status: entity.StatusPending}
	require.NoError(t, docs.Create(ctx, doc))

	pages := []PageText{{Number: 1, Text: strings.Repeat("Some sentence. ", 20)}}
	err := uc.IndexPages(ctx, doc.ID, pages)
	require.Error(t, err)

	var got *entity.EmbeddingError
	assert.ErrorAs(t, err, &got)

	uc.markFailed(ctx, doc.ID)

	failed, err := uc.GetDocumentByID(ctx, doc.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFailed, failed.Status)
	assert.Zero(t, failed.TotalChunks)
	assert.Empty(t, searchAll(t, chunks, "alice"))
}

func TestDeleteDocument_RemovesChunksAndDocument(t *testing.T) {
	uc, docs, chunks := newTestUsecase(&fakeEmbedder{dim: 4})
	ctx := context.Background()

	doc := &entity.Document{OwnerID: "alice", Filename: "paper.pdf", Status: entity.StatusPending}
	require.NoError(t, docs.Create(ctx, doc))
	pages := []PageText{{Number: 1, Text: strings.Repeat("Some sentence. ", 20)}}
	require.NoError(t, uc.IndexPages(ctx, doc.ID, pages))
	require.NotEmpty(t, searchAll(t, chunks, "alice"))

	require.NoError(t, uc.DeleteDocument(ctx, doc.ID, "alice"))

	_, err := uc.GetDocumentByID(ctx, doc.ID, "alice")
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.Empty(t, searchAll(t, chunks, "alice"))
}

func TestDeleteDocument_ForeignOwnerGetsNotFound(t *testing.T) {
	uc, docs, _ := newTestUsecase(&fakeEmbedder{dim: 4})
	ctx := context.Background()

	doc := &entity.Document{OwnerID: "alice", Filename: "paper.pdf", Status: entity.StatusPending}
	require.NoError(t, docs.Create(ctx, doc))

	err := uc.DeleteDocument(ctx, doc.ID, "mallory")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	still, err := uc.GetDocumentByID(ctx, doc.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, still.ID)
}

func TestGetDocumentByID_UnknownIsNotFound(t *testing.T) {
	uc, _, _ := newTestUsecase(&fakeEmbedder{dim: 4})

	_, err := uc.GetDocumentByID(context.Background(), "does-not-exist", "alice")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestJoinPages_OffsetsAccountForSeparators(t *testing.T) {
	pages := []PageText{
		{Number: 1, Text: "abc"},
		{Number: 2, Text: "defg\n"},
		{Number: 3, Text: "hi"},
	}
	text, starts := joinPages(pages)

	assert.Equal(t, "abc\ndefg\nhi\n", text)
	assert.Equal(t, []int{0, 4, 9}, starts)

	assert.Equal(t, 1, pageForOffset(starts, pages, 0))
	assert.Equal(t, 1, pageForOffset(starts, pages, 3))
	assert.Equal(t, 2, pageForOffset(starts, pages, 4))
	assert.Equal(t, 3, pageForOffset(starts, pages, 10))
}
