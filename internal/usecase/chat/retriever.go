package chat

import (
	"context"
	"log/slog"

	"ragchat-api/internal/domain/entity"
	"ragchat-api/internal/domain/repository"

	"github.com/pgvector/pgvector-go"
)

type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) (pgvector.Vector, error)
}

// Retriever turns a query into a ranked, deduplicated, owner-scoped set of
// passages. An empty result is a normal outcome, not an error.
type Retriever struct {
	embedder   QueryEmbedder
	chunkRepo  repository.ChunkRepository
	docRepo    repository.DocumentRepository
	topK       int
	oversample int
	threshold  float64
	logger     *slog.Logger
}

func NewRetriever(
	embedder QueryEmbedder,
	chunkRepo repository.ChunkRepository,
	docRepo repository.DocumentRepository,
	topK, oversample int,
	threshold float64,
	logger *slog.Logger,
) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	if oversample <= 0 {
		oversample = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder:   embedder,
		chunkRepo:  chunkRepo,
		docRepo:    docRepo,
		topK:       topK,
		oversample: oversample,
		threshold:  threshold,
		logger:     logger,
	}
}

// Retrieve embeds the query and searches the owner's index with an
// oversampled limit, so that post-filtering and deduplication still leave
// topK candidates when enough score above the threshold.
func (r *Retriever) Retrieve(ctx context.Context, ownerID, query string) ([]entity.RetrievedPassage, error) {
	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	chunks, err := r.chunkRepo.SearchSimilar(ctx, repository.SimilaritySearchParams{
		OwnerID:   ownerID,
		Embedding: queryEmbedding,
		TopK:      r.topK * r.oversample,
		Threshold: r.threshold,
	})
	if err != nil {
		return nil, err
	}

	// document names, resolved once per document
	names := make(map[string]string)

	passages := make([]entity.RetrievedPassage, 0, len(chunks))
	for _, chunk := range chunks {
		if isAdjacentDuplicate(passages, chunk) {
			continue
		}

		name, ok := names[chunk.DocumentID]
		if !ok {
			doc, err := r.docRepo.FindByIDAndOwner(ctx, chunk.DocumentID, ownerID)
			if err != nil {
				return nil, err
			}
			if doc == nil {
				// the index knows a chunk whose document is gone: skip it,
				// never surface it
				r.logger.Warn("dropping unresolvable chunk",
					"chunkId", chunk.ID, "documentId", chunk.DocumentID, "error", entity.ErrIndexInconsistent)
				continue
			}
			name = doc.Filename
			names[chunk.DocumentID] = name
		}

		passages = append(passages, entity.RetrievedPassage{
			ChunkID:      chunk.ID,
			DocumentID:   chunk.DocumentID,
			DocumentName: name,
			PageNumber:   chunk.PageNumber,
			Position:     chunk.Position,
			Content:      chunk.Content,
			Similarity:   chunk.Similarity,
		})
		if len(passages) == r.topK {
			break
		}
	}

	return passages, nil
}

// isAdjacentDuplicate reports whether a kept passage already covers this
// chunk: same document, neighbouring position. Overlapping chunks repeat each
// other's text, and the earlier (higher-scoring) one wins.
func isAdjacentDuplicate(kept []entity.RetrievedPassage, chunk entity.SimilarChunk) bool {
	for _, p := range kept {
		if p.DocumentID != chunk.DocumentID {
			continue
		}
		delta := p.Position - chunk.Position
		if delta >= -1 && delta <= 1 {
			return true
		}
	}
	return false
}
