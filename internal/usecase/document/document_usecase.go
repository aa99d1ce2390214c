package document

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ragchat-api/internal/domain/entity"
	"ragchat-api/internal/domain/repository"

	"github.com/pgvector/pgvector-go"
)

type EmbeddingService interface {
	EmbedBatch(ctx context.Context, texts []string) ([]pgvector.Vector, error)
	Dimension() int
}

type DocumentUsecase struct {
	docRepo   repository.DocumentRepository
	chunkRepo repository.ChunkRepository
	embedder  EmbeddingService
	extractor *TextExtractor
	chunker   *Chunker
	logger    *slog.Logger
}

func NewDocumentUsecase(
	docRepo repository.DocumentRepository,
	chunkRepo repository.ChunkRepository,
	embedder EmbeddingService,
	chunkSize, chunkOverlap int,
	logger *slog.Logger,
) *DocumentUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentUsecase{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		embedder:  embedder,
		extractor: NewTextExtractor(),
		chunker:   NewChunker(chunkSize, chunkOverlap),
		logger:    logger,
	}
}

// UploadDocument records the document in pending status and starts ingestion
// in the background; the HTTP response does not wait for indexing.
func (uc *DocumentUsecase) UploadDocument(
	ctx context.Context,
	ownerID string,
	filename string,
	fileData []byte,
) (*entity.Document, error) {
	doc := &entity.Document{
		OwnerID:  ownerID,
		Filename: filename,
		FileSize: int64(len(fileData)),
		Status:   entity.StatusPending,
	}

	if err := uc.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	go func() {
		// recovery for panic in background process
		defer func() {
			if r := recover(); r != nil {
				uc.logger.Error("panic in document processing", "documentId", doc.ID, "panic", r)
				uc.markFailed(context.Background(), doc.ID)
			}
		}()

		if err := uc.ProcessDocument(context.Background(), doc.ID, fileData); err != nil {
			uc.logger.Error("document processing failed", "documentId", doc.ID, "error", err)
			uc.markFailed(context.Background(), doc.ID)
		}
	}()

	return doc, nil
}

// ProcessDocument runs the full ingestion pipeline for one document:
// extract, chunk, embed, index, then flip the status to indexed. Every other
// outcome leaves the document failed with no chunks behind.
func (uc *DocumentUsecase) ProcessDocument(ctx context.Context, documentID string, fileData []byte) error {
	pages, err := uc.extractor.ExtractFromPDF(fileData)
	if err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}
	return uc.IndexPages(ctx, documentID, pages)
}

// IndexPages chunks and indexes already-extracted page text. Split out from
// ProcessDocument so callers that receive decoded text can reuse the pipeline.
func (uc *DocumentUsecase) IndexPages(ctx context.Context, documentID string, pages []PageText) error {
	text, pageStarts := joinPages(pages)

	spans, err := uc.chunker.Chunk(text)
	if err != nil {
		return err
	}
	uc.logger.Info("chunked document", "documentId", documentID, "chunks", len(spans))

	texts := make([]string, len(spans))
	for i, span := range spans {
		texts[i] = span.Text
	}

	embeddings, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	chunks := make([]entity.DocumentChunk, len(spans))
	for i, span := range spans {
		chunks[i] = entity.DocumentChunk{
			DocumentID: documentID,
			Position:   i,
			PageNumber: pageForOffset(pageStarts, pages, span.Start),
			Content:    span.Text,
			Embedding:  embeddings[i],
		}
	}

	if err := uc.chunkRepo.CreateBatch(ctx, chunks); err != nil {
		return fmt.Errorf("failed to save chunks: %w", err)
	}

	pageCount := 0
	if len(pages) > 0 {
		pageCount = pages[len(pages)-1].Number
	}
	if err := uc.docRepo.UpdateCounts(ctx, documentID, len(chunks), pageCount); err != nil {
		return err
	}
	if err := uc.docRepo.UpdateStatus(ctx, documentID, entity.StatusIndexed); err != nil {
		return err
	}

	uc.logger.Info("document indexed", "documentId", documentID, "chunks", len(chunks))
	return nil
}

// markFailed flips the document to failed and clears any chunks that made it
// into the index before the failing stage.
func (uc *DocumentUsecase) markFailed(ctx context.Context, documentID string) {
	if err := uc.chunkRepo.DeleteByDocumentID(ctx, documentID); err != nil {
		uc.logger.Error("failed to clean up chunks", "documentId", documentID, "error", err)
	}
	if err := uc.docRepo.UpdateStatus(ctx, documentID, entity.StatusFailed); err != nil {
		uc.logger.Error("failed to mark document failed", "documentId", documentID, "error", err)
	}
}

func (uc *DocumentUsecase) ListDocuments(ctx context.Context, ownerID string, page, limit int) ([]entity.Document, int, error) {
	return uc.docRepo.List(ctx, ownerID, page, limit)
}

func (uc *DocumentUsecase) GetDocumentByID(ctx context.Context, documentID, ownerID string) (*entity.Document, error) {
	doc, err := uc.docRepo.FindByIDAndOwner(ctx, documentID, ownerID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, entity.ErrNotFound
	}
	return doc, nil
}

func (uc *DocumentUsecase) DeleteDocument(ctx context.Context, documentID, ownerID string) error {
	doc, err := uc.docRepo.FindByIDAndOwner(ctx, documentID, ownerID)
	if err != nil {
		return err
	}
	if doc == nil {
		return entity.ErrNotFound
	}

	// chunks first, so the index can never reference a missing document
	if err := uc.chunkRepo.DeleteByDocumentID(ctx, documentID); err != nil {
		return err
	}
	return uc.docRepo.Delete(ctx, documentID)
}

// joinPages concatenates page texts and records the starting rune offset of
// every page within the joined text.
func joinPages(pages []PageText) (string, []int) {
	var sb strings.Builder
	starts := make([]int, len(pages))

	offset := 0
	for i, page := range pages {
		starts[i] = offset
		sb.WriteString(page.Text)
		offset += len([]rune(page.Text))
		if !strings.HasSuffix(page.Text, "\n") {
			sb.WriteString("\n")
			offset++
		}
	}
	return sb.String(), starts
}

// pageForOffset maps a rune offset in the joined text back to the page it
// falls on.
func pageForOffset(starts []int, pages []PageText, offset int) int {
	page := 0
	for i, start := range starts {
		if offset >= start {
			page = pages[i].Number
		}
	}
	return page
}
