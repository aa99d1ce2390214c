package openai

import (
	"context"
	"fmt"
	"time"

	"ragchat-api/internal/domain/entity"
	"ragchat-api/pkg/retry"

	"github.com/pgvector/pgvector-go"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

type EmbeddingConfig struct {
	Model       string
	Dimension   int
	BatchSize   int
	Concurrency int
	Timeout     time.Duration
	Retry       retry.Policy

	// BaseURL overrides the API endpoint, empty means the OpenAI default
	BaseURL string
}

type EmbeddingClient struct {
	client *openai.Client
	cfg    EmbeddingConfig
}

// NewEmbeddingClient creates a new OpenAI embedding client with a fixed
// output dimension.
func NewEmbeddingClient(apiKey string, cfg EmbeddingConfig) *EmbeddingClient {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &EmbeddingClient{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}
}

// Dimension is the fixed length of every vector this client produces.
func (c *EmbeddingClient) Dimension() int { return c.cfg.Dimension }

// EmbedBatch embeds texts preserving input order. The input is split into
// batches of at most BatchSize, issued with bounded concurrency; each batch is
// retried on transient failure. A failing batch reports the index range it
// covered.
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([]pgvector.Vector, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end

		g.Go(func() error {
			batch, err := c.embedOne(gctx, texts[start:end])
			if err != nil {
				return &entity.EmbeddingError{BatchStart: start, BatchEnd: end, Err: err}
			}
			copy(vectors[start:], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (c *EmbeddingClient) EmbedQuery(ctx context.Context, text string) (pgvector.Vector, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return pgvector.Vector{}, err
	}
	return vectors[0], nil
}

func (c *EmbeddingClient) embedOne(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	var vectors []pgvector.Vector

	err := c.cfg.Retry.Do(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		resp, err := c.client.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(c.cfg.Model),
		})
		if err != nil {
			return classify("embedding", err)
		}
		if len(resp.Data) != len(texts) {
			return &retry.Permanent{Err: &entity.ExternalError{
				Capability: "embedding",
				Permanent:  true,
				Err:        fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)),
			}}
		}

		vectors = make([]pgvector.Vector, len(resp.Data))
		for _, data := range resp.Data {
			if c.cfg.Dimension > 0 && len(data.Embedding) != c.cfg.Dimension {
				return &retry.Permanent{Err: &entity.ExternalError{
					Capability: "embedding",
					Permanent:  true,
					Err:        fmt.Errorf("embedding dimension %d, expected %d", len(data.Embedding), c.cfg.Dimension),
				}}
			}
			embedding := make([]float32, len(data.Embedding))
			copy(embedding, data.Embedding)
			// resp.Data carries an explicit index, keep input order by it
			vectors[data.Index] = pgvector.NewVector(embedding)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}
