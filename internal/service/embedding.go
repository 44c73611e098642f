package service

import (
	"context"
	"fmt"
	"math"

	"github.com/silkworks-ai/docrag/internal/domain"
)

// queryInstruction is the retrieval instruction prepended to queries before
// encoding. Documents are embedded without it; this asymmetry is required
// by the embedding scheme and using the wrong mode on either side degrades
// retrieval quality silently.
const queryInstruction = "Represent this sentence for searching relevant passages: "

// DefaultEmbedBatchSize bounds how many passages are sent per API call.
const DefaultEmbedBatchSize = 32

// EmbeddingClient defines the interface for batch embedding generation
type EmbeddingClient interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingService produces L2-normalized vectors for passages and queries.
type EmbeddingService struct {
	client    EmbeddingClient
	batchSize int
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, batchSize int) *EmbeddingService {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &EmbeddingService{
		client:    client,
		batchSize: batchSize,
	}
}

// EmbedDocuments embeds passage contents in order-preserving batches with
// no instruction prefix. Batching never changes the output vectors.
func (s *EmbeddingService) EmbedDocuments(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return [][]float32{}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.client.GenerateEmbeddings(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed documents %d-%d: %w", start, end-1, err)
		}
		for _, v := range batch {
			vectors = append(vectors, normalize(v))
		}
	}

	return vectors, nil
}

// EmbedQuery embeds a search query with the retrieval instruction prefix.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := s.EmbedQueries(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedQueries is the batched form of EmbedQuery.
func (s *EmbeddingService) EmbedQueries(ctx context.Context, queries []string) ([][]float32, error) {
	if len(queries) == 0 {
		return [][]float32{}, nil
	}

	prefixed := make([]string, len(queries))
	for i, q := range queries {
		prefixed[i] = queryInstruction + q
	}

	batch, err := s.client.GenerateEmbeddings(ctx, prefixed)
	if err != nil {
		return nil, fmt.Errorf("failed to embed queries: %w", err)
	}
	if len(batch) != len(queries) {
		return nil, domain.NewDomainError(domain.ErrCodeInternalError,
			fmt.Sprintf("expected %d query embeddings, got %d", len(queries), len(batch)))
	}

	vectors := make([][]float32, len(batch))
	for i, v := range batch {
		vectors[i] = normalize(v)
	}
	return vectors, nil
}

// normalize scales a vector to unit L2 norm. Zero vectors pass through.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
