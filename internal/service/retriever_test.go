package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/silkworks-ai/docrag/internal/domain"
)

// MockChunkIndex is a mock implementation of ChunkIndex
type MockChunkIndex struct {
	mock.Mock
}

func (m *MockChunkIndex) Search(ctx context.Context, embedding []float32, filters SearchFilters, topK int, threshold float64) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, embedding, filters, topK, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}

// MockQueryEmbedder is a mock implementation of QueryEmbedder
type MockQueryEmbedder struct {
	mock.Mock
}

func (m *MockQueryEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func scoredChunk(title, content string, similarity float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{
			Content: content,
			Metadata: domain.ChunkMetadata{
				Title:       title,
				SourceType:  domain.SourceFrameworkDocs,
				TotalChunks: 1,
			},
			TokenCount: 150,
		},
		Similarity: similarity,
	}
}

func newTestRetriever(embedder QueryEmbedder, index ChunkIndex) *Retriever {
	return NewRetriever(embedder, index, DefaultRetrieverConfig())
}

func TestRetrieve_Success(t *testing.T) {
	mockEmbedder := new(MockQueryEmbedder)
	mockIndex := new(MockChunkIndex)
	retriever := newTestRetriever(mockEmbedder, mockIndex)

	ctx := context.Background()
	embedding := []float32{0.1, 0.2, 0.3}
	expected := []domain.ScoredChunk{scoredChunk("Routing", "Pages are routes.", 0.82)}

	mockEmbedder.On("EmbedQuery", ctx, "how does routing work").Return(embedding, nil)
	mockIndex.On("Search", ctx, embedding,
		SearchFilters{SourceTypes: []domain.SourceType{domain.SourceFrameworkDocs}},
		5, 0.3).Return(expected, nil)

	results, err := retriever.Retrieve(ctx, "how does routing work",
		[]domain.SourceType{domain.SourceFrameworkDocs}, 0)

	require.NoError(t, err)
	assert.Equal(t, expected, results)
	mockEmbedder.AssertExpectations(t)
	mockIndex.AssertExpectations(t)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	retriever := newTestRetriever(new(MockQueryEmbedder), new(MockChunkIndex))

	_, err := retriever.Retrieve(context.Background(), "   ", nil, 5)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestRetrieve_EmptyResultIsNotAnError(t *testing.T) {
	mockEmbedder := new(MockQueryEmbedder)
	mockIndex := new(MockChunkIndex)
	retriever := newTestRetriever(mockEmbedder, mockIndex)

	mockEmbedder.On("EmbedQuery", mock.Anything, mock.Anything).Return([]float32{1}, nil)
	mockIndex.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.ScoredChunk{}, nil)

	results, err := retriever.Retrieve(context.Background(), "obscure topic", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieve_SearchError(t *testing.T) {
	mockEmbedder := new(MockQueryEmbedder)
	mockIndex := new(MockChunkIndex)
	retriever := newTestRetriever(mockEmbedder, mockIndex)

	mockEmbedder.On("EmbedQuery", mock.Anything, mock.Anything).Return([]float32{1}, nil)
	mockIndex.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	_, err := retriever.Retrieve(context.Background(), "anything", nil, 5)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "vector search failed")
}

func TestRetrieveForContextGeneration_AllCategoriesTriggered(t *testing.T) {
	mockEmbedder := new(MockQueryEmbedder)
	mockIndex := new(MockChunkIndex)
	retriever := newTestRetriever(mockEmbedder, mockIndex)

	ctx := context.Background()
	input := "Build a blog with SEO and a login form"

	mockEmbedder.On("EmbedQuery", ctx, "framework implementation patterns for: "+input).
		Return([]float32{1}, nil)
	mockEmbedder.On("EmbedQuery", ctx, "security best practices for: "+input).
		Return([]float32{2}, nil)
	mockEmbedder.On("EmbedQuery", ctx, "SEO and performance optimization for: "+input).
		Return([]float32{3}, nil)

	mockIndex.On("Search", ctx, []float32{1},
		SearchFilters{SourceTypes: []domain.SourceType{domain.SourceFrameworkDocs}}, 3, 0.3).
		Return([]domain.ScoredChunk{scoredChunk("Routing", "routing docs", 0.8)}, nil)
	mockIndex.On("Search", ctx, []float32{2},
		SearchFilters{SourceTypes: []domain.SourceType{domain.SourceSecurityDocs}}, 3, 0.3).
		Return([]domain.ScoredChunk{scoredChunk("Hashing", "hash passwords", 0.7)}, nil)
	mockIndex.On("Search", ctx, []float32{3},
		SearchFilters{SourceTypes: []domain.SourceType{domain.SourceSEODocs}}, 2, 0.3).
		Return([]domain.ScoredChunk{scoredChunk("Metadata", "use meta tags", 0.6)}, nil)

	bundle, err := retriever.RetrieveForContextGeneration(ctx, input)
	require.NoError(t, err)

	assert.NotEmpty(t, bundle.Framework)
	assert.NotEmpty(t, bundle.Security)
	assert.NotEmpty(t, bundle.SEO)
	mockEmbedder.AssertExpectations(t)
	mockIndex.AssertExpectations(t)
}

func TestRetrieveForContextGeneration_OnlyFrameworkTriggered(t *testing.T) {
	mockEmbedder := new(MockQueryEmbedder)
	mockIndex := new(MockChunkIndex)
	retriever := newTestRetriever(mockEmbedder, mockIndex)

	ctx := context.Background()
	input := "internal CLI tool"

	mockEmbedder.On("EmbedQuery", ctx, "framework implementation patterns for: "+input).
		Return([]float32{1}, nil)
	mockIndex.On("Search", ctx, []float32{1},
		SearchFilters{SourceTypes: []domain.SourceType{domain.SourceFrameworkDocs}}, 3, 0.3).
		Return([]domain.ScoredChunk{scoredChunk("CLI", "command docs", 0.5)}, nil)

	bundle, err := retriever.RetrieveForContextGeneration(ctx, input)
	require.NoError(t, err)

	assert.NotEmpty(t, bundle.Framework)
	assert.Empty(t, bundle.Security)
	assert.Empty(t, bundle.SEO)
	// Exactly one embed call: the gated categories never ran.
	mockEmbedder.AssertNumberOfCalls(t, "EmbedQuery", 1)
}

func TestRetrieveForContextGeneration_CaseInsensitiveTriggers(t *testing.T) {
	assert.True(t, containsAnyKeyword("Needs STRIPE payments", securityKeywords))
	assert.True(t, containsAnyKeyword("A Marketing Site", publicSiteKeywords))
	assert.False(t, containsAnyKeyword("plain calculator", securityKeywords))
	assert.False(t, containsAnyKeyword("plain calculator", publicSiteKeywords))
}

func TestRetrieveForContextGeneration_EmptyInput(t *testing.T) {
	retriever := newTestRetriever(new(MockQueryEmbedder), new(MockChunkIndex))

	_, err := retriever.RetrieveForContextGeneration(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrEmptyUserInput)
}

func TestRetrieveForContextGeneration_SubQueryFailureFailsCall(t *testing.T) {
	mockEmbedder := new(MockQueryEmbedder)
	mockIndex := new(MockChunkIndex)
	retriever := newTestRetriever(mockEmbedder, mockIndex)

	mockEmbedder.On("EmbedQuery", mock.Anything, mock.Anything).Return(nil, errors.New("model offline"))

	_, err := retriever.RetrieveForContextGeneration(context.Background(), "plain website")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "framework-docs")
}

func TestFormatForPrompt_EmptyBundle(t *testing.T) {
	retriever := newTestRetriever(new(MockQueryEmbedder), new(MockChunkIndex))

	bundle := &ContextBundle{
		Framework: []domain.ScoredChunk{},
		Security:  []domain.ScoredChunk{},
		SEO:       []domain.ScoredChunk{},
	}
	assert.Equal(t, "", retriever.FormatForPrompt(bundle))
	assert.Equal(t, "", retriever.FormatForPrompt(nil))
}

func TestFormatForPrompt_FrameworkOnly(t *testing.T) {
	retriever := newTestRetriever(new(MockQueryEmbedder), new(MockChunkIndex))

	bundle := &ContextBundle{
		Framework: []domain.ScoredChunk{scoredChunk("T", "C", 0.9)},
		Security:  []domain.ScoredChunk{},
		SEO:       []domain.ScoredChunk{},
	}

	out := retriever.FormatForPrompt(bundle)
	assert.Contains(t, out, "### T\nC")
	assert.Contains(t, out, "## Reference Documentation")
	assert.Contains(t, out, "## Framework Implementation Patterns")
	assert.NotContains(t, out, "Security")
	assert.NotContains(t, out, "SEO")
}

func TestFormatForPrompt_SectionOrderIsFixed(t *testing.T) {
	retriever := newTestRetriever(new(MockQueryEmbedder), new(MockChunkIndex))

	bundle := &ContextBundle{
		Framework: []domain.ScoredChunk{scoredChunk("F", "framework passage", 0.9)},
		Security:  []domain.ScoredChunk{scoredChunk("S", "security passage", 0.8)},
		SEO:       []domain.ScoredChunk{scoredChunk("O", "seo passage", 0.7)},
	}

	out := retriever.FormatForPrompt(bundle)

	iFramework := strings.Index(out, "## Framework Implementation Patterns")
	iSecurity := strings.Index(out, "## Security Requirements")
	iSEO := strings.Index(out, "## SEO & Performance Guidelines")

	require.GreaterOrEqual(t, iFramework, 0)
	assert.Less(t, iFramework, iSecurity)
	assert.Less(t, iSecurity, iSEO)
	assert.Contains(t, out, "\n\n---\n\n")
}

func TestRetriever_Ready(t *testing.T) {
	var nilRetriever *Retriever
	assert.False(t, nilRetriever.Ready())

	assert.False(t, NewRetriever(nil, nil, DefaultRetrieverConfig()).Ready())
	assert.True(t, newTestRetriever(new(MockQueryEmbedder), new(MockChunkIndex)).Ready())
}
