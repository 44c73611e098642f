package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/silkworks-ai/docrag/internal/domain"
	"github.com/silkworks-ai/docrag/internal/service"
)

// MockRetrieverService is a mock implementation of RetrieverService
type MockRetrieverService struct {
	mock.Mock
}

func (m *MockRetrieverService) Ready() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockRetrieverService) Retrieve(ctx context.Context, query string, sourceTypes []domain.SourceType, topK int) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, query, sourceTypes, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}

func (m *MockRetrieverService) RetrieveForContextGeneration(ctx context.Context, userInput string) (*service.ContextBundle, error) {
	args := m.Called(ctx, userInput)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ContextBundle), args.Error(1)
}

func (m *MockRetrieverService) FormatForPrompt(bundle *service.ContextBundle) string {
	args := m.Called(bundle)
	return args.String(0)
}

func sampleScoredChunk() domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{
			Content: "Middleware runs before a request is completed.",
			Metadata: domain.ChunkMetadata{
				SourceURL:  "https://nextjs.org/docs/app/middleware",
				SourceType: domain.SourceFrameworkDocs,
				Section:    "routing",
				Title:      "Middleware",
				Version:    "15",
			},
			TokenCount: 11,
		},
		Similarity: 0.82,
	}
}

func TestHealth(t *testing.T) {
	svc := new(MockRetrieverService)
	svc.On("Ready").Return(true)

	handler := NewRetrieveHandler(svc)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/health", nil)

	handler.Health(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.RetrieverLoaded)
}

func TestHealth_RetrieverNotLoaded(t *testing.T) {
	svc := new(MockRetrieverService)
	svc.On("Ready").Return(false)

	handler := NewRetrieveHandler(svc)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/health", nil)

	handler.Health(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.RetrieverLoaded)
}

func TestRetrieve_Success(t *testing.T) {
	svc := new(MockRetrieverService)
	svc.On("Ready").Return(true)
	svc.On("Retrieve", mock.Anything, "how does middleware work", []domain.SourceType{domain.SourceFrameworkDocs}, 3).
		Return([]domain.ScoredChunk{sampleScoredChunk()}, nil)

	handler := NewRetrieveHandler(svc)
	body, _ := json.Marshal(RetrieveRequest{
		Query:       "how does middleware work",
		SourceTypes: []string{"framework-docs"},
		TopK:        3,
	})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader(body))

	handler.Retrieve(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp RetrieveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Chunks, 1)
	assert.Equal(t, "Middleware runs before a request is completed.", resp.Chunks[0].Content)
	assert.Equal(t, "framework-docs", resp.Chunks[0].Metadata.SourceType)
	assert.Equal(t, "Middleware", resp.Chunks[0].Metadata.Title)
	assert.InDelta(t, 0.82, resp.Chunks[0].Similarity, 1e-9)
	svc.AssertExpectations(t)
}

func TestRetrieve_EmptyResultIsEmptyArray(t *testing.T) {
	svc := new(MockRetrieverService)
	svc.On("Ready").Return(true)
	svc.On("Retrieve", mock.Anything, "obscure topic", []domain.SourceType{}, 0).
		Return([]domain.ScoredChunk{}, nil)

	handler := NewRetrieveHandler(svc)
	body, _ := json.Marshal(RetrieveRequest{Query: "obscure topic"})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader(body))

	handler.Retrieve(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"chunks":[]}`, w.Body.String())
}

func TestRetrieve_InvalidBody(t *testing.T) {
	svc := new(MockRetrieverService)
	svc.On("Ready").Return(true)

	handler := NewRetrieveHandler(svc)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader([]byte("{not json")))

	handler.Retrieve(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	svc := new(MockRetrieverService)
	svc.On("Ready").Return(true)
	svc.On("Retrieve", mock.Anything, "", []domain.SourceType{}, 0).
		Return(nil, domain.ErrEmptyQuery)

	handler := NewRetrieveHandler(svc)
	body, _ := json.Marshal(RetrieveRequest{})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader(body))

	handler.Retrieve(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "query cannot be empty")
}

func TestRetrieve_UnknownSourceType(t *testing.T) {
	svc := new(MockRetrieverService)
	svc.On("Ready").Return(true)

	handler := NewRetrieveHandler(svc)
	body, _ := json.Marshal(RetrieveRequest{
		Query:       "anything",
		SourceTypes: []string{"forum-posts"},
	})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader(body))

	handler.Retrieve(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRetrieve_NotReady(t *testing.T) {
	svc := new(MockRetrieverService)
	svc.On("Ready").Return(false)

	handler := NewRetrieveHandler(svc)
	body, _ := json.Marshal(RetrieveRequest{Query: "anything"})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader(body))

	handler.Retrieve(w, r)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRetrieveForContext_Success(t *testing.T) {
	svc := new(MockRetrieverService)
	bundle := &service.ContextBundle{
		Framework: []domain.ScoredChunk{sampleScoredChunk()},
		Security:  []domain.ScoredChunk{},
		SEO:       []domain.ScoredChunk{},
	}
	svc.On("Ready").Return(true)
	svc.On("RetrieveForContextGeneration", mock.Anything, "build a login page").Return(bundle, nil)
	svc.On("FormatForPrompt", bundle).Return("## Reference Documentation\n\n...")

	handler := NewRetrieveHandler(svc)
	body, _ := json.Marshal(ContextRequest{UserInput: "build a login page"})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/retrieve-for-context", bytes.NewReader(body))

	handler.RetrieveForContext(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ContextResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.FormattedContext, "Reference Documentation")
	require.Len(t, resp.Raw.Framework, 1)
	assert.Empty(t, resp.Raw.Security)
	assert.Empty(t, resp.Raw.SEO)
	svc.AssertExpectations(t)
}

func TestRetrieveForContext_EmptyInput(t *testing.T) {
	svc := new(MockRetrieverService)
	svc.On("Ready").Return(true)
	svc.On("RetrieveForContextGeneration", mock.Anything, "").Return(nil, domain.ErrEmptyUserInput)

	handler := NewRetrieveHandler(svc)
	body, _ := json.Marshal(ContextRequest{})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/retrieve-for-context", bytes.NewReader(body))

	handler.RetrieveForContext(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetrieveForContext_NotReady(t *testing.T) {
	svc := new(MockRetrieverService)
	svc.On("Ready").Return(false)

	handler := NewRetrieveHandler(svc)
	body, _ := json.Marshal(ContextRequest{UserInput: "anything"})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/retrieve-for-context", bytes.NewReader(body))

	handler.RetrieveForContext(w, r)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
