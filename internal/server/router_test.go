package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silkworks-ai/docrag/internal/api/handlers"
	"github.com/silkworks-ai/docrag/internal/domain"
	"github.com/silkworks-ai/docrag/internal/service"
)

// stubRetriever backs the router tests without a database or embedder.
type stubRetriever struct {
	ready bool
}

func (s *stubRetriever) Ready() bool { return s.ready }

func (s *stubRetriever) Retrieve(ctx context.Context, query string, sourceTypes []domain.SourceType, topK int) ([]domain.ScoredChunk, error) {
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	return []domain.ScoredChunk{}, nil
}

func (s *stubRetriever) RetrieveForContextGeneration(ctx context.Context, userInput string) (*service.ContextBundle, error) {
	if userInput == "" {
		return nil, domain.ErrEmptyUserInput
	}
	return &service.ContextBundle{
		Framework: []domain.ScoredChunk{},
		Security:  []domain.ScoredChunk{},
		SEO:       []domain.ScoredChunk{},
	}, nil
}

func (s *stubRetriever) FormatForPrompt(bundle *service.ContextBundle) string { return "" }

func newTestRouter(ready bool) http.Handler {
	return NewRouter(RouterConfig{
		RetrieveHandler: handlers.NewRetrieveHandler(&stubRetriever{ready: ready}),
	})
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(true)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/health", nil)

	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.RetrieverLoaded)
}

func TestRouter_Retrieve(t *testing.T) {
	router := newTestRouter(true)
	body, _ := json.Marshal(handlers.RetrieveRequest{Query: "middleware"})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader(body))

	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RetrieveForContext_NotReady(t *testing.T) {
	router := newTestRouter(false)
	body, _ := json.Marshal(handlers.ContextRequest{UserInput: "build a blog"})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/retrieve-for-context", bytes.NewReader(body))

	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(true)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/nope", nil)

	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RejectsOversizedBody(t *testing.T) {
	router := newTestRouter(true)
	huge := strings.Repeat("x", 2*1024*1024)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/retrieve", strings.NewReader(huge))

	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(true)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodOptions, "/retrieve", nil)
	r.Header.Set("Origin", "https://app.example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)

	router.ServeHTTP(w, r)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
