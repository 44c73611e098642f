package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/silkworks-ai/docrag/internal/api"
	"github.com/silkworks-ai/docrag/internal/domain"
	"github.com/silkworks-ai/docrag/internal/service"
)

type RetrieverService interface {
	Ready() bool
	Retrieve(ctx context.Context, query string, sourceTypes []domain.SourceType, topK int) ([]domain.ScoredChunk, error)
	RetrieveForContextGeneration(ctx context.Context, userInput string) (*service.ContextBundle, error)
	FormatForPrompt(bundle *service.ContextBundle) string
}

type RetrieveHandler struct {
	svc RetrieverService
}

func NewRetrieveHandler(svc RetrieverService) *RetrieveHandler {
	return &RetrieveHandler{svc: svc}
}

type RetrieveRequest struct {
	Query       string   `json:"query"`
	SourceTypes []string `json:"source_types,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
}

type ChunkMetadataResponse struct {
	SourceURL  string `json:"source_url"`
	SourceType string `json:"source_type"`
	Section    string `json:"section,omitempty"`
	Title      string `json:"title"`
	Version    string `json:"version,omitempty"`
}

type ChunkResponse struct {
	Content    string                `json:"content"`
	Metadata   ChunkMetadataResponse `json:"metadata"`
	Similarity float64               `json:"similarity"`
	TokenCount int                   `json:"token_count,omitempty"`
}

type RetrieveResponse struct {
	Chunks []*ChunkResponse `json:"chunks"`
}

type ContextRequest struct {
	UserInput string `json:"user_input"`
}

type ContextBundleResponse struct {
	Framework []*ChunkResponse `json:"framework"`
	Security  []*ChunkResponse `json:"security"`
	SEO       []*ChunkResponse `json:"seo"`
}

type ContextResponse struct {
	FormattedContext string                `json:"formatted_context"`
	Raw              ContextBundleResponse `json:"raw"`
}

type HealthResponse struct {
	Status          string `json:"status"`
	RetrieverLoaded bool   `json:"retriever_loaded"`
}

// Health reports liveness plus whether the retriever is wired up
func (h *RetrieveHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, HealthResponse{
		Status:          "healthy",
		RetrieverLoaded: h.svc.Ready(),
	})
}

// Retrieve runs a single similarity search with optional source filters
func (h *RetrieveHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Ready() {
		api.HandleError(w, domain.ErrRetrieverNotReady)
		return
	}

	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sourceTypes := make([]domain.SourceType, 0, len(req.SourceTypes))
	for _, raw := range req.SourceTypes {
		st := domain.SourceType(raw)
		if !st.IsKnown() {
			api.HandleError(w, domain.ErrInvalidSourceType)
			return
		}
		sourceTypes = append(sourceTypes, st)
	}

	chunks, err := h.svc.Retrieve(r.Context(), req.Query, sourceTypes, req.TopK)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, RetrieveResponse{Chunks: toChunkResponses(chunks)})
}

// RetrieveForContext runs the categorized fan-out and returns both the
// prompt-ready context block and the raw per-category chunks
func (h *RetrieveHandler) RetrieveForContext(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Ready() {
		api.HandleError(w, domain.ErrRetrieverNotReady)
		return
	}

	var req ContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bundle, err := h.svc.RetrieveForContextGeneration(r.Context(), req.UserInput)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, ContextResponse{
		FormattedContext: h.svc.FormatForPrompt(bundle),
		Raw: ContextBundleResponse{
			Framework: toChunkResponses(bundle.Framework),
			Security:  toChunkResponses(bundle.Security),
			SEO:       toChunkResponses(bundle.SEO),
		},
	})
}

func toChunkResponses(chunks []domain.ScoredChunk) []*ChunkResponse {
	responses := make([]*ChunkResponse, len(chunks))
	for i, chunk := range chunks {
		responses[i] = &ChunkResponse{
			Content: chunk.Content,
			Metadata: ChunkMetadataResponse{
				SourceURL:  chunk.Metadata.SourceURL,
				SourceType: string(chunk.Metadata.SourceType),
				Section:    chunk.Metadata.Section,
				Title:      chunk.Metadata.Title,
				Version:    chunk.Metadata.Version,
			},
			Similarity: chunk.Similarity,
			TokenCount: chunk.TokenCount,
		}
	}
	return responses
}
