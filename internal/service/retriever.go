package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/silkworks-ai/docrag/internal/domain"
	"github.com/silkworks-ai/docrag/internal/telemetry"
)

// SearchFilters narrow a similarity search. Filters are conjunctive; within
// an array filter, membership is OR'd ("source_type is one of these").
type SearchFilters struct {
	SourceTypes []domain.SourceType
	Sections    []string
}

// ChunkIndex is the vector index contract the retriever depends on.
type ChunkIndex interface {
	Search(ctx context.Context, embedding []float32, filters SearchFilters, topK int, threshold float64) ([]domain.ScoredChunk, error)
}

// QueryEmbedder embeds search queries in instructed mode.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// RetrieverConfig carries the module-wide retrieval defaults. The configured
// similarity threshold is the single authoritative default; per-call top-k
// overrides it for result count only.
type RetrieverConfig struct {
	TopK                int
	SimilarityThreshold float64
}

// DefaultRetrieverConfig provides the stock retrieval defaults.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		TopK:                5,
		SimilarityThreshold: 0.3,
	}
}

// ContextBundle groups retrieved passages by category for prompt injection.
// All three categories are always present; an untriggered category is an
// empty list, never absent.
type ContextBundle struct {
	Framework []domain.ScoredChunk
	Security  []domain.ScoredChunk
	SEO       []domain.ScoredChunk
}

// Empty reports whether no category retrieved any passages.
func (b *ContextBundle) Empty() bool {
	return len(b.Framework) == 0 && len(b.Security) == 0 && len(b.SEO) == 0
}

// categorySpec describes one sub-query of the context fan-out: when it
// fires, what it asks, where it looks, and how much it takes.
type categorySpec struct {
	heading    string
	sourceType domain.SourceType
	topK       int
	trigger    func(input string) bool
	query      func(input string) string
	assign     func(b *ContextBundle, results []domain.ScoredChunk)
}

var (
	// securityKeywords mark inputs that handle credentials, payments or
	// user data, and so warrant a security sub-query.
	securityKeywords = []string{"auth", "login", "user", "password", "payment", "stripe", "data"}

	// publicSiteKeywords mark public-facing sites that warrant an SEO
	// sub-query.
	publicSiteKeywords = []string{"landing", "marketing", "blog", "portfolio", "business", "seo"}
)

func containsAnyKeyword(input string, keywords []string) bool {
	lowered := strings.ToLower(input)
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// contextCategories is the fixed fan-out table for context retrieval, in
// output order. Framework patterns are always retrieved; security and SEO
// queries are keyword-gated so their retrieval budget is not spent on
// inputs where those corpora are irrelevant.
var contextCategories = []categorySpec{
	{
		heading:    "Framework Implementation Patterns",
		sourceType: domain.SourceFrameworkDocs,
		topK:       3,
		trigger:    func(string) bool { return true },
		query:      func(in string) string { return "framework implementation patterns for: " + in },
		assign:     func(b *ContextBundle, r []domain.ScoredChunk) { b.Framework = r },
	},
	{
		heading:    "Security Requirements",
		sourceType: domain.SourceSecurityDocs,
		topK:       3,
		trigger:    func(in string) bool { return containsAnyKeyword(in, securityKeywords) },
		query:      func(in string) string { return "security best practices for: " + in },
		assign:     func(b *ContextBundle, r []domain.ScoredChunk) { b.Security = r },
	},
	{
		heading:    "SEO & Performance Guidelines",
		sourceType: domain.SourceSEODocs,
		topK:       2,
		trigger:    func(in string) bool { return containsAnyKeyword(in, publicSiteKeywords) },
		query:      func(in string) string { return "SEO and performance optimization for: " + in },
		assign:     func(b *ContextBundle, r []domain.ScoredChunk) { b.SEO = r },
	},
}

// promptPreamble instructs the consuming model to prioritize the retrieved
// reference material over general knowledge.
const promptPreamble = `## Reference Documentation

The following is current, authoritative documentation. Prioritize these patterns over general knowledge when they conflict.

`

// Retriever orchestrates query embedding and filtered vector search, both
// for single queries and for categorized context assembly. It is an
// explicitly constructed, long-lived service shared across requests.
type Retriever struct {
	embedder QueryEmbedder
	index    ChunkIndex
	cfg      RetrieverConfig
}

// NewRetriever creates a Retriever with the given collaborators.
func NewRetriever(embedder QueryEmbedder, index ChunkIndex, cfg RetrieverConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultRetrieverConfig().TopK
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		cfg:      cfg,
	}
}

// Ready reports whether the retriever has all collaborators it needs to
// serve traffic.
func (r *Retriever) Ready() bool {
	return r != nil && r.embedder != nil && r.index != nil
}

// Retrieve embeds the query in instructed mode and searches the index with
// the module-default similarity threshold. An empty result set is a valid
// outcome, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, sourceTypes []domain.SourceType, topK int) ([]domain.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = r.cfg.TopK
	}

	ctx, span := telemetry.StartSpan(ctx, "Retriever.Retrieve", telemetry.SpanAttributes{
		Operation: "retrieve",
	})
	defer span.End()

	embedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.index.Search(ctx, embedding, SearchFilters{SourceTypes: sourceTypes}, topK, r.cfg.SimilarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	return results, nil
}

// RetrieveForContextGeneration fans one free-text input out into the fixed
// category sub-queries and returns the categorized results. Sub-queries run
// sequentially; a failed sub-query fails the whole call.
func (r *Retriever) RetrieveForContextGeneration(ctx context.Context, userInput string) (*ContextBundle, error) {
	if strings.TrimSpace(userInput) == "" {
		return nil, domain.ErrEmptyUserInput
	}

	ctx, span := telemetry.StartSpan(ctx, "Retriever.RetrieveForContextGeneration", telemetry.SpanAttributes{
		Operation: "retrieve_for_context",
	})
	defer span.End()

	bundle := &ContextBundle{
		Framework: []domain.ScoredChunk{},
		Security:  []domain.ScoredChunk{},
		SEO:       []domain.ScoredChunk{},
	}

	for _, cat := range contextCategories {
		if !cat.trigger(userInput) {
			continue
		}

		catCtx, catSpan := telemetry.StartSpan(ctx, "Retriever.categorySearch", telemetry.SpanAttributes{
			SourceType: string(cat.sourceType),
			Category:   cat.heading,
		})
		results, err := r.Retrieve(catCtx, cat.query(userInput), []domain.SourceType{cat.sourceType}, cat.topK)
		catSpan.End()
		if err != nil {
			return nil, fmt.Errorf("%s retrieval failed: %w", cat.sourceType, err)
		}
		cat.assign(bundle, results)
	}

	return bundle, nil
}

// FormatForPrompt renders a bundle as a markdown document ready for prompt
// injection: a fixed preamble, then one section per non-empty category in
// framework, security, seo order, separated by horizontal rules. An empty
// bundle renders as the empty string, meaning "no context to inject".
func (r *Retriever) FormatForPrompt(bundle *ContextBundle) string {
	if bundle == nil || bundle.Empty() {
		return ""
	}

	categoryResults := []struct {
		heading string
		chunks  []domain.ScoredChunk
	}{
		{contextCategories[0].heading, bundle.Framework},
		{contextCategories[1].heading, bundle.Security},
		{contextCategories[2].heading, bundle.SEO},
	}

	sections := make([]string, 0, len(categoryResults))
	for _, cat := range categoryResults {
		if len(cat.chunks) == 0 {
			continue
		}

		passages := make([]string, 0, len(cat.chunks))
		for _, c := range cat.chunks {
			passages = append(passages, fmt.Sprintf("### %s\n%s", c.Metadata.Title, c.Content))
		}
		sections = append(sections, fmt.Sprintf("## %s\n\n%s", cat.heading, strings.Join(passages, "\n\n")))
	}

	return promptPreamble + strings.Join(sections, "\n\n---\n\n")
}
