package domain

import "strings"

// SourceType tags a documentation corpus so retrieval can filter by category.
type SourceType string

const (
	SourceFrameworkDocs SourceType = "framework-docs"
	SourceSecurityDocs  SourceType = "security-docs"
	SourceSEODocs       SourceType = "seo-docs"
)

// KnownSourceTypes lists the source types the bundled scrapers produce.
// Search filters accept arbitrary values; this set is for validation of
// ingest and clear operations.
func KnownSourceTypes() []SourceType {
	return []SourceType{SourceFrameworkDocs, SourceSecurityDocs, SourceSEODocs}
}

// IsKnown reports whether the source type is one the pipeline ingests.
func (s SourceType) IsKnown() bool {
	switch s {
	case SourceFrameworkDocs, SourceSecurityDocs, SourceSEODocs:
		return true
	}
	return false
}

// ChunkMetadata carries the provenance of a chunk. ChunkIndex is the chunk's
// 0-based position among the raw split candidates of its parent document;
// TotalChunks is the raw candidate count, so indices may have gaps where
// undersized candidates were discarded.
type ChunkMetadata struct {
	SourceURL   string
	SourceType  SourceType
	Section     string
	Title       string
	Version     string
	ChunkIndex  int
	TotalChunks int
}

// Chunk is a retrieval-sized passage of a source document.
type Chunk struct {
	Content    string
	Metadata   ChunkMetadata
	TokenCount int
}

// Validate checks the invariants every chunk must satisfy before storage.
func (c *Chunk) Validate() error {
	if strings.TrimSpace(c.Content) == "" {
		return ErrEmptyContent
	}
	if c.Metadata.ChunkIndex < 0 || c.Metadata.ChunkIndex >= c.Metadata.TotalChunks {
		return NewDomainError(ErrCodeValidation, "chunk index out of range")
	}
	return nil
}

// StoredChunk is a chunk as persisted in the vector index, paired with its
// embedding vector.
type StoredChunk struct {
	Chunk
	Embedding []float32
}

// ScoredChunk is a chunk returned from similarity search. Similarity is
// 1 - cosine_distance and is populated only on search results.
type ScoredChunk struct {
	Chunk
	Similarity float64
}
