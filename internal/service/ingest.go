package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/silkworks-ai/docrag/internal/domain"
	"github.com/silkworks-ai/docrag/internal/telemetry"
)

// DocumentSource produces documents for a source type, typically by
// scraping its page catalog.
type DocumentSource interface {
	ScrapeSource(ctx context.Context, sourceType domain.SourceType) ([]domain.Document, error)
}

// ChunkStore is the slice of the repository the ingest pipeline needs.
type ChunkStore interface {
	InsertChunks(ctx context.Context, records []domain.StoredChunk, batchSize int) error
	ClearBySourceType(ctx context.Context, sourceType domain.SourceType) (int64, error)
}

// DocumentArchive persists raw scraped documents for audit and replay.
type DocumentArchive interface {
	StoreDocument(ctx context.Context, runID string, doc domain.Document) (string, error)
}

// IngestReport summarizes one ingestion run for a single source type.
type IngestReport struct {
	SourceType    domain.SourceType
	RunID         string
	Documents     int
	Chunks        int
	ClearedChunks int64
}

// IngestService runs the full pipeline for a source type: scrape, chunk,
// embed, store. Archival to object storage is optional and best-effort.
type IngestService struct {
	source          DocumentSource
	chunker         *Chunker
	embedder        *EmbeddingService
	store           ChunkStore
	archive         DocumentArchive
	insertBatchSize int
}

func NewIngestService(source DocumentSource, chunker *Chunker, embedder *EmbeddingService, store ChunkStore, archive DocumentArchive, insertBatchSize int) *IngestService {
	if insertBatchSize <= 0 {
		insertBatchSize = 100
	}
	return &IngestService{
		source:          source,
		chunker:         chunker,
		embedder:        embedder,
		store:           store,
		archive:         archive,
		insertBatchSize: insertBatchSize,
	}
}

// IngestSource scrapes, chunks, embeds, and stores one source type. When
// clearExisting is set, previously stored chunks for the source type are
// removed before inserting, so the index never mixes document versions.
func (s *IngestService) IngestSource(ctx context.Context, sourceType domain.SourceType, clearExisting bool) (*IngestReport, error) {
	if !sourceType.IsKnown() {
		return nil, domain.ErrInvalidSourceType
	}

	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestSource", telemetry.SpanAttributes{
		SourceType: string(sourceType),
		Operation:  "ingest",
	})
	defer span.End()

	report := &IngestReport{
		SourceType: sourceType,
		RunID:      uuid.NewString(),
	}

	docs, err := s.source.ScrapeSource(ctx, sourceType)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape %s: %w", sourceType, err)
	}
	report.Documents = len(docs)
	if len(docs) == 0 {
		log.Printf("No documents scraped for %s, nothing to ingest", sourceType)
		return report, nil
	}

	if s.archive != nil {
		for _, doc := range docs {
			if _, err := s.archive.StoreDocument(ctx, report.RunID, doc); err != nil {
				log.Printf("Failed to archive %s: %v", doc.URL, err)
			}
		}
	}

	chunks := s.chunker.ChunkAllDocuments(docs)
	report.Chunks = len(chunks)
	if len(chunks) == 0 {
		log.Printf("No chunks produced for %s, nothing to ingest", sourceType)
		return report, nil
	}

	embeddings, err := s.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks for %s: %w", sourceType, err)
	}

	records := make([]domain.StoredChunk, len(chunks))
	for i, chunk := range chunks {
		records[i] = domain.StoredChunk{
			Chunk:     chunk,
			Embedding: embeddings[i],
		}
	}

	if clearExisting {
		cleared, err := s.store.ClearBySourceType(ctx, sourceType)
		if err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", sourceType, err)
		}
		report.ClearedChunks = cleared
	}

	if err := s.store.InsertChunks(ctx, records, s.insertBatchSize); err != nil {
		return nil, fmt.Errorf("failed to store chunks for %s: %w", sourceType, err)
	}

	log.Printf("Ingested %s: %d documents, %d chunks (run %s)",
		sourceType, report.Documents, report.Chunks, report.RunID)
	return report, nil
}

// IngestAll runs IngestSource for every known source type, stopping at the
// first failure.
func (s *IngestService) IngestAll(ctx context.Context, clearExisting bool) ([]IngestReport, error) {
	reports := make([]IngestReport, 0, len(domain.KnownSourceTypes()))
	for _, sourceType := range domain.KnownSourceTypes() {
		report, err := s.IngestSource(ctx, sourceType, clearExisting)
		if err != nil {
			return reports, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}
