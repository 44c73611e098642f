package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/silkworks-ai/docrag/internal/service"
)

// Ingestor defines the interface for running a full ingestion pass
type Ingestor interface {
	IngestAll(ctx context.Context, clearExisting bool) ([]service.IngestReport, error)
}

// RefreshTask re-ingests every documentation source so the index tracks
// upstream changes. Existing chunks are cleared per source before insert,
// which keeps a failed scrape from wiping unrelated sources.
type RefreshTask struct {
	ingestor Ingestor
}

// NewRefreshTask creates a new RefreshTask instance
func NewRefreshTask(ingestor Ingestor) *RefreshTask {
	return &RefreshTask{ingestor: ingestor}
}

// Run implements the Task interface
func (t *RefreshTask) Run(ctx context.Context) error {
	log.Println("Starting scheduled documentation refresh")

	reports, err := t.ingestor.IngestAll(ctx, true)
	for _, report := range reports {
		log.Printf("Refreshed %s: %d documents, %d chunks (cleared %d)",
			report.SourceType, report.Documents, report.Chunks, report.ClearedChunks)
	}
	if err != nil {
		return fmt.Errorf("refresh aborted: %w", err)
	}

	log.Println("Documentation refresh complete")
	return nil
}
