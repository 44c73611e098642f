package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/silkworks-ai/docrag/internal/config"
	"github.com/silkworks-ai/docrag/internal/database"
	"github.com/silkworks-ai/docrag/internal/domain"
	"github.com/silkworks-ai/docrag/internal/openai"
	"github.com/silkworks-ai/docrag/internal/repository"
	"github.com/silkworks-ai/docrag/internal/scrape"
	"github.com/silkworks-ai/docrag/internal/service"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [source-type...]",
		Short: "Scrape, chunk, embed, and index documentation sources",
		Long: `Run the ingestion pipeline for the given source types
(framework-docs, security-docs, seo-docs). With no arguments, all
sources are ingested.`,
		RunE: runIngest,
	}

	cmd.Flags().Bool("clear", false, "Clear existing chunks for each source type before inserting")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("%w: set DOCRAG_OPENAI_API_KEY", domain.ErrMissingAPIKey)
	}

	sourceTypes := domain.KnownSourceTypes()
	if len(args) > 0 {
		sourceTypes = make([]domain.SourceType, len(args))
		for i, arg := range args {
			st := domain.SourceType(arg)
			if !st.IsKnown() {
				return fmt.Errorf("unknown source type %q (known: %v)", arg, domain.KnownSourceTypes())
			}
			sourceTypes[i] = st
		}
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimension,
	})
	if err := embeddingClient.Verify(ctx); err != nil {
		return fmt.Errorf("embedding provider verification failed: %w", err)
	}

	chunker, err := service.NewChunker(service.ChunkConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		MinChunkSize: cfg.MinChunkSize,
	})
	if err != nil {
		return fmt.Errorf("failed to create chunker: %w", err)
	}

	var archive service.DocumentArchive
	if cfg.HasS3() {
		s3Archive, err := newArchive(ctx, cfg)
		if err != nil {
			return err
		}
		archive = s3Archive
	}

	chunkRepo := repository.NewChunkRepository(pool)
	embeddingSvc := service.NewEmbeddingService(embeddingClient, cfg.EmbedBatchSize)
	scraper := scrape.NewScraper(scrape.NewFetcher())
	ingestSvc := service.NewIngestService(scraper, chunker, embeddingSvc, chunkRepo, archive, cfg.InsertBatchSize)

	clearExisting, _ := cmd.Flags().GetBool("clear")
	for _, sourceType := range sourceTypes {
		report, err := ingestSvc.IngestSource(ctx, sourceType, clearExisting)
		if err != nil {
			return err
		}
		log.Printf("done: %s (%d documents, %d chunks)", report.SourceType, report.Documents, report.Chunks)
	}

	return nil
}
