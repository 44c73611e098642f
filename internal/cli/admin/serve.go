package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/silkworks-ai/docrag/internal/api/handlers"
	"github.com/silkworks-ai/docrag/internal/config"
	"github.com/silkworks-ai/docrag/internal/database"
	"github.com/silkworks-ai/docrag/internal/domain"
	"github.com/silkworks-ai/docrag/internal/jobs"
	"github.com/silkworks-ai/docrag/internal/openai"
	"github.com/silkworks-ai/docrag/internal/repository"
	"github.com/silkworks-ai/docrag/internal/scrape"
	"github.com/silkworks-ai/docrag/internal/server"
	"github.com/silkworks-ai/docrag/internal/service"
	"github.com/silkworks-ai/docrag/internal/storage"
	"github.com/silkworks-ai/docrag/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the retrieval API server",
		Long:  "Start the docrag retrieval API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("%w: set DOCRAG_OPENAI_API_KEY", domain.ErrMissingAPIKey)
	}

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimension,
	})
	if err := embeddingClient.Verify(ctx); err != nil {
		return fmt.Errorf("embedding provider verification failed: %w", err)
	}
	log.Printf("embedding provider verified (%s, %d dimensions)", cfg.EmbeddingModel, cfg.EmbeddingDimension)

	chunkRepo := repository.NewChunkRepository(pool)
	embeddingSvc := service.NewEmbeddingService(embeddingClient, cfg.EmbedBatchSize)
	retriever := service.NewRetriever(embeddingSvc, chunkRepo, service.RetrieverConfig{
		TopK:                cfg.TopK,
		SimilarityThreshold: cfg.SimilarityThreshold,
	})

	// Optional background refresh worker re-ingests all sources on a schedule
	var refreshWorker *jobs.Worker
	if cfg.RefreshInterval > 0 {
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

		scraper := scrape.NewScraper(scrape.NewFetcher())
		ingestSvc := service.NewIngestService(scraper, chunker, embeddingSvc, chunkRepo, archive, cfg.InsertBatchSize)
		refreshWorker = jobs.NewWorker(jobs.NewRefreshTask(ingestSvc), cfg.RefreshInterval)
		go refreshWorker.Start(ctx)
		log.Printf("refresh worker started (interval %v)", cfg.RefreshInterval)
	}

	retrieveHandler := handlers.NewRetrieveHandler(retriever)

	router := server.NewRouter(server.RouterConfig{
		RetrieveHandler: retrieveHandler,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if refreshWorker != nil {
		refreshWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func newArchive(ctx context.Context, cfg *config.Config) (*storage.Archive, error) {
	archive, err := storage.NewArchive(ctx, storage.ArchiveConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create archive client: %w", err)
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure archive bucket: %w", err)
	}
	log.Printf("archive bucket '%s' ready", cfg.S3Bucket)
	return archive, nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
