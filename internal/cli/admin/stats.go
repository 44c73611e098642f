package admin

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/silkworks-ai/docrag/internal/config"
	"github.com/silkworks-ai/docrag/internal/database"
	"github.com/silkworks-ai/docrag/internal/domain"
	"github.com/silkworks-ai/docrag/internal/repository"
)

// StatsCmd returns the stats command
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show chunk counts per source type",
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	counts, err := repository.NewChunkRepository(pool).CountBySourceType(ctx)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}

	var total int64
	for _, st := range domain.KnownSourceTypes() {
		fmt.Printf("%-16s %d\n", st, counts[st])
		total += counts[st]
	}
	fmt.Printf("%-16s %d\n", "total", total)

	return nil
}
