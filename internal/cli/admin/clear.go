package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/silkworks-ai/docrag/internal/config"
	"github.com/silkworks-ai/docrag/internal/database"
	"github.com/silkworks-ai/docrag/internal/domain"
	"github.com/silkworks-ai/docrag/internal/repository"
)

// ClearCmd returns the clear command
func ClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear [source-type...]",
		Short: "Remove indexed chunks",
		Long: `Delete stored chunks for the given source types, or every
chunk when --all is set.`,
		RunE: runClear,
	}

	cmd.Flags().Bool("all", false, "Clear every source type")

	return cmd
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	clearAll, _ := cmd.Flags().GetBool("all")
	if !clearAll && len(args) == 0 {
		return fmt.Errorf("specify source types to clear, or pass --all")
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

	chunkRepo := repository.NewChunkRepository(pool)

	if clearAll {
		deleted, err := chunkRepo.ClearAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear chunks: %w", err)
		}
		log.Printf("cleared %d chunks", deleted)
		return nil
	}

	for _, arg := range args {
		st := domain.SourceType(arg)
		if !st.IsKnown() {
			return fmt.Errorf("unknown source type %q (known: %v)", arg, domain.KnownSourceTypes())
		}
		deleted, err := chunkRepo.ClearBySourceType(ctx, st)
		if err != nil {
			return fmt.Errorf("failed to clear %s: %w", st, err)
		}
		log.Printf("cleared %d chunks for %s", deleted, st)
	}

	return nil
}
