package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/silkworks-ai/docrag/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "docrag",
		Short: "docrag CLI - documentation retrieval for AI agents",
		Long: `docrag CLI provides commands to query the documentation index.

Environment variables:
  DOCRAG_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")

	rootCmd.AddCommand(client.RetrieveCmd())
	rootCmd.AddCommand(client.ContextCmd())
	rootCmd.AddCommand(client.HealthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
