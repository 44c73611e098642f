package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/silkworks-ai/docrag/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docragd",
		Short: "docrag daemon and admin CLI",
		Long:  "docrag daemon for serving the retrieval API and managing the documentation index",
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.ClearCmd())
	rootCmd.AddCommand(admin.StatsCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
