package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

type healthResponse struct {
	Status          string `json:"status"`
	RetrieverLoaded bool   `json:"retriever_loaded"`
}

// HealthCmd returns the health command
func HealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var resp healthResponse
			if err := api.Get("/health", &resp); err != nil {
				return err
			}

			fmt.Printf("status: %s\nretriever loaded: %t\n", resp.Status, resp.RetrieverLoaded)
			return nil
		},
	}
}
