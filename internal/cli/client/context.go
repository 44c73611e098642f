package client

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type contextBundle struct {
	Framework []retrievedChunk `json:"framework"`
	Security  []retrievedChunk `json:"security"`
	SEO       []retrievedChunk `json:"seo"`
}

type contextResponse struct {
	FormattedContext string        `json:"formatted_context"`
	Raw              contextBundle `json:"raw"`
}

// ContextCmd returns the context command
func ContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context <user-input>",
		Short: "Build a prompt-ready documentation context block",
		Long: `Run the categorized retrieval fan-out for a user request and print
the formatted context block, ready to paste into a prompt.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runContext,
	}

	cmd.Flags().Bool("json", false, "Output raw JSON including per-category chunks")

	return cmd
}

func runContext(cmd *cobra.Command, args []string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := map[string]string{"user_input": strings.Join(args, " ")}

	var resp contextResponse
	if err := api.Post("/retrieve-for-context", req, &resp); err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(resp)
	}

	if resp.FormattedContext == "" {
		fmt.Println("No relevant documentation found.")
		return nil
	}

	fmt.Println(resp.FormattedContext)
	return nil
}
