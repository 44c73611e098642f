package client

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type chunkMetadata struct {
	SourceURL  string `json:"source_url"`
	SourceType string `json:"source_type"`
	Section    string `json:"section,omitempty"`
	Title      string `json:"title"`
	Version    string `json:"version,omitempty"`
}

type retrievedChunk struct {
	Content    string        `json:"content"`
	Metadata   chunkMetadata `json:"metadata"`
	Similarity float64       `json:"similarity"`
	TokenCount int           `json:"token_count,omitempty"`
}

type retrieveResponse struct {
	Chunks []retrievedChunk `json:"chunks"`
}

// RetrieveCmd returns the retrieve command
func RetrieveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retrieve <query>",
		Short: "Search the documentation index",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRetrieve,
	}

	cmd.Flags().StringSlice("source-type", nil, "Restrict to source types (framework-docs, security-docs, seo-docs)")
	cmd.Flags().Int("top-k", 0, "Number of chunks to return (server default when 0)")
	cmd.Flags().Bool("json", false, "Output raw JSON")

	return cmd
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	sourceTypes, _ := cmd.Flags().GetStringSlice("source-type")
	topK, _ := cmd.Flags().GetInt("top-k")

	req := map[string]interface{}{
		"query": strings.Join(args, " "),
	}
	if len(sourceTypes) > 0 {
		req["source_types"] = sourceTypes
	}
	if topK > 0 {
		req["top_k"] = topK
	}

	var resp retrieveResponse
	if err := api.Post("/retrieve", req, &resp); err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(resp)
	}

	if len(resp.Chunks) == 0 {
		fmt.Println("No matching chunks.")
		return nil
	}

	for i, chunk := range resp.Chunks {
		fmt.Printf("%d. %s (%.2f) [%s]\n", i+1, chunk.Metadata.Title, chunk.Similarity, chunk.Metadata.SourceType)
		fmt.Printf("   %s\n", chunk.Metadata.SourceURL)
		fmt.Printf("   %s\n\n", snippet(chunk.Content, 200))
	}

	return nil
}

func snippet(content string, max int) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}
