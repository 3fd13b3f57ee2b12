package main

import (
	"encoding/json"
	"fmt"

	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/spf13/cobra"
)

type searchFlags struct {
	threshold float64
	topK      int
	json      bool
}

func (c *cli) newSearchCmd() *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the knowledge base",
		Long: `Embeds the query and returns the stored chunks whose cosine similarity is
strictly above the threshold, best first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults := c.kb.Defaults()
			if !cmd.Flags().Changed("threshold") {
				f.threshold = defaults.SimilarityThreshold
			}
			if !cmd.Flags().Changed("top-k") {
				f.topK = defaults.TopK
			}
			return c.runSearch(cmd, args[0], f)
		},
	}
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "minimum similarity, exclusive (default from settings)")
	cmd.Flags().IntVarP(&f.topK, "top-k", "k", 0, "maximum number of results (default from settings)")
	cmd.Flags().BoolVar(&f.json, "json", false, "output results as JSON")
	return cmd
}

func (c *cli) runSearch(cmd *cobra.Command, query string, f searchFlags) error {
	results, err := c.kb.Search(cmd.Context(), query, f.threshold, f.topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if f.json {
		if results == nil {
			results = []commonModels.SimilarityResult{}
		}
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No results found.")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s page %d (%.2f)\n", i+1, r.Metadata.Source, r.Metadata.Page, r.Similarity)
		fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", r.Content)
	}
	return nil
}
