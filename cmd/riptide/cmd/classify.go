package cmd

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/riptide-search/riptide/internal/config"
	"github.com/riptide-search/riptide/internal/output"
	"github.com/riptide-search/riptide/internal/search"
)

func newClassifyCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "classify <query>",
		Short: "Classify a query's intent",
		Long: `Classify a query into one of six intent types (factual, conceptual,
procedural, comparative, exploratory, technical) and show the
recommended retrieval strategy weights.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			cfg, err := config.Load(config.DefaultPath(corpusDir))
			if err != nil {
				return err
			}

			classifier := search.NewRuleClassifier(cfg.Classifier)
			result, err := classifier.Classify(query)
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			out := output.New(cmd.OutOrStdout())
			out.Statusf("🏷️ ", "Query type: %s (confidence: %.2f)", result.QueryType, result.Confidence)
			out.Newline()
			out.Status("", "Recommended strategy weights:")

			keys := make([]string, 0, len(result.Recommendations))
			for k := range result.Recommendations {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				out.Statusf("", "  %-24s %.2f", k, result.Recommendations[k])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}
