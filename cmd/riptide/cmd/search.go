package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/riptide-search/riptide/internal/config"
	"github.com/riptide-search/riptide/internal/output"
	"github.com/riptide-search/riptide/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit   int
	format  string
	fusion  string
	useHyDE bool
	explain bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed corpus",
		Long: `Run hybrid search over the indexed corpus.

BM25 and dense results are merged with reciprocal rank fusion by
default; pass --fusion weighted for score-weighted merging.

Examples:
  riptide search "error handling patterns"
  riptide search "setup instructions" --limit 5 --format json
  riptide search "what is rank fusion" --hyde`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVar(&opts.fusion, "fusion", "", "Fusion method: rrf, weighted (default from config)")
	cmd.Flags().BoolVar(&opts.useHyDE, "hyde", false, "Augment the query with hypothetical document terms (requires an llm provider)")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show per-result match explanations")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())

	eng, err := openEngine(ctx, corpusDir, func(cfg *config.Config) {
		if opts.limit > 0 {
			cfg.Hybrid.TopKFinal = opts.limit
		}
		if opts.fusion != "" {
			cfg.Hybrid.Fusion.Method = opts.fusion
		}
	})
	if err != nil {
		return err
	}
	defer eng.close()

	effectiveQuery := query
	if opts.useHyDE {
		effectiveQuery, err = enhanceWithHyDE(ctx, eng, query)
		if err != nil {
			return err
		}
		if effectiveQuery != query {
			slog.Info("hyde_enhanced_query", slog.String("query", effectiveQuery))
		}
	}

	results, err := eng.searcher.Search(ctx, effectiveQuery)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		out.Status("", fmt.Sprintf("No results found for %q", query))
		return nil
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	default:
		return formatText(out, query, results, opts.explain)
	}
}

// enhanceWithHyDE generates hypothetical answer terms for the query.
func enhanceWithHyDE(ctx context.Context, eng *engine, query string) (string, error) {
	provider, err := buildLLM(eng.cfg)
	if err != nil {
		return "", err
	}
	if provider == nil {
		return "", fmt.Errorf("--hyde requires an llm provider; set llm.provider in %s", eng.dataDir)
	}
	defer func() { _ = provider.Close() }()

	hyde, err := search.NewHyDEGenerator(eng.cfg.HyDE, provider)
	if err != nil {
		return "", err
	}
	return hyde.GenerateEnhancedQuery(ctx, query)
}

// formatText prints results with source locations and snippets.
func formatText(out *output.Writer, query string, results []*search.SearchResult, explain bool) error {
	out.Statusf("🔍", "Found %d results for %q:", len(results), query)
	out.Newline()

	for _, r := range results {
		location := r.Chunk.ID
		if src, ok := r.Chunk.Metadata["source"]; ok {
			location = src
			if section, ok := r.Chunk.Metadata["section"]; ok {
				location = fmt.Sprintf("%s § %s", src, section)
			} else if para, ok := r.Chunk.Metadata["paragraph"]; ok {
				location = fmt.Sprintf("%s ¶%s", src, para)
			}
		}

		out.Statusf("", "%d. %s (score: %.3f)", r.Rank, location, r.Score)
		if explain && r.Explanation != "" {
			retriever := r.Metadata["retriever"]
			if retriever == "" {
				retriever = "fused"
			}
			out.Statusf("", "      [%s] %s", retriever, r.Explanation)
		}
		for _, line := range snippet(r.Chunk.Content, 3) {
			out.Status("", "   "+line)
		}
		out.Newline()
	}
	return nil
}

// snippet returns up to the first n lines of content, dropping
// trailing blank lines.
func snippet(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
