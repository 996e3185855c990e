package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/riptide-search/riptide/internal/config"
	"github.com/riptide-search/riptide/internal/output"
	"github.com/riptide-search/riptide/internal/search"
)

func newExpandCmd() *cobra.Command {
	var strategy string
	var max int

	cmd := &cobra.Command{
		Use:   "expand <query>",
		Short: "Show synonym expansions for a query",
		Long: `Generate lexical variants of a query via synonym substitution.

Strategies:
  selective  one variant per synonym substitution (default)
  best       one variant per token, using its top synonym
  all        cartesian product of all substitutions`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			cfg, err := config.Load(config.DefaultPath(corpusDir))
			if err != nil {
				return err
			}
			if strategy != "" {
				cfg.Expansion.Strategy = strategy
			}
			if max > 0 {
				cfg.Expansion.MaxExpansions = max
			}

			expander, err := search.NewQueryExpander(cfg.Expansion, nil)
			if err != nil {
				return err
			}
			variants, err := expander.Expand(query)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			for _, v := range variants {
				out.Status("", v)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "Expansion strategy: selective, best, all")
	cmd.Flags().IntVarP(&max, "max", "m", 0, "Maximum number of variants")
	return cmd
}
