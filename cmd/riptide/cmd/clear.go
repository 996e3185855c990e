package cmd

import (
	"github.com/spf13/cobra"

	"github.com/riptide-search/riptide/internal/output"
)

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty both indices",
		Long:  "Reset the sparse and dense indices to empty without deleting configuration.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine(cmd.Context(), corpusDir)
			if err != nil {
				return err
			}
			defer eng.close()

			if err := eng.searcher.Clear(cmd.Context()); err != nil {
				return err
			}
			if err := eng.save(); err != nil {
				return err
			}

			output.New(cmd.OutOrStdout()).Success("Index cleared")
			return nil
		},
	}
}
