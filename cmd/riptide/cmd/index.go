package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/riptide-search/riptide/internal/chunk"
	"github.com/riptide-search/riptide/internal/corpus"
	"github.com/riptide-search/riptide/internal/output"
	"github.com/riptide-search/riptide/internal/store"
)

func newIndexCmd() *cobra.Command {
	var reindex bool

	cmd := &cobra.Command{
		Use:   "index <path>",
		Short: "Index text documents for hybrid search",
		Long: `Index markdown and plain text files under a path into both the
sparse and dense indices. Markdown is chunked by header section,
plain text by paragraph. Hidden directories and gitignored files
are skipped.

Examples:
  riptide index ./docs
  riptide index ./notes --reindex`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), cmd, args[0], reindex)
		},
	}

	cmd.Flags().BoolVar(&reindex, "reindex", false, "Clear existing index before indexing")
	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, path string, reindex bool) error {
	out := output.New(cmd.OutOrStdout())

	eng, err := openEngine(ctx, corpusDir)
	if err != nil {
		return err
	}
	defer eng.close()

	if reindex {
		if err := eng.searcher.Clear(ctx); err != nil {
			return fmt.Errorf("clear index: %w", err)
		}
	}

	chunks, files, err := collectChunks(ctx, path)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		out.Warning(fmt.Sprintf("No indexable documents found under %s", path))
		return nil
	}

	slog.Info("index_started", slog.Int("files", files), slog.Int("chunks", len(chunks)))
	if err := eng.searcher.AddDocuments(ctx, chunks); err != nil {
		return fmt.Errorf("index documents: %w", err)
	}
	if err := eng.save(); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}

	out.Successf("Indexed %d chunks from %d files into %s", len(chunks), files, eng.dataDir)
	return nil
}

// collectChunks scans path for indexable files and chunks each one.
func collectChunks(ctx context.Context, path string) ([]*store.Chunk, int, error) {
	var chunks []*store.Chunk
	files := 0

	opts := corpus.ScanOptions{Extensions: chunk.IndexableExtensions()}
	err := corpus.Scan(ctx, path, opts, func(rel string, content []byte) error {
		chunker := chunk.ForPath(rel, chunk.Options{})
		if chunker == nil {
			return nil
		}

		fileChunks, err := chunker.Chunk(&chunk.File{Path: rel, Content: content})
		if err != nil {
			return fmt.Errorf("chunk %s: %w", rel, err)
		}
		if len(fileChunks) > 0 {
			files++
			chunks = append(chunks, fileChunks...)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return chunks, files, nil
}
