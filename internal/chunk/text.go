package chunk

import "github.com/riptide-search/riptide/internal/store"

// TextChunker splits plain text files into paragraph chunks.
type TextChunker struct {
	opts Options
}

// NewTextChunker creates a plain text chunker.
func NewTextChunker(opts Options) *TextChunker {
	return &TextChunker{opts: opts.withDefaults()}
}

// Extensions returns the plain text file extensions.
func (c *TextChunker) Extensions() []string {
	return []string{".txt", ".text"}
}

// Chunk splits text on blank lines, merging small paragraphs up to the
// size limit.
func (c *TextChunker) Chunk(file *File) ([]*store.Chunk, error) {
	return chunkParagraphs(file, string(file.Content), "", c.opts), nil
}
