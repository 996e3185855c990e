// Package chunk splits corpus files into retrievable units. Markdown
// files are chunked by header section so a hit points at a named part
// of the document; plain text falls back to paragraph chunks.
package chunk

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/riptide-search/riptide/internal/store"
)

const (
	// DefaultMaxChunkChars bounds a single chunk. Oversized sections
	// are re-split on paragraph boundaries.
	DefaultMaxChunkChars = 2000

	// DefaultMinChunkChars drops fragments too small to be a useful
	// retrieval unit.
	DefaultMinChunkChars = 20
)

// Options configure chunk sizing.
type Options struct {
	MaxChunkChars int
	MinChunkChars int
}

func (o Options) withDefaults() Options {
	if o.MaxChunkChars <= 0 {
		o.MaxChunkChars = DefaultMaxChunkChars
	}
	if o.MinChunkChars <= 0 {
		o.MinChunkChars = DefaultMinChunkChars
	}
	return o
}

// File is one corpus file to be chunked. Path is relative to the
// corpus root and recorded in chunk metadata.
type File struct {
	Path    string
	Content []byte
}

// Chunker splits one file into chunks.
type Chunker interface {
	Chunk(file *File) ([]*store.Chunk, error)

	// Extensions returns the file extensions this chunker handles,
	// lowercased with leading dot.
	Extensions() []string
}

// ForPath selects a chunker for a file path, or nil when the file type
// is not indexable.
func ForPath(path string, opts Options) Chunker {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdx":
		return NewMarkdownChunker(opts)
	case ".txt", ".text":
		return NewTextChunker(opts)
	default:
		return nil
	}
}

// IndexableExtensions lists every extension some chunker handles.
func IndexableExtensions() []string {
	return []string{".md", ".markdown", ".mdx", ".txt", ".text"}
}

// splitParagraphs splits text on blank lines after normalizing CRLF.
func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(normalized, "\n\n")

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// buildChunk assembles a store.Chunk with the shared metadata keys.
func buildChunk(file *File, content string, paragraph int, section string) *store.Chunk {
	metadata := map[string]string{
		"source":    file.Path,
		"paragraph": strconv.Itoa(paragraph),
	}
	if section != "" {
		metadata["section"] = section
	}
	return store.NewChunk(content, metadata)
}
