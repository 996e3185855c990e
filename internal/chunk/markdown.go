package chunk

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/riptide-search/riptide/internal/store"
)

var (
	headerPattern      = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	frontmatterPattern = regexp.MustCompile(`(?s)^---\n.+?\n---\n*`)
)

// MarkdownChunker splits markdown by header sections. Each chunk
// carries its header path ("Guide > Install") in the section metadata
// so results can name the part of the document they came from.
type MarkdownChunker struct {
	opts Options
}

// NewMarkdownChunker creates a markdown chunker.
func NewMarkdownChunker(opts Options) *MarkdownChunker {
	return &MarkdownChunker{opts: opts.withDefaults()}
}

// Extensions returns the markdown file extensions.
func (c *MarkdownChunker) Extensions() []string {
	return []string{".md", ".markdown", ".mdx"}
}

// Chunk splits a markdown file into section chunks. YAML frontmatter
// is metadata, not prose, and is skipped.
func (c *MarkdownChunker) Chunk(file *File) ([]*store.Chunk, error) {
	content := string(file.Content)
	if m := frontmatterPattern.FindString(content); m != "" {
		content = content[len(m):]
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	sections := parseSections(content)
	if len(sections) == 0 {
		return chunkParagraphs(file, content, "", c.opts), nil
	}

	var chunks []*store.Chunk
	for _, sec := range sections {
		body := strings.TrimSpace(sec.content)
		if len(body) < c.opts.MinChunkChars {
			continue
		}
		if len(body) <= c.opts.MaxChunkChars {
			chunks = append(chunks, buildChunk(file, body, len(chunks)+1, sec.path))
			continue
		}
		// Oversized section: re-split on paragraphs, keeping the
		// section path on every piece.
		for _, piece := range chunkParagraphs(file, body, sec.path, c.opts) {
			piece.Metadata["paragraph"] = strconv.Itoa(len(chunks) + 1)
			chunks = append(chunks, piece)
		}
	}
	return chunks, nil
}

type mdSection struct {
	path    string
	content string
}

// parseSections splits content at headers and tracks the header
// hierarchy for section paths. Content before the first header becomes
// a section with an empty path.
func parseSections(content string) []*mdSection {
	lines := strings.Split(content, "\n")

	var sections []*mdSection
	var stack [6]string
	var current *mdSection
	var body strings.Builder

	flush := func() {
		if current != nil {
			current.content = body.String()
			sections = append(sections, current)
		} else if strings.TrimSpace(body.String()) != "" {
			sections = append(sections, &mdSection{content: body.String()})
		}
		body.Reset()
	}

	for _, line := range lines {
		match := headerPattern.FindStringSubmatch(line)
		if match == nil {
			body.WriteString(line)
			body.WriteByte('\n')
			continue
		}

		flush()

		level := len(match[1])
		stack[level-1] = strings.TrimSpace(match[2])
		for i := level; i < len(stack); i++ {
			stack[i] = ""
		}

		parts := make([]string, 0, level)
		for i := 0; i < level; i++ {
			if stack[i] != "" {
				parts = append(parts, stack[i])
			}
		}
		current = &mdSection{path: strings.Join(parts, " > ")}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	flush()

	if len(sections) == 1 && sections[0].path == "" {
		// Only preamble, no headers.
		return nil
	}
	return sections
}

// chunkParagraphs emits one chunk per paragraph, merging runs of small
// paragraphs up to the size limit.
func chunkParagraphs(file *File, text, section string, opts Options) []*store.Chunk {
	paragraphs := splitParagraphs(text)

	var chunks []*store.Chunk
	var pending []string
	pendingLen := 0

	flush := func() {
		if pendingLen == 0 {
			return
		}
		content := strings.Join(pending, "\n\n")
		if len(content) >= opts.MinChunkChars {
			chunks = append(chunks, buildChunk(file, content, len(chunks)+1, section))
		}
		pending = pending[:0]
		pendingLen = 0
	}

	for _, p := range paragraphs {
		if pendingLen > 0 && pendingLen+len(p) > opts.MaxChunkChars {
			flush()
		}
		pending = append(pending, p)
		pendingLen += len(p)
	}
	flush()
	return chunks
}
