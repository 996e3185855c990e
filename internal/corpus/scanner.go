package corpus

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/riptide-search/riptide/internal/errors"
)

// DefaultMaxFileSize caps individual corpus files. Larger files are
// almost never prose worth indexing.
const DefaultMaxFileSize = 5 << 20

// binarySniffLen is how many leading bytes are checked for null bytes.
const binarySniffLen = 8000

// ScanOptions configure a corpus walk.
type ScanOptions struct {
	// Extensions restricts the walk to these file extensions
	// (lowercased, with dot). Empty means every file.
	Extensions []string

	// MaxFileSize in bytes; 0 uses DefaultMaxFileSize.
	MaxFileSize int64
}

// FileVisitor receives one corpus file per call, with its path
// relative to the root.
type FileVisitor func(relPath string, content []byte) error

// Scan walks root depth-first and invokes visit for every indexable
// file. Hidden directories, the riptide data directory, gitignored
// paths, oversized files and binary files are skipped.
func Scan(ctx context.Context, root string, opts ScanOptions, visit FileVisitor) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return errors.New(errors.ErrCodeIndexFailed, "resolve corpus root", err)
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	extensions := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		extensions[strings.ToLower(ext)] = struct{}{}
	}

	ignore := NewIgnoreMatcher()
	if err := ignore.AddFile(filepath.Join(absRoot, ".gitignore"), ""); err != nil {
		return errors.New(errors.ErrCodeIndexFailed, "read root gitignore", err)
	}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == absRoot {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			// Hidden directories include the .riptide data dir.
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if ignore.Match(rel, true) {
				return filepath.SkipDir
			}
			// Nested ignore files scope their patterns to their
			// directory.
			if err := ignore.AddFile(filepath.Join(path, ".gitignore"), rel); err != nil {
				return err
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}
		if len(extensions) > 0 {
			if _, ok := extensions[strings.ToLower(filepath.Ext(name))]; !ok {
				return nil
			}
		}
		if ignore.Match(rel, false) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxSize {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return errors.New(errors.ErrCodeIndexFailed, "read corpus file "+rel, err)
		}
		if isBinary(content) {
			return nil
		}

		return visit(rel, content)
	})
}

// isBinary sniffs for null bytes in the leading segment, the same
// heuristic git uses.
func isBinary(content []byte) bool {
	n := len(content)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(content[:n], 0) >= 0
}
