package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func scanPaths(t *testing.T, root string, opts ScanOptions) []string {
	t.Helper()
	var paths []string
	err := Scan(context.Background(), root, opts, func(rel string, content []byte) error {
		paths = append(paths, rel)
		return nil
	})
	require.NoError(t, err)
	return paths
}

func TestScan_FiltersByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "guide.md", []byte("# Guide\n\nsome text"))
	writeFile(t, root, "notes.txt", []byte("notes"))
	writeFile(t, root, "main.go", []byte("package main"))

	paths := scanPaths(t, root, ScanOptions{Extensions: []string{".md", ".txt"}})
	assert.ElementsMatch(t, []string{"guide.md", "notes.txt"}, paths)
}

func TestScan_SkipsHiddenAndDataDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/a.md", []byte("a"))
	writeFile(t, root, ".git/config.md", []byte("x"))
	writeFile(t, root, ".riptide/config.yaml", []byte("x"))
	writeFile(t, root, ".hidden.md", []byte("x"))

	paths := scanPaths(t, root, ScanOptions{})
	assert.Equal(t, []string{"docs/a.md"}, paths)
}

func TestScan_HonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", []byte("drafts/\n*.tmp.md\n"))
	writeFile(t, root, "keep.md", []byte("keep"))
	writeFile(t, root, "wip.tmp.md", []byte("wip"))
	writeFile(t, root, "drafts/later.md", []byte("later"))

	paths := scanPaths(t, root, ScanOptions{Extensions: []string{".md"}})
	assert.Equal(t, []string{"keep.md"}, paths)
}

func TestScan_NestedGitignoreScopedToDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sub/.gitignore", []byte("secret.md\n"))
	writeFile(t, root, "sub/secret.md", []byte("hidden"))
	writeFile(t, root, "secret.md", []byte("visible"))

	paths := scanPaths(t, root, ScanOptions{Extensions: []string{".md"}})
	assert.Equal(t, []string{"secret.md"}, paths)
}

func TestScan_SkipsBinaryAndOversized(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "binary.md", []byte{'h', 'i', 0x00, 'x'})
	writeFile(t, root, "big.md", make([]byte, 128))
	writeFile(t, root, "ok.md", []byte("fine"))

	paths := scanPaths(t, root, ScanOptions{MaxFileSize: 64})
	assert.Equal(t, []string{"ok.md"}, paths)
}

func TestScan_ContextCancellation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", []byte("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Scan(ctx, root, ScanOptions{}, func(rel string, content []byte) error {
		t.Fatal("visitor must not run after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
