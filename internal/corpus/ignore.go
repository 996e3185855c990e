// Package corpus walks a document directory and yields indexable
// files, honoring .gitignore patterns along the way.
package corpus

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ignoreRule is one compiled ignore pattern.
type ignoreRule struct {
	regex    *regexp.Regexp
	negation bool
	dirOnly  bool
	anchored bool
	base     string
}

// IgnoreMatcher matches paths against gitignore-style patterns. It
// supports the syntax corpora actually use: comments, negation,
// directory-only and anchored patterns, `*`, `?` and `**`.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher creates an empty matcher.
func NewIgnoreMatcher() *IgnoreMatcher {
	return &IgnoreMatcher{}
}

// AddPattern compiles one pattern. Patterns from a nested ignore file
// apply only under base (slash-separated, relative to the corpus
// root; empty for the root file).
func (m *IgnoreMatcher) AddPattern(pattern, base string) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return
	}

	r := ignoreRule{base: base}
	if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	if strings.HasPrefix(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	} else if strings.Contains(pattern, "/") {
		// A pattern with an internal slash anchors to its base.
		r.anchored = true
	}

	r.regex = regexp.MustCompile("^" + globToRegex(pattern) + "$")
	m.rules = append(m.rules, r)
}

// AddFile reads patterns from an ignore file. A missing file is not an
// error.
func (m *IgnoreMatcher) AddFile(path, base string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.AddPattern(scanner.Text(), base)
	}
	return scanner.Err()
}

// Match reports whether a slash-separated path relative to the corpus
// root is ignored. Later rules win, so negations can re-include files.
func (m *IgnoreMatcher) Match(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)

	ignored := false
	for _, r := range m.rules {
		if m.matchRule(relPath, isDir, r) {
			ignored = !r.negation
		}
	}
	return ignored
}

func (m *IgnoreMatcher) matchRule(path string, isDir bool, r ignoreRule) bool {
	if r.base != "" {
		if !strings.HasPrefix(path, r.base+"/") {
			return false
		}
		path = strings.TrimPrefix(path, r.base+"/")
	}

	parts := strings.Split(path, "/")

	if r.anchored {
		if r.regex.MatchString(path) {
			return !r.dirOnly || isDir || len(parts) > 1
		}
		// A dir pattern also ignores everything inside the matched
		// directory.
		for i := 1; i < len(parts); i++ {
			if r.regex.MatchString(strings.Join(parts[:i], "/")) {
				return true
			}
		}
		return false
	}

	// Unanchored: match any single component. A dir-only match on a
	// non-final component ignores the whole subtree.
	for i, part := range parts {
		if !r.regex.MatchString(part) {
			continue
		}
		if i < len(parts)-1 {
			return true
		}
		return !r.dirOnly || isDir
	}
	return false
}

// globToRegex converts a gitignore glob to a regular expression.
func globToRegex(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				i++
				// "**/" and "/**" cross directory boundaries.
				if i+1 < len(pattern) && pattern[i+1] == '/' {
					i++
					b.WriteString(`(?:[^/]+/)*`)
				} else {
					b.WriteString(`.*`)
				}
			} else {
				b.WriteString(`[^/]*`)
			}
		case '?':
			b.WriteString(`[^/]`)
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return b.String()
}
