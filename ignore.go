package ferry

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultIgnorePatterns are always excluded from sync.
var DefaultIgnorePatterns = []string{".git/", "node_modules/", ".env", ".DS_Store"}

// IgnoreMatcher answers whether a relative path is excluded by a set of
// gitignore-style patterns.
//
// Supported syntax: blank lines and "#" comments are skipped, "!" negates,
// a trailing "/" restricts a pattern to directories, a leading or inner "/"
// anchors it to the root, otherwise it matches at any depth. "*", "?",
// "[...]" and "**" behave as in .gitignore. The last matching pattern wins,
// and nothing below an excluded directory can be re-included.
type IgnoreMatcher struct {
	rules []ignoreRule
}

type ignoreRule struct {
	globs   []glob.Glob
	negate  bool
	dirOnly bool
}

// NewIgnoreMatcher creates a matcher from pattern lines.
func NewIgnoreMatcher(patterns ...string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}
	if err := m.Add(patterns...); err != nil {
		return nil, err
	}
	return m, nil
}

// Add appends pattern lines to the matcher.
func (m *IgnoreMatcher) Add(patterns ...string) error {
	for _, line := range patterns {
		rule, ok, err := compileIgnoreRule(line)
		if err != nil {
			return err
		}
		if ok {
			m.rules = append(m.rules, rule)
		}
	}
	return nil
}

// AddReader appends the pattern lines read from r.
func (m *IgnoreMatcher) AddReader(r io.Reader) error {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return m.Add(lines...)
}

// AddFile appends the patterns of the file at path.
func (m *IgnoreMatcher) AddFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := m.AddReader(f); err != nil {
		return &PathError{Op: "ignore", Path: path, Err: err}
	}
	return nil
}

// Ignores reports whether the file at rel is excluded.
func (m *IgnoreMatcher) Ignores(rel string) bool {
	rel = normalizeRel(rel)
	if rel == "" {
		return false
	}

	parts := strings.Split(rel, "/")
	for i := 1; i < len(parts); i++ {
		if m.match(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return m.match(rel, false)
}

// IgnoresDir reports whether the directory at rel, and so everything below
// it, is excluded.
func (m *IgnoreMatcher) IgnoresDir(rel string) bool {
	rel = normalizeRel(rel)
	if rel == "" {
		return false
	}

	parts := strings.Split(rel, "/")
	for i := 1; i <= len(parts); i++ {
		if m.match(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return false
}

// Match implements FileSelector: it keeps files that are not ignored.
func (m *IgnoreMatcher) Match(rel string) bool {
	return !m.Ignores(rel)
}

// TraverseDescendants implements FileSelector: it skips ignored directories.
func (m *IgnoreMatcher) TraverseDescendants(rel string) bool {
	return !m.IgnoresDir(rel)
}

// match applies the rules to a single path, last match wins.
func (m *IgnoreMatcher) match(rel string, isDir bool) bool {
	ignored := false
	for _, rule := range m.rules {
		if rule.dirOnly && !isDir {
			continue
		}
		for _, g := range rule.globs {
			if g.Match(rel) {
				ignored = !rule.negate
				break
			}
		}
	}
	return ignored
}

func normalizeRel(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimPrefix(rel, "./")
	return strings.Trim(rel, "/")
}

// compileIgnoreRule turns one pattern line into a rule. ok is false for
// blank lines and comments.
func compileIgnoreRule(line string) (rule ignoreRule, ok bool, err error) {
	pattern := strings.TrimRight(line, " \t\r")
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return ignoreRule{}, false, nil
	}
	if strings.HasPrefix(pattern, "!") {
		rule.negate = true
		pattern = pattern[1:]
	} else if strings.HasPrefix(pattern, `\!`) || strings.HasPrefix(pattern, `\#`) {
		pattern = pattern[1:]
	}

	if strings.HasSuffix(pattern, "/") {
		rule.dirOnly = true
		pattern = strings.TrimRight(pattern, "/")
	}

	anchored := strings.Contains(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")
	if pattern == "" {
		return ignoreRule{}, false, nil
	}

	candidates := []string{pattern}
	switch {
	case !anchored:
		candidates = append(candidates, "**/"+pattern)
	case strings.HasPrefix(pattern, "**/"):
		candidates = append(candidates, strings.TrimPrefix(pattern, "**/"))
	}

	for _, c := range candidates {
		g, err := glob.Compile(escapeBraces(c), '/')
		if err != nil {
			return ignoreRule{}, false, fmt.Errorf("invalid ignore pattern %q: %w", line, err)
		}
		rule.globs = append(rule.globs, g)
	}

	return rule, true, nil
}

var braceEscaper = strings.NewReplacer("{", `\{`, "}", `\}`)

// escapeBraces quotes the characters gobwas/glob treats as alternation,
// which have no special meaning in ignore files.
func escapeBraces(pattern string) string {
	return braceEscaper.Replace(pattern)
}
