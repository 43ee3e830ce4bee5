package ferry

import (
	"strings"
	"testing"
)

func TestIgnoreMatcher(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		ignored  bool
	}{
		{"builtin git dir", DefaultIgnorePatterns, ".git/config", true},
		{"builtin nested node_modules", DefaultIgnorePatterns, "web/node_modules/react/index.js", true},
		{"builtin env at any depth", DefaultIgnorePatterns, "config/.env", true},
		{"builtin ds_store", DefaultIgnorePatterns, ".DS_Store", true},
		{"builtin keeps sources", DefaultIgnorePatterns, "src/main.go", false},
		{"builtin env prefix is not env", DefaultIgnorePatterns, ".envrc", false},
		{"dir-only does not match file", []string{"build/"}, "build", false},
		{"dir-only matches contents", []string{"build/"}, "build/out.js", true},
		{"extension glob", []string{"*.log"}, "logs/app/debug.log", true},
		{"anchored with leading slash", []string{"/dist"}, "dist/app.js", true},
		{"anchored does not match deeper", []string{"/dist"}, "web/dist/app.js", false},
		{"inner slash anchors", []string{"docs/*.md"}, "docs/readme.md", true},
		{"inner slash anchors deeper miss", []string{"docs/*.md"}, "site/docs/readme.md", false},
		{"star does not cross directories", []string{"docs/*.md"}, "docs/api/readme.md", false},
		{"double star crosses directories", []string{"docs/**/*.md"}, "docs/api/v1/readme.md", true},
		{"leading double star", []string{"**/tmp"}, "tmp/x", true},
		{"question mark", []string{"file?.txt"}, "file1.txt", true},
		{"character class", []string{"file[0-9].txt"}, "filex.txt", false},
		{"negation re-includes", []string{"*.log", "!keep.log"}, "keep.log", false},
		{"later rule wins", []string{"!keep.log", "*.log"}, "keep.log", true},
		{"negation cannot escape excluded dir", []string{"build/", "!build/keep.txt"}, "build/keep.txt", true},
		{"comment and blank lines", []string{"# *.txt", "", "   "}, "a.txt", false},
		{"escaped hash", []string{`\#notes`}, "#notes", true},
		{"braces are literal", []string{"{a,b}.txt"}, "a.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewIgnoreMatcher(tt.patterns...)
			if err != nil {
				t.Fatalf("NewIgnoreMatcher() error = %v", err)
			}
			if got := m.Ignores(tt.path); got != tt.ignored {
				t.Errorf("Ignores(%q) = %v, want %v", tt.path, got, tt.ignored)
			}
		})
	}
}

func TestIgnoreMatcher_IgnoresDir(t *testing.T) {
	m, err := NewIgnoreMatcher(DefaultIgnorePatterns...)
	if err != nil {
		t.Fatal(err)
	}

	if !m.IgnoresDir("node_modules") {
		t.Error("expected node_modules to be ignored")
	}
	if !m.IgnoresDir("a/.git") {
		t.Error("expected nested .git to be ignored")
	}
	if m.IgnoresDir("src") {
		t.Error("expected src to be traversed")
	}
	if m.IgnoresDir("") {
		t.Error("root must never be ignored")
	}
}

func TestIgnoreMatcher_AddReader(t *testing.T) {
	m, err := NewIgnoreMatcher()
	if err != nil {
		t.Fatal(err)
	}
	if err := m.AddReader(strings.NewReader("secrets/\r\n*.bak\n")); err != nil {
		t.Fatalf("AddReader() error = %v", err)
	}

	if !m.Ignores("secrets/key.pem") {
		t.Error("expected secrets/ to be ignored despite CRLF line ending")
	}
	if !m.Ignores("old.bak") {
		t.Error("expected *.bak to be ignored")
	}
	if m.Ignores("main.go") {
		t.Error("expected main.go to be kept")
	}
}
