package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/gobeaver/ferry"
)

func dial(t *testing.T, s *Server) *Session {
	t.Helper()
	session, err := s.Dial(context.Background(), ferry.Profile{Name: "test"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func localFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "local.txt")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNew(t *testing.T) {
	t.Run("creates server with root directory", func(t *testing.T) {
		s := New()
		if !s.DirExists("/") {
			t.Error("expected root directory")
		}
		if s.maxSize != 0 {
			t.Errorf("expected maxSize=0, got %d", s.maxSize)
		}
	})

	t.Run("creates server with max size", func(t *testing.T) {
		s := New(Config{MaxSize: 1024})
		if s.maxSize != 1024 {
			t.Errorf("expected maxSize=1024, got %d", s.maxSize)
		}
	})
}

func TestPut(t *testing.T) {
	ctx := context.Background()

	t.Run("uploads into existing directory", func(t *testing.T) {
		s := New()
		c := dial(t, s)

		if err := c.EnsureDir(ctx, "/site/css"); err != nil {
			t.Fatalf("EnsureDir: %v", err)
		}
		if err := c.Put(ctx, localFile(t, "body{}"), "/site/css/main.css"); err != nil {
			t.Fatalf("Put: %v", err)
		}

		data, err := s.ReadFile("/site/css/main.css")
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if string(data) != "body{}" {
			t.Errorf("unexpected content %q", data)
		}
		if s.Stats().Puts != 1 {
			t.Errorf("expected 1 put, got %d", s.Stats().Puts)
		}
	})

	t.Run("fails when parent directory is missing", func(t *testing.T) {
		s := New()
		c := dial(t, s)

		err := c.Put(ctx, localFile(t, "x"), "/missing/file.txt")
		if !errors.Is(err, ferry.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("respects max size limit", func(t *testing.T) {
		s := New(Config{MaxSize: 10})
		c := dial(t, s)

		err := c.Put(ctx, localFile(t, "this is too large"), "/large.txt")
		if !errors.Is(err, ErrNoSpace) {
			t.Errorf("expected ErrNoSpace, got %v", err)
		}
	})

	t.Run("put hook sees attempt numbers", func(t *testing.T) {
		s := New()
		var attempts []int
		s.SetHooks(Hooks{Put: func(remotePath string, attempt int) error {
			attempts = append(attempts, attempt)
			if attempt < 2 {
				return errors.New("transient")
			}
			return nil
		}})
		c := dial(t, s)
		local := localFile(t, "x")

		if err := c.Put(ctx, local, "/a.txt"); err == nil {
			t.Fatal("expected first attempt to fail")
		}
		if err := c.Put(ctx, local, "/a.txt"); err != nil {
			t.Fatalf("second attempt: %v", err)
		}
		if !reflect.DeepEqual(attempts, []int{1, 2}) {
			t.Errorf("unexpected attempts %v", attempts)
		}
	})
}

func TestEnsureDir(t *testing.T) {
	ctx := context.Background()
	s := New()
	c := dial(t, s)

	if err := c.EnsureDir(ctx, "/a/b/c"); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	for _, dir := range []string{"/a", "/a/b", "/a/b/c"} {
		if !s.DirExists(dir) {
			t.Errorf("expected %s to exist", dir)
		}
	}

	if err := c.EnsureDir(ctx, "/a/b"); err != nil {
		t.Errorf("existing directory should not be an error: %v", err)
	}

	if err := s.WriteFile("/file", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := c.EnsureDir(ctx, "/file/sub"); err == nil {
		t.Error("expected error when a path component is a file")
	}
}

func TestGetAndList(t *testing.T) {
	ctx := context.Background()
	s := New()
	for p, content := range map[string]string{
		"/dir/a.txt":     "a",
		"/dir/b.txt":     "b",
		"/dir/sub/c.txt": "c",
	} {
		if err := s.WriteFile(p, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	c := dial(t, s)

	entries, err := c.List(ctx, "/dir")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	if !reflect.DeepEqual(names, []string{"a.txt", "b.txt", "sub"}) {
		t.Errorf("unexpected entries %v", names)
	}
	if !entries[2].IsDir {
		t.Error("expected sub to be a directory")
	}

	local := filepath.Join(t.TempDir(), "a.txt")
	if err := c.Get(ctx, "/dir/a.txt", local); err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, err := os.ReadFile(local)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a" {
		t.Errorf("unexpected content %q", data)
	}

	if err := c.Get(ctx, "/dir/missing.txt", local); !errors.Is(err, ferry.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.List(ctx, "/nowhere"); !errors.Is(err, ferry.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFiles(t *testing.T) {
	s := New()
	for _, p := range []string{"/site/index.html", "/site/css/main.css", "/site/js/app.js"} {
		if err := s.WriteFile(p, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		pattern string
		want    []string
	}{
		{"", []string{"/site/css/main.css", "/site/index.html", "/site/js/app.js"}},
		{"/site/*.html", []string{"/site/index.html"}},
		{"/site/*", []string{"/site/index.html"}},
		{"/site/**.css", []string{"/site/css/main.css"}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := s.Files(tt.pattern)
			if err != nil {
				t.Fatalf("Files: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Files(%q) = %v, want %v", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestDialHooks(t *testing.T) {
	t.Run("dial error", func(t *testing.T) {
		s := New()
		s.SetHooks(Hooks{Dial: func(p ferry.Profile) error {
			return errors.New("refused")
		}})
		if _, err := s.Dial(context.Background(), ferry.Profile{}); err == nil {
			t.Fatal("expected dial to fail")
		}
		if s.Stats().Dials != 0 {
			t.Error("failed dial should not be counted")
		}
	})

	t.Run("delay honours context", func(t *testing.T) {
		s := New()
		s.SetHooks(Hooks{DialDelay: time.Second})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := s.Dial(ctx, ferry.Profile{})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}

func TestSessionStats(t *testing.T) {
	s := New()

	a, err := s.Dial(context.Background(), ferry.Profile{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Dial(context.Background(), ferry.Profile{})
	if err != nil {
		t.Fatal(err)
	}
	a.Close()
	b.Close()

	stats := s.Stats()
	if stats.Dials != 2 || stats.MaxOpen != 2 || stats.Open != 0 || stats.Closed != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}

	if err := a.Close(); !errors.Is(err, ferry.ErrClosed) {
		t.Errorf("expected ErrClosed on double close, got %v", err)
	}
	if err := a.Put(context.Background(), "x", "/x"); !errors.Is(err, ferry.ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"":          "/",
		"a/b":       "/a/b",
		"/a/../b":   "/b",
		`dir\f.txt`: "/dir/f.txt",
	}
	for in, want := range tests {
		if got := normalizePath(in); got != want {
			t.Errorf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}
