package ferry_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/gobeaver/ferry"
	"github.com/gobeaver/ferry/driver/memory"
)

const testProfile = "test"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestClient returns a client whose "test" profile reaches srv. A nil
// cfg selects the defaults.
func newTestClient(t testing.TB, srv *memory.Server, cfg *ferry.Config, opts ...ferry.Option) *ferry.Client {
	t.Helper()

	if cfg == nil {
		cfg = ferry.DefaultConfig()
	}
	cfg.StorePath = filepath.Join(t.TempDir(), "connections.json")

	store := ferry.OpenStore(cfg.StorePath)
	err := store.Add(testProfile, ferry.Profile{
		Host:     "memory.local",
		Username: "tester",
		Password: "secret",
		Protocol: ferry.ProtocolMemory,
	})
	if err != nil {
		t.Fatalf("add profile: %v", err)
	}

	options := []ferry.Option{
		ferry.WithLogger(discard),
		ferry.WithStore(store),
		ferry.WithDriver(ferry.ProtocolMemory, srv.Factory()),
		ferry.WithWorkDir(t.TempDir()),
	}
	c, err := ferry.New(cfg, append(options, opts...)...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

// writeTree creates files below root whose content is their relative path.
func writeTree(t testing.TB, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(f), 0644); err != nil {
			t.Fatal(err)
		}
	}
}
