package ferry

import (
	"log/slog"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger used for per-item failures and
// session diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithStore uses an already opened profile store instead of the one at the
// configured path.
func WithStore(store *Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithDriver overrides the registered driver for protocol on this client
// only. Useful for tests and for wrapping a driver with instrumentation.
func WithDriver(protocol Protocol, factory DriverFactory) Option {
	return func(c *Client) {
		if c.drivers == nil {
			c.drivers = make(map[Protocol]DriverFactory)
		}
		c.drivers[protocol] = factory
	}
}

// WithWorkDir sets the directory searched for ignore files. Defaults to the
// process working directory.
func WithWorkDir(dir string) Option {
	return func(c *Client) {
		c.workDir = dir
	}
}

// UploadOptions controls Upload.
type UploadOptions struct {
	// Recursive uploads a directory tree through the batch engine.
	Recursive bool

	// DryRun only counts the files that would be uploaded.
	DryRun bool

	// Progress receives each finished file of a recursive upload.
	Progress ProgressFunc
}

// DownloadOptions controls Download.
type DownloadOptions struct {
	// Recursive mirrors a remote directory tree.
	Recursive bool

	// Progress receives each finished file of a recursive download.
	Progress ProgressFunc
}

// SyncOptions controls Sync.
type SyncOptions struct {
	// DryRun only lists the files that would be pushed.
	DryRun bool

	// IgnoreFile overrides the configured project ignore file name.
	IgnoreFile string

	// Progress receives each pushed file.
	Progress ProgressFunc
}

// WatchOptions controls Watch.
type WatchOptions struct {
	SyncOptions

	// Debounce overrides the configured event coalescing window.
	Debounce time.Duration
}
