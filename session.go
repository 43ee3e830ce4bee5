package ferry

import (
	"context"
	"log/slog"
	"time"
)

// FileInfo represents a remote directory entry
type FileInfo struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Session is one live transport connection to a remote endpoint.
//
// A Session is opened for a single logical operation and is never shared
// between goroutines. Drivers normalize their protocol behind it.
type Session interface {
	// EnsureDir creates dir and any missing parents. An existing directory
	// is not an error.
	EnsureDir(ctx context.Context, dir string) error

	// Put copies the local file at localPath to remotePath.
	Put(ctx context.Context, localPath, remotePath string) error

	// Get copies remotePath to the local file at localPath, creating or
	// truncating it.
	Get(ctx context.Context, remotePath, localPath string) error

	// List returns the immediate children of dir.
	List(ctx context.Context, dir string) ([]FileInfo, error)

	// Close tears down the underlying connection.
	Close() error
}

// DialOptions carries client-wide settings a driver may need when opening a
// session.
type DialOptions struct {
	// KnownHostsFile is the known_hosts file used to verify SSH host keys.
	KnownHostsFile string

	// InsecureIgnoreHostKey disables SSH host key verification.
	InsecureIgnoreHostKey bool

	// InsecureSkipVerify disables TLS certificate verification for FTPS.
	InsecureSkipVerify bool

	// Timeout bounds the connect attempt. The context passed to the driver
	// carries the same deadline.
	Timeout time.Duration

	Logger *slog.Logger
}
