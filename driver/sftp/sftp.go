// Package sftp provides an SFTP session driver built on github.com/pkg/sftp
// and golang.org/x/crypto/ssh. Importing it registers the "sftp" protocol.
package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobeaver/ferry"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Session is an SFTP connection implementing ferry.Session
type Session struct {
	mu      sync.Mutex
	client  *sftp.Client
	sshConn *ssh.Client
}

var _ ferry.Session = (*Session)(nil)

// Dial opens an SSH connection to the profile's endpoint and starts an SFTP
// subsystem on it. The handshake is bounded by ctx.
func Dial(ctx context.Context, p ferry.Profile, opts ferry.DialOptions) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	auth, err := authMethods(p)
	if err != nil {
		return nil, err
	}
	hostKey, err := hostKeyCallback(p, opts, logger)
	if err != nil {
		return nil, err
	}

	sshConfig := &ssh.ClientConfig{
		User:            p.Username,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         opts.Timeout,
	}

	addr := p.Address()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	// The SSH handshake does not take a context; closing the socket is the
	// only way to interrupt it.
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
	if err != nil {
		stop()
		conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: %w", ferry.ErrAuth, err)
		}
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	sshConn := ssh.NewClient(c, chans, reqs)

	client, err := sftp.NewClient(sshConn)
	if !stop() {
		// ctx ended during setup and the socket is already closed.
		if client != nil {
			client.Close()
		}
		sshConn.Close()
		return nil, ctx.Err()
	}
	if err != nil {
		sshConn.Close()
		return nil, fmt.Errorf("failed to create SFTP client: %w", err)
	}

	return &Session{client: client, sshConn: sshConn}, nil
}

// authMethods prefers the private key file when the profile names one and
// falls back to password authentication.
func authMethods(p ferry.Profile) ([]ssh.AuthMethod, error) {
	if p.PrivateKey != "" {
		keyPath := ferry.ExpandPath(p.PrivateKey)
		keyData, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key file %s: %w", keyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SSH private key: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}

	if p.Password == "" {
		return nil, fmt.Errorf("%w: profile %q has neither password nor private key", ferry.ErrAuth, p.Name)
	}
	return []ssh.AuthMethod{ssh.Password(p.Password)}, nil
}

// hostKeyCallback verifies against the configured known_hosts file, then
// ~/.ssh/known_hosts, and accepts any key when neither is available.
func hostKeyCallback(p ferry.Profile, opts ferry.DialOptions, logger *slog.Logger) (ssh.HostKeyCallback, error) {
	if opts.InsecureIgnoreHostKey {
		logger.Warn("SSH host key verification disabled", "host", p.Host, "port", p.Port)
		return ssh.InsecureIgnoreHostKey(), nil
	}

	if opts.KnownHostsFile != "" {
		expanded := ferry.ExpandPath(opts.KnownHostsFile)
		callback, err := knownhosts.New(expanded)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts file %s: %w", expanded, err)
		}
		return callback, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		defaultKnownHosts := filepath.Join(home, ".ssh", "known_hosts")
		if _, err := os.Stat(defaultKnownHosts); err == nil {
			callback, err := knownhosts.New(defaultKnownHosts)
			if err == nil {
				return callback, nil
			}
			logger.Warn("could not parse known_hosts file", "path", defaultKnownHosts, "error", err)
		}
	}

	logger.Warn("no known_hosts file found, host key not verified", "host", p.Host, "port", p.Port)
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		return nil
	}, nil
}

// isAuthError reports whether the handshake failed because every offered
// auth method was rejected. x/crypto/ssh has no typed error for this.
func isAuthError(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}

func (s *Session) sftpClient() (*sftp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, ferry.ErrClosed
	}
	return s.client, nil
}

// EnsureDir implements ferry.Session
func (s *Session) EnsureDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client, err := s.sftpClient()
	if err != nil {
		return err
	}
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}
	if err := client.MkdirAll(dir); err != nil {
		return &ferry.PathError{Op: "mkdir", Path: dir, Err: err}
	}
	return nil
}

// Put implements ferry.Session
func (s *Session) Put(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client, err := s.sftpClient()
	if err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := client.Create(remotePath)
	if err != nil {
		return &ferry.PathError{Op: "create", Path: remotePath, Err: err}
	}

	if _, err := dst.ReadFrom(src); err != nil {
		dst.Close()
		return &ferry.PathError{Op: "write", Path: remotePath, Err: err}
	}
	if err := dst.Close(); err != nil {
		return &ferry.PathError{Op: "write", Path: remotePath, Err: err}
	}
	return nil
}

// Get implements ferry.Session
func (s *Session) Get(ctx context.Context, remotePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client, err := s.sftpClient()
	if err != nil {
		return err
	}

	src, err := client.Open(remotePath)
	if err != nil {
		return &ferry.PathError{Op: "open", Path: remotePath, Err: err}
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return &ferry.PathError{Op: "read", Path: remotePath, Err: err}
	}
	return dst.Close()
}

// List implements ferry.Session
func (s *Session) List(ctx context.Context, dir string) ([]ferry.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := s.sftpClient()
	if err != nil {
		return nil, err
	}

	entries, err := client.ReadDir(dir)
	if err != nil {
		return nil, &ferry.PathError{Op: "list", Path: dir, Err: err}
	}

	files := make([]ferry.FileInfo, 0, len(entries))
	for _, e := range entries {
		files = append(files, ferry.FileInfo{
			Name:    e.Name(),
			Path:    path.Join(dir, e.Name()),
			Size:    e.Size(),
			ModTime: e.ModTime(),
			IsDir:   e.IsDir(),
		})
	}
	return files, nil
}

// Close closes the SFTP and SSH connections
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error

	if s.client != nil {
		if err := s.client.Close(); err != nil {
			errs = append(errs, err)
		}
		s.client = nil
	}

	if s.sshConn != nil {
		if err := s.sshConn.Close(); err != nil {
			errs = append(errs, err)
		}
		s.sshConn = nil
	}

	return errors.Join(errs...)
}
