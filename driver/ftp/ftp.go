// Package ftp provides FTP and FTPS session drivers built on
// github.com/jlaffaye/ftp. Importing it registers the "ftp" and "ftps"
// protocols. FTPS negotiates explicit TLS (AUTH TLS) on the control port.
package ftp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/textproto"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/gobeaver/ferry"
	"github.com/jlaffaye/ftp"
)

// statusDirExists is the RFC 959 reply some servers send for MKD on an
// existing directory.
const statusDirExists = 521

// Shared across connections so FTPS data channels can resume the control
// channel's TLS session, which many servers require.
var tlsSessionCache = tls.NewLRUClientSessionCache(64)

// Session is an FTP control connection implementing ferry.Session
type Session struct {
	mu     sync.Mutex
	conn   *ftp.ServerConn
	logger *slog.Logger
}

var _ ferry.Session = (*Session)(nil)

// Dial connects and logs in to the profile's endpoint. With
// ferry.ProtocolFTPS the control channel is upgraded to TLS before login.
func Dial(ctx context.Context, p ferry.Profile, opts ferry.DialOptions) (*Session, error) {
	dialOpts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if opts.Timeout > 0 {
		dialOpts = append(dialOpts, ftp.DialWithTimeout(opts.Timeout))
	}
	if p.Protocol == ferry.ProtocolFTPS {
		dialOpts = append(dialOpts, ftp.DialWithExplicitTLS(tlsConfig(p, opts)))
	}

	addr := p.Address()
	conn, err := ftp.Dial(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if err := conn.Login(p.Username, p.Password); err != nil {
		_ = conn.Quit()
		if isStatus(err, ftp.StatusNotLoggedIn) {
			return nil, fmt.Errorf("%w: %w", ferry.ErrAuth, err)
		}
		return nil, fmt.Errorf("login to %s: %w", addr, err)
	}

	if err := conn.Type(ftp.TransferTypeBinary); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("failed to set binary mode: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{conn: conn, logger: logger}, nil
}

func tlsConfig(p ferry.Profile, opts ferry.DialOptions) *tls.Config {
	return &tls.Config{
		ServerName:         p.Host,
		InsecureSkipVerify: opts.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
		ClientSessionCache: tlsSessionCache,
	}
}

// isStatus reports whether err is an FTP reply with one of the codes.
func isStatus(err error, codes ...int) bool {
	var protoErr *textproto.Error
	if !errors.As(err, &protoErr) {
		return false
	}
	for _, code := range codes {
		if protoErr.Code == code {
			return true
		}
	}
	return false
}

func (s *Session) control() (*ftp.ServerConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ferry.ErrClosed
	}
	return s.conn, nil
}

// dirPrefixes returns every ancestor of dir including dir itself, from the
// top down: "/a/b" yields "/a", "/a/b".
func dirPrefixes(dir string) []string {
	dir = path.Clean(dir)
	if dir == "." || dir == "/" {
		return nil
	}

	absolute := strings.HasPrefix(dir, "/")
	parts := strings.Split(strings.Trim(dir, "/"), "/")

	prefixes := make([]string, 0, len(parts))
	current := ""
	for _, part := range parts {
		current = path.Join(current, part)
		if absolute {
			prefixes = append(prefixes, "/"+current)
		} else {
			prefixes = append(prefixes, current)
		}
	}
	return prefixes
}

// EnsureDir implements ferry.Session. FTP has no recursive MKD, so each
// component is created in turn and "already exists" replies are ignored.
func (s *Session) EnsureDir(ctx context.Context, dir string) error {
	conn, err := s.control()
	if err != nil {
		return err
	}

	for _, p := range dirPrefixes(dir) {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := conn.MakeDir(p)
		if err != nil && !isStatus(err, ftp.StatusFileUnavailable, statusDirExists) {
			return &ferry.PathError{Op: "mkdir", Path: p, Err: err}
		}
	}
	return nil
}

// Put implements ferry.Session
func (s *Session) Put(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := s.control()
	if err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := conn.Stor(remotePath, f); err != nil {
		return &ferry.PathError{Op: "stor", Path: remotePath, Err: err}
	}
	return nil
}

// Get implements ferry.Session
func (s *Session) Get(ctx context.Context, remotePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := s.control()
	if err != nil {
		return err
	}

	resp, err := conn.Retr(remotePath)
	if err != nil {
		return &ferry.PathError{Op: "retr", Path: remotePath, Err: err}
	}
	defer resp.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, resp); err != nil {
		dst.Close()
		return &ferry.PathError{Op: "retr", Path: remotePath, Err: err}
	}
	return dst.Close()
}

// List implements ferry.Session. Symbolic links are skipped: a LIST reply
// does not say whether the target is a file or a directory, so recursive
// downloads do not follow them.
func (s *Session) List(ctx context.Context, dir string) ([]ferry.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := s.control()
	if err != nil {
		return nil, err
	}

	entries, err := conn.List(dir)
	if err != nil {
		return nil, &ferry.PathError{Op: "list", Path: dir, Err: err}
	}
	return s.fileInfos(dir, entries), nil
}

func (s *Session) fileInfos(dir string, entries []*ftp.Entry) []ferry.FileInfo {
	files := make([]ferry.FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.Type == ftp.EntryTypeLink {
			s.logger.Debug("skipping symbolic link", "path", path.Join(dir, e.Name), "target", e.Target)
			continue
		}
		files = append(files, ferry.FileInfo{
			Name:    e.Name,
			Path:    path.Join(dir, e.Name),
			Size:    int64(e.Size),
			ModTime: e.Time,
			IsDir:   e.Type == ftp.EntryTypeFolder,
		})
	}
	return files
}

// Close sends QUIT and closes the control connection
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Quit()
	s.conn = nil
	return err
}
