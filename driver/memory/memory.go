// Package memory provides an in-process remote endpoint. It implements the
// ferry session contract against maps held in memory, which makes it useful
// for tests, examples and dry experiments with transfer settings.
//
// Importing the package registers the "memory" protocol backed by Default.
package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/ferry"
	"github.com/gobwas/glob"
)

// ErrNoSpace is returned by Put when the server's MaxSize would be exceeded.
var ErrNoSpace = errors.New("memory: storage limit exceeded")

// memoryFile represents a file stored in memory
type memoryFile struct {
	content []byte
	modTime time.Time
}

// memoryDir represents a directory in memory
type memoryDir struct {
	modTime time.Time
}

// Config holds configuration for the memory server
type Config struct {
	// MaxSize is the maximum total storage size in bytes (0 = unlimited)
	MaxSize int64
}

// Hooks inject latency and failures into a server. All fields are optional.
type Hooks struct {
	// Dial is called for every dial attempt; a non-nil error fails it.
	Dial func(p ferry.Profile) error

	// DialDelay holds every dial for the given duration.
	DialDelay time.Duration

	// IgnoreContext makes a delayed dial complete even after its context
	// is done, like a transport that cannot be interrupted.
	IgnoreContext bool

	// Put is called before every upload with the 1-based attempt number
	// for that remote path; a non-nil error fails the upload.
	Put func(remotePath string, attempt int) error

	// PutDelay holds every upload for the given duration.
	PutDelay time.Duration

	// Get is called before every download; a non-nil error fails it.
	Get func(remotePath string) error
}

// Stats counts what happened on a server.
type Stats struct {
	Dials   int // successful dials
	Open    int // sessions currently open
	MaxOpen int // highest number of simultaneously open sessions
	Closed  int
	Puts    int // successful uploads
	Gets    int // successful downloads
}

// Server is an in-memory remote endpoint. It is safe for concurrent use by
// any number of sessions.
type Server struct {
	mu      sync.RWMutex
	files   map[string]*memoryFile
	dirs    map[string]*memoryDir
	maxSize int64 // Maximum total storage size (0 = unlimited)
	size    int64 // Current total size

	hooks       Hooks
	stats       Stats
	putAttempts map[string]int
}

// New creates an empty server holding only the root directory
func New(cfg ...Config) *Server {
	var maxSize int64
	if len(cfg) > 0 {
		maxSize = cfg[0].MaxSize
	}

	s := &Server{
		files:       make(map[string]*memoryFile),
		dirs:        make(map[string]*memoryDir),
		maxSize:     maxSize,
		putAttempts: make(map[string]int),
	}
	s.dirs["/"] = &memoryDir{modTime: time.Now()}
	return s
}

// SetHooks replaces the server's hooks.
func (s *Server) SetHooks(h Hooks) {
	s.mu.Lock()
	s.hooks = h
	s.mu.Unlock()
}

// Stats returns a snapshot of the server counters.
func (s *Server) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Factory returns a driver factory that dials this server. It can be
// passed to ferry.WithDriver.
func (s *Server) Factory() ferry.DriverFactory {
	return func(ctx context.Context, p ferry.Profile, opts ferry.DialOptions) (ferry.Session, error) {
		session, err := s.Dial(ctx, p)
		if err != nil {
			return nil, err
		}
		return session, nil
	}
}

// Dial opens a session on the server.
func (s *Server) Dial(ctx context.Context, p ferry.Profile) (*Session, error) {
	s.mu.RLock()
	hooks := s.hooks
	s.mu.RUnlock()

	if hooks.DialDelay > 0 {
		if hooks.IgnoreContext {
			time.Sleep(hooks.DialDelay)
		} else {
			t := time.NewTimer(hooks.DialDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	if hooks.Dial != nil {
		if err := hooks.Dial(p); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.stats.Dials++
	s.stats.Open++
	if s.stats.Open > s.stats.MaxOpen {
		s.stats.MaxOpen = s.stats.Open
	}
	s.mu.Unlock()

	return &Session{server: s}, nil
}

// WriteFile stores data at remotePath, creating parent directories.
func (s *Server) WriteFile(remotePath string, data []byte) error {
	remotePath = normalizePath(remotePath)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, isDir := s.dirs[remotePath]; isDir {
		return &ferry.PathError{Op: "write", Path: remotePath, Err: errIsDir}
	}
	s.ensureParentDirs(remotePath)
	return s.store(remotePath, data)
}

// ReadFile returns the content stored at remotePath.
func (s *Server) ReadFile(remotePath string) ([]byte, error) {
	remotePath = normalizePath(remotePath)

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[remotePath]
	if !ok {
		return nil, &ferry.PathError{Op: "read", Path: remotePath, Err: ferry.ErrNotFound}
	}
	return append([]byte(nil), f.content...), nil
}

// Files returns the sorted paths of all stored files matching pattern, a
// glob in which "*" stops at "/" and "**" does not. An empty pattern
// matches every file.
func (s *Server) Files(pattern string) ([]string, error) {
	var g glob.Glob
	if pattern != "" {
		var err error
		g, err = glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var paths []string
	for p := range s.files {
		if g == nil || g.Match(p) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// DirExists reports whether remotePath is a directory.
func (s *Server) DirExists(remotePath string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.dirs[normalizePath(remotePath)]
	return ok
}

// Clear removes all content, keeping hooks and counters.
func (s *Server) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = make(map[string]*memoryFile)
	s.dirs = map[string]*memoryDir{"/": {modTime: time.Now()}}
	s.size = 0
}

// Size returns the current total size of stored files
func (s *Server) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// FileCount returns the number of files stored
func (s *Server) FileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

var (
	errIsDir  = errors.New("is a directory")
	errNotDir = errors.New("not a directory")
)

// store writes a file. Callers hold s.mu.
func (s *Server) store(p string, data []byte) error {
	var oldSize int64
	if existing, ok := s.files[p]; ok {
		oldSize = int64(len(existing.content))
	}
	newSize := s.size - oldSize + int64(len(data))
	if s.maxSize > 0 && newSize > s.maxSize {
		return &ferry.PathError{Op: "put", Path: p, Err: ErrNoSpace}
	}

	s.files[p] = &memoryFile{
		content: append([]byte(nil), data...),
		modTime: time.Now(),
	}
	s.size = newSize
	return nil
}

// ensureParentDirs creates all parent directories for a path. Callers hold
// s.mu.
func (s *Server) ensureParentDirs(p string) {
	for dir := path.Dir(p); dir != "/"; dir = path.Dir(dir) {
		if _, ok := s.dirs[dir]; !ok {
			s.dirs[dir] = &memoryDir{modTime: time.Now()}
		}
	}
}

// normalizePath makes p absolute and clean.
func normalizePath(p string) string {
	return path.Clean("/" + strings.ReplaceAll(p, `\`, "/"))
}

// Session is one connection to a Server implementing ferry.Session
type Session struct {
	server *Server

	mu     sync.Mutex
	closed bool
}

var _ ferry.Session = (*Session)(nil)

func (c *Session) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ferry.ErrClosed
	}
	return nil
}

// EnsureDir implements ferry.Session
func (c *Session) EnsureDir(ctx context.Context, dir string) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	dir = normalizePath(dir)

	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()

	for p := dir; p != "/"; p = path.Dir(p) {
		if _, isFile := s.files[p]; isFile {
			return &ferry.PathError{Op: "mkdir", Path: p, Err: errNotDir}
		}
	}
	s.ensureParentDirs(dir)
	if _, ok := s.dirs[dir]; !ok {
		s.dirs[dir] = &memoryDir{modTime: time.Now()}
	}
	return nil
}

// Put implements ferry.Session. The parent directory must already exist.
func (c *Session) Put(ctx context.Context, localPath, remotePath string) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	remotePath = normalizePath(remotePath)

	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}

	s := c.server
	s.mu.Lock()
	s.putAttempts[remotePath]++
	attempt := s.putAttempts[remotePath]
	hooks := s.hooks
	s.mu.Unlock()

	if hooks.PutDelay > 0 {
		t := time.NewTimer(hooks.PutDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	if hooks.Put != nil {
		if err := hooks.Put(remotePath, attempt); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dirs[path.Dir(remotePath)]; !ok {
		return &ferry.PathError{Op: "put", Path: remotePath, Err: ferry.ErrNotFound}
	}
	if _, isDir := s.dirs[remotePath]; isDir {
		return &ferry.PathError{Op: "put", Path: remotePath, Err: errIsDir}
	}
	if err := s.store(remotePath, data); err != nil {
		return err
	}
	s.stats.Puts++
	return nil
}

// Get implements ferry.Session
func (c *Session) Get(ctx context.Context, remotePath, localPath string) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	remotePath = normalizePath(remotePath)

	s := c.server
	s.mu.RLock()
	hooks := s.hooks
	s.mu.RUnlock()

	if hooks.Get != nil {
		if err := hooks.Get(remotePath); err != nil {
			return err
		}
	}

	data, err := s.ReadFile(remotePath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return err
	}

	s.mu.Lock()
	s.stats.Gets++
	s.mu.Unlock()
	return nil
}

// List implements ferry.Session. Entries are sorted by name.
func (c *Session) List(ctx context.Context, dir string) ([]ferry.FileInfo, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	dir = normalizePath(dir)

	s := c.server
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.dirs[dir]; !ok {
		return nil, &ferry.PathError{Op: "list", Path: dir, Err: ferry.ErrNotFound}
	}

	var entries []ferry.FileInfo
	for p, f := range s.files {
		if path.Dir(p) == dir {
			entries = append(entries, ferry.FileInfo{
				Name:    path.Base(p),
				Path:    p,
				Size:    int64(len(f.content)),
				ModTime: f.modTime,
			})
		}
	}
	for p, d := range s.dirs {
		if p != "/" && path.Dir(p) == dir {
			entries = append(entries, ferry.FileInfo{
				Name:    path.Base(p),
				Path:    p,
				ModTime: d.modTime,
				IsDir:   true,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Close implements ferry.Session. Closing twice returns ferry.ErrClosed.
func (c *Session) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ferry.ErrClosed
	}
	c.closed = true
	c.mu.Unlock()

	s := c.server
	s.mu.Lock()
	s.stats.Open--
	s.stats.Closed++
	s.mu.Unlock()
	return nil
}
