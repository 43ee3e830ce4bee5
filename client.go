package ferry

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gobeaver/beaver-kit/config"
	"github.com/google/uuid"
)

// Client is the entry point for profile management and transfers.
type Client struct {
	store    *Store
	sessions *SessionFactory
	drivers  map[Protocol]DriverFactory
	settings *settings
	workDir  string
	logger   *slog.Logger
}

// Builder provides a way to create clients from environment variables with
// custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// New creates a new Client using the builder's prefix
func (b *Builder) New(options ...Option) (*Client, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return New(cfg, options...)
}

// NewFromEnv creates a client from environment variables (convenience constructor)
func NewFromEnv(options ...Option) (*Client, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg, options...)
}

// New creates a client with the given config. A nil config selects
// DefaultConfig.
func New(cfg *Config, options ...Option) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s, err := validateConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Client{settings: s}
	for _, option := range options {
		option(c)
	}

	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: s.logLevel}))
	}
	if c.store == nil {
		c.store = OpenStore(s.storePath, WithStoreLogger(c.logger))
	}
	if c.workDir == "" {
		if wd, err := os.Getwd(); err == nil {
			c.workDir = wd
		}
	}

	c.sessions = NewSessionFactory(c.store, s.connectTimeout, DialOptions{
		KnownHostsFile:        cfg.KnownHostsFile,
		InsecureIgnoreHostKey: cfg.InsecureIgnoreHostKey,
		InsecureSkipVerify:    cfg.InsecureSkipVerify,
		Logger:                c.logger,
	})
	for protocol, factory := range c.drivers {
		c.sessions.useDriver(protocol, factory)
	}

	return c, nil
}

// Store returns the profile store.
func (c *Client) Store() *Store {
	return c.store
}

// Sessions returns the session factory.
func (c *Client) Sessions() *SessionFactory {
	return c.sessions
}

// newOperationID tags the log lines of one operation.
func newOperationID() string {
	return uuid.New().String()
}
