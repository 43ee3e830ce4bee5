package ferry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// DefaultConnectTimeout bounds every connect attempt.
const DefaultConnectTimeout = 30 * time.Second

// ProfileSource looks up profiles by name. *Store implements it.
type ProfileSource interface {
	Get(name string) (Profile, error)
}

// SessionFactory opens sessions for named profiles.
type SessionFactory struct {
	profiles ProfileSource
	drivers  map[Protocol]DriverFactory
	timeout  time.Duration
	dialOpts DialOptions
	logger   *slog.Logger
}

// NewSessionFactory creates a factory that resolves profiles through src.
// A zero timeout selects DefaultConnectTimeout.
func NewSessionFactory(src ProfileSource, timeout time.Duration, opts DialOptions) *SessionFactory {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		opts.Logger = logger
	}
	opts.Timeout = timeout

	return &SessionFactory{
		profiles: src,
		drivers:  make(map[Protocol]DriverFactory),
		timeout:  timeout,
		dialOpts: opts,
		logger:   logger,
	}
}

// useDriver overrides the globally registered driver for protocol on this
// factory only.
func (f *SessionFactory) useDriver(protocol Protocol, factory DriverFactory) {
	f.drivers[protocol] = factory
}

func (f *SessionFactory) driver(protocol Protocol) (DriverFactory, error) {
	if factory, ok := f.drivers[protocol]; ok {
		return factory, nil
	}
	return lookupDriver(protocol)
}

// Connect opens a session for the named profile.
//
// The attempt is bounded by the factory timeout. If the deadline passes
// first, ErrTimeout is returned and a session that the driver still manages
// to produce afterwards is closed as soon as it arrives.
func (f *SessionFactory) Connect(ctx context.Context, name string) (Session, error) {
	p, err := f.profiles.Get(name)
	if err != nil {
		return nil, err
	}

	dial, err := f.driver(p.Protocol)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", name, err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	type outcome struct {
		session Session
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		s, err := dial(dialCtx, p, f.dialOpts)
		done <- outcome{session: s, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if o.session != nil {
				f.Release(o.session)
			}
			return nil, f.classify(ctx, dialCtx, name, o.err)
		}
		return o.session, nil

	case <-dialCtx.Done():
		go func() {
			if o := <-done; o.session != nil {
				f.logger.Debug("closing session that connected after deadline", "profile", name)
				f.Release(o.session)
			}
		}()
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("connect %s: %w", name, err)
		}
		return nil, fmt.Errorf("connect %s after %s: %w", name, f.timeout, ErrTimeout)
	}
}

// classify maps a driver error onto the error taxonomy.
func (f *SessionFactory) classify(ctx, dialCtx context.Context, name string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("connect %s: %w", name, ctx.Err())
	}
	if errors.Is(dialCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("connect %s after %s: %w: %w", name, f.timeout, ErrTimeout, err)
	}
	if errors.Is(err, ErrConnection) || errors.Is(err, ErrAuth) {
		return fmt.Errorf("connect %s: %w", name, err)
	}
	return fmt.Errorf("connect %s: %w: %w", name, ErrConnection, err)
}

// Release closes a session. Close errors are logged and dropped so they can
// never replace the outcome of the operation that used the session.
func (f *SessionFactory) Release(s Session) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		f.logger.Debug("session close failed", "error", err)
	}
}

// TestResult reports the outcome of a connectivity check.
type TestResult struct {
	Success bool          `json:"success"`
	Latency time.Duration `json:"latency,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Test opens and immediately closes a session for the named profile.
// Failures are reported in the result, never returned.
func (f *SessionFactory) Test(ctx context.Context, name string) TestResult {
	start := time.Now()

	s, err := f.Connect(ctx, name)
	if err != nil {
		return TestResult{Error: err.Error()}
	}
	f.Release(s)

	return TestResult{Success: true, Latency: time.Since(start)}
}

// withSession runs fn with a fresh session and always releases it.
func (f *SessionFactory) withSession(ctx context.Context, name string, fn func(Session) error) error {
	s, err := f.Connect(ctx, name)
	if err != nil {
		return err
	}
	defer f.Release(s)

	return fn(s)
}
