package ferry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gobeaver/ferry"
	"github.com/gobeaver/ferry/driver/memory"
)

func TestConnect(t *testing.T) {
	srv := memory.New()
	c := newTestClient(t, srv, nil)

	s, err := c.Sessions().Connect(context.Background(), testProfile)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	c.Sessions().Release(s)

	stats := srv.Stats()
	if stats.Dials != 1 || stats.Open != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestConnect_UnknownProfile(t *testing.T) {
	c := newTestClient(t, memory.New(), nil)

	_, err := c.Sessions().Connect(context.Background(), "nope")
	if !ferry.IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestConnect_UnsupportedProtocol(t *testing.T) {
	c := newTestClient(t, memory.New(), nil)
	if err := c.Store().Add("gopher", ferry.Profile{Host: "h", Username: "u", Protocol: "gopher"}); err != nil {
		t.Fatal(err)
	}

	_, err := c.Sessions().Connect(context.Background(), "gopher")
	if !errors.Is(err, ferry.ErrUnsupportedProtocol) {
		t.Errorf("expected ErrUnsupportedProtocol, got %v", err)
	}
}

func TestConnect_Failures(t *testing.T) {
	tests := []struct {
		name    string
		dialErr error
		check   func(error) bool
	}{
		{
			name:    "refused",
			dialErr: errors.New("connection refused"),
			check:   ferry.IsConnection,
		},
		{
			name:    "bad credentials",
			dialErr: fmt.Errorf("%w: 530 login incorrect", ferry.ErrAuth),
			check:   func(err error) bool { return errors.Is(err, ferry.ErrAuth) && ferry.IsConnection(err) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := memory.New()
			srv.SetHooks(memory.Hooks{Dial: func(ferry.Profile) error { return tt.dialErr }})
			c := newTestClient(t, srv, nil)

			_, err := c.Sessions().Connect(context.Background(), testProfile)
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error classification: %v", err)
			}
			if ferry.IsTimeout(err) {
				t.Errorf("failure must not be reported as timeout: %v", err)
			}
		})
	}
}

func TestConnect_TimeoutReleasesLateSession(t *testing.T) {
	srv := memory.New()
	srv.SetHooks(memory.Hooks{DialDelay: 200 * time.Millisecond, IgnoreContext: true})

	cfg := ferry.DefaultConfig()
	cfg.ConnectTimeout = "20ms"
	c := newTestClient(t, srv, cfg)

	start := time.Now()
	_, err := c.Sessions().Connect(context.Background(), testProfile)
	if !ferry.IsTimeout(err) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("Connect returned after %v, deadline not enforced", elapsed)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := srv.Stats(); s.Dials == 1 && s.Closed == 1 && s.Open == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("late session was not released: %+v", srv.Stats())
}

func TestConnect_ParentCancelled(t *testing.T) {
	srv := memory.New()
	srv.SetHooks(memory.Hooks{DialDelay: time.Second})
	c := newTestClient(t, srv, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Sessions().Connect(ctx, testProfile)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if ferry.IsTimeout(err) {
		t.Error("caller cancellation is not a connect timeout")
	}
}

func TestClientTest(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := memory.New()
		c := newTestClient(t, srv, nil)

		res := c.Test(context.Background(), testProfile)
		if !res.Success || res.Error != "" {
			t.Errorf("unexpected result %+v", res)
		}
		if srv.Stats().Open != 0 {
			t.Error("test session left open")
		}
	})

	t.Run("failure is reported not returned", func(t *testing.T) {
		srv := memory.New()
		srv.SetHooks(memory.Hooks{Dial: func(ferry.Profile) error { return errors.New("refused") }})
		c := newTestClient(t, srv, nil)

		res := c.Test(context.Background(), testProfile)
		if res.Success || res.Error == "" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("unknown profile", func(t *testing.T) {
		c := newTestClient(t, memory.New(), nil)
		if res := c.Test(context.Background(), "nope"); res.Success {
			t.Error("expected failure for unknown profile")
		}
	})
}

func TestRelease_SwallowsCloseErrors(t *testing.T) {
	srv := memory.New()
	c := newTestClient(t, srv, nil)

	s, err := c.Sessions().Connect(context.Background(), testProfile)
	if err != nil {
		t.Fatal(err)
	}
	c.Sessions().Release(s)
	c.Sessions().Release(s) // second close fails inside the driver
	c.Sessions().Release(nil)
}
