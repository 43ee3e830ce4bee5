package ferry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	errTransient := errors.New("transient")

	tests := []struct {
		name         string
		config       RetryConfig
		failures     int
		wantAttempts int
		wantErr      bool
	}{
		{"succeeds first time", DefaultRetryConfig(), 0, 1, false},
		{"succeeds on last retry", DefaultRetryConfig(), 3, 4, false},
		{"exhausts retries", DefaultRetryConfig(), 10, 4, true},
		{"no retry", NoRetryConfig(), 10, 1, true},
		{"single retry", RetryConfig{MaxRetries: 1}, 1, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			attempts, err := Retry(context.Background(), tt.config, "upload a.txt", func() error {
				calls++
				if calls <= tt.failures {
					return errTransient
				}
				return nil
			})

			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
			if calls != attempts {
				t.Errorf("calls = %d, attempts = %d", calls, attempts)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("Retry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errTransient) {
				t.Errorf("last error not wrapped: %v", err)
			}
		})
	}
}

func TestRetry_ErrorMessage(t *testing.T) {
	_, err := Retry(context.Background(), RetryConfig{MaxRetries: 2}, "upload a.txt", func() error {
		return errors.New("boom")
	})
	if err == nil || !strings.Contains(err.Error(), "upload a.txt failed after 3 attempts") {
		t.Errorf("unexpected error: %v", err)
	}

	_, err = Retry(context.Background(), NoRetryConfig(), "upload a.txt", func() error {
		return errors.New("boom")
	})
	if err == nil || err.Error() != "boom" {
		t.Errorf("single attempt should return the raw error, got %v", err)
	}
}

func TestRetry_Delay(t *testing.T) {
	start := time.Now()
	attempts, _ := Retry(context.Background(), RetryConfig{MaxRetries: 2, Delay: 20 * time.Millisecond}, "op", func() error {
		return errors.New("fail")
	})
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("expected two delays, elapsed %v", elapsed)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts, err := Retry(ctx, RetryConfig{MaxRetries: 5}, "op", func() error {
		cancel()
		return errors.New("fail")
	})
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if err == nil || !strings.Contains(err.Error(), "cancelled after 1 attempts") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRetry_CancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	errTransient := errors.New("transient")
	start := time.Now()
	attempts, err := Retry(ctx, RetryConfig{MaxRetries: 3, Delay: time.Minute}, "op", func() error {
		return errTransient
	})
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if !errors.Is(err, errTransient) || !strings.Contains(err.Error(), "cancelled after 1 attempts") {
		t.Errorf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("delay not interrupted, elapsed %v", elapsed)
	}
}

func TestRetry_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	attempts, err := Retry(ctx, DefaultRetryConfig(), "op", func() error {
		calls++
		return nil
	})
	if attempts != 0 || calls != 0 {
		t.Errorf("attempts = %d, calls = %d, want 0", attempts, calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
