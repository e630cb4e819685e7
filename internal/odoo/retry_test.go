package odoo

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"
)

func connRefused() error {
	return &url.Error{Op: "Post", URL: "http://odoo.test/jsonrpc", Err: errors.New("connection refused")}
}

func TestRetryPolicy_DelayDoublesAndCaps(t *testing.T) {
	p := RetryPolicy{MaxRetries: 10, BackoffBase: 500 * time.Millisecond, BackoffMax: 3 * time.Second}

	want := []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		3 * time.Second,
		3 * time.Second,
	}
	for attempt, w := range want {
		if got := p.Delay(attempt); got != w {
			t.Fatalf("Delay(%d) = %v, want %v", attempt, got, w)
		}
	}
}

func TestWithRetry_RetriesConnectionErrorsUpToMax(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{MaxRetries: 3, BackoffBase: 100 * time.Millisecond, BackoffMax: time.Second}

	calls := 0
	var slept []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	_, err := withRetry(context.Background(), policy, "search", sleep, func() (any, error) {
		calls++
		return nil, connRefused()
	})
	if err == nil {
		t.Fatal("withRetry returned nil error after exhausting retries")
	}
	if calls != 4 {
		t.Fatalf("calls = %d, want 4 (initial + 3 retries)", calls)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	if len(slept) != len(want) {
		t.Fatalf("sleeps = %v, want %v", slept, want)
	}
	for i, d := range want {
		if slept[i] != d {
			t.Fatalf("sleep %d = %v, want %v", i, slept[i], d)
		}
	}
}

func TestWithRetry_SucceedsAfterTransientFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	result, err := withRetry(context.Background(), DefaultRetry, "read", noSleep, func() (any, error) {
		calls++
		if calls < 2 {
			return nil, connRefused()
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("withRetry returned error: %v", err)
	}
	if result != "ok" || calls != 2 {
		t.Fatalf("result = %v, calls = %d, want ok after 2 calls", result, calls)
	}
}

func TestWithRetry_NeverRetriesWrites(t *testing.T) {
	t.Parallel()

	for _, method := range []string{"write", "create", "unlink", "action_timer_start"} {
		calls := 0
		_, err := withRetry(context.Background(), DefaultRetry, method, noSleep, func() (any, error) {
			calls++
			return nil, connRefused()
		})
		if err == nil {
			t.Fatalf("%s: error swallowed", method)
		}
		if calls != 1 {
			t.Fatalf("%s: calls = %d, want 1", method, calls)
		}
	}
}

func TestWithRetry_NeverRetriesServerErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := withRetry(context.Background(), DefaultRetry, "search", noSleep, func() (any, error) {
		calls++
		return nil, newTransportError("boom", 200, nil)
	})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *TransportError", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (server errors are final)", calls)
	}
}

func TestWithRetry_ZeroPolicyRunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := withRetry(context.Background(), RetryPolicy{}, "search", noSleep, func() (any, error) {
		calls++
		return nil, connRefused()
	})
	if err == nil || calls != 1 {
		t.Fatalf("calls = %d, err = %v, want single failing call", calls, err)
	}
}

func TestWithRetry_CancelledContextStopsBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := withRetry(ctx, DefaultRetry, "search", sleepCtx, func() (any, error) {
		calls++
		return nil, connRefused()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestIsConnectionError(t *testing.T) {
	t.Parallel()

	if !isConnectionError(connRefused()) {
		t.Fatal("url.Error not treated as connection error")
	}
	if isConnectionError(newTransportError("server exploded", 500, nil)) {
		t.Fatal("TransportError treated as connection error")
	}
	if isConnectionError(errors.New("some logic error")) {
		t.Fatal("plain error treated as connection error")
	}
}

func noSleep(context.Context, time.Duration) error { return nil }
