package odoo

import (
	"context"
	"errors"
	"math"
	"net"
	"net/url"
	"time"
)

// RetryPolicy controls exponential backoff for retryable RPC calls.
// The zero value disables retries; use DefaultRetry for the stock policy.
type RetryPolicy struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// DefaultRetry is the policy transports use when none is configured.
var DefaultRetry = RetryPolicy{
	MaxRetries:  2,
	BackoffBase: 500 * time.Millisecond,
	BackoffMax:  30 * time.Second,
}

// Delay returns the backoff delay before retry number attempt (0-based):
// min(base * 2^attempt, max).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.BackoffBase <= 0 {
		return 0
	}
	d := time.Duration(float64(p.BackoffBase) * math.Pow(2, float64(attempt)))
	if p.BackoffMax > 0 && d > p.BackoffMax {
		return p.BackoffMax
	}
	return d
}

// retryableMethods are read-only and idempotent; everything else runs once.
var retryableMethods = map[string]bool{
	"search":      true,
	"search_read": true,
	"read":        true,
	"fields_get":  true,
	"name_search": true,
}

// isConnectionError reports whether err is a connection-level failure
// (connect refused, timeout, DNS) as opposed to a protocol-level error
// response, which must never be retried.
func isConnectionError(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return false
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// withRetry runs call, retrying per policy when method is idempotent and the
// failure is connection-level. Retries are strictly sequential; the last
// error propagates once the attempts are spent.
func withRetry(
	ctx context.Context,
	policy RetryPolicy,
	method string,
	sleep func(context.Context, time.Duration) error,
	call func() (any, error),
) (any, error) {
	result, err := call()
	if err == nil || !retryableMethods[method] || !isConnectionError(err) {
		return result, err
	}

	for attempt := 0; attempt < policy.MaxRetries; attempt++ {
		if serr := sleep(ctx, policy.Delay(attempt)); serr != nil {
			return nil, serr
		}
		result, err = call()
		if err == nil || !isConnectionError(err) {
			return result, err
		}
	}
	return result, err
}
