package odoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "vodoo/0.1"
)

// ConnInfo holds the connection parameters shared by both wire bindings.
type ConnInfo struct {
	URL      string
	Database string
	Username string
	// Secret is the password (legacy) or API key used as bearer token
	// (JSON-2).
	Secret  string
	Timeout time.Duration
	Retry   RetryPolicy
}

// Transport is one wire binding to the Odoo external API. Implementations
// authenticate lazily and memoize the user id for their lifetime; every
// higher-level operation is expressed through ExecuteKw.
type Transport interface {
	// Authenticate resolves and caches the authenticated user id.
	Authenticate(ctx context.Context) (int, error)
	// ExecuteKw calls method on model with positional args and optional
	// keyword args.
	ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error)
	// CallService performs a generic envelope call (common/object/db).
	// The JSON-2 binding has no envelope and returns
	// ErrServiceCallUnsupported.
	CallService(ctx context.Context, service, method string, args []any) (any, error)
	// Close releases the underlying connection pool. Idempotent.
	Close()
}

// conn is the transport core both bindings embed: one HTTP client, one
// memoized user id, one retry policy.
type conn struct {
	info ConnInfo
	http *http.Client
	uid  int

	// sleep is swapped out by tests to count backoff delays.
	sleep func(context.Context, time.Duration) error
}

func newConn(info ConnInfo) conn {
	info.URL = strings.TrimRight(strings.TrimSpace(info.URL), "/")
	info.Database = strings.TrimSpace(info.Database)
	info.Username = strings.TrimSpace(info.Username)
	info.Secret = strings.TrimSpace(info.Secret)
	if info.Timeout <= 0 {
		info.Timeout = defaultTimeout
	}
	if info.Retry == (RetryPolicy{}) {
		info.Retry = DefaultRetry
	}
	return conn{
		info:  info,
		http:  &http.Client{Timeout: info.Timeout},
		sleep: sleepCtx,
	}
}

func (c *conn) Close() {
	c.http.CloseIdleConnections()
}

// parseServerURL validates the configured URL and defaults the scheme to
// https when missing.
func parseServerURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("server URL is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server URL %q: %w", raw, err)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
