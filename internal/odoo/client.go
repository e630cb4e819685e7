package odoo

import (
	"context"
	"fmt"
)

// Client is the version-detecting façade over one Transport. The transport
// is chosen once (explicitly, or by probing JSON-2 and falling back to
// legacy) and never swapped for the lifetime of the client.
type Client struct {
	info ConnInfo

	// DefaultUserID is the acting user for sudo operations when the caller
	// does not pass one. Zero means unset.
	DefaultUserID int

	transport Transport
	modern    bool
	detected  bool
}

// Option customizes client construction.
type Option func(*Client)

// WithTransport pins an explicit transport, skipping version detection.
// modern reports whether it speaks JSON-2.
func WithTransport(t Transport, modern bool) Option {
	return func(c *Client) {
		c.transport = t
		c.modern = modern
		c.detected = true
	}
}

// NewClient builds a client. Detection is lazy: the first operation probes
// the JSON-2 binding and falls back to legacy.
func NewClient(info ConnInfo, opts ...Option) *Client {
	c := &Client{info: info}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ensureTransport runs version detection at most once. A JSON-2 transport
// that authenticates is adopted; on any failure its resources are released
// and the legacy transport is used instead, without authenticating it
// eagerly (legacy authenticates lazily on first real operation).
func (c *Client) ensureTransport(ctx context.Context) (Transport, error) {
	if c.detected {
		return c.transport, nil
	}

	json2 := NewJSON2Transport(c.info)
	if _, err := json2.Authenticate(ctx); err == nil {
		c.transport = json2
		c.modern = true
	} else {
		json2.Close()
		c.transport = NewLegacyTransport(c.info)
		c.modern = false
	}
	c.detected = true
	return c.transport, nil
}

// IsModern reports whether the chosen binding speaks JSON-2. Callers needing
// protocol-specific behavior branch on this capability rather than on the
// transport's concrete type. Before the first operation the answer is not
// yet known; use Modern to force detection.
func (c *Client) IsModern() bool { return c.modern }

// Modern runs version detection if it has not happened yet and reports
// whether the chosen binding speaks JSON-2.
func (c *Client) Modern(ctx context.Context) (bool, error) {
	if _, err := c.ensureTransport(ctx); err != nil {
		return false, err
	}
	return c.modern, nil
}

// URL returns the configured server URL.
func (c *Client) URL() string { return c.info.URL }

// Username returns the configured login.
func (c *Client) Username() string { return c.info.Username }

// Close releases the chosen transport's resources. Idempotent.
func (c *Client) Close() {
	if c.transport != nil {
		c.transport.Close()
	}
}

// UID returns the authenticated user id, authenticating if needed.
func (c *Client) UID(ctx context.Context) (int, error) {
	t, err := c.ensureTransport(ctx)
	if err != nil {
		return 0, err
	}
	return t.Authenticate(ctx)
}

// ExecuteKw calls an arbitrary model method.
func (c *Client) ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	t, err := c.ensureTransport(ctx)
	if err != nil {
		return nil, err
	}
	return t.ExecuteKw(ctx, model, method, args, kwargs)
}

// ExecuteSudo calls a model method attributing its effects to userID by
// injecting sudo_user_id into the call context. The transport's own
// credential typically belongs to a service account.
func (c *Client) ExecuteSudo(ctx context.Context, model, method string, userID int, args []any, kwargs map[string]any) (any, error) {
	merged := make(map[string]any, len(kwargs)+1)
	for k, v := range kwargs {
		merged[k] = v
	}
	callCtx, _ := merged["context"].(map[string]any)
	withSudo := make(map[string]any, len(callCtx)+1)
	for k, v := range callCtx {
		withSudo[k] = v
	}
	withSudo["sudo_user_id"] = userID
	merged["context"] = withSudo
	return c.ExecuteKw(ctx, model, method, args, merged)
}

// CallService performs a generic envelope call on transports that support it.
func (c *Client) CallService(ctx context.Context, service, method string, args []any) (any, error) {
	t, err := c.ensureTransport(ctx)
	if err != nil {
		return nil, err
	}
	return t.CallService(ctx, service, method, args)
}

// SearchOptions tune search/search_read calls.
type SearchOptions struct {
	Fields []string
	Limit  int
	Offset int
	Order  string
}

func (o SearchOptions) kwargs(includeFields bool) map[string]any {
	kw := map[string]any{}
	if includeFields && o.Fields != nil {
		kw[fieldsKey] = o.Fields
	}
	if o.Limit > 0 {
		kw["limit"] = o.Limit
	}
	if o.Offset > 0 {
		kw["offset"] = o.Offset
	}
	if o.Order != "" {
		kw["order"] = o.Order
	}
	return kw
}

const fieldsKey = "fields"

// Search returns the ids of records matching domain.
func (c *Client) Search(ctx context.Context, model string, domain []any, opts SearchOptions) ([]int, error) {
	result, err := c.ExecuteKw(ctx, model, "search", []any{orEmptyDomain(domain)}, opts.kwargs(false))
	if err != nil {
		return nil, err
	}
	list, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected search result %T", result)
	}
	ids := make([]int, 0, len(list))
	for _, entry := range list {
		if id, ok := asInt(entry); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Read fetches records by id. A nil fields slice reads all fields.
func (c *Client) Read(ctx context.Context, model string, ids []int, fields []string) ([]Record, error) {
	args := []any{intList(ids)}
	if fields != nil {
		args = append(args, fields)
	}
	result, err := c.ExecuteKw(ctx, model, "read", args, nil)
	if err != nil {
		return nil, err
	}
	return toRecords(result), nil
}

// SearchRead searches and reads in one round trip.
func (c *Client) SearchRead(ctx context.Context, model string, domain []any, opts SearchOptions) ([]Record, error) {
	result, err := c.ExecuteKw(ctx, model, "search_read", []any{orEmptyDomain(domain)}, opts.kwargs(true))
	if err != nil {
		return nil, err
	}
	return toRecords(result), nil
}

// Create inserts one record and returns its id. Both protocols may answer a
// single-record create with either a bare id or a one-element id list; the
// list form is unwrapped.
func (c *Client) Create(ctx context.Context, model string, values map[string]any, callCtx map[string]any) (int, error) {
	var kwargs map[string]any
	if len(callCtx) > 0 {
		kwargs = map[string]any{"context": callCtx}
	}
	result, err := c.ExecuteKw(ctx, model, "create", []any{values}, kwargs)
	if err != nil {
		return 0, err
	}
	if list, ok := result.([]any); ok && len(list) == 1 {
		result = list[0]
	}
	id, ok := asInt(result)
	if !ok {
		return 0, fmt.Errorf("unexpected create result %T", result)
	}
	return id, nil
}

// Write updates records.
func (c *Client) Write(ctx context.Context, model string, ids []int, values map[string]any) (bool, error) {
	result, err := c.ExecuteKw(ctx, model, "write", []any{intList(ids), values}, nil)
	if err != nil {
		return false, err
	}
	ok, _ := result.(bool)
	return ok, nil
}

// Unlink deletes records.
func (c *Client) Unlink(ctx context.Context, model string, ids []int) (bool, error) {
	result, err := c.ExecuteKw(ctx, model, "unlink", []any{intList(ids)}, nil)
	if err != nil {
		return false, err
	}
	ok, _ := result.(bool)
	return ok, nil
}

// NameSearch runs the autocomplete search, returning (id, display name)
// pairs.
func (c *Client) NameSearch(ctx context.Context, model, query string, domain []any, limit int) ([]NameMatch, error) {
	if limit <= 0 {
		limit = 7
	}
	result, err := c.ExecuteKw(ctx, model, "name_search", []any{}, map[string]any{
		"name":  query,
		"args":  orEmptyDomain(domain),
		"limit": limit,
	})
	if err != nil {
		return nil, err
	}
	return parseNameSearch(result), nil
}

func orEmptyDomain(domain []any) []any {
	if domain == nil {
		return []any{}
	}
	return domain
}

func intList(ids []int) []any {
	list := make([]any, len(ids))
	for i, id := range ids {
		list[i] = id
	}
	return list
}
