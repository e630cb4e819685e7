package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// LegacyTransport speaks the Odoo 14-18 JSON-RPC protocol: every call is a
// POST to /jsonrpc carrying a {service, method, args} envelope.
type LegacyTransport struct {
	conn
}

// NewLegacyTransport builds a legacy transport. No network traffic happens
// until the first operation.
func NewLegacyTransport(info ConnInfo) *LegacyTransport {
	return &LegacyTransport{conn: newConn(info)}
}

// Authenticate resolves the user id via common.authenticate. The server
// returns false (or a non-positive value) for bad credentials.
func (t *LegacyTransport) Authenticate(ctx context.Context) (int, error) {
	if t.uid > 0 {
		return t.uid, nil
	}
	result, err := t.CallService(ctx, "common", "authenticate",
		[]any{t.info.Database, t.info.Username, t.info.Secret, map[string]any{}})
	if err != nil {
		return 0, &AuthError{Reason: "authenticate call failed", Err: err}
	}
	uid, ok := asInt(result)
	if !ok || uid <= 0 {
		return 0, &AuthError{Reason: "credentials rejected"}
	}
	t.uid = uid
	return uid, nil
}

// ExecuteKw calls a model method through object.execute_kw, authenticating
// lazily when no user id is cached yet.
func (t *LegacyTransport) ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	uid, err := t.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return withRetry(ctx, t.info.Retry, method, t.sleep, func() (any, error) {
		return t.CallService(ctx, "object", "execute_kw",
			[]any{t.info.Database, uid, t.info.Secret, model, method, args, kwargs})
	})
}

// CallService performs one JSON-RPC envelope call.
func (t *LegacyTransport) CallService(ctx context.Context, service, method string, args []any) (any, error) {
	payload := map[string]any{
		"jsonrpc": "2.0",
		"method":  "call",
		"params": map[string]any{
			"service": service,
			"method":  method,
			"args":    args,
		},
		"id": nil,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode rpc payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.info.URL+"/jsonrpc", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}
	if envelope.Error != nil {
		return nil, envelope.Error.toTransportError()
	}
	if len(envelope.Result) == 0 {
		return nil, nil
	}

	var result any
	if err := json.Unmarshal(envelope.Result, &result); err != nil {
		return nil, fmt.Errorf("decode rpc result: %w", err)
	}
	return result, nil
}

// rpcError is the error member of a JSON-RPC response.
type rpcError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// toTransportError maps the envelope error to the most specific client
// error. The data payload's own message is preferred when present: the
// top-level message is usually just "Odoo Server Error".
func (e *rpcError) toTransportError() *TransportError {
	message := e.Message
	if e.Message == "" {
		message = "unknown error"
	}
	if m, ok := e.Data["message"].(string); ok && m != "" {
		message = m
	}
	return newTransportError(message, e.Code, e.Data)
}
