package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// JSON2Transport speaks the Odoo 19+ JSON-2 protocol: per-model, per-method
// endpoints with bearer-token authentication and method-shaped bodies.
type JSON2Transport struct {
	conn
}

// NewJSON2Transport builds a JSON-2 transport. No network traffic happens
// until the first operation.
func NewJSON2Transport(info ConnInfo) *JSON2Transport {
	return &JSON2Transport{conn: newConn(info)}
}

// Authenticate infers identity by looking up the configured login on
// res.users: JSON-2 has no explicit login call, so a successful bearer-token
// read that matches exactly one user is the authentication proof.
func (t *JSON2Transport) Authenticate(ctx context.Context) (int, error) {
	if t.uid > 0 {
		return t.uid, nil
	}
	result, err := t.ExecuteKw(ctx, "res.users", "search_read",
		[]any{[]any{[]any{"login", "=", t.info.Username}}},
		map[string]any{"fields": []any{"id"}, "limit": 1})
	if err != nil {
		return 0, &AuthError{Reason: "user lookup failed", Err: err}
	}
	records := toRecords(result)
	if len(records) == 0 {
		return 0, &AuthError{Reason: "user not found"}
	}
	uid := records[0].ID()
	if uid <= 0 {
		return 0, &AuthError{Reason: "invalid user id"}
	}
	t.uid = uid
	return uid, nil
}

// ExecuteKw maps the execute_kw calling convention onto a JSON-2 request.
func (t *JSON2Transport) ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	body := buildJSON2Body(method, args, kwargs)
	return withRetry(ctx, t.info.Retry, method, t.sleep, func() (any, error) {
		return t.request(ctx, model, method, body)
	})
}

// CallService is unsupported: JSON-2 has no generic service envelope.
func (t *JSON2Transport) CallService(ctx context.Context, service, method string, args []any) (any, error) {
	return nil, ErrServiceCallUnsupported
}

func (t *JSON2Transport) request(ctx context.Context, model, method string, body map[string]any) (any, error) {
	endpoint := fmt.Sprintf("%s/json/2/%s/%s", t.info.URL, model, method)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "bearer "+t.info.Secret)
	req.Header.Set("User-Agent", defaultUserAgent)
	if t.info.Database != "" {
		req.Header.Set("X-Odoo-Database", t.info.Database)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, json2HTTPError(resp.StatusCode, raw)
	}
	return parseJSON2Response(raw), nil
}

// json2HTTPError extracts message and data from a JSON error body when the
// server sent one, keeping the exception-class mapping identical to legacy.
func json2HTTPError(status int, raw []byte) *TransportError {
	message := fmt.Sprintf("HTTP %d", status)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return newTransportError(message, status, nil)
	}
	if m, ok := body["message"].(string); ok && m != "" {
		message = m
	}
	data, _ := body["data"].(map[string]any)
	if data == nil {
		data = body
	}
	return newTransportError(message, status, data)
}

// buildJSON2Body maps execute_kw positional arguments into the
// method-specific JSON-2 request body.
func buildJSON2Body(method string, args []any, kwargs map[string]any) map[string]any {
	body := map[string]any{}

	switch method {
	case "search", "search_read":
		if len(args) > 0 {
			body["domain"] = args[0]
		}
	case "read":
		if len(args) > 0 {
			body["ids"] = args[0]
			if len(args) > 1 {
				body["fields"] = args[1]
			}
		}
	case "create":
		if len(args) > 0 {
			// JSON-2 expects vals_list, so a single record is wrapped.
			if list, ok := args[0].([]any); ok {
				body["vals_list"] = list
			} else {
				body["vals_list"] = []any{args[0]}
			}
		}
	case "write":
		if len(args) > 0 {
			body["ids"] = args[0]
			if len(args) > 1 {
				body["vals"] = args[1]
			}
		}
	case "unlink":
		if len(args) > 0 {
			body["ids"] = args[0]
		}
	case "name_search", "fields_get":
		// kwargs only
	default:
		// Action-style methods take their subject ids as the first
		// positional arg, e.g. action_timer_start([id]).
		if len(args) > 0 && isIntList(args[0]) {
			body["ids"] = args[0]
		}
	}

	for key, value := range kwargs {
		body[key] = value
	}
	// name_search passes its domain as the args kwarg; JSON-2 calls it
	// domain.
	if domain, ok := body["args"]; ok {
		delete(body, "args")
		body["domain"] = domain
	}

	return body
}

// isIntList reports whether value is a non-empty list of integers.
func isIntList(value any) bool {
	switch list := value.(type) {
	case []int:
		return len(list) > 0
	case []any:
		if len(list) == 0 {
			return false
		}
		for _, entry := range list {
			if _, ok := asInt(entry); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// parseJSON2Response decodes a raw JSON-2 response body. Responses are not a
// uniform envelope: the body may be a JSON document, a bare literal, a bare
// number, or a bare string.
func parseJSON2Response(raw []byte) any {
	text := strings.TrimSpace(string(raw))
	switch text {
	case "", "null", "false":
		return nil
	case "true":
		return true
	}

	var value any
	if err := json.Unmarshal([]byte(text), &value); err == nil {
		// A top-level bare number without a decimal point is an id-like
		// integer, not a float.
		if f, ok := value.(float64); ok && !strings.ContainsAny(text, ".eE") {
			return int(f)
		}
		return value
	}

	if strings.Contains(text, ".") {
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	} else if n, err := strconv.Atoi(text); err == nil {
		return n
	}

	return text
}
