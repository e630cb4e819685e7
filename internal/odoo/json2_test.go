package odoo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestBuildJSON2Body_ShapesArgsPerMethod(t *testing.T) {
	t.Parallel()

	domain := []any{[]any{"name", "=", "x"}}
	vals := map[string]any{"name": "x"}

	tests := []struct {
		name   string
		method string
		args   []any
		kwargs map[string]any
		want   map[string]any
	}{
		{
			name:   "search takes domain",
			method: "search",
			args:   []any{domain},
			want:   map[string]any{"domain": domain},
		},
		{
			name:   "search_read merges kwargs",
			method: "search_read",
			args:   []any{domain},
			kwargs: map[string]any{"fields": []any{"name"}, "limit": 5},
			want:   map[string]any{"domain": domain, "fields": []any{"name"}, "limit": 5},
		},
		{
			name:   "read takes ids and fields",
			method: "read",
			args:   []any{[]any{1, 2}, []any{"name"}},
			want:   map[string]any{"ids": []any{1, 2}, "fields": []any{"name"}},
		},
		{
			name:   "create wraps single record into vals_list",
			method: "create",
			args:   []any{vals},
			want:   map[string]any{"vals_list": []any{vals}},
		},
		{
			name:   "create keeps an existing list",
			method: "create",
			args:   []any{[]any{vals, vals}},
			want:   map[string]any{"vals_list": []any{vals, vals}},
		},
		{
			name:   "write takes ids and vals",
			method: "write",
			args:   []any{[]any{3}, vals},
			want:   map[string]any{"ids": []any{3}, "vals": vals},
		},
		{
			name:   "unlink takes ids",
			method: "unlink",
			args:   []any{[]any{4, 5}},
			want:   map[string]any{"ids": []any{4, 5}},
		},
		{
			name:   "name_search renames args kwarg to domain",
			method: "name_search",
			args:   []any{},
			kwargs: map[string]any{"name": "web", "args": domain, "limit": 7},
			want:   map[string]any{"name": "web", "domain": domain, "limit": 7},
		},
		{
			name:   "fields_get passes kwargs only",
			method: "fields_get",
			args:   []any{},
			kwargs: map[string]any{"attributes": []any{"string", "type"}},
			want:   map[string]any{"attributes": []any{"string", "type"}},
		},
		{
			name:   "action method with id list gets ids",
			method: "action_timer_start",
			args:   []any{[]any{42}},
			want:   map[string]any{"ids": []any{42}},
		},
		{
			name:   "action method with non-id args gets kwargs only",
			method: "get_formview_id",
			args:   []any{"whatever"},
			kwargs: map[string]any{"context": map[string]any{}},
			want:   map[string]any{"context": map[string]any{}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := buildJSON2Body(tc.method, tc.args, tc.kwargs)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("body = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestParseJSON2Response(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want any
	}{
		{"empty body", "", nil},
		{"null literal", "null", nil},
		{"false collapses to nil", "false", nil},
		{"true literal", "true", true},
		{"bare integer", "42", 42},
		{"bare integer with whitespace", "  42\n", 42},
		{"bare float", "4.5", 4.5},
		{"exponent stays float", "1e2", 100.0},
		{"quoted string", `"hello"`, "hello"},
		{"object", `{"id": 1}`, map[string]any{"id": 1.0}},
		{"list", `[1, 2]`, []any{1.0, 2.0}},
		{"raw non-json text", "plain text", "plain text"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := parseJSON2Response([]byte(tc.raw))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("parseJSON2Response(%q) = %#v (%T), want %#v (%T)", tc.raw, got, got, tc.want, tc.want)
			}
		})
	}
}

func TestJSON2Transport_RequestShape(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotDB, gotContentType string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotDB = r.Header.Get("X-Odoo-Database")
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`[{"id": 7, "name": "Task"}]`))
	}))
	t.Cleanup(server.Close)

	tr := NewJSON2Transport(ConnInfo{URL: server.URL, Database: "prod", Username: "bot", Secret: "key123"})
	t.Cleanup(tr.Close)

	result, err := tr.ExecuteKw(context.Background(), "project.task", "search_read",
		[]any{[]any{}}, map[string]any{"limit": 1})
	if err != nil {
		t.Fatalf("ExecuteKw returned error: %v", err)
	}

	if gotPath != "/json/2/project.task/search_read" {
		t.Fatalf("path = %q, want /json/2/project.task/search_read", gotPath)
	}
	if gotAuth != "bearer key123" {
		t.Fatalf("Authorization = %q, want bearer key123", gotAuth)
	}
	if gotDB != "prod" {
		t.Fatalf("X-Odoo-Database = %q, want prod", gotDB)
	}
	if gotContentType != "application/json; charset=utf-8" {
		t.Fatalf("Content-Type = %q", gotContentType)
	}
	if _, ok := gotBody["domain"]; !ok {
		t.Fatalf("body = %v, want a domain key", gotBody)
	}

	records := toRecords(result)
	if len(records) != 1 || records[0].ID() != 7 {
		t.Fatalf("result = %#v, want one record with id 7", result)
	}
}

func TestJSON2Transport_AuthenticateResolvesLogin(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/2/res.users/search_read" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"id": 11}]`))
	}))
	t.Cleanup(server.Close)

	tr := NewJSON2Transport(ConnInfo{URL: server.URL, Username: "bot", Secret: "key"})
	t.Cleanup(tr.Close)

	uid, err := tr.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if uid != 11 {
		t.Fatalf("uid = %d, want 11", uid)
	}

	// Memoized: a second call must not hit the network.
	server.Close()
	uid, err = tr.Authenticate(context.Background())
	if err != nil || uid != 11 {
		t.Fatalf("memoized Authenticate = (%d, %v), want (11, nil)", uid, err)
	}
}

func TestJSON2Transport_AuthenticateRejectsUnknownLogin(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	tr := NewJSON2Transport(ConnInfo{URL: server.URL, Username: "ghost", Secret: "key"})
	t.Cleanup(tr.Close)

	_, err := tr.Authenticate(context.Background())
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("error = %v, want *AuthError", err)
	}
}

func TestJSON2Transport_HTTPErrorCarriesServerException(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "no rights", "data": {"name": "odoo.exceptions.AccessError"}}`))
	}))
	t.Cleanup(server.Close)

	tr := NewJSON2Transport(ConnInfo{URL: server.URL, Username: "bot", Secret: "key"})
	t.Cleanup(tr.Close)

	_, err := tr.ExecuteKw(context.Background(), "project.task", "unlink", []any{[]any{1}}, nil)
	if !errors.Is(err, ErrAccessError) {
		t.Fatalf("error = %v, want ErrAccessError", err)
	}
	if !errors.Is(err, ErrUserError) {
		t.Fatalf("error = %v, want to match parent ErrUserError", err)
	}
	var te *TransportError
	if !errors.As(err, &te) || te.Message != "no rights" || te.Code != http.StatusForbidden {
		t.Fatalf("transport error = %#v, want message/code from response", te)
	}
}

func TestJSON2Transport_CallServiceUnsupported(t *testing.T) {
	t.Parallel()

	tr := NewJSON2Transport(ConnInfo{URL: "http://odoo.test", Username: "bot", Secret: "key"})
	_, err := tr.CallService(context.Background(), "common", "version", nil)
	if !errors.Is(err, ErrServiceCallUnsupported) {
		t.Fatalf("error = %v, want ErrServiceCallUnsupported", err)
	}
}
