package records

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vodoo/vodoo/internal/odoo"
)

// scriptedTransport plays back results per "model.method" and records every
// call.
type scriptedTransport struct {
	results map[string]any
	calls   []scriptedCall
}

type scriptedCall struct {
	model  string
	method string
	args   []any
	kwargs map[string]any
}

func (s *scriptedTransport) Authenticate(context.Context) (int, error) { return 2, nil }

func (s *scriptedTransport) ExecuteKw(_ context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	s.calls = append(s.calls, scriptedCall{model: model, method: method, args: args, kwargs: kwargs})
	result, ok := s.results[model+"."+method]
	if !ok {
		return nil, nil
	}
	if err, isErr := result.(error); isErr {
		return nil, err
	}
	return result, nil
}

func (s *scriptedTransport) CallService(context.Context, string, string, []any) (any, error) {
	return nil, odoo.ErrServiceCallUnsupported
}

func (s *scriptedTransport) Close() {}

func (s *scriptedTransport) find(t *testing.T, method string) scriptedCall {
	t.Helper()
	for _, c := range s.calls {
		if c.method == method {
			return c
		}
	}
	t.Fatalf("no %s call recorded in %v", method, s.calls)
	return scriptedCall{}
}

func newService(tr *scriptedTransport, defaultUser int) *Service {
	client := odoo.NewClient(odoo.ConnInfo{URL: "https://odoo.example.com"}, odoo.WithTransport(tr, true))
	client.DefaultUserID = defaultUser
	return NewService(client)
}

func TestService_GetReportsMissingRecord(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{results: map[string]any{"res.partner.read": []any{}}}
	s := newService(tr, 0)

	_, err := s.Get(context.Background(), "res.partner", 42, nil)
	var nf *odoo.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want *odoo.NotFoundError", err)
	}
	if nf.Model != "res.partner" || nf.ID != 42 {
		t.Fatalf("not found = %+v", nf)
	}
}

func TestService_URL(t *testing.T) {
	t.Parallel()

	s := newService(&scriptedTransport{}, 0)
	got := s.URL("helpdesk.ticket", 42)
	want := "https://odoo.example.com/web#id=42&model=helpdesk.ticket&view_type=form"
	if got != want {
		t.Fatalf("URL = %q, want %q", got, want)
	}
}

func TestService_AddTagPreservesExistingTags(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{results: map[string]any{
		"project.task.read":  []any{map[string]any{"id": 1.0, "tag_ids": []any{3.0, 4.0}}},
		"project.task.write": true,
	}}
	s := newService(tr, 0)

	ok, err := s.AddTag(context.Background(), "project.task", 1, 9)
	if err != nil || !ok {
		t.Fatalf("AddTag = (%v, %v), want (true, nil)", ok, err)
	}

	write := tr.find(t, "write")
	vals, _ := write.args[1].(map[string]any)
	commands, _ := vals["tag_ids"].([]any)
	if len(commands) != 1 {
		t.Fatalf("tag_ids = %v, want one set command", vals["tag_ids"])
	}
	cmd, _ := commands[0].([]any)
	if len(cmd) != 3 || cmd[0] != 6 {
		t.Fatalf("command = %v, want [6 0 ids]", cmd)
	}
	ids, _ := cmd[2].([]any)
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 4 || ids[2] != 9 {
		t.Fatalf("ids = %v, want [3 4 9]", ids)
	}
}

func TestService_AddTagAlreadyPresentIsNoOp(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{results: map[string]any{
		"project.task.read": []any{map[string]any{"id": 1.0, "tag_ids": []any{9.0}}},
	}}
	s := newService(tr, 0)

	ok, err := s.AddTag(context.Background(), "project.task", 1, 9)
	if err != nil || !ok {
		t.Fatalf("AddTag = (%v, %v), want (true, nil)", ok, err)
	}
	for _, c := range tr.calls {
		if c.method == "write" {
			t.Fatal("write issued for an already-present tag")
		}
	}
}

func TestService_PostNoteWithoutActingUserFails(t *testing.T) {
	t.Parallel()

	s := newService(&scriptedTransport{}, 0)
	err := s.PostNote(context.Background(), "helpdesk.ticket", 1, "hello", 0)
	if !errors.Is(err, ErrNoActingUser) {
		t.Fatalf("error = %v, want ErrNoActingUser", err)
	}
}

func TestService_PostNoteBuildsMessage(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{results: map[string]any{
		"res.users.read":              []any{map[string]any{"id": 31.0, "partner_id": []any{77.0, "Bot"}}},
		"mail.message.subtype.search": []any{12.0},
		"mail.message.create":         901.0,
	}}
	s := newService(tr, 31)

	if err := s.PostNote(context.Background(), "helpdesk.ticket", 5, "investigating", 0); err != nil {
		t.Fatalf("PostNote returned error: %v", err)
	}

	subtypeSearch := tr.find(t, "search")
	if subtypeSearch.model != "mail.message.subtype" {
		t.Fatalf("search model = %q", subtypeSearch.model)
	}

	create := tr.find(t, "create")
	if create.model != "mail.message" {
		t.Fatalf("create model = %q", create.model)
	}
	vals, _ := create.args[0].(map[string]any)
	if vals["model"] != "helpdesk.ticket" || vals["res_id"] != 5 {
		t.Fatalf("message target = %v", vals)
	}
	if vals["message_type"] != "notification" {
		t.Fatalf("message_type = %v, want notification for a note", vals["message_type"])
	}
	if vals["author_id"] != 77 {
		t.Fatalf("author_id = %v, want partner 77", vals["author_id"])
	}
	if vals["subtype_id"] != 12 {
		t.Fatalf("subtype_id = %v, want 12", vals["subtype_id"])
	}
	if vals["body"] != "<p>investigating</p>" {
		t.Fatalf("body = %v", vals["body"])
	}
}

func TestService_AttachAndDownloadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "report.txt")
	if err := os.WriteFile(src, []byte("quarterly numbers"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := &scriptedTransport{results: map[string]any{
		"ir.attachment.create": 55.0,
	}}
	s := newService(tr, 0)

	id, err := s.Attach(context.Background(), "project.task", 7, src, "")
	if err != nil {
		t.Fatalf("Attach returned error: %v", err)
	}
	if id != 55 {
		t.Fatalf("id = %d, want 55", id)
	}

	create := tr.find(t, "create")
	vals, _ := create.args[0].(map[string]any)
	if vals["name"] != "report.txt" || vals["res_model"] != "project.task" {
		t.Fatalf("attachment values = %v", vals)
	}
	encoded, _ := vals["datas"].(string)

	// Feed the uploaded payload back through the download path.
	tr.results["ir.attachment.read"] = []any{map[string]any{
		"id": 55.0, "name": "report.txt", "datas": encoded,
	}}
	outDir := t.TempDir()
	path, err := s.DownloadAttachment(context.Background(), 55, outDir)
	if err != nil {
		t.Fatalf("DownloadAttachment returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "quarterly numbers" {
		t.Fatalf("downloaded payload = %q", data)
	}
	if decoded, _ := base64.StdEncoding.DecodeString(encoded); string(decoded) != "quarterly numbers" {
		t.Fatalf("uploaded payload = %q", decoded)
	}
}

func TestService_DownloadMissingAttachmentFails(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{results: map[string]any{"ir.attachment.read": []any{}}}
	s := newService(tr, 0)

	_, err := s.DownloadAttachment(context.Background(), 99, "")
	var nf *odoo.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want *odoo.NotFoundError", err)
	}
}
