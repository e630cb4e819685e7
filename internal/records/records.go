// Package records implements generic domain operations on top of the RPC
// client: CRUD on arbitrary models, chatter messages, tags, and attachment
// transfer. Everything here is pure delegation to the client's uniform
// operation set; no model-specific schema knowledge is baked in.
package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vodoo/vodoo/internal/odoo"
)

// ErrNoActingUser is returned when a sudo-style post is attempted without an
// explicit user and no default acting user is configured.
var ErrNoActingUser = errors.New("records: no default acting user configured")

var (
	tagFields     = []string{"id", "name", "color"}
	messageFields = []string{"id", "date", "author_id", "body", "subject", "message_type", "subtype_id", "email_from"}
)

// Service exposes record operations over one client.
type Service struct {
	client *odoo.Client
}

// NewService builds a service on top of client.
func NewService(client *odoo.Client) *Service {
	return &Service{client: client}
}

// ListOptions narrow a List call.
type ListOptions struct {
	Fields []string
	Limit  int
	Offset int
	Order  string
}

// List searches and reads records of any model.
func (s *Service) List(ctx context.Context, model string, domain []any, opts ListOptions) ([]odoo.Record, error) {
	return s.client.SearchRead(ctx, model, domain, odoo.SearchOptions{
		Fields: opts.Fields,
		Limit:  opts.Limit,
		Offset: opts.Offset,
		Order:  opts.Order,
	})
}

// Get reads one record by id. A nil fields slice reads all fields.
func (s *Service) Get(ctx context.Context, model string, id int, fields []string) (odoo.Record, error) {
	records, err := s.client.Read(ctx, model, []int{id}, fields)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &odoo.NotFoundError{Model: model, ID: id}
	}
	return records[0], nil
}

// Create inserts a record and returns its id.
func (s *Service) Create(ctx context.Context, model string, values map[string]any) (int, error) {
	return s.client.Create(ctx, model, values, nil)
}

// Set updates fields on one record.
func (s *Service) Set(ctx context.Context, model string, id int, values map[string]any) (bool, error) {
	return s.client.Write(ctx, model, []int{id}, values)
}

// Delete removes one record.
func (s *Service) Delete(ctx context.Context, model string, id int) (bool, error) {
	return s.client.Unlink(ctx, model, []int{id})
}

// Fields returns the model's field definitions via fields_get.
func (s *Service) Fields(ctx context.Context, model string) (map[string]any, error) {
	result, err := s.client.ExecuteKw(ctx, model, "fields_get", nil, nil)
	if err != nil {
		return nil, err
	}
	defs, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected fields_get result %T", result)
	}
	return defs, nil
}

// Call invokes an arbitrary model method.
func (s *Service) Call(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	return s.client.ExecuteKw(ctx, model, method, args, kwargs)
}

// URL returns the web form view address for a record.
func (s *Service) URL(model string, id int) string {
	base := strings.TrimRight(s.client.URL(), "/")
	return fmt.Sprintf("%s/web#id=%d&model=%s&view_type=form", base, id, model)
}

// ListTags lists the records of a tag model (helpdesk.tag, project.tags)
// ordered by name.
func (s *Service) ListTags(ctx context.Context, tagModel string) ([]odoo.Record, error) {
	return s.client.SearchRead(ctx, tagModel, nil, odoo.SearchOptions{Fields: tagFields, Order: "name"})
}

// AddTag adds a tag to a record's tag_ids, preserving existing tags. Adding
// a tag that is already present is a no-op.
func (s *Service) AddTag(ctx context.Context, model string, id, tagID int) (bool, error) {
	record, err := s.Get(ctx, model, id, []string{"tag_ids"})
	if err != nil {
		return false, err
	}

	current, _ := record["tag_ids"].([]any)
	tags := make([]any, 0, len(current)+1)
	for _, t := range current {
		if n, ok := tagInt(t); ok {
			if n == tagID {
				return true, nil
			}
			tags = append(tags, n)
		}
	}
	tags = append(tags, tagID)

	// Command 6 replaces the full relation with the assembled list.
	return s.client.Write(ctx, model, []int{id},
		map[string]any{"tag_ids": []any{[]any{6, 0, tags}}})
}

func tagInt(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// ListMessages fetches a record's chatter, newest first.
func (s *Service) ListMessages(ctx context.Context, model string, id, limit int) ([]odoo.Record, error) {
	return s.client.SearchRead(ctx, "mail.message",
		[]any{[]any{"model", "=", model}, []any{"res_id", "=", id}},
		odoo.SearchOptions{Fields: messageFields, Order: "date desc", Limit: limit})
}

// PostComment posts a customer-visible comment on a record, attributed to
// userID (0 falls back to the client's default acting user).
func (s *Service) PostComment(ctx context.Context, model string, id int, message string, userID int) error {
	return s.postMessage(ctx, model, id, message, userID, false)
}

// PostNote posts an internal note on a record.
func (s *Service) PostNote(ctx context.Context, model string, id int, message string, userID int) error {
	return s.postMessage(ctx, model, id, message, userID, true)
}

func (s *Service) postMessage(ctx context.Context, model string, id int, message string, userID int, note bool) error {
	if userID == 0 {
		if s.client.DefaultUserID == 0 {
			return ErrNoActingUser
		}
		userID = s.client.DefaultUserID
	}

	partnerID, err := s.partnerOf(ctx, userID)
	if err != nil {
		return err
	}

	subtypeName, messageType := "Discussions", "comment"
	if note {
		subtypeName, messageType = "Note", "notification"
	}
	var subtype any = false
	ids, err := s.client.Search(ctx, "mail.message.subtype",
		[]any{[]any{"name", "=", subtypeName}}, odoo.SearchOptions{Limit: 1})
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		subtype = ids[0]
	}

	_, err = s.client.Create(ctx, "mail.message", map[string]any{
		"model":        model,
		"res_id":       id,
		"body":         wrapBody(message),
		"message_type": messageType,
		"subtype_id":   subtype,
		"author_id":    partnerID,
	}, nil)
	return err
}

// partnerOf resolves the partner behind a user, which mail.message uses for
// authorship.
func (s *Service) partnerOf(ctx context.Context, userID int) (int, error) {
	users, err := s.client.Read(ctx, "res.users", []int{userID}, []string{"partner_id"})
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, &odoo.NotFoundError{Model: "res.users", ID: userID}
	}
	if id, _, ok := users[0].Many2One("partner_id"); ok {
		return id, nil
	}
	if id := users[0].Int("partner_id"); id != 0 {
		return id, nil
	}
	return 0, &odoo.NotFoundError{Model: "res.partner", ID: userID}
}

// wrapBody turns plain text into the minimal HTML chatter expects. The text
// passes through untouched so callers can embed their own markup.
func wrapBody(message string) string {
	return "<p>" + message + "</p>"
}
