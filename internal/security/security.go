// Package security provisions API service accounts: security groups, ACL
// entries, record rules, and the users assigned to them. Provisioning is
// idempotent, so re-running it against a server that already carries the
// groups only fills in what is missing.
package security

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/vodoo/vodoo/internal/odoo"
)

const passwordLength = 24

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789!@#$%^&*"

// Service exposes security provisioning over one client.
type Service struct {
	client *odoo.Client

	groupsField string // probed once: group_ids on Odoo 19+, groups_id before
}

// NewService builds a service on top of client.
func NewService(client *odoo.Client) *Service {
	return &Service{client: client}
}

// EnsureGroups creates (or reuses) every group in GroupDefinitions along
// with its ACL entries and record rules. Models absent from the server are
// reported as warnings and skipped, never treated as failures: optional
// apps like helpdesk may simply not be installed.
func (s *Service) EnsureGroups(ctx context.Context) (map[string]int, []string, error) {
	groupIDs := make(map[string]int, len(GroupDefinitions))
	var warnings []string

	for _, group := range GroupDefinitions {
		groupID, err := s.ensureGroup(ctx, group)
		if err != nil {
			return nil, warnings, err
		}
		groupIDs[group.Name] = groupID

		for _, access := range group.Access {
			modelID, err := s.modelID(ctx, access.Model)
			if err != nil {
				return nil, warnings, err
			}
			if modelID == 0 {
				warnings = append(warnings, fmt.Sprintf("model %q not found; skipping access", access.Model))
				continue
			}
			if err := s.ensureAccess(ctx, groupID, group.Name, modelID, access); err != nil {
				return nil, warnings, err
			}
		}

		for _, rule := range group.Rules {
			modelID, err := s.modelID(ctx, rule.Model)
			if err != nil {
				return nil, warnings, err
			}
			if modelID == 0 {
				warnings = append(warnings, fmt.Sprintf("model %q not found; skipping rule", rule.Model))
				continue
			}
			if err := s.ensureRule(ctx, groupID, group.Name, modelID, rule); err != nil {
				return nil, warnings, err
			}
		}
	}
	return groupIDs, warnings, nil
}

// GroupIDs resolves group names to ids. Missing groups become warnings.
func (s *Service) GroupIDs(ctx context.Context, names []string) (map[string]int, []string, error) {
	ids := make(map[string]int, len(names))
	var warnings []string
	for _, name := range names {
		found, err := s.client.Search(ctx, "res.groups",
			[]any{[]any{"name", "=", name}}, odoo.SearchOptions{Limit: 1})
		if err != nil {
			return nil, warnings, err
		}
		if len(found) == 0 {
			warnings = append(warnings, fmt.Sprintf("group %q not found", name))
			continue
		}
		ids[name] = found[0]
	}
	return ids, warnings, nil
}

// Assign puts a user into the given groups. When removeDefaults is set, the
// standard internal-user and portal groups are detached first so the account
// carries only the API groups.
func (s *Service) Assign(ctx context.Context, userID int, groupIDs []int, removeDefaults bool) error {
	var commands []any
	if removeDefaults {
		for _, xmlid := range []string{"base.group_user", "base.group_portal"} {
			id, err := s.groupIDByXMLID(ctx, xmlid)
			if err != nil {
				return err
			}
			if id != 0 {
				commands = append(commands, []any{3, id})
			}
		}
	}
	for _, id := range groupIDs {
		commands = append(commands, []any{4, id})
	}

	field, err := s.userGroupsField(ctx)
	if err != nil {
		return err
	}
	_, err = s.client.Write(ctx, "res.users", []int{userID}, map[string]any{field: commands})
	return err
}

// ResolveUser turns an explicit id or a login into a user id.
func (s *Service) ResolveUser(ctx context.Context, userID int, login string) (int, error) {
	if userID != 0 {
		return userID, nil
	}
	if login == "" {
		return 0, fmt.Errorf("security: a user id or login is required")
	}
	ids, err := s.client.Search(ctx, "res.users",
		[]any{[]any{"login", "=", login}}, odoo.SearchOptions{Limit: 1})
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("security: user with login %q not found", login)
	}
	return ids[0], nil
}

// CreateUser creates a share user (no groups, not billed) and returns its id
// and password. An empty password is replaced by a generated one; an empty
// email defaults to the login.
func (s *Service) CreateUser(ctx context.Context, name, login, password, email string) (int, string, error) {
	if password == "" {
		generated, err := generatePassword()
		if err != nil {
			return 0, "", err
		}
		password = generated
	}
	if email == "" {
		email = login
	}

	field, err := s.userGroupsField(ctx)
	if err != nil {
		return 0, "", err
	}
	id, err := s.client.Create(ctx, "res.users", map[string]any{
		"name":     name,
		"login":    login,
		"email":    email,
		"password": password,
		// An empty group set makes the account a share user.
		field: []any{[]any{6, 0, []any{}}},
	}, nil)
	if err != nil {
		return 0, "", err
	}
	return id, password, nil
}

// SetPassword sets (or generates) a user's password and returns it.
func (s *Service) SetPassword(ctx context.Context, userID int, password string) (string, error) {
	if password == "" {
		generated, err := generatePassword()
		if err != nil {
			return "", err
		}
		password = generated
	}
	if _, err := s.client.Write(ctx, "res.users", []int{userID},
		map[string]any{"password": password}); err != nil {
		return "", err
	}
	return password, nil
}

// UserInfo reads the account fields relevant to provisioning.
func (s *Service) UserInfo(ctx context.Context, userID int) (odoo.Record, error) {
	field, err := s.userGroupsField(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.client.SearchRead(ctx, "res.users",
		[]any{[]any{"id", "=", userID}},
		odoo.SearchOptions{
			Fields: []string{"name", "login", "email", "active", "share", field, "partner_id"},
			Limit:  1,
		})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &odoo.NotFoundError{Model: "res.users", ID: userID}
	}
	return records[0], nil
}

// userGroupsField probes which many2many field carries user groups; Odoo 19
// renamed groups_id to group_ids. Probed once per service.
func (s *Service) userGroupsField(ctx context.Context) (string, error) {
	if s.groupsField != "" {
		return s.groupsField, nil
	}
	result, err := s.client.ExecuteKw(ctx, "res.users", "fields_get",
		[]any{[]any{"group_ids"}}, map[string]any{"attributes": []any{"type"}})
	if err != nil {
		return "", err
	}
	s.groupsField = "groups_id"
	if fields, ok := result.(map[string]any); ok {
		if def, ok := fields["group_ids"].(map[string]any); ok && def["type"] == "many2many" {
			s.groupsField = "group_ids"
		}
	}
	return s.groupsField, nil
}

func (s *Service) ensureGroup(ctx context.Context, group GroupDef) (int, error) {
	ids, err := s.client.Search(ctx, "res.groups",
		[]any{[]any{"name", "=", group.Name}}, odoo.SearchOptions{Limit: 1})
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		return ids[0], nil
	}
	return s.client.Create(ctx, "res.groups",
		map[string]any{"name": group.Name, "comment": group.Comment}, nil)
}

func (s *Service) ensureAccess(ctx context.Context, groupID int, groupName string, modelID int, access AccessDef) error {
	name := accessName(groupName, access.Model)
	existing, err := s.client.Search(ctx, "ir.model.access",
		[]any{
			[]any{"name", "=", name},
			[]any{"model_id", "=", modelID},
			[]any{"group_id", "=", groupID},
		}, odoo.SearchOptions{Limit: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	_, err = s.client.Create(ctx, "ir.model.access", map[string]any{
		"name":        name,
		"model_id":    modelID,
		"group_id":    groupID,
		"perm_read":   access.Read,
		"perm_write":  access.Write,
		"perm_create": access.Create,
		"perm_unlink": access.Unlink,
	}, nil)
	return err
}

func (s *Service) ensureRule(ctx context.Context, groupID int, groupName string, modelID int, rule RuleDef) error {
	name := ruleName(groupName, rule.Model)
	existing, err := s.client.Search(ctx, "ir.rule",
		[]any{[]any{"name", "=", name}, []any{"model_id", "=", modelID}},
		odoo.SearchOptions{Limit: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	_, err = s.client.Create(ctx, "ir.rule", map[string]any{
		"name":         name,
		"model_id":     modelID,
		"groups":       []any{[]any{4, groupID}},
		"domain_force": rule.Domain,
		"perm_read":    rule.Read,
		"perm_write":   rule.Write,
		"perm_create":  rule.Create,
		"perm_unlink":  rule.Unlink,
	}, nil)
	return err
}

// modelID resolves a model name to its ir.model id, 0 when the model is not
// installed.
func (s *Service) modelID(ctx context.Context, model string) (int, error) {
	ids, err := s.client.Search(ctx, "ir.model",
		[]any{[]any{"model", "=", model}}, odoo.SearchOptions{Limit: 1})
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[0], nil
}

func (s *Service) groupIDByXMLID(ctx context.Context, xmlid string) (int, error) {
	module, name, found := strings.Cut(xmlid, ".")
	if !found {
		return 0, fmt.Errorf("security: malformed xmlid %q", xmlid)
	}
	records, err := s.client.SearchRead(ctx, "ir.model.data",
		[]any{[]any{"module", "=", module}, []any{"name", "=", name}},
		odoo.SearchOptions{Fields: []string{"res_id"}, Limit: 1})
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return records[0].Int("res_id"), nil
}

// generatePassword builds a random password from a fixed alphabet using
// crypto/rand.
func generatePassword() (string, error) {
	size := big.NewInt(int64(len(passwordAlphabet)))
	var b strings.Builder
	b.Grow(passwordLength)
	for i := 0; i < passwordLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String(), nil
}
