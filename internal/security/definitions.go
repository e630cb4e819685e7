package security

import "strings"

// AccessDef is one ACL entry for a model.
type AccessDef struct {
	Model  string
	Read   bool
	Write  bool
	Create bool
	Unlink bool
}

// RuleDef is one record rule for a model.
type RuleDef struct {
	Model  string
	Domain string
	Read   bool
	Write  bool
	Create bool
	Unlink bool
}

// GroupDef is a provisionable security group: a name, its ACL entries, and
// optional record rules.
type GroupDef struct {
	Name    string
	Comment string
	Access  []AccessDef
	Rules   []RuleDef
}

// GroupDefinitions are the groups EnsureGroups provisions. The set mirrors
// the service-account roles the API surface needs: a base group every
// account gets, plus one group per application area.
var GroupDefinitions = []GroupDef{
	{
		Name:    "API Mail Gateway",
		Comment: "Standalone access for mail gateway (message_process via XML-RPC)",
		Access: []AccessDef{
			{Model: "mail.message", Read: true},
			{Model: "mail.message.subtype", Read: true},
			{Model: "mail.alias", Read: true, Write: true},
			{Model: "mail.alias.domain", Read: true},
			{Model: "mail.followers", Read: true},
			{Model: "res.users", Read: true},
			{Model: "res.partner", Read: true},
			{Model: "ir.model", Read: true},
			{Model: "ir.model.data", Read: true},
		},
	},
	{
		Name:    "API Base",
		Comment: "Core API access - required for all service accounts",
		Access: []AccessDef{
			{Model: "res.company", Read: true},
			{Model: "res.users", Read: true},
			{Model: "res.partner", Read: true},
			{Model: "res.currency", Read: true},
			{Model: "res.country", Read: true},
			{Model: "res.country.state", Read: true},
			{Model: "ir.attachment", Read: true, Write: true, Create: true},
			{Model: "mail.message", Read: true, Write: true, Create: true},
			{Model: "mail.message.subtype", Read: true},
			{Model: "mail.followers", Read: true, Write: true, Create: true},
			{Model: "mail.notification", Read: true, Write: true, Create: true},
		},
		Rules: []RuleDef{
			{Model: "mail.message", Domain: "[(1, '=', 1)]", Read: true, Write: true, Create: true},
			{Model: "mail.followers", Domain: "[(1, '=', 1)]", Read: true, Write: true, Create: true},
			{Model: "mail.notification", Domain: "[(1, '=', 1)]", Read: true, Write: true, Create: true},
		},
	},
	{
		Name:    "API CRM",
		Comment: "CRM leads and opportunities",
		Access: []AccessDef{
			{Model: "crm.lead", Read: true, Write: true, Create: true},
			{Model: "crm.tag", Read: true, Write: true, Create: true},
			{Model: "crm.stage", Read: true},
			{Model: "crm.team", Read: true},
			{Model: "utm.source", Read: true},
			{Model: "utm.medium", Read: true},
			{Model: "utm.campaign", Read: true},
		},
		Rules: []RuleDef{
			{Model: "crm.lead", Domain: "[(1, '=', 1)]", Read: true, Write: true, Create: true},
		},
	},
	{
		Name:    "API Project",
		Comment: "Projects and tasks (follower-based access)",
		Access: []AccessDef{
			{Model: "project.project", Read: true, Write: true, Create: true},
			{Model: "project.task", Read: true, Write: true, Create: true},
			{Model: "project.task.type", Read: true},
			{Model: "project.tags", Read: true, Write: true, Create: true},
			{Model: "project.milestone", Read: true, Write: true, Create: true},
		},
		Rules: []RuleDef{
			{Model: "project.project", Domain: "[('message_partner_ids', 'in', [user.partner_id.id])]", Read: true, Write: true, Create: true},
			{Model: "project.task", Domain: "[('project_id.message_partner_ids', 'in', [user.partner_id.id])]", Read: true, Write: true, Create: true},
		},
	},
	{
		Name:    "API Knowledge",
		Comment: "Knowledge base articles",
		Access: []AccessDef{
			{Model: "knowledge.article", Read: true, Write: true, Create: true},
			{Model: "knowledge.article.member", Read: true},
		},
		Rules: []RuleDef{
			{Model: "knowledge.article", Domain: "[(1, '=', 1)]", Read: true, Write: true, Create: true},
		},
	},
	{
		Name:    "API Helpdesk",
		Comment: "Helpdesk tickets",
		Access: []AccessDef{
			{Model: "helpdesk.ticket", Read: true, Write: true, Create: true},
			{Model: "helpdesk.tag", Read: true, Write: true, Create: true},
			{Model: "helpdesk.stage", Read: true},
			{Model: "helpdesk.team", Read: true},
			{Model: "helpdesk.ticket.type", Read: true},
			{Model: "helpdesk.sla", Read: true},
		},
		Rules: []RuleDef{
			{Model: "helpdesk.ticket", Domain: "[(1, '=', 1)]", Read: true, Write: true, Create: true},
		},
	},
}

// accessName is the deterministic external id used to find an existing ACL
// on re-runs.
func accessName(group, model string) string {
	return "vodoo_" + slugify(group) + "_access_" + strings.ReplaceAll(model, ".", "_")
}

func ruleName(group, model string) string {
	return "vodoo_" + slugify(group) + "_rule_" + strings.ReplaceAll(model, ".", "_")
}

func slugify(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, "-", "_")
}
