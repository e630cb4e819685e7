package timesheet

import (
	"context"
	"fmt"
	"time"

	"github.com/vodoo/vodoo/internal/odoo"
)

// timerModel is the side table holding running timers on Odoo 14-18.
const timerModel = "timer.timer"

// Conn is the slice of the RPC client the engine needs. *odoo.Client
// satisfies it.
type Conn interface {
	UID(ctx context.Context) (int, error)
	Modern(ctx context.Context) (bool, error)
	SearchRead(ctx context.Context, model string, domain []any, opts odoo.SearchOptions) ([]odoo.Record, error)
	ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error)
	Create(ctx context.Context, model string, values map[string]any, callCtx map[string]any) (int, error)
}

// Engine exposes timer workflows over one connection. Not safe for
// concurrent use; the probe cache is a plain memoized value, matching the
// one-client-per-session usage this is built for.
type Engine struct {
	conn Conn

	// now is swapped out by tests to pin "today".
	now func() time.Time

	ticketFieldProbed bool
	ticketField       bool
}

// NewEngine builds an engine on top of conn.
func NewEngine(conn Conn) *Engine {
	return &Engine{conn: conn, now: time.Now}
}

// Today fetches the current user's timesheets for today, enriched with live
// running-timer state.
func (e *Engine) Today(ctx context.Context) ([]Timesheet, error) {
	uid, err := e.conn.UID(ctx)
	if err != nil {
		return nil, err
	}

	today := e.now().UTC().Format(odooDateLayout)
	records, err := e.conn.SearchRead(ctx, Model,
		[]any{[]any{"user_id", "=", uid}, []any{"date", "=", today}},
		odoo.SearchOptions{Fields: e.fields(ctx)})
	if err != nil {
		return nil, err
	}

	timesheets := make([]Timesheet, 0, len(records))
	for _, r := range records {
		if ts, ok := parseTimesheet(r); ok {
			timesheets = append(timesheets, ts)
		}
	}

	modern, err := e.conn.Modern(ctx)
	if err != nil {
		return nil, err
	}
	if modern {
		// timer_start on the analytic line is already authoritative.
		return timesheets, nil
	}
	return mergeRunningTimers(timesheets, e.fetchRunningTimers(ctx, uid)), nil
}

// Active fetches only the timesheets with a live timer.
func (e *Engine) Active(ctx context.Context) ([]Timesheet, error) {
	all, err := e.Today(ctx)
	if err != nil {
		return nil, err
	}
	var active []Timesheet
	for _, ts := range all {
		if ts.Running() {
			active = append(active, ts)
		}
	}
	return active, nil
}

// StartTask starts a timer on a project task.
func (e *Engine) StartTask(ctx context.Context, taskID int) error {
	return e.startAction(ctx, "project.task", taskID)
}

// StartTicket starts a timer on a helpdesk ticket.
func (e *Engine) StartTicket(ctx context.Context, ticketID int) error {
	return e.startAction(ctx, "helpdesk.ticket", ticketID)
}

// StartTimesheet starts a timer on an existing timesheet entry, routing
// through the source record where the backend requires it.
func (e *Engine) StartTimesheet(ctx context.Context, timesheetID int) error {
	ts, err := e.fetchOne(ctx, timesheetID)
	if err != nil {
		return err
	}
	modern, err := e.conn.Modern(ctx)
	if err != nil {
		return err
	}
	if modern {
		return e.startAction(ctx, Model, ts.ID)
	}
	model, id := ts.timerTarget()
	return e.startAction(ctx, model, id)
}

// StopTimesheet stops the timer on an existing timesheet entry, completing
// any stop wizard the server returns.
func (e *Engine) StopTimesheet(ctx context.Context, timesheetID int) error {
	ts, err := e.fetchOne(ctx, timesheetID)
	if err != nil {
		return err
	}
	return e.stop(ctx, ts)
}

// StopAll stops every running timer and returns the entries that were
// running.
func (e *Engine) StopAll(ctx context.Context) ([]Timesheet, error) {
	active, err := e.Active(ctx)
	if err != nil {
		return nil, err
	}
	for _, ts := range active {
		if err := e.stop(ctx, ts); err != nil {
			return nil, err
		}
	}
	return active, nil
}

func (e *Engine) startAction(ctx context.Context, model string, id int) error {
	_, err := e.conn.ExecuteKw(ctx, model, "action_timer_start", []any{[]any{id}}, nil)
	return err
}

func (e *Engine) stop(ctx context.Context, ts Timesheet) error {
	target, targetID := Model, ts.ID
	if modern, err := e.conn.Modern(ctx); err != nil {
		return err
	} else if !modern {
		target, targetID = ts.timerTarget()
	}
	result, err := e.conn.ExecuteKw(ctx, target, "action_timer_stop", []any{[]any{targetID}}, nil)
	if err != nil {
		return err
	}
	return e.completeStopWizard(ctx, result)
}

// completeStopWizard creates and drives the wizard record a stop action may
// return. No-op when the action completed synchronously or the wizard model
// is unknown.
func (e *Engine) completeStopWizard(ctx context.Context, result any) error {
	wizard := parseStopWizard(result)
	if wizard == nil {
		return nil
	}
	wizardID, err := e.conn.Create(ctx, wizard.Model, wizard.Values, nil)
	if err != nil {
		return err
	}
	var kwargs map[string]any
	if wizard.Context != nil {
		kwargs = map[string]any{"context": wizard.Context}
	}
	_, err = e.conn.ExecuteKw(ctx, wizard.Model, wizard.Method, []any{[]any{wizardID}}, kwargs)
	return err
}

// fetchOne reads one timesheet by id, failing fast when it does not exist:
// start/stop are explicit user actions, not best-effort enrichment.
func (e *Engine) fetchOne(ctx context.Context, id int) (Timesheet, error) {
	records, err := e.conn.SearchRead(ctx, Model,
		[]any{[]any{"id", "=", id}},
		odoo.SearchOptions{Fields: e.fields(ctx), Limit: 1})
	if err != nil {
		return Timesheet{}, err
	}
	if len(records) == 0 {
		return Timesheet{}, &odoo.NotFoundError{Model: Model, ID: id}
	}
	ts, ok := parseTimesheet(records[0])
	if !ok {
		return Timesheet{}, fmt.Errorf("malformed timesheet record %d", id)
	}
	return ts, nil
}

// fetchRunningTimers reads the side table. Failures degrade to an empty
// result so a missing timer module never breaks the day view.
func (e *Engine) fetchRunningTimers(ctx context.Context, uid int) []Timesheet {
	records, err := e.conn.SearchRead(ctx, timerModel,
		[]any{
			[]any{"user_id", "=", uid},
			[]any{"timer_start", "!=", false},
			[]any{"timer_pause", "=", false},
		},
		odoo.SearchOptions{Fields: []string{"timer_start", "res_model", "res_id"}})
	if err != nil {
		return nil
	}

	today := e.now().UTC().Format(odooDateLayout)
	timers := make([]Timesheet, 0, len(records))
	for _, r := range records {
		resID := r.Int("res_id")
		start, ok := parseOdooDatetime(r["timer_start"])
		if resID == 0 || !ok {
			continue
		}

		var source Source
		var projectName string
		switch r.Str("res_model") {
		case "project.task":
			source, projectName = e.resolveTask(ctx, resID)
		case "helpdesk.ticket":
			source = e.resolveTicket(ctx, resID)
		default:
			continue
		}

		syntheticID := r.ID()
		if syntheticID == 0 {
			syntheticID = resID
		}
		timers = append(timers, Timesheet{
			// Negative ids keep synthetic entries apart from real
			// analytic-line ids.
			ID:           -syntheticID,
			ProjectName:  projectName,
			Source:       source,
			RunningSince: start,
			Date:         today,
		})
	}
	return timers
}

// resolveTask looks up a task's display name and project, degrading to a
// placeholder name when the lookup fails.
func (e *Engine) resolveTask(ctx context.Context, id int) (Source, string) {
	source := Source{Kind: KindTask, ID: id, Name: fmt.Sprintf("Task #%d", id)}
	records, err := e.conn.SearchRead(ctx, "project.task",
		[]any{[]any{"id", "=", id}},
		odoo.SearchOptions{Fields: []string{"display_name", "project_id"}, Limit: 1})
	if err != nil || len(records) == 0 {
		return source, ""
	}
	if name := records[0].Str("display_name"); name != "" {
		source.Name = name
	}
	_, projectName, _ := records[0].Many2One("project_id")
	return source, projectName
}

func (e *Engine) resolveTicket(ctx context.Context, id int) Source {
	source := Source{Kind: KindTicket, ID: id, Name: fmt.Sprintf("Ticket #%d", id)}
	records, err := e.conn.SearchRead(ctx, "helpdesk.ticket",
		[]any{[]any{"id", "=", id}},
		odoo.SearchOptions{Fields: []string{"display_name"}, Limit: 1})
	if err != nil || len(records) == 0 {
		return source
	}
	if name := records[0].Str("display_name"); name != "" {
		source.Name = name
	}
	return source
}

// fields returns the analytic-line fields to fetch, probing once per engine
// whether the server exposes the ticket-linkage field.
func (e *Engine) fields(ctx context.Context) []string {
	fields := make([]string, len(baseFields), len(baseFields)+1)
	copy(fields, baseFields)
	if e.hasTicketField(ctx) {
		fields = append(fields, "helpdesk_ticket_id")
	}
	return fields
}

func (e *Engine) hasTicketField(ctx context.Context) bool {
	if e.ticketFieldProbed {
		return e.ticketField
	}
	_, err := e.conn.SearchRead(ctx, Model, []any{},
		odoo.SearchOptions{Fields: []string{"id", "helpdesk_ticket_id"}, Limit: 1})
	e.ticketField = err == nil
	e.ticketFieldProbed = true
	return e.ticketField
}
