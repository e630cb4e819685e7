package timesheet

import (
	"fmt"
	"time"

	"github.com/vodoo/vodoo/internal/odoo"
)

// Model is the analytic-line model backing timesheet entries.
const Model = "account.analytic.line"

// odooDatetimeLayout is the server's naive-UTC datetime format.
const (
	odooDatetimeLayout = "2006-01-02 15:04:05"
	odooDateLayout     = "2006-01-02"
)

// baseFields are always fetched; the ticket-linkage field is added when the
// server exposes it.
var baseFields = []string{"name", "project_id", "task_id", "unit_amount", "timer_start", "date"}

// Kind classifies what a timesheet logs time against.
type Kind string

const (
	KindTask       Kind = "task"
	KindTicket     Kind = "ticket"
	KindStandalone Kind = "standalone"
)

// Source identifies the record a timesheet tracks. ID is 0 and meaningless
// for standalone entries.
type Source struct {
	Kind Kind
	ID   int
	Name string
}

// Model returns the server model the source record lives on.
func (s Source) Model() string {
	switch s.Kind {
	case KindTask:
		return "project.task"
	case KindTicket:
		return "helpdesk.ticket"
	default:
		return Model
	}
}

// Timesheet is one analytic-line entry, possibly enriched with live
// running-timer state. Values are read-only snapshots; reconciliation
// produces new values rather than mutating in place.
type Timesheet struct {
	ID          int
	Name        string
	ProjectName string
	Source      Source
	Hours       float64
	// RunningSince is the UTC start of the live timer, zero when stopped.
	RunningSince time.Time
	Date         string
}

// Running reports whether a live timer is attached to this entry.
func (t Timesheet) Running() bool { return !t.RunningSince.IsZero() }

// Elapsed returns logged hours plus live running time as of now.
func (t Timesheet) Elapsed(now time.Time) time.Duration {
	d := time.Duration(t.Hours * float64(time.Hour))
	if t.Running() {
		d += now.Sub(t.RunningSince)
	}
	return d
}

// Label is the human-facing line for lists: the source name, or the entry
// description for standalone timesheets.
func (t Timesheet) Label() string {
	if t.Source.Kind != KindStandalone {
		return t.Source.Name
	}
	if t.Name != "" {
		return t.Name
	}
	return "Timesheet"
}

// FormatElapsed renders a duration as H:MM.
func FormatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d:%02d", total/3600, (total%3600)/60)
}

// timerTarget resolves the model and record id start/stop actions operate
// on. Task and ticket timers are driven through their source record; only
// standalone entries act on the analytic line itself.
func (t Timesheet) timerTarget() (string, int) {
	switch t.Source.Kind {
	case KindTask, KindTicket:
		return t.Source.Model(), t.Source.ID
	default:
		return Model, t.ID
	}
}

// parseTimesheet decodes one analytic-line record. Records without a usable
// id are dropped.
func parseTimesheet(r odoo.Record) (Timesheet, bool) {
	id := r.ID()
	if id == 0 {
		return Timesheet{}, false
	}
	ts := Timesheet{
		ID:     id,
		Name:   r.Str("name"),
		Source: parseSource(r),
		Hours:  r.Float("unit_amount"),
		Date:   r.Str("date"),
	}
	if _, project, ok := r.Many2One("project_id"); ok {
		ts.ProjectName = project
	}
	if start, ok := parseOdooDatetime(r["timer_start"]); ok {
		ts.RunningSince = start
	}
	return ts, true
}

// parseSource classifies a record by its linkage fields: task wins over
// ticket, anything else is standalone.
func parseSource(r odoo.Record) Source {
	if id, name, ok := r.Many2One("task_id"); ok {
		return Source{Kind: KindTask, ID: id, Name: name}
	}
	if id, name, ok := r.Many2One("helpdesk_ticket_id"); ok {
		return Source{Kind: KindTicket, ID: id, Name: name}
	}
	return Source{Kind: KindStandalone}
}

// parseOdooDatetime decodes the server's naive datetime strings as UTC.
func parseOdooDatetime(value any) (time.Time, bool) {
	s, ok := value.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(odooDatetimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// mergeRunningTimers reconciles side-table running timers into the day's
// timesheets. A timer matching an existing entry by (kind, id) replaces that
// entry's RunningSince and keeps everything else; an unmatched timer is
// appended as-is. Matching is first-match-wins with no multi-match
// validation.
func mergeRunningTimers(timesheets, running []Timesheet) []Timesheet {
	result := make([]Timesheet, len(timesheets))
	copy(result, timesheets)

	for _, timer := range running {
		matched := false
		for i, ts := range result {
			if ts.Source.Kind == timer.Source.Kind && ts.Source.ID == timer.Source.ID {
				updated := ts
				updated.RunningSince = timer.RunningSince
				result[i] = updated
				matched = true
				break
			}
		}
		if !matched {
			result = append(result, timer)
		}
	}
	return result
}
