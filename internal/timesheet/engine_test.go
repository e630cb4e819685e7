package timesheet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vodoo/vodoo/internal/odoo"
)

// fakeConn plays back canned search_read results per model and records
// every ExecuteKw/Create, standing in for both protocol generations.
type fakeConn struct {
	modern     bool
	uid        int
	searchRead map[string][]odoo.Record
	searchErr  map[string]error
	stopResult any

	executed []executedCall
	created  []createdCall
}

type executedCall struct {
	model  string
	method string
	args   []any
	kwargs map[string]any
}

type createdCall struct {
	model  string
	values map[string]any
}

func (f *fakeConn) UID(context.Context) (int, error)     { return f.uid, nil }
func (f *fakeConn) Modern(context.Context) (bool, error) { return f.modern, nil }

func (f *fakeConn) SearchRead(_ context.Context, model string, _ []any, _ odoo.SearchOptions) ([]odoo.Record, error) {
	if err := f.searchErr[model]; err != nil {
		return nil, err
	}
	return f.searchRead[model], nil
}

func (f *fakeConn) ExecuteKw(_ context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	f.executed = append(f.executed, executedCall{model: model, method: method, args: args, kwargs: kwargs})
	if method == "action_timer_stop" {
		return f.stopResult, nil
	}
	return nil, nil
}

func (f *fakeConn) Create(_ context.Context, model string, values map[string]any, _ map[string]any) (int, error) {
	f.created = append(f.created, createdCall{model: model, values: values})
	return 77, nil
}

func fixedEngine(conn *fakeConn) *Engine {
	e := NewEngine(conn)
	e.now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func taskLine(id, taskID int, name string) odoo.Record {
	return odoo.Record{
		"id":          float64(id),
		"name":        name,
		"project_id":  []any{3.0, "Website"},
		"task_id":     []any{float64(taskID), "Fix login"},
		"unit_amount": 1.0,
		"timer_start": false,
		"date":        "2025-01-01",
	}
}

func TestEngine_TodayLegacyMergesSideTable(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{
		uid: 2,
		searchRead: map[string][]odoo.Record{
			Model: {taskLine(100, 7, "morning work")},
			"timer.timer": {
				{"id": 55.0, "timer_start": "2025-01-01 09:30:00", "res_model": "project.task", "res_id": 7.0},
				{"id": 56.0, "timer_start": "2025-01-01 10:00:00", "res_model": "project.task", "res_id": 9.0},
			},
			"project.task": {
				{"id": 7.0, "display_name": "Fix login", "project_id": []any{3.0, "Website"}},
			},
		},
	}
	e := fixedEngine(conn)

	today, err := e.Today(context.Background())
	if err != nil {
		t.Fatalf("Today returned error: %v", err)
	}
	if len(today) != 2 {
		t.Fatalf("entries = %d, want 2 (one merged, one appended)", len(today))
	}

	merged := today[0]
	if merged.ID != 100 || !merged.Running() {
		t.Fatalf("existing entry = %+v, want id 100 running", merged)
	}
	appended := today[1]
	if appended.ID != -56 {
		t.Fatalf("synthetic id = %d, want -56", appended.ID)
	}
	if appended.Source.Kind != KindTask || appended.Source.ID != 9 {
		t.Fatalf("appended source = %+v", appended.Source)
	}
}

func TestEngine_TodayModernSkipsSideTable(t *testing.T) {
	t.Parallel()

	line := taskLine(100, 7, "work")
	line["timer_start"] = "2025-01-01 09:30:00"
	conn := &fakeConn{
		modern: true,
		uid:    2,
		searchRead: map[string][]odoo.Record{
			Model: {line},
		},
	}
	e := fixedEngine(conn)

	today, err := e.Today(context.Background())
	if err != nil {
		t.Fatalf("Today returned error: %v", err)
	}
	if len(today) != 1 || !today[0].Running() {
		t.Fatalf("entries = %+v, want one running entry from the line itself", today)
	}
}

func TestEngine_SideTableFailureDegradesToDailyView(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{
		uid: 2,
		searchRead: map[string][]odoo.Record{
			Model: {taskLine(100, 7, "work")},
		},
		searchErr: map[string]error{
			"timer.timer": errors.New("timer module not installed"),
		},
	}
	e := fixedEngine(conn)

	today, err := e.Today(context.Background())
	if err != nil {
		t.Fatalf("Today returned error: %v", err)
	}
	if len(today) != 1 || today[0].Running() {
		t.Fatalf("entries = %+v, want the plain daily view", today)
	}
}

func TestEngine_NameLookupFailureUsesPlaceholder(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{
		uid: 2,
		searchRead: map[string][]odoo.Record{
			Model: {},
			"timer.timer": {
				{"id": 55.0, "timer_start": "2025-01-01 09:30:00", "res_model": "project.task", "res_id": 7.0},
			},
		},
		searchErr: map[string]error{
			"project.task": errors.New("boom"),
		},
	}
	e := fixedEngine(conn)

	today, err := e.Today(context.Background())
	if err != nil {
		t.Fatalf("Today returned error: %v", err)
	}
	if len(today) != 1 {
		t.Fatalf("entries = %d, want 1", len(today))
	}
	if today[0].Source.Name != "Task #7" {
		t.Fatalf("name = %q, want placeholder Task #7", today[0].Source.Name)
	}
}

func TestEngine_StopTimesheetCompletesWizard(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{
		uid: 2,
		searchRead: map[string][]odoo.Record{
			Model: {taskLine(100, 7, "work")},
		},
		stopResult: map[string]any{
			"type":      "ir.actions.act_window",
			"res_model": "project.task.create.timesheet",
			"context":   map[string]any{"active_id": 7.0, "default_time_spent": 1.5},
		},
	}
	e := fixedEngine(conn)

	if err := e.StopTimesheet(context.Background(), 100); err != nil {
		t.Fatalf("StopTimesheet returned error: %v", err)
	}

	// Legacy task timers stop through the source record.
	var stop, save *executedCall
	for i := range conn.executed {
		switch conn.executed[i].method {
		case "action_timer_stop":
			stop = &conn.executed[i]
		case "save_timesheet":
			save = &conn.executed[i]
		}
	}
	if stop == nil || stop.model != "project.task" {
		t.Fatalf("stop call = %+v, want action_timer_stop on project.task", stop)
	}

	if len(conn.created) != 1 {
		t.Fatalf("created = %+v, want one wizard record", conn.created)
	}
	wizard := conn.created[0]
	if wizard.model != "project.task.create.timesheet" {
		t.Fatalf("wizard model = %q", wizard.model)
	}
	if wizard.values["task_id"] != 7 || wizard.values["time_spent"] != 1.5 {
		t.Fatalf("wizard values = %v", wizard.values)
	}

	if save == nil {
		t.Fatal("wizard completion method never invoked")
	}
	if ids, ok := save.args[0].([]any); !ok || len(ids) != 1 || ids[0] != 77 {
		t.Fatalf("save_timesheet args = %v, want created wizard id 77", save.args)
	}
	if _, ok := save.kwargs["context"]; !ok {
		t.Fatal("wizard completion missing action context")
	}
}

func TestEngine_StopTimesheetUnknownIDFails(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{uid: 2, searchRead: map[string][]odoo.Record{Model: {}}}
	e := fixedEngine(conn)

	err := e.StopTimesheet(context.Background(), 999)
	var nf *odoo.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want *odoo.NotFoundError", err)
	}
	if nf.ID != 999 {
		t.Fatalf("id = %d, want 999", nf.ID)
	}
}

func TestEngine_StartTaskUsesSourceAction(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{uid: 2}
	e := fixedEngine(conn)

	if err := e.StartTask(context.Background(), 7); err != nil {
		t.Fatalf("StartTask returned error: %v", err)
	}
	call := conn.executed[0]
	if call.model != "project.task" || call.method != "action_timer_start" {
		t.Fatalf("call = %+v", call)
	}
	if ids, ok := call.args[0].([]any); !ok || len(ids) != 1 || ids[0] != 7 {
		t.Fatalf("args = %v, want [[7]]", call.args)
	}
}

func TestEngine_TicketFieldProbeIsCached(t *testing.T) {
	t.Parallel()

	conn := &probeCountingConn{fakeConn: fakeConn{uid: 2}}
	e := NewEngine(conn)

	_ = e.fields(context.Background())
	_ = e.fields(context.Background())
	if conn.probes != 1 {
		t.Fatalf("probe calls = %d, want 1", conn.probes)
	}
}

type probeCountingConn struct {
	fakeConn
	probes int
}

func (p *probeCountingConn) SearchRead(ctx context.Context, model string, domain []any, opts odoo.SearchOptions) ([]odoo.Record, error) {
	if model == Model && len(opts.Fields) == 2 && opts.Fields[1] == "helpdesk_ticket_id" {
		p.probes++
	}
	return p.fakeConn.SearchRead(ctx, model, domain, opts)
}
