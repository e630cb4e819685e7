package timesheet

import (
	"testing"
	"time"
)

func makeTimesheet(kind Kind, sourceID, id int) Timesheet {
	return Timesheet{
		ID:     id,
		Name:   "test",
		Source: Source{Kind: kind, ID: sourceID, Name: "Test"},
		Date:   "2025-01-01",
	}
}

func TestTimerTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ts        Timesheet
		wantModel string
		wantID    int
	}{
		{"task routes to source", makeTimesheet(KindTask, 7, 100), "project.task", 7},
		{"ticket routes to source", makeTimesheet(KindTicket, 3, 100), "helpdesk.ticket", 3},
		{"standalone routes to analytic line", makeTimesheet(KindStandalone, 0, 99), Model, 99},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model, id := tc.ts.timerTarget()
			if model != tc.wantModel || id != tc.wantID {
				t.Fatalf("timerTarget() = (%q, %d), want (%q, %d)", model, id, tc.wantModel, tc.wantID)
			}
		})
	}
}

func TestMergeRunningTimers_ReplacesMatchingEntry(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	daily := []Timesheet{
		{ID: 100, Name: "morning work", Hours: 1.5, Source: Source{Kind: KindTask, ID: 7, Name: "Task"}, Date: "2025-01-01"},
	}
	running := []Timesheet{
		{ID: -55, Source: Source{Kind: KindTask, ID: 7, Name: "Task"}, RunningSince: start},
	}

	merged := mergeRunningTimers(daily, running)
	if len(merged) != 1 {
		t.Fatalf("merged entries = %d, want 1 (replace, not duplicate)", len(merged))
	}
	got := merged[0]
	if got.ID != 100 || got.Name != "morning work" || got.Hours != 1.5 {
		t.Fatalf("existing entry fields lost: %+v", got)
	}
	if !got.RunningSince.Equal(start) {
		t.Fatalf("RunningSince = %v, want %v", got.RunningSince, start)
	}

	// Input slice must stay untouched.
	if daily[0].Running() {
		t.Fatal("merge mutated the input slice")
	}
}

func TestMergeRunningTimers_AppendsUnmatchedEntry(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	daily := []Timesheet{makeTimesheet(KindTask, 7, 100)}
	running := []Timesheet{
		{ID: -9, Source: Source{Kind: KindTask, ID: 9, Name: "Other"}, RunningSince: start},
	}

	merged := mergeRunningTimers(daily, running)
	if len(merged) != 2 {
		t.Fatalf("merged entries = %d, want 2", len(merged))
	}
	appended := merged[1]
	if appended.ID >= 0 {
		t.Fatalf("synthetic id = %d, want negative", appended.ID)
	}
	if !appended.Running() {
		t.Fatal("appended timer not running")
	}
}

func TestMergeRunningTimers_KindMustMatch(t *testing.T) {
	t.Parallel()

	daily := []Timesheet{makeTimesheet(KindTask, 7, 100)}
	running := []Timesheet{
		{ID: -7, Source: Source{Kind: KindTicket, ID: 7}, RunningSince: time.Now()},
	}
	if merged := mergeRunningTimers(daily, running); len(merged) != 2 {
		t.Fatalf("merged entries = %d, want 2 (ticket #7 is not task #7)", len(merged))
	}
}

func TestParseStopWizard(t *testing.T) {
	t.Parallel()

	t.Run("non-action results", func(t *testing.T) {
		for _, result := range []any{nil, true, "foo", map[string]any{"type": "other"}, map[string]any{"type": "ir.actions.act_window"}} {
			if parseStopWizard(result) != nil {
				t.Fatalf("parseStopWizard(%v) != nil", result)
			}
		}
	})

	t.Run("task wizard", func(t *testing.T) {
		w := parseStopWizard(map[string]any{
			"type":      "ir.actions.act_window",
			"res_model": "project.task.create.timesheet",
			"context":   map[string]any{"active_id": 5.0, "default_time_spent": 1.5},
		})
		if w == nil {
			t.Fatal("wizard not recognized")
		}
		if w.Method != "save_timesheet" {
			t.Fatalf("method = %q", w.Method)
		}
		if w.Values["task_id"] != 5 || w.Values["description"] != "/" || w.Values["time_spent"] != 1.5 {
			t.Fatalf("values = %v", w.Values)
		}
	})

	t.Run("ticket wizard", func(t *testing.T) {
		w := parseStopWizard(map[string]any{
			"type":      "ir.actions.act_window",
			"res_model": "helpdesk.ticket.create.timesheet",
			"context":   map[string]any{"active_id": 8.0, "default_time_spent": 0.25},
		})
		if w == nil {
			t.Fatal("wizard not recognized")
		}
		if w.Method != "action_generate_timesheet" {
			t.Fatalf("method = %q", w.Method)
		}
		if w.Values["ticket_id"] != 8 || w.Values["time_spent"] != 0.25 {
			t.Fatalf("values = %v", w.Values)
		}
	})

	t.Run("confirmation wizard", func(t *testing.T) {
		w := parseStopWizard(map[string]any{
			"type":      "ir.actions.act_window",
			"res_model": "hr.timesheet.stop.timer.confirmation.wizard",
			"context":   map[string]any{"default_timesheet_id": 10.0},
		})
		if w == nil {
			t.Fatal("wizard not recognized")
		}
		if w.Method != "action_stop_timer" || w.Values["timesheet_id"] != 10 {
			t.Fatalf("wizard = %+v", w)
		}
	})

	t.Run("unknown wizard model is a no-op", func(t *testing.T) {
		w := parseStopWizard(map[string]any{
			"type":      "ir.actions.act_window",
			"res_model": "some.unknown.wizard",
			"context":   map[string]any{},
		})
		if w != nil {
			t.Fatalf("wizard = %+v, want nil", w)
		}
	})
}

func TestParseOdooDatetime(t *testing.T) {
	t.Parallel()

	got, ok := parseOdooDatetime("2025-01-01 09:30:00")
	if !ok {
		t.Fatal("valid datetime rejected")
	}
	want := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("parsed = %v, want %v", got, want)
	}

	for _, bad := range []any{false, "", "not a date", 42.0} {
		if _, ok := parseOdooDatetime(bad); ok {
			t.Fatalf("parseOdooDatetime(%v) = ok", bad)
		}
	}
}

func TestElapsedAndFormatting(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	ts := Timesheet{Hours: 1.5, RunningSince: now.Add(-30 * time.Minute)}
	if got := ts.Elapsed(now); got != 2*time.Hour {
		t.Fatalf("Elapsed = %v, want 2h", got)
	}
	if got := FormatElapsed(2*time.Hour + 5*time.Minute); got != "2:05" {
		t.Fatalf("FormatElapsed = %q, want 2:05", got)
	}
	if got := FormatElapsed(0); got != "0:00" {
		t.Fatalf("FormatElapsed(0) = %q, want 0:00", got)
	}
}
