package timesheet

import "github.com/vodoo/vodoo/internal/odoo"

// stopWizard describes the follow-up record some servers demand after a stop
// action: create a wizard with Values, then call Method on it with the
// action's context.
type stopWizard struct {
	Model   string
	Values  map[string]any
	Method  string
	Context map[string]any
}

// parseStopWizard inspects a stop action's return value. Anything that is
// not an ir.actions.act_window payload for a known wizard model means the
// stop already completed; unknown wizard models are skipped too, since the
// timer itself is stopped server-side by then.
func parseStopWizard(result any) *stopWizard {
	action, ok := result.(map[string]any)
	if !ok {
		return nil
	}
	if action["type"] != "ir.actions.act_window" {
		return nil
	}
	model, _ := action["res_model"].(string)
	if model == "" {
		return nil
	}
	ctx, _ := action["context"].(map[string]any)

	// Field names per wizard model are server-version conventions with no
	// formal contract; this table mirrors the servers in the wild.
	switch model {
	case "project.task.create.timesheet":
		return &stopWizard{
			Model: model,
			Values: map[string]any{
				"task_id":     ctxInt(ctx, "active_id"),
				"description": "/",
				"time_spent":  ctxFloat(ctx, "default_time_spent"),
			},
			Method:  "save_timesheet",
			Context: ctx,
		}
	case "helpdesk.ticket.create.timesheet":
		return &stopWizard{
			Model: model,
			Values: map[string]any{
				"ticket_id":   ctxInt(ctx, "active_id"),
				"description": "/",
				"time_spent":  ctxFloat(ctx, "default_time_spent"),
			},
			Method:  "action_generate_timesheet",
			Context: ctx,
		}
	case "hr.timesheet.stop.timer.confirmation.wizard":
		return &stopWizard{
			Model:   model,
			Values:  map[string]any{"timesheet_id": ctxInt(ctx, "default_timesheet_id")},
			Method:  "action_stop_timer",
			Context: ctx,
		}
	default:
		return nil
	}
}

func ctxInt(ctx map[string]any, key string) int {
	return odoo.Record(ctx).Int(key)
}

func ctxFloat(ctx map[string]any, key string) float64 {
	return odoo.Record(ctx).Float(key)
}
