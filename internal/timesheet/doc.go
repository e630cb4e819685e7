// Package timesheet drives Odoo timer workflows on top of the RPC client.
//
// Running-timer state is represented differently across server versions. On
// Odoo 19+ the analytic line itself carries the timer_start field, so the
// day's records are already authoritative. On Odoo 14-18 running state lives
// in the timer.timer side table, keyed by user, and has to be reconciled
// into the day's timesheets after the fact. The Engine hides that split
// behind one Timesheet model and one start/stop surface, including the
// confirmation wizards some versions return from a stop action.
package timesheet
