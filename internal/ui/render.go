package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vodoo/vodoo/internal/timesheet"
)

// TimesheetTable renders today's entries as an aligned table. selected
// highlights one row when >= 0; pass -1 for plain list output.
func TimesheetTable(s Styles, entries []timesheet.Timesheet, now time.Time, selected int) string {
	if len(entries) == 0 {
		return s.MutedText.Render("No timesheet entries today.")
	}

	widths := []int{4, 38, 20, 7, 8}
	headers := []string{"ID", "Description", "Project", "Time", "Status"}

	var b strings.Builder
	var cells []string
	for i, h := range headers {
		cells = append(cells, s.FaintText.Render(pad(h, widths[i])))
	}
	b.WriteString(strings.Join(cells, "  "))
	b.WriteString("\n")

	for i, ts := range entries {
		row := renderTimesheetRow(s, ts, now, widths)
		if i == selected {
			row = s.Selected.Render(stripStyles(s, ts, now, widths))
		}
		b.WriteString(row)
		if i < len(entries)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderTimesheetRow(s Styles, ts timesheet.Timesheet, now time.Time, widths []int) string {
	id := s.MutedText.Render(pad(idLabel(ts), widths[0]))
	label := s.Text.Render(pad(truncate(ts.Label(), widths[1]), widths[1]))
	project := s.MutedText.Render(pad(truncate(ts.ProjectName, widths[2]), widths[2]))
	elapsed := pad(timesheet.FormatElapsed(ts.Elapsed(now)), widths[3])

	if ts.Running() {
		return strings.Join([]string{
			id, label, project,
			s.RunningText.Render(elapsed),
			s.RunningBadge.Render("RUNNING"),
		}, "  ")
	}
	return strings.Join([]string{
		id, label, project,
		s.Text.Render(elapsed),
		s.FaintText.Render(pad("stopped", widths[4])),
	}, "  ")
}

// stripStyles renders a row without per-cell colors so a selection style can
// wrap the whole line.
func stripStyles(s Styles, ts timesheet.Timesheet, now time.Time, widths []int) string {
	status := "stopped"
	if ts.Running() {
		status = "RUNNING"
	}
	return strings.Join([]string{
		pad(idLabel(ts), widths[0]),
		pad(truncate(ts.Label(), widths[1]), widths[1]),
		pad(truncate(ts.ProjectName, widths[2]), widths[2]),
		pad(timesheet.FormatElapsed(ts.Elapsed(now)), widths[3]),
		pad(status, widths[4]),
	}, "  ")
}

// idLabel shows the entry id, or the source kind and id for live timers
// that have no persisted line yet.
func idLabel(ts timesheet.Timesheet) string {
	if ts.ID < 0 {
		kind := string(ts.Source.Kind)
		if kind == "" {
			kind = "?"
		}
		return kind[:1] + "*"
	}
	return fmt.Sprintf("%d", ts.ID)
}

// KeyValueTable renders field/value pairs with aligned keys.
func KeyValueTable(s Styles, pairs [][2]string) string {
	keyWidth := 0
	for _, p := range pairs {
		if len(p[0]) > keyWidth {
			keyWidth = len(p[0])
		}
	}
	var lines []string
	for _, p := range pairs {
		lines = append(lines,
			s.MutedText.Render(pad(p[0], keyWidth))+"  "+s.Text.Render(p[1]))
	}
	return strings.Join(lines, "\n")
}

// Columns renders rows under a styled header line, padding every cell to its
// column width.
func Columns(s Styles, headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	var cells []string
	for i, h := range headers {
		cells = append(cells, s.FaintText.Render(pad(h, widths[i])))
	}
	b.WriteString(strings.Join(cells, "  "))
	for _, row := range rows {
		b.WriteString("\n")
		cells = cells[:0]
		for i, cell := range row {
			if i < len(widths) {
				cell = pad(cell, widths[i])
			}
			cells = append(cells, s.Text.Render(cell))
		}
		b.WriteString(strings.Join(cells, "  "))
	}
	return b.String()
}

// HumanizeSince renders how long ago ts was, coarsely.
func HumanizeSince(now, ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	diff := now.Sub(ts)
	if diff < 0 {
		diff = 0
	}
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return ts.Local().Format("Jan 02")
	}
}

func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func truncate(s string, limit int) string {
	if limit <= 1 || len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
