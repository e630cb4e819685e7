package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vodoo/vodoo/internal/timesheet"
)

const defaultWatchInterval = 5 * time.Second

// TimerSource is the subset of the timesheet engine the watch view uses.
type TimerSource interface {
	Today(ctx context.Context) ([]timesheet.Timesheet, error)
	StopTimesheet(ctx context.Context, timesheetID int) error
}

// WatchOptions configures the live timer view.
type WatchOptions struct {
	Context   context.Context
	Source    TimerSource
	Interval  time.Duration
	ThemeName string
}

// WatchModel is the Bubble Tea model for the live timer view.
type WatchModel struct {
	ctx      context.Context
	source   TimerSource
	interval time.Duration

	theme  Theme
	styles Styles

	entries     []timesheet.Timesheet
	lastUpdated time.Time
	lastErr     error
	selectedRow int
	stopping    bool
	spinner     spinner.Model
	width       int
	ready       bool
}

// NewWatch creates the watch model.
func NewWatch(opts WatchOptions) WatchModel {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	theme := GetTheme(opts.ThemeName)
	styles := theme.Styles()
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.AccentText))
	return WatchModel{
		ctx:      ctx,
		source:   opts.Source,
		interval: interval,
		theme:    theme,
		styles:   styles,
		spinner:  sp,
	}
}

// Messages

type watchTickMsg time.Time

type entriesMsg struct {
	entries []timesheet.Timesheet
	err     error
}

type stopDoneMsg struct {
	err error
}

// Commands

func watchTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m WatchModel) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.source.Today(m.ctx)
		return entriesMsg{entries: entries, err: err}
	}
}

func (m WatchModel) stopCmd(id int) tea.Cmd {
	return func() tea.Msg {
		return stopDoneMsg{err: m.source.StopTimesheet(m.ctx, id)}
	}
}

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		m.fetchCmd(),
		watchTickCmd(m.interval),
	)
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.ready = true
		return m, nil

	case watchTickMsg:
		// The tick both re-renders elapsed times and schedules a fetch.
		return m, tea.Batch(m.fetchCmd(), watchTickCmd(m.interval))

	case entriesMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.entries = msg.entries
			m.lastUpdated = time.Now()
			if m.selectedRow >= len(m.entries) {
				m.selectedRow = len(m.entries) - 1
			}
			if m.selectedRow < 0 {
				m.selectedRow = 0
			}
		}
		return m, nil

	case stopDoneMsg:
		m.stopping = false
		m.lastErr = msg.err
		return m, m.fetchCmd()

	case spinner.TickMsg:
		if !m.stopping {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m WatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit

	case "j", "down":
		if m.selectedRow < len(m.entries)-1 {
			m.selectedRow++
		}
	case "k", "up":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "g", "home":
		m.selectedRow = 0
	case "G", "end":
		if len(m.entries) > 0 {
			m.selectedRow = len(m.entries) - 1
		}

	case "r":
		return m, m.fetchCmd()

	case "s":
		if m.stopping || m.selectedRow >= len(m.entries) {
			return m, nil
		}
		ts := m.entries[m.selectedRow]
		if !ts.Running() || ts.ID <= 0 {
			return m, nil
		}
		m.stopping = true
		return m, tea.Batch(m.stopCmd(ts.ID), m.spinner.Tick)

	case "T":
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.styles = m.theme.Styles()
		m.spinner.Style = m.styles.AccentText
	}

	return m, nil
}

// View implements tea.Model.
func (m WatchModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(TimesheetTable(m.styles, m.entries, time.Now(), m.selectedRow))
	b.WriteString("\n\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m WatchModel) renderHeader() string {
	running := 0
	for _, ts := range m.entries {
		if ts.Running() {
			running++
		}
	}
	title := fmt.Sprintf("Timers  %d running / %d today", running, len(m.entries))
	if m.lastErr != nil {
		return m.styles.Header.Render(title) + " " +
			m.styles.DangerText.Render(truncate(m.lastErr.Error(), 60))
	}
	return m.styles.Header.Render(title) + " " +
		m.styles.FaintText.Render("updated "+HumanizeSince(time.Now(), m.lastUpdated))
}

func (m WatchModel) renderFooter() string {
	if m.stopping {
		return m.styles.Footer.Render(m.spinner.View() + " stopping...")
	}
	return m.styles.Footer.Render("j/k move · s stop · r refresh · T theme · q quit")
}

// RunWatch starts the Bubble Tea program and blocks until it exits.
func RunWatch(opts WatchOptions) error {
	p := tea.NewProgram(NewWatch(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
