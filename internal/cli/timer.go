package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vodoo/vodoo/internal/timesheet"
	"github.com/vodoo/vodoo/internal/ui"
)

var watchInterval int

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Drive timesheet timers",
}

var timerTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List today's timesheet entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		entries, err := timesheet.NewEngine(s.client).Today(cmd.Context())
		if err != nil {
			return err
		}
		return printTimesheets(entries)
	},
}

var timerActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "List entries with a running timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		entries, err := timesheet.NewEngine(s.client).Active(cmd.Context())
		if err != nil {
			return err
		}
		return printTimesheets(entries)
	},
}

var timerStartCmd = &cobra.Command{
	Use:   "start <task|ticket|timesheet> <id>",
	Short: "Start a timer on a task, ticket, or timesheet entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[1])
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		engine := timesheet.NewEngine(s.client)
		ctx := cmd.Context()
		switch args[0] {
		case "task":
			err = engine.StartTask(ctx, id)
		case "ticket":
			err = engine.StartTicket(ctx, id)
		case "timesheet":
			err = engine.StartTimesheet(ctx, id)
		default:
			return fmt.Errorf("unknown timer target %q (want task, ticket, or timesheet)", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Printf("Timer started on %s %d\n", args[0], id)
		return nil
	},
}

var timerStopCmd = &cobra.Command{
	Use:   "stop <timesheet-id>",
	Short: "Stop the timer on a timesheet entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		if err := timesheet.NewEngine(s.client).StopTimesheet(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Timer stopped on timesheet %d\n", id)
		return nil
	},
}

var timerStopAllCmd = &cobra.Command{
	Use:   "stop-all",
	Short: "Stop every running timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		stopped, err := timesheet.NewEngine(s.client).StopAll(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(timesheetsJSON(stopped, time.Now()))
		}
		if len(stopped) == 0 {
			fmt.Println("No running timers.")
			return nil
		}
		for _, ts := range stopped {
			fmt.Printf("Stopped %s\n", ts.Label())
		}
		return nil
	},
}

var timerWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch running timers live",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		return ui.RunWatch(ui.WatchOptions{
			Context:   cmd.Context(),
			Source:    timesheet.NewEngine(s.client),
			Interval:  time.Duration(watchInterval) * time.Second,
			ThemeName: themeFlag,
		})
	},
}

func init() {
	timerWatchCmd.Flags().IntVar(&watchInterval, "interval", 0, "refresh interval in seconds")

	timerCmd.AddCommand(timerTodayCmd)
	timerCmd.AddCommand(timerActiveCmd)
	timerCmd.AddCommand(timerStartCmd)
	timerCmd.AddCommand(timerStopCmd)
	timerCmd.AddCommand(timerStopAllCmd)
	timerCmd.AddCommand(timerWatchCmd)
	rootCmd.AddCommand(timerCmd)
}

func printTimesheets(entries []timesheet.Timesheet) error {
	now := time.Now()
	if jsonOutput {
		return outputJSON(timesheetsJSON(entries, now))
	}
	fmt.Println(ui.TimesheetTable(styles(), entries, now, -1))
	return nil
}

func timesheetsJSON(entries []timesheet.Timesheet, now time.Time) []map[string]any {
	out := make([]map[string]any, 0, len(entries))
	for _, ts := range entries {
		out = append(out, map[string]any{
			"id":          ts.ID,
			"description": ts.Label(),
			"project":     ts.ProjectName,
			"source":      string(ts.Source.Kind),
			"source_id":   ts.Source.ID,
			"hours":       ts.Hours,
			"elapsed":     timesheet.FormatElapsed(ts.Elapsed(now)),
			"running":     ts.Running(),
			"date":        ts.Date,
		})
	}
	return out
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", arg)
	}
	return id, nil
}
