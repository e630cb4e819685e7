// Package ui renders terminal output for the vodoo CLI.
//
// It provides Lipgloss-styled tables for timesheets and generic records,
// plus a Bubble Tea view that watches running timers live. Color themes
// are cycleable at runtime; plain (non-TTY) output paths in the CLI bypass
// this package entirely.
package ui
