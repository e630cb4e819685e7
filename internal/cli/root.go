/*
Package cli implements all vodoo subcommands.

The root command wires global flags (instance selection, config path,
output mode) and hands each subcommand an authenticated client session.
*/
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vodoo/vodoo/internal/config"
	"github.com/vodoo/vodoo/internal/odoo"
	"github.com/vodoo/vodoo/internal/ui"
)

var (
	// Global flags
	instanceFlag string
	configFlag   string
	jsonOutput   bool
	simpleOutput bool
	themeFlag    string

	// Version information (set by main)
	version = "dev"

	rootCmd = &cobra.Command{
		Use:   "vodoo",
		Short: "Odoo RPC client and timesheet tool",
		Long: `vodoo talks to an Odoo server over its external RPC API.

It drives timesheet timers on tasks and helpdesk tickets, reads and
writes records on any model, posts messages and attachments, and
provisions restricted API access groups. Connection profiles are
selected with --instance or the VODOO_INSTANCE environment variable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets version information for the CLI.
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&instanceFlag, "instance", "i", "", "connection profile name")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "explicit config file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON for automation")
	rootCmd.PersistentFlags().BoolVar(&simpleOutput, "simple", false, "plain uncolored output")
	rootCmd.PersistentFlags().StringVar(&themeFlag, "theme", "", "color theme for the watch view")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				fmt.Printf(`{"version":%q}`+"\n", version)
			} else {
				fmt.Printf("vodoo version %s\n", version)
			}
		},
	})
}

// session is an open connection to the configured server. Close it when the
// command finishes.
type session struct {
	cfg    config.Config
	client *odoo.Client
}

func openSession() (*session, error) {
	cfg, err := config.NewLoader().Load(instanceFlag, configFlag)
	if err != nil {
		return nil, err
	}
	client := odoo.NewClient(cfg.ConnInfo())
	client.DefaultUserID = cfg.DefaultUserID
	return &session{cfg: cfg, client: client}, nil
}

func (s *session) close() {
	s.client.Close()
}

func styles() ui.Styles {
	if simpleOutput {
		return ui.PlainStyles()
	}
	return ui.GetTheme(themeFlag).Styles()
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
