package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vodoo/vodoo/internal/config"
	"github.com/vodoo/vodoo/internal/ui"
)

var setDefaultGlobal bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage connection profiles",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := config.NewLoader()
		cfg, err := loader.Load(instanceFlag, configFlag)
		if err != nil {
			return err
		}
		name, _, err := loader.ResolveInstance(instanceFlag)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(map[string]any{
				"instance":        name,
				"url":             cfg.URL,
				"database":        cfg.Database,
				"username":        cfg.Username,
				"default_user_id": cfg.DefaultUserID,
				"retry_count":     cfg.RetryCount,
			})
		}

		fmt.Println(ui.KeyValueTable(styles(), [][2]string{
			{"Instance", name},
			{"URL", cfg.URL},
			{"Database", cfg.Database},
			{"Username", cfg.Username},
			{"Password", "********"},
			{"Default user", fmt.Sprintf("%d", cfg.DefaultUserID)},
		}))
		return nil
	},
}

var configTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Authenticate against the configured server",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		ctx := cmd.Context()
		uid, err := s.client.UID(ctx)
		if err != nil {
			return err
		}
		modern, err := s.client.Modern(ctx)
		if err != nil {
			return err
		}
		protocol := "jsonrpc"
		if modern {
			protocol = "json-2"
		}

		if jsonOutput {
			return outputJSON(map[string]any{"uid": uid, "protocol": protocol, "url": s.cfg.URL})
		}
		fmt.Printf("Connected to %s as %s (uid %d, %s)\n", s.cfg.URL, s.cfg.Username, uid, protocol)
		return nil
	},
}

var configInstancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "List known connection profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := config.NewLoader()
		names, err := loader.ListProfiles()
		if err != nil {
			return err
		}
		current, _, err := loader.ResolveInstance(instanceFlag)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(map[string]any{"current": current, "instances": names})
		}

		if len(names) == 0 {
			fmt.Println("No profiles found.")
			return nil
		}
		for _, name := range names {
			marker := "  "
			if name == current {
				marker = "* "
			}
			fmt.Println(marker + name)
		}
		return nil
	},
}

var configSetDefaultCmd = &cobra.Command{
	Use:   "set-default <instance>",
	Short: "Persist the default connection profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope := config.ScopeProject
		if setDefaultGlobal {
			scope = config.ScopeGlobal
		}
		if err := config.NewLoader().WriteDefaultInstance(scope, args[0]); err != nil {
			return err
		}
		fmt.Printf("Default instance set to %s (%s scope)\n", args[0], scope)
		return nil
	},
}

func init() {
	configSetDefaultCmd.Flags().BoolVar(&setDefaultGlobal, "global", false, "persist in the global config directory")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configTestCmd)
	configCmd.AddCommand(configInstancesCmd)
	configCmd.AddCommand(configSetDefaultCmd)
	rootCmd.AddCommand(configCmd)
}
