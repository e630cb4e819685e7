package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vodoo/vodoo/internal/security"
)

var (
	securityUserID       int
	securityLogin        string
	securityPassword     string
	securityEmail        string
	securityGroups       string
	securityKeepDefaults bool
)

var securityCmd = &cobra.Command{
	Use:   "security",
	Short: "Provision restricted API access",
}

var securityInitGroupsCmd = &cobra.Command{
	Use:   "init-groups",
	Short: "Create the vodoo API groups with their ACLs and record rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		groups, warnings, err := security.NewService(s.client).EnsureGroups(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(map[string]any{"groups": groups, "warnings": warnings})
		}

		names := make([]string, 0, len(groups))
		for name := range groups {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s (id %d)\n", name, groups[name])
		}
		for _, w := range warnings {
			fmt.Println("warning: " + w)
		}
		return nil
	},
}

var securityCreateUserCmd = &cobra.Command{
	Use:   "create-user <name> <login>",
	Short: "Create a share user for API access",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		id, password, err := security.NewService(s.client).CreateUser(
			cmd.Context(), args[0], args[1], securityPassword, securityEmail)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(map[string]any{"id": id, "login": args[1], "password": password})
		}
		fmt.Printf("Created user %s (id %d)\nPassword: %s\n", args[1], id, password)
		return nil
	},
}

var securityAssignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign vodoo API groups to a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := splitFields(securityGroups)
		if len(names) == 0 {
			return fmt.Errorf("--groups is required, e.g. --groups \"API Base,API Project\"")
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		svc := security.NewService(s.client)
		ctx := cmd.Context()
		userID, err := svc.ResolveUser(ctx, securityUserID, securityLogin)
		if err != nil {
			return err
		}

		ids, warnings, err := svc.GroupIDs(ctx, names)
		if err != nil {
			return err
		}
		if len(warnings) > 0 {
			return fmt.Errorf("unknown groups: %s", strings.Join(warnings, ", "))
		}
		groupIDs := make([]int, 0, len(ids))
		for _, id := range ids {
			groupIDs = append(groupIDs, id)
		}
		sort.Ints(groupIDs)

		if err := svc.Assign(ctx, userID, groupIDs, !securityKeepDefaults); err != nil {
			return err
		}
		fmt.Printf("Assigned %d group(s) to user %d\n", len(groupIDs), userID)
		return nil
	},
}

var securitySetPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Set or rotate a user's password",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		svc := security.NewService(s.client)
		ctx := cmd.Context()
		userID, err := svc.ResolveUser(ctx, securityUserID, securityLogin)
		if err != nil {
			return err
		}

		password, err := svc.SetPassword(ctx, userID, securityPassword)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(map[string]any{"id": userID, "password": password})
		}
		fmt.Printf("Password for user %d set to: %s\n", userID, password)
		return nil
	},
}

var securityUserInfoCmd = &cobra.Command{
	Use:   "user-info",
	Short: "Show a user's login, share flag, and groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		svc := security.NewService(s.client)
		ctx := cmd.Context()
		userID, err := svc.ResolveUser(ctx, securityUserID, securityLogin)
		if err != nil {
			return err
		}

		info, err := svc.UserInfo(ctx, userID)
		if err != nil {
			return err
		}
		return printRecord(info)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{securityAssignCmd, securitySetPasswordCmd, securityUserInfoCmd} {
		cmd.Flags().IntVar(&securityUserID, "user", 0, "user id")
		cmd.Flags().StringVar(&securityLogin, "login", "", "user login")
	}
	securityCreateUserCmd.Flags().StringVar(&securityPassword, "password", "", "password (generated when omitted)")
	securityCreateUserCmd.Flags().StringVar(&securityEmail, "email", "", "email (defaults to login)")
	securitySetPasswordCmd.Flags().StringVar(&securityPassword, "password", "", "password (generated when omitted)")
	securityAssignCmd.Flags().StringVar(&securityGroups, "groups", "", "comma-separated group names")
	securityAssignCmd.Flags().BoolVar(&securityKeepDefaults, "keep-defaults", false, "keep the user's default portal/internal groups")

	securityCmd.AddCommand(securityInitGroupsCmd)
	securityCmd.AddCommand(securityCreateUserCmd)
	securityCmd.AddCommand(securityAssignCmd)
	securityCmd.AddCommand(securitySetPasswordCmd)
	securityCmd.AddCommand(securityUserInfoCmd)
	rootCmd.AddCommand(securityCmd)
}
