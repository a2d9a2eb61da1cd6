package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewAccountCommands creates login, logout and whoami
func NewAccountCommands(provider appProvider) []*cobra.Command {
	login := &cobra.Command{
		Use:   "login",
		Short: "Print the browser address that signs this machine in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := provider()
			user, _ := cmd.Flags().GetString("user")
			cmd.Println(a.copilot.LoginURL(uuid.NewString(), user))
			return nil
		},
	}
	login.Flags().String("user", "", "user id to sign in as")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := provider()
			ctx, cancel := withTimeout(cmd, a)
			defer cancel()

			if err := a.copilot.Logout(ctx); err != nil {
				return fmt.Errorf("logout failed: %w", err)
			}
			cmd.Println("logged out")
			return nil
		},
	}

	whoami := &cobra.Command{
		Use:   "whoami",
		Short: "Check whether the configured token is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := provider()
			ctx, cancel := withTimeout(cmd, a)
			defer cancel()

			ok, err := a.copilot.QueryUser(ctx)
			if err != nil {
				return fmt.Errorf("failed to query user: %w", err)
			}
			if !ok {
				return fmt.Errorf("not logged in: run 'copilot login'")
			}
			cmd.Println("logged in")
			return nil
		},
	}

	return []*cobra.Command{login, logout, whoami}
}
