package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSessionsCommand creates the sessions command and its subcommands
func NewSessionsCommand(provider appProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage stored conversations",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := provider()
			page, _ := cmd.Flags().GetInt("page")
			size, _ := cmd.Flags().GetInt("size")

			ctx, cancel := withTimeout(cmd, a)
			defer cancel()

			sessions, err := a.copilot.Sessions(ctx, page, size)
			if err != nil {
				return fmt.Errorf("failed to list conversations: %w", err)
			}
			if len(sessions) == 0 {
				cmd.Println("no conversations")
				return nil
			}
			for _, s := range sessions {
				cmd.Printf("%s  %s  %s\n", s.TalkID, s.CreatedTime, s.Prompt)
			}
			return nil
		},
	}
	list.Flags().Int("page", 1, "page number")
	list.Flags().Int("size", 20, "conversations per page")

	show := &cobra.Command{
		Use:   "show TALK_ID",
		Short: "Print the messages of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := provider()
			ctx, cancel := withTimeout(cmd, a)
			defer cancel()

			messages, err := a.copilot.LoadSession(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load conversation: %w", err)
			}
			for _, m := range messages {
				cmd.Printf("> %s\n\n%s\n\n", m.Input, m.Output)
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:     "delete TALK_ID...",
		Aliases: []string{"rm"},
		Short:   "Delete conversations",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := provider()
			ctx, cancel := withTimeout(cmd, a)
			defer cancel()

			if err := a.copilot.DeleteSessions(ctx, args); err != nil {
				return fmt.Errorf("failed to delete conversations: %w", err)
			}
			cmd.Printf("deleted %d conversation(s)\n", len(args))
			return nil
		},
	}

	cmd.AddCommand(list, show, remove)
	return cmd
}
