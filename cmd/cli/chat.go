package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kcaldas/copilot/pkg/logging"
)

// NewChatCommand creates the chat command
func NewChatCommand(provider appProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Ask the assistant a question",
		Long: `Ask the assistant a question. The prompt is taken from the arguments or,
when there are none, from stdin.

Examples:
  copilot chat "how do I read a file in Go?"
  copilot chat --codebase "where is the config loaded?"
  git diff | copilot chat --network`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChatCommand(cmd, args, provider())
		},
	}

	cmd.Flags().String("talk", "", "continue a stored conversation")
	cmd.Flags().Bool("codebase", false, "answer from the project's code")
	cmd.Flags().Bool("network", false, "search the web for the answer")
	cmd.Flags().StringSlice("ref", nil, "attach files to the question")

	return cmd
}

func runChatCommand(cmd *cobra.Command, args []string, a *app) error {
	prompt, err := promptFrom(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	talk, _ := cmd.Flags().GetString("talk")
	codebase, _ := cmd.Flags().GetBool("codebase")
	network, _ := cmd.Flags().GetBool("network")
	refs, _ := cmd.Flags().GetStringSlice("ref")

	logger := logging.GetGlobalLogger()
	logger.Debug("starting chat command", "talk", talk, "codebase", codebase, "network", network, "refs", len(refs))

	ctx, cancel := withTimeout(cmd, a)
	defer cancel()

	if talk != "" {
		if _, err := a.copilot.LoadSession(ctx, talk); err != nil {
			return fmt.Errorf("failed to load conversation %s: %w", talk, err)
		}
	}
	if codebase {
		a.copilot.SetCodebaseEnabled(true)
	}
	if network {
		a.copilot.SetNetworkEnabled(true)
	}
	if len(refs) > 0 {
		a.copilot.SetReferenceFiles(refs)
	}

	if a.history != nil {
		a.history.Add(prompt)
	}

	_, err = streamAnswer(ctx, cmd, a.bus, func(ctx context.Context) error {
		return a.copilot.Chat(ctx, prompt)
	})
	if err != nil {
		return err
	}

	cmd.PrintErrf("talk: %s\n", a.copilot.CurrentTalk())
	return nil
}

// NewHistoryCommand creates the history command
func NewHistoryCommand(provider appProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the prompts sent with chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := provider()
			if a.history == nil {
				return nil
			}
			for i, prompt := range a.history.List() {
				cmd.Printf("%3d  %s\n", i+1, prompt)
			}
			return nil
		},
	}
}
