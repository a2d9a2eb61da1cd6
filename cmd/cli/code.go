package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/kcaldas/copilot/pkg/copilot"
)

// codeAction is a streamed command on the selected code.
type codeAction struct {
	use   string
	short string
	run   func(copilot.Copilot, context.Context) error
}

var codeActions = []codeAction{
	{use: "explain", short: "Explain the selected code", run: copilot.Copilot.Explain},
	{use: "fixbug", short: "Find and fix bugs in the selected code", run: copilot.Copilot.FixBug},
	{use: "review", short: "Review the selected code", run: copilot.Copilot.Review},
	{use: "tests", short: "Write unit tests for the selected code", run: copilot.Copilot.Tests},
}

// NewCodeCommands creates explain, fixbug, review and tests
func NewCodeCommands(provider appProvider) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(codeActions))
	for _, action := range codeActions {
		action := action
		cmds = append(cmds, &cobra.Command{
			Use:   action.use,
			Short: action.short,
			Long: action.short + `. Select the code with --file and --select.

Example:
  copilot ` + action.use + ` --file main.go --select 10:24`,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a := provider()
				ctx, cancel := withTimeout(cmd, a)
				defer cancel()

				_, err := streamAnswer(ctx, cmd, a.bus, func(ctx context.Context) error {
					return action.run(a.copilot, ctx)
				})
				return selectionHint(err)
			},
		})
	}
	return cmds
}

// NewCommentCommand creates the comment command
func NewCommentCommand(provider appProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Add comments to the selected code",
		Long: `Add comments to the selected code. The commented file is printed, or
written back with --write.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := provider()
			write, _ := cmd.Flags().GetBool("write")

			ctx, cancel := withTimeout(cmd, a)
			defer cancel()

			if err := a.copilot.AddComment(ctx); err != nil {
				return selectionHint(err)
			}
			if write {
				if err := a.doc.Save(); err != nil {
					return err
				}
				cmd.PrintErrf("updated %s\n", a.doc.CurrentFile())
				return nil
			}
			cmd.Print(a.doc.Text())
			return nil
		},
	}
	cmd.Flags().BoolP("write", "w", false, "write the result back to the file")
	return cmd
}

// NewCommitCommand creates the commit command
func NewCommitCommand(provider appProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Write a commit message for the working tree changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := provider()
			copyIt, _ := cmd.Flags().GetBool("copy")
			locale, _ := cmd.Flags().GetString("locale")
			if locale != "" {
				a.copilot.SetCommitsLocale(locale)
			}

			ctx, cancel := withTimeout(cmd, a)
			defer cancel()

			message, err := streamAnswer(ctx, cmd, a.bus, func(ctx context.Context) error {
				sent, err := a.copilot.Commits(ctx)
				if err != nil {
					return err
				}
				if !sent {
					return errors.New("could not read the working tree diff; is this a git repository?")
				}
				return nil
			})
			if err != nil {
				return err
			}

			if copyIt {
				if err := clipboard.WriteAll(message); err != nil {
					return fmt.Errorf("failed to copy to clipboard: %w", err)
				}
				cmd.PrintErrln("copied to clipboard")
			}
			return nil
		},
	}
	cmd.Flags().BoolP("copy", "c", false, "copy the message to the clipboard")
	cmd.Flags().String("locale", "", "language of the commit message")
	return cmd
}

// NewInlineCommand creates the inline command
func NewInlineCommand(provider appProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inline INSTRUCTION",
		Short: "Rewrite the selected code following an instruction",
		Long: `Rewrite the selected code following an instruction. The proposed change is
printed as a diff and applied to the file with --apply.

Example:
  copilot inline --file main.go --select 3:9 "use a switch"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := provider()
			apply, _ := cmd.Flags().GetBool("apply")
			instruction, err := promptFrom(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd, a)
			defer cancel()

			proposal, err := a.copilot.InlineChat(ctx, instruction)
			if err != nil {
				return selectionHint(err)
			}
			if proposal.Diff == "" {
				cmd.PrintErrln("no changes proposed")
				return nil
			}
			cmd.Print(proposal.Diff)

			if apply {
				a.copilot.ApplyProposal(proposal)
				if err := a.doc.Save(); err != nil {
					return err
				}
				cmd.PrintErrf("updated %s\n", a.doc.CurrentFile())
			}
			return nil
		},
	}
	cmd.Flags().Bool("apply", false, "apply the proposal to the file")
	return cmd
}

// NewCompleteCommand creates the complete command
func NewCompleteCommand(provider appProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "complete",
		Short: "Complete the code at the cursor",
		Long: `Complete the code at the cursor of --file. The cursor defaults to the end of
the file; move it with --line and --col.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := provider()
			ctx, cancel := withTimeout(cmd, a)
			defer cancel()

			if err := a.copilot.GenerateCode(ctx); err != nil {
				return fmt.Errorf("completion failed: %w", err)
			}
			completions := a.doc.Completions()
			if len(completions) == 0 {
				cmd.PrintErrln("no completion")
				return nil
			}
			cmd.Print(completions[0])
			return nil
		},
	}
}

func selectionHint(err error) error {
	if errors.Is(err, copilot.ErrNoSelection) {
		return fmt.Errorf("%w: use --file and --select", err)
	}
	return err
}
