package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kcaldas/copilot/cmd/history"
	"github.com/kcaldas/copilot/internal/di"
	"github.com/kcaldas/copilot/pkg/config"
	"github.com/kcaldas/copilot/pkg/copilot"
	"github.com/kcaldas/copilot/pkg/editor"
	"github.com/kcaldas/copilot/pkg/events"
	"github.com/kcaldas/copilot/pkg/logging"
	"github.com/kcaldas/copilot/pkg/version"
)

// app is what every subcommand works with.
type app struct {
	copilot copilot.Copilot
	bus     events.Subscriber
	doc     *editor.Memory
	history history.PromptHistory
	timeout time.Duration
}

type appProvider func() *app

var (
	// Global flags
	workingDir string
	configPath string
	filePath   string
	selection  string
	cursorLine int
	cursorCol  int
	verbose    bool
	quiet      bool
	timeout    time.Duration

	// Copilot instance - initialized once and reused
	instance *app
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "copilot",
	Short: "CodeGeeX coding assistant",
	Long: `copilot talks to the CodeGeeX service: chat, code explanations, reviews,
commit messages, inline chat and inline completion for a file on disk.`,
	Version:      version.Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Configure logger based on flags
		var logger logging.Logger
		if quiet {
			logger = logging.NewQuietLogger()
		} else if verbose {
			logger = logging.NewVerboseLogger()
		} else {
			logger = logging.NewDefaultLogger()
		}
		logging.SetGlobalLogger(logger)

		doc, err := openDocument(workingDir, filePath)
		if err != nil {
			return err
		}

		bus := events.NewEventBus()
		c, err := di.ProvideCopilot(doc, bus, di.WorkDir(workingDir), di.ConfigPath(configPath))
		if err != nil {
			return fmt.Errorf("failed to initialize copilot: %w", err)
		}
		doc.OnSelectionChanged(c.HandleSelectionChanged)

		if err := placeCursor(doc, selection, cursorLine, cursorCol); err != nil {
			return err
		}

		prompts := history.NewPromptHistory(history.DefaultFile, true)
		if err := prompts.Load(); err != nil {
			logger.Warn("failed to load prompt history", "error", err)
		}

		instance = &app{
			copilot: c,
			bus:     bus,
			doc:     doc,
			history: prompts,
			timeout: timeout,
		}
		return nil
	},
}

func init() {
	// Global flags available to all commands
	RootCmd.PersistentFlags().StringVar(&workingDir, "cwd", "", "project directory (defaults to the current directory)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "configuration file (defaults to "+config.DefaultConfigFile+")")
	RootCmd.PersistentFlags().StringVarP(&filePath, "file", "f", "", "file the command works on")
	RootCmd.PersistentFlags().StringVarP(&selection, "select", "s", "", "selected lines, FROM:TO or LINE (0-based)")
	RootCmd.PersistentFlags().IntVar(&cursorLine, "line", -1, "cursor line (0-based, defaults to the end of the file)")
	RootCmd.PersistentFlags().IntVar(&cursorCol, "col", 0, "cursor column")
	RootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "how long to wait for an answer")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug level)")
	RootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet output (errors only)")

	addCommands()
}

// addCommands adds all CLI subcommands to the root command
func addCommands() {
	provider := func() *app { return instance }

	RootCmd.AddCommand(NewChatCommand(provider))
	RootCmd.AddCommand(NewSessionsCommand(provider))
	RootCmd.AddCommand(NewCodeCommands(provider)...)
	RootCmd.AddCommand(NewCommentCommand(provider))
	RootCmd.AddCommand(NewCommitCommand(provider))
	RootCmd.AddCommand(NewInlineCommand(provider))
	RootCmd.AddCommand(NewCompleteCommand(provider))
	RootCmd.AddCommand(NewAccountCommands(provider)...)
	RootCmd.AddCommand(NewHistoryCommand(provider))
	RootCmd.AddCommand(newVersionCommand())
}

// openDocument loads the file given with --file, or an empty unnamed buffer.
func openDocument(dir, path string) (*editor.Memory, error) {
	if path == "" {
		return editor.NewMemory("", ""), nil
	}
	if !filepath.IsAbs(path) && dir != "" {
		path = filepath.Join(dir, path)
	}
	return editor.Open(path)
}

// placeCursor applies --select, or --line and --col when nothing is selected.
func placeCursor(doc *editor.Memory, sel string, line, col int) error {
	if sel != "" {
		from, to, err := parseSelection(sel)
		if err != nil {
			return err
		}
		return doc.Select(from, to)
	}
	if line >= 0 {
		return doc.SetCursor(line, col)
	}
	return nil
}

func parseSelection(sel string) (int, int, error) {
	fromText, toText, found := strings.Cut(sel, ":")
	from, err := strconv.Atoi(strings.TrimSpace(fromText))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid selection %q: %w", sel, err)
	}
	to := from
	if found {
		if to, err = strconv.Atoi(strings.TrimSpace(toText)); err != nil {
			return 0, 0, fmt.Errorf("invalid selection %q: %w", sel, err)
		}
	}
	if from < 0 || to < 0 {
		return 0, 0, fmt.Errorf("invalid selection %q: lines start at 0", sel)
	}
	return from, to, nil
}
