package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcaldas/copilot/pkg/askapi"
	"github.com/kcaldas/copilot/pkg/copilot"
	"github.com/kcaldas/copilot/pkg/editor"
	"github.com/kcaldas/copilot/pkg/stream"
)

func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &syncBuffer{}, &syncBuffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func selectedDoc(t *testing.T) *editor.Memory {
	t.Helper()
	doc := editor.NewMemory(filepath.Join(t.TempDir(), "main.go"), "package main\n\nfunc main() {}\n")
	require.NoError(t, doc.Select(2, 2))
	return doc
}

func TestChatCommand(t *testing.T) {
	t.Run("should be named chat", func(t *testing.T) {
		a, _ := newTestApp(nil)
		cmd := NewChatCommand(func() *app { return a })
		assert.Equal(t, "chat", cmd.Name())
	})

	t.Run("should stream the answer", func(t *testing.T) {
		a, fake := newTestApp(nil)
		fake.answer = "2+2 equals 4"

		out, errOut, err := execute(NewChatCommand(func() *app { return a }), "What", "is", "2+2?")
		require.NoError(t, err)

		assert.Equal(t, "2+2 equals 4\n", out)
		assert.Contains(t, errOut, "talk: talk-1")
		assert.Equal(t, []string{"What is 2+2?"}, fake.prompts)
		assert.Equal(t, []string{"What is 2+2?"}, a.history.List())
	})

	t.Run("should apply chat flags", func(t *testing.T) {
		a, fake := newTestApp(nil)

		_, _, err := execute(NewChatCommand(func() *app { return a }),
			"--talk", "old-talk", "--codebase", "--network", "--ref", "a.go,b.go", "question")
		require.NoError(t, err)

		assert.Equal(t, []string{"load old-talk", "chat"}, fake.Calls())
		assert.True(t, fake.codebase)
		assert.True(t, fake.network)
		assert.Equal(t, []string{"a.go", "b.go"}, fake.refs)
	})

	t.Run("should read the prompt from stdin", func(t *testing.T) {
		original := hasStdinInput
		hasStdinInput = func() bool { return true }
		defer func() { hasStdinInput = original }()

		a, fake := newTestApp(nil)
		cmd := NewChatCommand(func() *app { return a })
		cmd.SetIn(strings.NewReader("piped question\n"))

		_, _, err := execute(cmd)
		require.NoError(t, err)
		assert.Equal(t, []string{"piped question"}, fake.prompts)
	})

	t.Run("should return error when no prompt provided", func(t *testing.T) {
		original := hasStdinInput
		hasStdinInput = func() bool { return false }
		defer func() { hasStdinInput = original }()

		a, fake := newTestApp(nil)
		_, _, err := execute(NewChatCommand(func() *app { return a }))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no prompt given")
		assert.Empty(t, fake.Calls())
	})

	t.Run("should report stream errors", func(t *testing.T) {
		a, fake := newTestApp(nil)
		fake.streamErr = &askapi.TransportError{StatusCode: 401}

		_, _, err := execute(NewChatCommand(func() *app { return a }), "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat failed")
	})

	t.Run("should report send errors", func(t *testing.T) {
		a, fake := newTestApp(nil)
		fake.err = copilot.ErrEmptyPrompt

		_, _, err := execute(NewChatCommand(func() *app { return a }), " ")
		assert.ErrorIs(t, err, copilot.ErrEmptyPrompt)
	})

	t.Run("should time out without an answer", func(t *testing.T) {
		a, fake := newTestApp(nil)
		a.timeout = 50 * time.Millisecond
		fake.respondDisabled = true

		_, _, err := execute(NewChatCommand(func() *app { return a }), "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout waiting for response")
	})

	t.Run("should print citations", func(t *testing.T) {
		a, fake := newTestApp(nil)
		fake.crawled = []stream.WebsiteReference{{Citation: "1", Title: "Go", URL: "https://go.dev"}}

		cmd := NewChatCommand(func() *app { return a })
		errOut := &syncBuffer{}
		cmd.SetOut(&syncBuffer{})
		cmd.SetErr(errOut)
		cmd.SetArgs([]string{"search"})
		require.NoError(t, cmd.Execute())

		assert.Eventually(t, func() bool {
			return strings.Contains(errOut.String(), "[1] Go https://go.dev")
		}, time.Second, 10*time.Millisecond)
	})
}

func TestHistoryCommand(t *testing.T) {
	a, _ := newTestApp(nil)
	a.history.Add("first")
	a.history.Add("second")

	out, _, err := execute(NewHistoryCommand(func() *app { return a }))
	require.NoError(t, err)
	assert.Equal(t, "  1  first\n  2  second\n", out)
}

func TestSessionsCommand(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		a, fake := newTestApp(nil)
		fake.sessions = []askapi.SessionRecord{{TalkID: "t1", CreatedTime: "2024-05-01", Prompt: "hello"}}

		out, _, err := execute(NewSessionsCommand(func() *app { return a }), "list")
		require.NoError(t, err)
		assert.Equal(t, "t1  2024-05-01  hello\n", out)
	})

	t.Run("list empty", func(t *testing.T) {
		a, _ := newTestApp(nil)
		out, _, err := execute(NewSessionsCommand(func() *app { return a }), "list")
		require.NoError(t, err)
		assert.Equal(t, "no conversations\n", out)
	})

	t.Run("show", func(t *testing.T) {
		a, fake := newTestApp(nil)
		fake.messages = []askapi.MessageRecord{{Input: "q", Output: "a"}}

		out, _, err := execute(NewSessionsCommand(func() *app { return a }), "show", "t1")
		require.NoError(t, err)
		assert.Equal(t, "> q\n\na\n\n", out)
		assert.Equal(t, []string{"load t1"}, fake.Calls())
	})

	t.Run("delete", func(t *testing.T) {
		a, fake := newTestApp(nil)
		out, _, err := execute(NewSessionsCommand(func() *app { return a }), "delete", "t1", "t2")
		require.NoError(t, err)
		assert.Equal(t, "deleted 2 conversation(s)\n", out)
		assert.Equal(t, []string{"t1", "t2"}, fake.deleted)
	})

	t.Run("errors", func(t *testing.T) {
		a, fake := newTestApp(nil)
		fake.err = errors.New("boom")
		_, _, err := execute(NewSessionsCommand(func() *app { return a }), "list")
		assert.ErrorContains(t, err, "failed to list conversations: boom")
	})
}

func TestCodeCommands(t *testing.T) {
	for _, name := range []string{"explain", "fixbug", "review", "tests"} {
		t.Run(name, func(t *testing.T) {
			a, fake := newTestApp(selectedDoc(t))
			fake.answer = "looks fine"

			var cmd *cobra.Command
			for _, c := range NewCodeCommands(func() *app { return a }) {
				if c.Name() == name {
					cmd = c
				}
			}
			require.NotNil(t, cmd)

			out, _, err := execute(cmd)
			require.NoError(t, err)
			assert.Equal(t, "looks fine\n", out)
			assert.Equal(t, []string{name}, fake.Calls())
		})
	}

	t.Run("no selection", func(t *testing.T) {
		a, _ := newTestApp(nil)
		_, _, err := execute(NewCodeCommands(func() *app { return a })[0])
		assert.ErrorIs(t, err, copilot.ErrNoSelection)
		assert.Contains(t, err.Error(), "--select")
	})
}

func TestCommentCommand(t *testing.T) {
	t.Run("prints the commented file", func(t *testing.T) {
		a, _ := newTestApp(selectedDoc(t))
		out, _, err := execute(NewCommentCommand(func() *app { return a }))
		require.NoError(t, err)
		assert.Equal(t, "package main\n\n// commented\nfunc main() {}\n", out)
	})

	t.Run("writes the file", func(t *testing.T) {
		doc := selectedDoc(t)
		a, _ := newTestApp(doc)
		_, errOut, err := execute(NewCommentCommand(func() *app { return a }), "--write")
		require.NoError(t, err)
		assert.Contains(t, errOut, "updated")

		data, err := os.ReadFile(doc.CurrentFile())
		require.NoError(t, err)
		assert.Contains(t, string(data), "// commented\n")
	})
}

func TestCommitCommand(t *testing.T) {
	t.Run("streams the message", func(t *testing.T) {
		a, fake := newTestApp(nil)
		fake.answer = "feat: add chat"

		out, _, err := execute(NewCommitCommand(func() *app { return a }), "--locale", "en")
		require.NoError(t, err)
		assert.Equal(t, "feat: add chat\n", out)
		assert.Equal(t, "en", fake.commitsLocale)
	})

	t.Run("fails outside a repository", func(t *testing.T) {
		a, fake := newTestApp(nil)
		fake.commitsSent = false

		_, _, err := execute(NewCommitCommand(func() *app { return a }))
		assert.ErrorContains(t, err, "working tree diff")
	})
}

func TestInlineCommand(t *testing.T) {
	t.Run("prints the diff", func(t *testing.T) {
		a, fake := newTestApp(selectedDoc(t))
		fake.proposal = &copilot.Proposal{Code: "func main() { run() }\n", Diff: "--- a/main.go\n+++ b/main.go\n"}

		out, _, err := execute(NewInlineCommand(func() *app { return a }), "call", "run")
		require.NoError(t, err)
		assert.Equal(t, "--- a/main.go\n+++ b/main.go\n", out)
		assert.Equal(t, []string{"inline call run"}, fake.Calls())
		assert.False(t, fake.applied)
	})

	t.Run("applies the proposal", func(t *testing.T) {
		doc := selectedDoc(t)
		a, fake := newTestApp(doc)
		fake.proposal = &copilot.Proposal{Code: "func main() { run() }\n", Diff: "diff"}

		_, _, err := execute(NewInlineCommand(func() *app { return a }), "--apply", "call run")
		require.NoError(t, err)
		assert.True(t, fake.applied)

		data, err := os.ReadFile(doc.CurrentFile())
		require.NoError(t, err)
		assert.Equal(t, "package main\n\nfunc main() { run() }\n", string(data))
	})

	t.Run("no changes", func(t *testing.T) {
		a, fake := newTestApp(selectedDoc(t))
		fake.proposal = &copilot.Proposal{}

		out, errOut, err := execute(NewInlineCommand(func() *app { return a }), "nothing")
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Contains(t, errOut, "no changes proposed")
	})
}

func TestCompleteCommand(t *testing.T) {
	t.Run("prints the completion", func(t *testing.T) {
		a, fake := newTestApp(nil)
		fake.completion = "return nil\n"

		out, _, err := execute(NewCompleteCommand(func() *app { return a }))
		require.NoError(t, err)
		assert.Equal(t, "return nil\n", out)
	})

	t.Run("nothing offered", func(t *testing.T) {
		a, _ := newTestApp(nil)
		out, errOut, err := execute(NewCompleteCommand(func() *app { return a }))
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Contains(t, errOut, "no completion")
	})
}

func TestAccountCommands(t *testing.T) {
	byName := func(a *app) map[string]*cobra.Command {
		cmds := map[string]*cobra.Command{}
		for _, c := range NewAccountCommands(func() *app { return a }) {
			cmds[c.Name()] = c
		}
		return cmds
	}

	t.Run("login prints the url", func(t *testing.T) {
		a, _ := newTestApp(nil)
		out, _, err := execute(byName(a)["login"], "--user", "u1")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "https://login.test/?sessionId="))
		assert.Contains(t, out, "&userId=u1")
	})

	t.Run("whoami logged in", func(t *testing.T) {
		a, fake := newTestApp(nil)
		fake.loggedIn = true
		out, _, err := execute(byName(a)["whoami"])
		require.NoError(t, err)
		assert.Equal(t, "logged in\n", out)
	})

	t.Run("whoami logged out", func(t *testing.T) {
		a, _ := newTestApp(nil)
		_, _, err := execute(byName(a)["whoami"])
		assert.ErrorContains(t, err, "not logged in")
	})

	t.Run("logout", func(t *testing.T) {
		a, fake := newTestApp(nil)
		out, _, err := execute(byName(a)["logout"])
		require.NoError(t, err)
		assert.Equal(t, "logged out\n", out)
		assert.Equal(t, []string{"logout"}, fake.Calls())
	})
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		input    string
		from, to int
		wantErr  bool
	}{
		{input: "3", from: 3, to: 3},
		{input: "3:7", from: 3, to: 7},
		{input: " 1 : 2 ", from: 1, to: 2},
		{input: "a:2", wantErr: true},
		{input: "1:b", wantErr: true},
		{input: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			from, to, err := parseSelection(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestOpenDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644))

	doc, err := openDocument(dir, "a.go")
	require.NoError(t, err)
	assert.Equal(t, "package a\n", doc.Text())

	empty, err := openDocument(dir, "")
	require.NoError(t, err)
	assert.Empty(t, empty.Text())

	_, err = openDocument(dir, "missing.go")
	assert.Error(t, err)

	require.NoError(t, placeCursor(doc, "", 0, 3))
	assert.Equal(t, editor.Position{Line: 0, Column: 3}, doc.CursorPosition())
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(newVersionCommand())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "copilot dev\n"))
}
