package copilot

import (
	"context"
	"strings"

	"github.com/kcaldas/copilot/pkg/askapi"
	"github.com/kcaldas/copilot/pkg/events"
	"github.com/kcaldas/copilot/pkg/language"
)

func (c *core) FixBug(ctx context.Context) error {
	return c.codeCommand(ctx, askapi.CommandFixBug)
}

func (c *core) Explain(ctx context.Context) error {
	return c.codeCommand(ctx, askapi.CommandExplain)
}

func (c *core) Review(ctx context.Context) error {
	return c.codeCommand(ctx, askapi.CommandReview)
}

func (c *core) Tests(ctx context.Context) error {
	return c.codeCommand(ctx, askapi.CommandTests)
}

// codeCommand streams command applied to the selected code.
func (c *core) codeCommand(ctx context.Context, command string) error {
	code := c.surface.SelectedText()
	if code == "" {
		return ErrNoSelection
	}

	body, err := c.client.Assembler().CommandBody(askapi.ChatRequest{
		Prompt:    c.fenceCurrentFile(code),
		MachineID: c.settings.MachineID,
		Command:   command,
	})
	if err != nil {
		return err
	}

	c.send(ctx, body)
	events.Emit(c.bus, events.MessageSentEvent{Command: command})
	return nil
}

// send streams body on the chat endpoint as the active stream.
func (c *core) send(ctx context.Context, body []byte) {
	streamCtx := c.activate(ctx)
	s := c.client.Send(streamCtx, streamURL(c.settings.ChatURL, true), c.settings.Token, body)
	go c.consume(streamCtx, s, nil)
}

// fenceCurrentFile wraps code in a fenced block tagged with the language of
// the file being edited.
func (c *core) fenceCurrentFile(code string) string {
	return "```" + language.ID(c.surface.CurrentFile()) + "\n" + code + "```"
}

// AddComment asks for a commented version of the selected code and replaces
// the selection with it.
func (c *core) AddComment(ctx context.Context) error {
	code := c.surface.SelectedText()
	if code == "" {
		return ErrNoSelection
	}

	body, err := c.client.Assembler().CommandBody(askapi.ChatRequest{
		Prompt:    code,
		MachineID: c.settings.MachineID,
		Command:   askapi.CommandComment,
	})
	if err != nil {
		return err
	}

	answer, err := c.client.Send(ctx, streamURL(c.settings.ChatURL, true), c.settings.Token, body).Collect()
	if err != nil {
		return err
	}
	if strings.TrimSpace(answer) == "" {
		c.logger.Warn("empty comment answer")
		return nil
	}
	c.surface.ReplaceSelectedText(answer)
	return nil
}

// Commits streams a commit message for the working tree diff of the active
// project. It reports false without error when git diff fails.
func (c *core) Commits(ctx context.Context) (bool, error) {
	dir := c.project()
	if dir == "" {
		dir = "."
	}

	diff, err := c.diff(ctx, dir)
	if err != nil {
		c.logger.Warn("git diff failed", "dir", dir, "error", err)
		return false, nil
	}

	c.mu.Lock()
	locale := c.commitsLocale
	c.mu.Unlock()

	extra := map[string]any{"git_diff": diff}
	if locale != "" {
		extra["locale"] = locale
	}
	body, err := c.client.Assembler().CommandBody(askapi.ChatRequest{
		MachineID: c.settings.MachineID,
		Command:   askapi.CommandCommitMessage,
		Extra:     extra,
	})
	if err != nil {
		return false, err
	}

	c.send(ctx, body)
	events.Emit(c.bus, events.MessageSentEvent{Command: askapi.CommandCommitMessage})
	return true, nil
}
