package copilot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kcaldas/copilot/pkg/askapi"
)

// Proposal is the answer of an inline chat request.
type Proposal struct {
	Instruction string
	Original    string
	Answer      string
	// Code is the first fenced block of Answer, or all of it when there is none.
	Code string
	// Diff is a unified diff from Original to Code. It is empty when they match.
	Diff string
}

// InlineChat asks for a rewrite of the selected code following instruction.
// Nothing is changed until ApplyProposal.
func (c *core) InlineChat(ctx context.Context, instruction string) (*Proposal, error) {
	c.surface.ClearAllEOLAnnotation(inlineChatTip)

	code := c.surface.SelectedText()
	if code == "" {
		return nil, ErrNoSelection
	}
	if strings.TrimSpace(instruction) == "" {
		return nil, ErrEmptyPrompt
	}

	body, err := c.client.Assembler().CommandBody(askapi.ChatRequest{
		Prompt:    instruction + "\n" + c.fenceCurrentFile(code),
		MachineID: c.settings.MachineID,
	})
	if err != nil {
		return nil, err
	}

	answer, err := c.client.Send(ctx, streamURL(c.settings.ChatURL, true), c.settings.Token, body).Collect()
	if err != nil {
		return nil, err
	}

	p := &Proposal{
		Instruction: instruction,
		Original:    code,
		Answer:      answer,
		Code:        firstCodeBlock(answer),
	}
	p.Diff, err = unifiedDiff(filepath.Base(c.surface.CurrentFile()), code, p.Code)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyProposal replaces the selection with the proposed code.
func (c *core) ApplyProposal(p *Proposal) {
	if p == nil {
		return
	}
	c.surface.ReplaceSelectedText(p.Code)
}

// HandleSelectionChanged shows the inline chat tip at the cursor line while
// the user is logged in and something is selected.
func (c *core) HandleSelectionChanged(fileName string, lineFrom, indexFrom, lineTo, indexTo int) {
	if !c.IsLoggedIn() {
		return
	}

	c.surface.ClearAllEOLAnnotation(inlineChatTip)
	if lineFrom == -1 {
		return
	}

	pos := c.surface.CursorPosition()
	if pos.Line < 0 || c.inlineChatKeys == "" {
		return
	}
	c.surface.EOLAnnotate(fileName, inlineChatTip, fmt.Sprintf("  Press %s to inline chat", c.inlineChatKeys), pos.Line)
}

// firstCodeBlock returns the body of the first ``` fence in text.
func firstCodeBlock(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return text
	}
	rest := text[start+3:]
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return text
	}
	rest = rest[nl+1:]
	end := strings.Index(rest, "```")
	if end < 0 {
		return rest
	}
	return rest[:end]
}

func unifiedDiff(name, before, after string) (string, error) {
	if before == after {
		return "", nil
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
		Eol:      "\n",
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("error generating diff: %w", err)
	}
	return text, nil
}
