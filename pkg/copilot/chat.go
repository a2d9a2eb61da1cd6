package copilot

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/kcaldas/copilot/pkg/askapi"
	"github.com/kcaldas/copilot/pkg/events"
	"github.com/kcaldas/copilot/pkg/stream"
)

// Chat sends prompt in the current conversation, starting a new one when
// there is none. The answer is published on the bus; the exchange is added to
// the history once the finish event arrives.
func (c *core) Chat(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}

	c.mu.Lock()
	newTalk := c.talkID == ""
	if newTalk {
		c.talkID = uuid.NewString()
	}
	talkID := c.talkID
	history := slices.Clone(c.history)
	c.mu.Unlock()

	streamCtx := c.activate(ctx)
	go func() {
		if newTalk {
			if err := c.sessions.CreateSession(streamCtx, c.settings.Token, prompt, talkID); err != nil {
				c.logger.Warn("failed to create session", "talk_id", talkID, "error", err)
			}
		}

		assembled, err := c.client.Assembler().ChatBody(streamCtx, askapi.ChatRequest{
			Prompt:    prompt,
			MachineID: c.settings.MachineID,
			TalkID:    talkID,
			History:   history,
		})
		if err != nil {
			events.Emit(c.bus, events.StreamErrorEvent{Error: err})
			return
		}
		if assembled.Augmented {
			c.resetHistory(talkID)
		}

		s := c.client.Send(streamCtx, streamURL(c.settings.ChatURL, true), c.settings.Token, assembled.Body)
		c.consume(streamCtx, s, func(answer string) {
			c.appendHistory(talkID, askapi.HistoryPair{Query: prompt, Answer: answer})
		})
	}()

	events.Emit(c.bus, events.MessageSentEvent{Command: "chat"})
	return nil
}

// StopChat closes the active chat stream, if any.
func (c *core) StopChat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelActive != nil {
		c.cancelActive()
		c.cancelActive = nil
	}
}

// activate stops the active stream and returns the context of the next one.
func (c *core) activate(ctx context.Context) context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelActive != nil {
		c.cancelActive()
	}
	streamCtx, cancel := context.WithCancel(ctx)
	c.cancelActive = cancel
	return streamCtx
}

// consume publishes the entries of s until finish, error or stop. onFinish,
// when set, receives the full answer.
func (c *core) consume(ctx context.Context, s *askapi.ChatStream, onFinish func(answer string)) {
	defer s.Stop()

	var answer strings.Builder
	for {
		entry, err := s.Recv()
		// nothing is published for a stopped stream, buffered entries included
		if ctx.Err() != nil {
			events.Emit(c.bus, events.StreamErrorEvent{Error: ctx.Err()})
			return
		}
		if errors.Is(err, io.EOF) {
			events.Emit(c.bus, events.StreamErrorEvent{Error: ErrStreamEnded})
			return
		}
		if err != nil {
			events.Emit(c.bus, events.StreamErrorEvent{Error: err})
			return
		}

		switch entry.Kind {
		case stream.KindCrawl:
			events.Emit(c.bus, events.CrawledWebsiteEvent{MsgID: entry.ID, Websites: entry.Websites})
		case stream.KindText:
			answer.WriteString(entry.Text)
			events.Emit(c.bus, events.ResponseEvent{MsgID: entry.ID, Text: entry.Text, Event: stream.EventAdd, Kind: entry.Kind})
		case stream.KindKeyword:
			events.Emit(c.bus, events.ResponseEvent{MsgID: entry.ID, Text: entry.Text, Event: stream.EventProcessing, Kind: entry.Kind})
		case stream.KindFinish:
			full := entry.Text
			if full == "" {
				full = answer.String()
			}
			if onFinish != nil {
				onFinish(full)
			}
			events.Emit(c.bus, events.ResponseEvent{MsgID: entry.ID, Text: full, Event: stream.EventFinish, Kind: entry.Kind})
			return
		}
	}
}

func (c *core) appendHistory(talkID string, pair askapi.HistoryPair) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// the user may have switched conversations meanwhile
	if c.talkID != talkID {
		return
	}
	c.history = append(c.history, pair)
}

func (c *core) resetHistory(talkID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.talkID == talkID {
		c.history = nil
	}
}

// NewSession starts a fresh conversation on the next Chat.
func (c *core) NewSession() {
	c.mu.Lock()
	c.talkID = ""
	c.history = nil
	c.mu.Unlock()
	c.StopChat()
}

func (c *core) CurrentTalk() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.talkID
}

func (c *core) History() []askapi.HistoryPair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.history)
}

func (c *core) Sessions(ctx context.Context, page, size int) ([]askapi.SessionRecord, error) {
	return c.sessions.ListSessions(ctx, c.settings.Token, page, size)
}

// LoadSession makes talkID the current conversation and seeds the history
// with its stored exchanges.
func (c *core) LoadSession(ctx context.Context, talkID string) ([]askapi.MessageRecord, error) {
	messages, err := c.sessions.ListMessages(ctx, c.settings.Token, 1, 50, talkID)
	if err != nil {
		return nil, err
	}

	history := make([]askapi.HistoryPair, 0, len(messages))
	for _, m := range messages {
		history = append(history, askapi.HistoryPair{Query: m.Input, Answer: m.Output})
	}

	c.StopChat()
	c.mu.Lock()
	c.talkID = talkID
	c.history = history
	c.mu.Unlock()
	return messages, nil
}

// DeleteSessions deletes talkIDs remotely; deleting the current conversation
// starts a fresh one.
func (c *core) DeleteSessions(ctx context.Context, talkIDs []string) error {
	if err := c.sessions.DeleteSessions(ctx, c.settings.Token, talkIDs); err != nil {
		return err
	}
	if slices.Contains(talkIDs, c.CurrentTalk()) {
		c.NewSession()
	}
	return nil
}
