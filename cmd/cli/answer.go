package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/kcaldas/copilot/pkg/events"
	"github.com/kcaldas/copilot/pkg/logging"
	"github.com/kcaldas/copilot/pkg/stream"
)

// lockedWriter serializes writes coming from event handlers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type answerResult struct {
	text string
	err  error
}

// streamAnswer subscribes to the chat topics, calls send and prints the
// answer until the finish or error event arrives. On a terminal the finished
// answer is rendered as markdown; otherwise deltas are written as they come.
func streamAnswer(ctx context.Context, cmd *cobra.Command, bus events.Subscriber, send func(context.Context) error) (string, error) {
	logger := logging.NewComponentLogger("cli")
	out := &lockedWriter{w: cmd.OutOrStdout()}
	errOut := &lockedWriter{w: cmd.ErrOrStderr()}
	markdown := isTerminal(cmd.OutOrStdout())

	done := make(chan answerResult, 1)
	finish := func(r answerResult) {
		select {
		case done <- r:
		default:
		}
	}

	bus.Subscribe(events.ResponseEvent{}.Topic(), func(event interface{}) {
		resp, ok := event.(events.ResponseEvent)
		if !ok {
			logger.Debug("unexpected event", "event_type", fmt.Sprintf("%T", event))
			return
		}
		switch resp.Event {
		case stream.EventAdd:
			if !markdown {
				fmt.Fprint(out, resp.Text)
			}
		case stream.EventProcessing:
			fmt.Fprintf(errOut, "searching: %s\n", resp.Text)
		case stream.EventFinish:
			finish(answerResult{text: resp.Text})
		}
	})
	bus.Subscribe(events.StreamErrorEvent{}.Topic(), func(event interface{}) {
		if e, ok := event.(events.StreamErrorEvent); ok {
			finish(answerResult{err: e.Error})
		}
	})
	bus.Subscribe(events.CrawledWebsiteEvent{}.Topic(), func(event interface{}) {
		e, ok := event.(events.CrawledWebsiteEvent)
		if !ok {
			return
		}
		for _, site := range e.Websites {
			fmt.Fprintf(errOut, "[%s] %s %s\n", site.Citation, site.Title, site.URL)
		}
	})
	bus.Subscribe(events.NotificationEvent{}.Topic(), func(event interface{}) {
		if e, ok := event.(events.NotificationEvent); ok {
			fmt.Fprintf(errOut, "%s: %s\n", e.Level, e.Message)
		}
	})
	bus.Subscribe(events.NoChunksFoundEvent{}.Topic(), func(event interface{}) {
		if e, ok := event.(events.NoChunksFoundEvent); ok {
			fmt.Fprintf(errOut, "warning: no indexed code found for %s\n", e.ProjectPath)
		}
	})

	if err := send(ctx); err != nil {
		return "", err
	}

	select {
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("chat failed: %w", r.err)
		}
		if markdown {
			fmt.Fprint(out, renderMarkdown(r.text))
		} else {
			fmt.Fprintln(out)
		}
		return r.text, nil
	case <-ctx.Done():
		return "", fmt.Errorf("timeout waiting for response: %w", ctx.Err())
	}
}

// renderMarkdown formats text for the terminal, falling back to the raw text.
func renderMarkdown(text string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text + "\n"
	}
	rendered, err := renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return rendered
}

// withTimeout bounds ctx by the --timeout flag.
func withTimeout(cmd *cobra.Command, a *app) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), a.timeout)
}
