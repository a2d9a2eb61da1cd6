package askapi

import (
	"context"
	"io"
	"sync"

	"github.com/kcaldas/copilot/pkg/stream"
)

// streamResult is a single item emitted by the chat reader goroutine.
// Exactly one of Entry or Err is set.
type streamResult struct {
	Entry *stream.Entry
	Err   error
}

// ChatStream delivers the entries of one chat connection in arrival order.
// It has a single consumer.
type ChatStream struct {
	cancel context.CancelFunc

	mu     sync.Mutex
	ch     <-chan streamResult
	closed bool
}

func newChatStream(cancel context.CancelFunc, ch <-chan streamResult) *ChatStream {
	return &ChatStream{cancel: cancel, ch: ch}
}

// Recv returns the next entry. It returns io.EOF after the connection ended
// or the stream was stopped, and the transport or assembly error otherwise.
func (s *ChatStream) Recv() (*stream.Entry, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, io.EOF
	}

	result, ok := <-s.ch
	if !ok {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		return nil, io.EOF
	}

	if result.Err != nil {
		s.Stop()
		return nil, result.Err
	}
	return result.Entry, nil
}

// Stop closes the connection. Entries not yet received are discarded.
func (s *ChatStream) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	// let the reader goroutine exit
	for range s.ch {
	}
}

// Collect reads the stream to the end and returns the answer text: the
// finish text when it is non-empty, the concatenated deltas otherwise.
func (s *ChatStream) Collect() (string, error) {
	var text string
	for {
		entry, err := s.Recv()
		if err == io.EOF {
			return text, nil
		}
		if err != nil {
			return text, err
		}
		switch entry.Kind {
		case stream.KindText:
			text += entry.Text
		case stream.KindFinish:
			if entry.Text != "" {
				text = entry.Text
			}
			s.Stop()
			return text, nil
		}
	}
}
