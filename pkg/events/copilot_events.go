package events

import (
	"github.com/kcaldas/copilot/pkg/stream"
)

// ResponseEvent carries a text, keyword or finish entry of a chat stream.
type ResponseEvent struct {
	MsgID string
	Text  string
	Event string
	Kind  stream.Kind
}

func (e ResponseEvent) Topic() string { return "chat.response" }

// CrawledWebsiteEvent carries the citations of an online-search answer.
type CrawledWebsiteEvent struct {
	MsgID    string
	Websites []stream.WebsiteReference
}

func (e CrawledWebsiteEvent) Topic() string { return "chat.crawled" }

// StreamErrorEvent is published when a chat stream fails at the transport level.
type StreamErrorEvent struct {
	Error error
}

func (e StreamErrorEvent) Topic() string { return "chat.error" }

// MessageSentEvent is published after a chat command has been sent.
type MessageSentEvent struct {
	Command string
}

func (e MessageSentEvent) Topic() string { return "chat.sent" }

// NoChunksFoundEvent is published when codebase augmentation found nothing
// and the project index is not available.
type NoChunksFoundEvent struct {
	ProjectPath string
}

func (e NoChunksFoundEvent) Topic() string { return "chat.nochunks" }

// SessionCreatedEvent reports the outcome of a new-session request.
type SessionCreatedEvent struct {
	TalkID  string
	Success bool
}

func (e SessionCreatedEvent) Topic() string { return "session.created" }

// SessionDeletedEvent reports the outcome of a delete-sessions request.
type SessionDeletedEvent struct {
	TalkIDs []string
	Success bool
}

func (e SessionDeletedEvent) Topic() string { return "session.deleted" }

// LoginState is the account state reported by LoginStateEvent.
type LoginState int

const (
	LoginSucceeded LoginState = iota
	LoginFailed
	LoggedOut
)

// LoginStateEvent reports the result of an account query or logout.
type LoginStateEvent struct {
	State LoginState
}

func (e LoginStateEvent) Topic() string { return "account.state" }

// NotificationEvent gives the user feedback outside the chat transcript.
type NotificationEvent struct {
	Message string
	Level   string // info, warning or error
}

func (e NotificationEvent) Topic() string { return "notification" }
