package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/kcaldas/copilot/cmd/history"
	"github.com/kcaldas/copilot/pkg/askapi"
	"github.com/kcaldas/copilot/pkg/copilot"
	"github.com/kcaldas/copilot/pkg/editor"
	"github.com/kcaldas/copilot/pkg/events"
	"github.com/kcaldas/copilot/pkg/stream"
)

// fakeCopilot is a lightweight implementation of the Copilot interface that
// answers on the event bus like the real service.
type fakeCopilot struct {
	bus events.EventBus
	doc *editor.Memory

	answer          string
	streamErr       error
	crawled         []stream.WebsiteReference
	respondDisabled bool

	mu            sync.Mutex
	calls         []string
	prompts       []string
	talk          string
	sessions      []askapi.SessionRecord
	messages      []askapi.MessageRecord
	deleted       []string
	commitsSent   bool
	commitsLocale string
	proposal      *copilot.Proposal
	applied       bool
	completion    string
	loggedIn      bool
	codebase      bool
	network       bool
	refs          []string
	err           error
}

var _ copilot.Copilot = (*fakeCopilot)(nil)

func newTestApp(doc *editor.Memory) (*app, *fakeCopilot) {
	if doc == nil {
		doc = editor.NewMemory("", "")
	}
	bus := events.NewEventBus()
	fake := &fakeCopilot{bus: bus, doc: doc, answer: "fake answer", talk: "talk-1", commitsSent: true}
	return &app{
		copilot: fake,
		bus:     bus,
		doc:     doc,
		history: history.NewPromptHistory("", false),
	}, fake
}

func (f *fakeCopilot) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeCopilot) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// respond publishes the answer word by word, then the finish event.
func (f *fakeCopilot) respond() {
	if f.respondDisabled {
		return
	}
	go func() {
		if f.streamErr != nil {
			events.Emit(f.bus, events.StreamErrorEvent{Error: f.streamErr})
			return
		}
		if len(f.crawled) > 0 {
			events.Emit(f.bus, events.CrawledWebsiteEvent{MsgID: "m1", Websites: f.crawled})
		}
		for _, word := range strings.SplitAfter(f.answer, " ") {
			events.Emit(f.bus, events.ResponseEvent{MsgID: "m1", Text: word, Event: stream.EventAdd, Kind: stream.KindText})
		}
		events.Emit(f.bus, events.ResponseEvent{MsgID: "m1", Text: f.answer, Event: stream.EventFinish, Kind: stream.KindFinish})
	}()
}

func (f *fakeCopilot) command(name string) error {
	f.record(name)
	if f.err != nil {
		return f.err
	}
	if f.doc.SelectedText() == "" {
		return copilot.ErrNoSelection
	}
	f.respond()
	return nil
}

func (f *fakeCopilot) Chat(ctx context.Context, prompt string) error {
	f.record("chat")
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.respond()
	return nil
}

func (f *fakeCopilot) StopChat() { f.record("stop") }
func (f *fakeCopilot) NewSession() { f.record("new") }
func (f *fakeCopilot) CurrentTalk() string { return f.talk }
func (f *fakeCopilot) History() []askapi.HistoryPair { return nil }

func (f *fakeCopilot) Sessions(ctx context.Context, page, size int) ([]askapi.SessionRecord, error) {
	f.record("sessions")
	return f.sessions, f.err
}

func (f *fakeCopilot) LoadSession(ctx context.Context, talkID string) ([]askapi.MessageRecord, error) {
	f.record("load " + talkID)
	if f.err != nil {
		return nil, f.err
	}
	f.talk = talkID
	return f.messages, nil
}

func (f *fakeCopilot) DeleteSessions(ctx context.Context, talkIDs []string) error {
	f.record("delete")
	f.deleted = append(f.deleted, talkIDs...)
	return f.err
}

func (f *fakeCopilot) FixBug(ctx context.Context) error { return f.command("fixbug") }
func (f *fakeCopilot) Explain(ctx context.Context) error { return f.command("explain") }
func (f *fakeCopilot) Review(ctx context.Context) error { return f.command("review") }
func (f *fakeCopilot) Tests(ctx context.Context) error { return f.command("tests") }

func (f *fakeCopilot) AddComment(ctx context.Context) error {
	f.record("comment")
	if f.doc.SelectedText() == "" {
		return copilot.ErrNoSelection
	}
	f.doc.ReplaceSelectedText("// commented\n" + f.doc.SelectedText())
	return nil
}

func (f *fakeCopilot) Commits(ctx context.Context) (bool, error) {
	f.record("commits")
	if f.err != nil || !f.commitsSent {
		return false, f.err
	}
	f.respond()
	return true, nil
}

func (f *fakeCopilot) InlineChat(ctx context.Context, instruction string) (*copilot.Proposal, error) {
	f.record("inline " + instruction)
	if f.doc.SelectedText() == "" {
		return nil, copilot.ErrNoSelection
	}
	return f.proposal, f.err
}

func (f *fakeCopilot) ApplyProposal(p *copilot.Proposal) {
	f.applied = true
	f.doc.ReplaceSelectedText(p.Code)
}

func (f *fakeCopilot) HandleSelectionChanged(fileName string, lineFrom, indexFrom, lineTo, indexTo int) {
}

func (f *fakeCopilot) GenerateCode(ctx context.Context) error {
	f.record("generate")
	if f.err != nil {
		return f.err
	}
	if f.completion != "" {
		f.doc.SetInlineCompletions([]string{f.completion})
	}
	return nil
}

func (f *fakeCopilot) TriggerCompletion() {}
func (f *fakeCopilot) SetGenerateCodeEnabled(bool) {}
func (f *fakeCopilot) GenerateCodeEnabled() bool { return true }

func (f *fakeCopilot) QueryUser(ctx context.Context) (bool, error) {
	f.record("query")
	return f.loggedIn, f.err
}

func (f *fakeCopilot) Logout(ctx context.Context) error {
	f.record("logout")
	return f.err
}

func (f *fakeCopilot) LoginURL(sessionID, userID string) string {
	return "https://login.test/?sessionId=" + sessionID + "&userId=" + userID
}

func (f *fakeCopilot) IsLoggedIn() bool { return f.loggedIn }
func (f *fakeCopilot) SetLocale(string) {}
func (f *fakeCopilot) Locale() string { return "en" }
func (f *fakeCopilot) SetCommitsLocale(locale string) { f.commitsLocale = locale }
func (f *fakeCopilot) SetModel(string) {}
func (f *fakeCopilot) Model() string { return "codegeex-4" }
func (f *fakeCopilot) SetCodebaseEnabled(enabled bool) { f.codebase = enabled }
func (f *fakeCopilot) SetNetworkEnabled(enabled bool) { f.network = enabled }
func (f *fakeCopilot) SetReferenceFiles(paths []string) { f.refs = paths }

// syncBuffer is a bytes.Buffer safe to read while event handlers write to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
