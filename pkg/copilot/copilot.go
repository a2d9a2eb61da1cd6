// Package copilot is the coding assistant service: chat, code commands,
// commit messages, inline chat and inline completion behind one object.
package copilot

import (
	"context"
	"errors"
	"net/url"
	"os/exec"
	"sync"

	"github.com/kcaldas/copilot/pkg/askapi"
	"github.com/kcaldas/copilot/pkg/completion"
	"github.com/kcaldas/copilot/pkg/config"
	"github.com/kcaldas/copilot/pkg/editor"
	"github.com/kcaldas/copilot/pkg/events"
	"github.com/kcaldas/copilot/pkg/logging"
)

var (
	// ErrNoSelection is returned by commands that work on the selected code.
	ErrNoSelection = errors.New("no code selected")
	// ErrEmptyPrompt is returned by Chat for a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrStreamEnded is published when a chat stream closes before its finish event.
	ErrStreamEnded = errors.New("chat stream ended without finish")
)

// DefaultInlineChatKeys is the key sequence advertised by the inline chat tip.
const DefaultInlineChatKeys = "Ctrl+T"

const inlineChatTip = "LineChatTip"

// Copilot is the assistant as seen by a host editor or the CLI. Streaming
// operations return once the request is on its way; answers are published
// on the event bus as ResponseEvent, CrawledWebsiteEvent and StreamErrorEvent.
type Copilot interface {
	// Chat
	Chat(ctx context.Context, prompt string) error
	StopChat()
	NewSession()
	CurrentTalk() string
	History() []askapi.HistoryPair
	Sessions(ctx context.Context, page, size int) ([]askapi.SessionRecord, error)
	LoadSession(ctx context.Context, talkID string) ([]askapi.MessageRecord, error)
	DeleteSessions(ctx context.Context, talkIDs []string) error

	// Commands on the selected code
	FixBug(ctx context.Context) error
	Explain(ctx context.Context) error
	Review(ctx context.Context) error
	Tests(ctx context.Context) error
	AddComment(ctx context.Context) error
	Commits(ctx context.Context) (bool, error)

	// Inline chat
	InlineChat(ctx context.Context, instruction string) (*Proposal, error)
	ApplyProposal(p *Proposal)
	HandleSelectionChanged(fileName string, lineFrom, indexFrom, lineTo, indexTo int)

	// Inline completion
	GenerateCode(ctx context.Context) error
	TriggerCompletion()
	SetGenerateCodeEnabled(enabled bool)
	GenerateCodeEnabled() bool

	// Account
	QueryUser(ctx context.Context) (bool, error)
	Logout(ctx context.Context) error
	LoginURL(sessionID, userID string) string
	IsLoggedIn() bool

	// Settings
	SetLocale(locale string)
	Locale() string
	SetCommitsLocale(locale string)
	SetModel(model string)
	Model() string
	SetCodebaseEnabled(enabled bool)
	SetNetworkEnabled(enabled bool)
	SetReferenceFiles(paths []string)
}

// DiffFunc returns the working tree diff of the repository at dir.
type DiffFunc func(ctx context.Context, dir string) (string, error)

// Option configures the service.
type Option func(*core)

// WithDiff replaces how the working tree diff is read.
func WithDiff(fn DiffFunc) Option {
	return func(c *core) {
		if fn != nil {
			c.diff = fn
		}
	}
}

// WithInlineChatKeys sets the key sequence shown by the inline chat tip.
// An empty value disables the tip.
func WithInlineChatKeys(keys string) Option {
	return func(c *core) {
		c.inlineChatKeys = keys
	}
}

// WithLogger injects a custom logger implementation.
func WithLogger(logger logging.Logger) Option {
	return func(c *core) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// core is the main implementation of the Copilot interface
type core struct {
	settings   config.Settings
	client     *askapi.Client
	sessions   *askapi.SessionStore
	account    *askapi.Account
	completion *completion.Controller
	surface    editor.Surface
	project    askapi.ProjectFunc
	bus        events.EventBus

	diff           DiffFunc
	inlineChatKeys string
	logger         logging.Logger

	mu            sync.Mutex
	talkID        string
	history       []askapi.HistoryPair
	cancelActive  context.CancelFunc
	commitsLocale string
	loggedIn      bool
}

// New creates the service. settings supplies the token, machine id and
// endpoints; the collaborators are built by the caller.
func New(
	settings config.Settings,
	client *askapi.Client,
	sessions *askapi.SessionStore,
	account *askapi.Account,
	controller *completion.Controller,
	surface editor.Surface,
	project askapi.ProjectFunc,
	bus events.EventBus,
	opts ...Option,
) Copilot {
	if project == nil {
		project = func() string { return "" }
	}
	c := &core{
		settings:       settings,
		client:         client,
		sessions:       sessions,
		account:        account,
		completion:     controller,
		surface:        surface,
		project:        project,
		bus:            bus,
		diff:           gitDiff,
		inlineChatKeys: DefaultInlineChatKeys,
		logger:         logging.NewComponentLogger("copilot"),
		commitsLocale:  settings.CommitsLocale,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func gitDiff(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "diff")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// streamURL returns base with stream=<value> set.
func streamURL(base string, streamed bool) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	if streamed {
		q.Set("stream", "true")
	} else {
		q.Set("stream", "false")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *core) QueryUser(ctx context.Context) (bool, error) {
	ok, err := c.account.QueryUser(ctx, c.settings.Token)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	c.loggedIn = ok
	c.mu.Unlock()
	return ok, nil
}

func (c *core) Logout(ctx context.Context) error {
	if err := c.account.Logout(ctx, c.settings.Token); err != nil {
		return err
	}
	c.mu.Lock()
	c.loggedIn = false
	c.mu.Unlock()
	return nil
}

func (c *core) LoginURL(sessionID, userID string) string {
	return c.account.LoginURL(sessionID, c.settings.MachineID, userID, "deepin")
}

func (c *core) IsLoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

func (c *core) SetLocale(locale string) {
	c.client.Assembler().SetLocale(locale)
}

func (c *core) Locale() string {
	return c.client.Assembler().Locale()
}

func (c *core) SetCommitsLocale(locale string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commitsLocale = locale
}

func (c *core) SetModel(model string) {
	c.client.Assembler().SetModel(model)
}

func (c *core) Model() string {
	return c.client.Assembler().Model()
}

func (c *core) SetCodebaseEnabled(enabled bool) {
	c.client.Assembler().SetCodebaseEnabled(enabled)
}

func (c *core) SetNetworkEnabled(enabled bool) {
	c.client.Assembler().SetNetworkEnabled(enabled)
}

func (c *core) SetReferenceFiles(paths []string) {
	c.client.Assembler().SetReferenceFiles(paths)
}

func (c *core) GenerateCode(ctx context.Context) error {
	return c.completion.Request(ctx)
}

func (c *core) TriggerCompletion() {
	c.completion.Trigger()
}

// SetGenerateCodeEnabled turns inline completion on or off; turning it off
// also drops anything buffered or in flight.
func (c *core) SetGenerateCodeEnabled(enabled bool) {
	c.completion.SetEnabled(enabled)
	if !enabled {
		c.completion.Stop()
	}
}

func (c *core) GenerateCodeEnabled() bool {
	return c.completion.Enabled()
}
