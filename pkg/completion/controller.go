package completion

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kcaldas/copilot/pkg/editor"
	"github.com/kcaldas/copilot/pkg/language"
	"github.com/kcaldas/copilot/pkg/logging"
)

// DefaultDebounce is the quiet period after the last edit before a completion is requested.
const DefaultDebounce = 500 * time.Millisecond

// ErrSuperseded is returned by Request when a newer request or Stop replaced it.
var ErrSuperseded = errors.New("completion request superseded")

var (
	offeredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "copilot",
			Subsystem: "completion",
			Name:      "offered_total",
			Help:      "Inline completions offered to the editor, by source.",
		},
		[]string{"source"},
	)
	rejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "copilot",
			Subsystem: "completion",
			Name:      "rejected_total",
			Help:      "Generated responses dropped as invalid.",
		},
	)
)

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithMode fixes the generation mode.
func WithMode(mode Mode) ControllerOption {
	return func(c *Controller) {
		c.prefixType = func(string) Mode { return mode }
	}
}

// WithDebounce sets the delay used by Trigger.
func WithDebounce(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

// WithControllerLogger injects a custom logger implementation.
func WithControllerLogger(logger logging.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller decides when to call the generator and what to offer the
// editor. It owns the generation buffer; a new request cancels and replaces
// any request still in flight.
type Controller struct {
	surface   editor.Surface
	generator Generator

	mu         sync.Mutex
	buffer     Buffer
	generated  string
	generation uint64
	cancel     context.CancelFunc
	timer      *time.Timer
	enabled    bool

	prefixType func(prefix string) Mode
	debounce   time.Duration
	logger     logging.Logger
}

// NewController creates an enabled Controller.
func NewController(surface editor.Surface, generator Generator, opts ...ControllerOption) *Controller {
	c := &Controller{
		surface:    surface,
		generator:  generator,
		enabled:    true,
		prefixType: checkPrefixType,
		debounce:   DefaultDebounce,
		logger:     logging.NewComponentLogger("completion"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// checkPrefixType always asks for a block; line mode is opt-in.
func checkPrefixType(string) Mode {
	return ModeBlock
}

// SetEnabled turns inline completion on or off. Turning it off stops a
// pending Trigger.
func (c *Controller) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
	if !enabled && c.timer != nil {
		c.timer.Stop()
	}
}

func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Trigger schedules Request after the debounce delay, restarting the delay
// if one is already pending.
func (c *Controller) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		if err := c.Request(context.Background()); err != nil && !errors.Is(err, ErrSuperseded) {
			c.logger.Warn("inline completion failed", "error", err)
		}
	})
}

// Request offers the next completion. While the editor prefix still ends with
// the last offered completion and lines are pending, the next pending unit is
// offered without a network call. Otherwise a new generation is requested.
func (c *Controller) Request(ctx context.Context) error {
	inline := c.surface.InlineCompletionContext()

	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return nil
	}
	if strings.HasSuffix(inline.Prefix, c.generated) && !c.buffer.Empty() {
		completion := c.buffer.Next()
		c.generated = completion
		c.mu.Unlock()

		offeredTotal.WithLabelValues("buffer").Inc()
		c.offer(completion)
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	c.generation++
	c.buffer.Reset()
	c.generated = ""
	generation := c.generation
	mode := c.prefixType(inline.Prefix)
	c.mu.Unlock()

	path := c.surface.CurrentFile()
	response, err := c.generator.Generate(ctx, Request{
		Prefix:   inline.Prefix,
		Suffix:   inline.Suffix,
		Path:     path,
		Language: language.ID(path),
		Mode:     mode,
	})

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.cancel = nil
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if !ValidResponse(response) {
		c.mu.Unlock()
		rejectedTotal.Inc()
		c.logger.Warn("response not valid", "response", response)
		return nil
	}
	completion := c.buffer.Extract(mode, response)
	c.generated = completion
	c.mu.Unlock()

	offeredTotal.WithLabelValues("remote").Inc()
	c.offer(completion)
	return nil
}

// Stop cancels any pending or in-flight request and discards pending lines.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.buffer.Reset()
	c.generated = ""
}

// Pending returns the number of buffered lines not yet offered.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.Len()
}

func (c *Controller) offer(completion string) {
	c.surface.SetInlineCompletions([]string{completion})
	c.surface.Finished()
}
