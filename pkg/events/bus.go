package events

import (
	"sync"

	"github.com/kcaldas/copilot/pkg/logging"
)

const defaultTopicBuffer = 256

// EventHandler is a function that handles an event
type EventHandler func(event interface{})

// Event is anything that knows its topic.
type Event interface {
	Topic() string
}

// Publisher allows publishing events
type Publisher interface {
	Publish(eventType string, event interface{})
}

// Subscriber allows subscribing to events
type Subscriber interface {
	Subscribe(eventType string, handler EventHandler)
}

// EventBus provides both publishing and subscribing
type EventBus interface {
	Publisher
	Subscriber
}

// Emit publishes e on its own topic.
func Emit(p Publisher, e Event) {
	if p == nil {
		return
	}
	p.Publish(e.Topic(), e)
}

// InMemoryBus delivers events to subscribers through one worker goroutine per
// topic, so handlers of a topic see events in publish order.
type InMemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string][]EventHandler
	workers     map[string]*topicWorker
	bufferSize  int
	logger      logging.Logger
}

// NewEventBus creates a new event bus with the default buffer size.
func NewEventBus() EventBus {
	return NewEventBusWithBuffer(defaultTopicBuffer)
}

// NewEventBusWithBuffer sets the per-topic queue size. Values below 1 become 1.
func NewEventBusWithBuffer(buffer int) EventBus {
	if buffer < 1 {
		buffer = 1
	}
	return &InMemoryBus{
		subscribers: make(map[string][]EventHandler),
		workers:     make(map[string]*topicWorker),
		bufferSize:  buffer,
		logger:      logging.NewComponentLogger("events"),
	}
}

// Subscribe adds a handler for a specific event type.
func (b *InMemoryBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish queues event for the subscribers of eventType. When the topic queue
// is full it waits for the worker to make room, so no event is ever lost.
// Handlers must not publish to their own topic.
func (b *InMemoryBus) Publish(eventType string, event interface{}) {
	handlers := b.handlersFor(eventType)
	if len(handlers) == 0 {
		return
	}

	worker := b.workerFor(eventType)
	env := envelope{event: event, handlers: handlers}
	select {
	case worker.ch <- env:
	default:
		b.logger.Debug("event queue full, waiting for subscribers", "topic", eventType)
		worker.ch <- env
	}
}

// Shutdown drains and stops all topic workers.
func (b *InMemoryBus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic, w := range b.workers {
		w.stop()
		delete(b.workers, topic)
	}
}

func (b *InMemoryBus) handlersFor(eventType string) []EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]EventHandler(nil), b.subscribers[eventType]...)
}

func (b *InMemoryBus) workerFor(eventType string) *topicWorker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if worker, ok := b.workers[eventType]; ok {
		return worker
	}
	worker := newTopicWorker(b.bufferSize, b.logger.With("topic", eventType))
	b.workers[eventType] = worker
	return worker
}

type envelope struct {
	event    interface{}
	handlers []EventHandler
}

type topicWorker struct {
	ch       chan envelope
	wg       sync.WaitGroup
	stopOnce sync.Once
	logger   logging.Logger
}

func newTopicWorker(buffer int, logger logging.Logger) *topicWorker {
	w := &topicWorker{
		ch:     make(chan envelope, buffer),
		logger: logger,
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *topicWorker) run() {
	defer w.wg.Done()
	for env := range w.ch {
		for _, handler := range env.handlers {
			w.deliver(handler, env.event)
		}
	}
}

func (w *topicWorker) deliver(handler EventHandler, event interface{}) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("event handler panicked", "panic", r)
		}
	}()
	handler(event)
}

func (w *topicWorker) stop() {
	w.stopOnce.Do(func() {
		close(w.ch)
		w.wg.Wait()
	})
}

// NoOpEventBus drops everything.
type NoOpEventBus struct{}

func (n *NoOpEventBus) Publish(topic string, event interface{})      {}
func (n *NoOpEventBus) Subscribe(topic string, handler EventHandler) {}
