// Package analytics records product events without ever delaying or failing
// the request that produced them.
package analytics

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/TrollHead15/AstroLiana/pkg/logging"
)

// Event names.
const (
	EventTelegramMessageSent = "telegram_message_sent"
	EventEmailSent           = "email_sent"
	EventFormSubmitted       = "form_submitted"
)

// Property keys with special meaning. PropEmail and PropName are used to
// derive the distinct id.
const (
	PropEmail    = "email"
	PropName     = "name"
	PropLeadType = "leadType"
)

const (
	DefaultQueueSize = 256
	DefaultTimeout   = 5 * time.Second
)

// Properties are free-form event attributes.
type Properties map[string]any

// Event is one captured analytics event.
type Event struct {
	Name       string
	DistinctID string
	Properties Properties
	Timestamp  time.Time
}

// Capturer delivers a single event to an analytics backend.
type Capturer interface {
	Capture(ctx context.Context, e Event) error
}

// DistinctID picks the identity for an event: email, else name, else a
// random UUID.
func DistinctID(props Properties) string {
	for _, key := range []string{PropEmail, PropName} {
		if v, ok := props[key].(string); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return uuid.NewString()
}

// EmitterConfig controls the background worker.
type EmitterConfig struct {
	QueueSize int
	Timeout   time.Duration
	Clock     func() time.Time
	Logger    *logging.Logger
}

// Emitter queues events for a single background worker. Track never blocks;
// when the queue is full the event is dropped and logged.
type Emitter struct {
	capturer Capturer
	timeout  time.Duration
	clock    func() time.Time
	logger   *logging.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan Event
	done    chan struct{}
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewEmitter starts the worker. A nil capturer yields a no-op emitter.
func NewEmitter(capturer Capturer, cfg EmitterConfig) *Emitter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	e := &Emitter{
		capturer: capturer,
		timeout:  cfg.Timeout,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		done:     make(chan struct{}),
	}
	if capturer == nil {
		close(e.done)
		return e
	}
	e.queue = make(chan Event, cfg.QueueSize)
	go e.run()
	return e
}

// Enabled reports whether events are delivered anywhere.
func (e *Emitter) Enabled() bool {
	return e != nil && e.capturer != nil
}

// Track enqueues an event. It is safe to call after Close; the event is
// discarded.
func (e *Emitter) Track(event string, props Properties) {
	if !e.Enabled() {
		return
	}
	ev := Event{
		Name:       event,
		DistinctID: DistinctID(props),
		Properties: props,
		Timestamp:  e.clock(),
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}
	select {
	case e.queue <- ev:
	default:
		e.dropped.Add(1)
		e.logger.Warn("analytics queue full, dropping event", "event", event)
	}
}

func (e *Emitter) run() {
	defer close(e.done)
	for ev := range e.queue {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		if err := e.capturer.Capture(ctx, ev); err != nil {
			e.failed.Add(1)
			e.logger.Error("analytics capture failed", "event", ev.Name, "error", err)
		}
		cancel()
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (e *Emitter) Dropped() int64 { return e.dropped.Load() }

// Failed returns how many events the capturer rejected.
func (e *Emitter) Failed() int64 { return e.failed.Load() }

// Close stops accepting events and waits for queued ones to be delivered or
// for ctx to expire. A capturer implementing io.Closer is closed afterwards.
func (e *Emitter) Close(ctx context.Context) error {
	if !e.Enabled() {
		return nil
	}
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	select {
	case <-e.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if c, ok := e.capturer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
