// Package analytics is the append-only event sink. Events reach storage either
// synchronously through Record or best-effort through Emit and EmitOnce, which
// hand them to a bounded queue drained by a background writer. Repeat
// suppression for EmitOnce is decided by that writer, never by the caller.
package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amanora/mall-navigator-backend/internal/debounce"
	"github.com/amanora/mall-navigator-backend/internal/metrics"
	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	DefaultQueueSize    = 1024
	DefaultWriteTimeout = 5 * time.Second
	DefaultGuardTimeout = 250 * time.Millisecond
)

// Writer persists events. repositories.AnalyticsRepository satisfies it.
type Writer interface {
	Create(ctx context.Context, event *models.AnalyticsEvent) error
}

// Publisher mirrors persisted events to another system
type Publisher interface {
	Publish(ctx context.Context, event *models.AnalyticsEvent) error
	Close() error
}

// Options tunes the sink
type Options struct {
	QueueSize    int
	WriteTimeout time.Duration
	// Guard suppresses repeats of events queued with EmitOnce. Nil disables suppression.
	Guard        debounce.Guard
	GuardTimeout time.Duration
}

type queuedEvent struct {
	event  *models.AnalyticsEvent
	key    string
	window time.Duration
}

// Sink records analytics events
type Sink struct {
	writer       Writer
	publishers   []Publisher
	writeTimeout time.Duration
	guard        debounce.Guard
	guardTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan queuedEvent
	done   chan struct{}
	start  sync.Once
}

// NewSink creates a sink. Call Start to begin draining emitted events.
func NewSink(writer Writer, opts Options, publishers ...Publisher) *Sink {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.GuardTimeout <= 0 {
		opts.GuardTimeout = DefaultGuardTimeout
	}
	return &Sink{
		writer:       writer,
		publishers:   publishers,
		writeTimeout: opts.WriteTimeout,
		guard:        opts.Guard,
		guardTimeout: opts.GuardTimeout,
		queue:        make(chan queuedEvent, opts.QueueSize),
		done:         make(chan struct{}),
	}
}

// Start launches the background writer. Calling it more than once is harmless.
func (s *Sink) Start() {
	s.start.Do(func() {
		go s.run()
	})
}

func (s *Sink) run() {
	defer close(s.done)
	for item := range s.queue {
		metrics.AnalyticsQueueDepth.Set(float64(len(s.queue)))
		s.process(item)
	}
	metrics.AnalyticsQueueDepth.Set(0)
}

func (s *Sink) process(item queuedEvent) {
	eventType := string(item.event.EventType)
	emit, claimed := s.claim(item)
	if !emit {
		metrics.AnalyticsEvents.WithLabelValues(eventType, "suppressed").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	if err := s.write(ctx, item.event); err != nil {
		log.Warn().Err(err).Str("eventType", eventType).Msg("analytics: dropping event after failed write")
		if claimed {
			s.release(item.key)
		}
	}
}

// claim asks the guard whether item is the first for its key. Guard errors
// let the event through without holding the key.
func (s *Sink) claim(item queuedEvent) (emit, claimed bool) {
	if item.key == "" || item.window <= 0 || s.guard == nil {
		return true, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.guardTimeout)
	defer cancel()
	first, err := s.guard.First(ctx, item.key, item.window)
	if err != nil {
		log.Warn().Err(err).Str("key", item.key).Msg("analytics: debounce guard unavailable, writing event")
		return true, false
	}
	return first, first
}

// release frees a key whose event was never stored so the next one is written
func (s *Sink) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.guardTimeout)
	defer cancel()
	if err := s.guard.Release(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("analytics: releasing debounce key")
	}
}

// Record validates and writes an event synchronously. It fails only when the
// event type is unknown or storage is unavailable.
func (s *Sink) Record(ctx context.Context, event *models.AnalyticsEvent) error {
	if !event.EventType.Valid() {
		return fmt.Errorf("unknown analytics event type %q", event.EventType)
	}
	return s.write(ctx, event)
}

// Emit queues an event for the background writer without blocking. It
// reports false when the event was dropped because the queue is full, the
// sink is closed or the event type is unknown.
func (s *Sink) Emit(event *models.AnalyticsEvent) bool {
	return s.enqueue(queuedEvent{event: event})
}

// EmitOnce is Emit for events that repeat while a user lingers. The writer
// stores the event only if no other event with key was stored within window.
// A zero window behaves like Emit.
func (s *Sink) EmitOnce(event *models.AnalyticsEvent, key string, window time.Duration) bool {
	return s.enqueue(queuedEvent{event: event, key: key, window: window})
}

func (s *Sink) enqueue(item queuedEvent) bool {
	event := item.event
	if event == nil || !event.EventType.Valid() {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		metrics.AnalyticsEvents.WithLabelValues(string(event.EventType), "dropped").Inc()
		return false
	}

	select {
	case s.queue <- item:
		metrics.AnalyticsQueueDepth.Set(float64(len(s.queue)))
		return true
	default:
		metrics.AnalyticsEvents.WithLabelValues(string(event.EventType), "dropped").Inc()
		log.Warn().Str("eventType", string(event.EventType)).Msg("analytics: queue full, event dropped")
		return false
	}
}

func (s *Sink) write(ctx context.Context, event *models.AnalyticsEvent) error {
	if err := s.writer.Create(ctx, event); err != nil {
		metrics.AnalyticsEvents.WithLabelValues(string(event.EventType), "failed").Inc()
		return err
	}
	metrics.AnalyticsEvents.WithLabelValues(string(event.EventType), "written").Inc()

	for _, p := range s.publishers {
		if err := p.Publish(ctx, event); err != nil {
			log.Warn().Err(err).Str("eventType", string(event.EventType)).Msg("analytics: publish failed")
		}
	}
	return nil
}

// Close stops accepting events, drains the queue and closes the publishers.
// It returns ctx.Err() if draining outlives the context.
func (s *Sink) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	// A sink that was never started has nobody to drain the queue
	s.Start()

	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	for _, p := range s.publishers {
		if err := p.Close(); err != nil {
			log.Warn().Err(err).Msg("analytics: closing publisher")
		}
	}
	return nil
}
