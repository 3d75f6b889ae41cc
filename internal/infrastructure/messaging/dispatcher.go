package messaging

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT DISPATCHER
// Sits between the bus and side-effect handlers: retries transient failures
// with backoff, applies middleware, and parks events that keep failing in a
// dead letter queue for inspection.
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher routes events from the bus to registered handlers with retry
// and middleware support.
type Dispatcher struct {
	mu          sync.RWMutex
	eventBus    shared.EventBus
	handlers    map[shared.EventType][]HandlerRegistration
	middlewares []Middleware
	retryConfig RetryConfig
	deadLetter  *DeadLetterQueue
	logger      *slog.Logger
	started     bool
}

// HandlerRegistration binds a handler with its delivery options.
type HandlerRegistration struct {
	// Handler processes the event.
	Handler shared.EventHandler

	// MaxRetries overrides the dispatcher default when positive.
	MaxRetries int

	// Timeout bounds a single handler attempt; zero means no limit.
	Timeout time.Duration
}

// RetryConfig controls the backoff between handler retries.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first failure.
	MaxRetries int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration

	// Multiplier is the exponential growth factor.
	Multiplier float64
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
	}
}

// DispatcherConfig contains dispatcher configuration.
type DispatcherConfig struct {
	// EventBus is the bus to attach to.
	EventBus shared.EventBus

	// RetryConfig controls retry behavior.
	RetryConfig RetryConfig

	// DeadLetterSize bounds the dead letter queue (default 100).
	DeadLetterSize int

	// Logger for structured logging.
	Logger *slog.Logger
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.RetryConfig.MaxRetries == 0 {
		config.RetryConfig = DefaultRetryConfig()
	}
	if config.DeadLetterSize <= 0 {
		config.DeadLetterSize = 100
	}

	return &Dispatcher{
		eventBus:    config.EventBus,
		handlers:    make(map[shared.EventType][]HandlerRegistration),
		retryConfig: config.RetryConfig,
		deadLetter:  NewDeadLetterQueue(config.DeadLetterSize),
		logger:      config.Logger,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Registration
// ─────────────────────────────────────────────────────────────────────────────

// Register adds a handler for an event type with default delivery options.
func (d *Dispatcher) Register(eventType shared.EventType, handler shared.EventHandler) error {
	return d.RegisterHandler(eventType, HandlerRegistration{Handler: handler})
}

// RegisterHandler adds a handler with explicit delivery options.
func (d *Dispatcher) RegisterHandler(eventType shared.EventType, reg HandlerRegistration) error {
	if reg.Handler == nil {
		return ErrNilHandler
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return errors.New("messaging: cannot register handlers after Start")
	}

	d.handlers[eventType] = append(d.handlers[eventType], reg)
	return nil
}

// Use appends a middleware applied to every handler, outermost first.
func (d *Dispatcher) Use(middleware Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middlewares = append(d.middlewares, middleware)
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// Middleware wraps an event handler.
type Middleware func(shared.EventHandler) shared.EventHandler

// RecoveryMiddleware converts handler panics into errors.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return NewHandlerFunc(next.Name(), func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic",
						"handler", next.Name(),
						"event_type", event.EventType(),
						"panic", r,
					)
					err = fmt.Errorf("handler %s panicked: %v", next.Name(), r)
				}
			}()
			return next.Handle(event)
		})
	}
}

// LoggingMiddleware logs every handler execution with its duration.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return NewHandlerFunc(next.Name(), func(event shared.Event) error {
			start := time.Now()
			err := next.Handle(event)
			duration := time.Since(start)

			if err != nil {
				logger.Error("event handler failed",
					"handler", next.Name(),
					"event_type", event.EventType(),
					"duration", duration,
					"error", err,
				)
			} else {
				logger.Debug("event handled",
					"handler", next.Name(),
					"event_type", event.EventType(),
					"duration", duration,
				)
			}
			return err
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────────────────

// Start attaches the dispatcher to the bus. Registrations are frozen after
// this point.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return nil
	}
	d.started = true

	eventTypes := make([]shared.EventType, 0, len(d.handlers))
	for et := range d.handlers {
		eventTypes = append(eventTypes, et)
	}
	d.mu.Unlock()

	for _, et := range eventTypes {
		eventType := et
		err := d.eventBus.Subscribe(eventType, NewHandlerFunc(
			fmt.Sprintf("dispatcher[%s]", eventType),
			func(event shared.Event) error {
				return d.dispatch(event)
			},
		))
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", eventType, err)
		}
	}

	return nil
}

// dispatch runs every registered handler for the event.
func (d *Dispatcher) dispatch(event shared.Event) error {
	d.mu.RLock()
	regs := d.handlers[event.EventType()]
	middlewares := make([]Middleware, len(d.middlewares))
	copy(middlewares, d.middlewares)
	d.mu.RUnlock()

	var firstErr error
	for _, reg := range regs {
		if err := d.executeHandler(event, reg, middlewares); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// executeHandler runs one handler with middleware and retries.
func (d *Dispatcher) executeHandler(event shared.Event, reg HandlerRegistration, middlewares []Middleware) error {
	handler := reg.Handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}

	maxRetries := reg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = d.retryConfig.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(d.calculateBackoff(attempt))
		}

		lastErr = d.executeWithTimeout(handler, event, reg.Timeout)
		if lastErr == nil {
			if attempt > 0 {
				d.logger.Info("handler recovered after retry",
					"handler", reg.Handler.Name(),
					"event_type", event.EventType(),
					"attempt", attempt,
				)
			}
			return nil
		}
	}

	d.deadLetter.Add(DeadLetterEntry{
		Event:       event,
		HandlerName: reg.Handler.Name(),
		Error:       lastErr.Error(),
		FailedAt:    time.Now().UTC(),
		Attempts:    maxRetries + 1,
	})

	return fmt.Errorf("handler %s exhausted retries: %w", reg.Handler.Name(), lastErr)
}

// executeWithTimeout bounds a single handler attempt.
func (d *Dispatcher) executeWithTimeout(handler shared.EventHandler, event shared.Event, timeout time.Duration) error {
	if timeout <= 0 {
		return handler.Handle(event)
	}

	done := make(chan error, 1)
	go func() {
		done <- handler.Handle(event)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("handler %s timed out after %s", handler.Name(), timeout)
	}
}

// calculateBackoff returns the delay before the given retry attempt.
func (d *Dispatcher) calculateBackoff(attempt int) time.Duration {
	backoff := float64(d.retryConfig.InitialBackoff) * math.Pow(d.retryConfig.Multiplier, float64(attempt-1))
	if backoff > float64(d.retryConfig.MaxBackoff) {
		backoff = float64(d.retryConfig.MaxBackoff)
	}
	return time.Duration(backoff)
}

// DeadLetterQueue returns the queue of events that exhausted their retries.
func (d *Dispatcher) DeadLetterQueue() *DeadLetterQueue {
	return d.deadLetter
}

// ══════════════════════════════════════════════════════════════════════════════
// DEAD LETTER QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// DeadLetterEntry records a permanently failed delivery.
type DeadLetterEntry struct {
	Event       shared.Event
	HandlerName string
	Error       string
	FailedAt    time.Time
	Attempts    int
}

// DeadLetterQueue is a bounded FIFO of failed deliveries.
type DeadLetterQueue struct {
	mu      sync.Mutex
	entries []DeadLetterEntry
	maxSize int
}

// NewDeadLetterQueue creates a queue bounded at maxSize entries.
func NewDeadLetterQueue(maxSize int) *DeadLetterQueue {
	return &DeadLetterQueue{maxSize: maxSize}
}

// Add appends an entry, evicting the oldest when full.
func (q *DeadLetterQueue) Add(entry DeadLetterEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.maxSize {
		q.entries = q.entries[1:]
	}
	q.entries = append(q.entries, entry)
}

// Entries returns a copy of the queued entries.
func (q *DeadLetterQueue) Entries() []DeadLetterEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]DeadLetterEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Size returns the number of queued entries.
func (q *DeadLetterQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Clear empties the queue.
func (q *DeadLetterQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
}
