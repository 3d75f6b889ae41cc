// Package messaging carries domain events from command handlers to their
// side effects. Badge announcements, leaderboard cache invalidation, and
// streak bookkeeping all subscribe here rather than being called inline.
//
// Two bus implementations exist. InMemoryEventBus delivers within one
// process and is enough for a single-instance deployment. RedisEventBus
// layers Redis Pub/Sub on top of a local bus so the API server and the
// worker see each other's events.
package messaging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

var (
	// ErrEventBusClosed is returned when publishing on a closed bus.
	ErrEventBusClosed = errors.New("messaging: event bus is closed")

	// ErrNilEvent is returned when publishing a nil event.
	ErrNilEvent = errors.New("messaging: event cannot be nil")

	// ErrNilHandler is returned when subscribing a nil handler.
	ErrNilHandler = errors.New("messaging: handler cannot be nil")
)

// EventBus is the full bus surface the entrypoints hold: the domain-facing
// publish/subscribe contract plus lifecycle and metrics.
type EventBus interface {
	shared.EventBus
	Close() error
	Metrics() *EventBusMetrics
}

// HandlerFunc adapts a plain function to shared.EventHandler.
type HandlerFunc struct {
	HandlerName string
	Fn          func(event shared.Event) error
}

// NewHandlerFunc wraps fn as a named event handler.
func NewHandlerFunc(name string, fn func(event shared.Event) error) HandlerFunc {
	return HandlerFunc{HandlerName: name, Fn: fn}
}

// Handle implements shared.EventHandler.
func (h HandlerFunc) Handle(event shared.Event) error { return h.Fn(event) }

// Name implements shared.EventHandler.
func (h HandlerFunc) Name() string { return h.HandlerName }

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBusConfig contains configuration for InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode delivers events on the worker pool instead of the
	// publisher's goroutine.
	AsyncMode bool

	// WorkerPoolSize caps concurrent async deliveries.
	WorkerPoolSize int

	// Logger for structured logging.
	Logger *slog.Logger

	// EnableMetrics turns on per-event-type counters.
	EnableMetrics bool
}

// DefaultInMemoryEventBusConfig returns sensible defaults.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
		EnableMetrics:  true,
	}
}

// InMemoryEventBus delivers events to handlers inside one process.
type InMemoryEventBus struct {
	mu       sync.RWMutex
	subs     map[shared.EventType][]shared.EventHandler
	catchAll []shared.EventHandler
	closed   bool

	async   bool
	sem     chan struct{}
	closeCh chan struct{}
	wg      sync.WaitGroup

	logger  *slog.Logger
	metrics *EventBusMetrics
}

// NewInMemoryEventBus creates a bus from the given config.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 10
	}

	bus := &InMemoryEventBus{
		subs:    make(map[shared.EventType][]shared.EventHandler),
		async:   config.AsyncMode,
		sem:     make(chan struct{}, config.WorkerPoolSize),
		closeCh: make(chan struct{}),
		logger:  config.Logger,
	}
	if config.EnableMetrics {
		bus.metrics = NewEventBusMetrics()
	}
	return bus
}

// Subscribe registers a handler for one event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}

	b.subs[eventType] = append(b.subs[eventType], handler)
	b.logger.Debug("subscribed handler", "event_type", eventType, "handler", handler.Name())
	return nil
}

// SubscribeAll registers a handler that receives every event.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}

	b.catchAll = append(b.catchAll, handler)
	b.logger.Debug("subscribed global handler", "handler", handler.Name())
	return nil
}

// Publish delivers event to every matching handler. In async mode it
// returns as soon as the deliveries are queued.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return ErrNilEvent
	}

	handlers, err := b.snapshot(event.EventType())
	if err != nil {
		return err
	}
	if len(handlers) == 0 {
		b.logger.Debug("no handlers for event", "event_type", event.EventType())
		return nil
	}

	if b.metrics != nil {
		b.metrics.RecordPublish(event.EventType())
	}

	for _, h := range handlers {
		if b.async {
			b.wg.Add(1)
			go b.deliverAsync(event, h)
		} else if err := b.deliver(event, h); err != nil {
			b.logger.Error("handler error",
				"event_type", event.EventType(),
				"handler", h.Name(),
				"error", err,
			)
		}
	}
	return nil
}

// snapshot copies the handler lists so delivery runs without the lock.
func (b *InMemoryEventBus) snapshot(t shared.EventType) ([]shared.EventHandler, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrEventBusClosed
	}

	handlers := make([]shared.EventHandler, 0, len(b.subs[t])+len(b.catchAll))
	handlers = append(handlers, b.subs[t]...)
	handlers = append(handlers, b.catchAll...)
	return handlers, nil
}

func (b *InMemoryEventBus) deliverAsync(event shared.Event, h shared.EventHandler) {
	defer b.wg.Done()

	select {
	case b.sem <- struct{}{}:
		defer func() { <-b.sem }()
	case <-b.closeCh:
		return
	}

	if err := b.deliver(event, h); err != nil {
		b.logger.Error("async handler error",
			"event_type", event.EventType(),
			"handler", h.Name(),
			"error", err,
		)
	}
}

func (b *InMemoryEventBus) deliver(event shared.Event, h shared.EventHandler) error {
	start := time.Now()
	err := h.Handle(event)
	if b.metrics != nil {
		b.metrics.RecordHandlerExecution(event.EventType(), time.Since(start), err == nil)
	}
	return err
}

// Close stops accepting events and waits for in-flight deliveries.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closeCh)
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info("event bus closed")
	return nil
}

// Metrics returns the bus counters, or nil when metrics are disabled.
func (b *InMemoryEventBus) Metrics() *EventBusMetrics {
	return b.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// RedisClient is the narrow Pub/Sub surface RedisEventBus needs. Tests fake
// it; production wraps go-redis via NewGoRedisClient.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error)
	Close() error
}

// RedisMessage is one message received from a subscription.
type RedisMessage struct {
	Channel string
	Payload string
	Err     error
}

// RedisEventBusConfig contains configuration for RedisEventBus.
type RedisEventBusConfig struct {
	// Client is the Pub/Sub transport. Required.
	Client RedisClient

	// ChannelName is the Redis channel events travel on.
	// Defaults to "practice-hub:events".
	ChannelName string

	// InstanceID identifies this process so it can skip its own messages.
	// A random one is generated when empty.
	InstanceID string

	// LocalBusConfig configures the embedded in-memory bus.
	LocalBusConfig InMemoryEventBusConfig

	// Logger for structured logging.
	Logger *slog.Logger
}

// RedisEventBus fans events out over Redis Pub/Sub while delivering to
// local handlers through an embedded InMemoryEventBus. Remote events arrive
// through the subscription and are replayed locally; messages published by
// this instance are skipped because the local bus already saw them.
type RedisEventBus struct {
	client      RedisClient
	local       *InMemoryEventBus
	channelName string
	instanceID  string
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewRedisEventBus creates the bus and starts its subscription listener.
func NewRedisEventBus(config RedisEventBusConfig) (*RedisEventBus, error) {
	if config.Client == nil {
		return nil, errors.New("messaging: redis client is required")
	}
	if config.ChannelName == "" {
		config.ChannelName = "practice-hub:events"
	}
	if config.InstanceID == "" {
		config.InstanceID = randomInstanceID()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus := &RedisEventBus{
		client:      config.Client,
		local:       NewInMemoryEventBus(config.LocalBusConfig),
		channelName: config.ChannelName,
		instanceID:  config.InstanceID,
		logger:      config.Logger,
		ctx:         ctx,
		cancel:      cancel,
	}

	messages, err := bus.client.Subscribe(ctx, bus.channelName)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("messaging: subscribe: %w", err)
	}

	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		bus.listen(messages)
	}()

	return bus, nil
}

// Subscribe registers a handler for one event type.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.local.Subscribe(eventType, handler)
}

// SubscribeAll registers a handler that receives every event.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.local.SubscribeAll(handler)
}

// Publish delivers event locally and broadcasts it over Redis. A Redis
// failure degrades to local-only delivery rather than failing the publish.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return ErrNilEvent
	}

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrEventBusClosed
	}

	data, err := json.Marshal(wireEvent{
		InstanceID:  b.instanceID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("messaging: marshal event: %w", err)
	}

	if err := b.client.Publish(b.ctx, b.channelName, string(data)); err != nil {
		b.logger.Error("failed to publish to redis", "error", err)
	}

	return b.local.Publish(event)
}

func (b *RedisEventBus) listen(messages <-chan RedisMessage) {
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if msg.Err != nil {
				b.logger.Error("redis subscription error", "error", msg.Err)
				continue
			}
			b.replay(msg.Payload)
		}
	}
}

// replay turns a wire message back into an event and runs local handlers.
func (b *RedisEventBus) replay(payload string) {
	var we wireEvent
	if err := json.Unmarshal([]byte(payload), &we); err != nil {
		b.logger.Error("failed to unmarshal event", "error", err)
		return
	}
	if we.InstanceID == b.instanceID {
		return
	}

	if err := b.local.Publish(remoteEvent{we}); err != nil {
		b.logger.Error("failed to process remote event", "error", err)
	}
}

// Close stops the subscription and drains the local bus.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()

	if err := b.local.Close(); err != nil {
		b.logger.Error("failed to close local bus", "error", err)
	}
	b.logger.Info("redis event bus closed")
	return nil
}

// Metrics returns the embedded local bus counters.
func (b *RedisEventBus) Metrics() *EventBusMetrics {
	return b.local.Metrics()
}

// wireEvent is the JSON envelope events travel in over Redis.
type wireEvent struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// remoteEvent lets a decoded wireEvent satisfy shared.Event.
type remoteEvent struct{ w wireEvent }

func (e remoteEvent) EventType() shared.EventType     { return e.w.EventType }
func (e remoteEvent) AggregateID() string             { return e.w.AggregateID }
func (e remoteEvent) OccurredAt() time.Time           { return e.w.OccurredAt }
func (e remoteEvent) Payload() map[string]interface{} { return e.w.Payload }

func randomInstanceID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// ─────────────────────────────────────────────────────────────────────────────
// go-redis adapter
// ─────────────────────────────────────────────────────────────────────────────

// goRedisClient adapts a go-redis client to the RedisClient interface.
type goRedisClient struct {
	rdb *goredis.Client
}

// NewGoRedisClient wraps an existing go-redis client for use as the bus
// transport. The caller keeps ownership of the client; Close here is a
// no-op so a shared connection is not torn down by the bus.
func NewGoRedisClient(rdb *goredis.Client) RedisClient {
	return &goRedisClient{rdb: rdb}
}

func (c *goRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return c.rdb.Publish(ctx, channel, message).Err()
}

func (c *goRedisClient) Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error) {
	sub := c.rdb.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan RedisMessage)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				out <- RedisMessage{Channel: msg.Channel, Payload: msg.Payload}
			}
		}
	}()
	return out, nil
}

func (c *goRedisClient) Close() error { return nil }

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// EventBusMetrics tracks per-event-type bus activity.
type EventBusMetrics struct {
	mu              sync.RWMutex
	published       map[shared.EventType]int64
	handled         map[shared.EventType]int64
	failed          map[shared.EventType]int64
	totalDuration   map[shared.EventType]time.Duration
	lastPublishedAt time.Time
}

// NewEventBusMetrics creates an empty metrics collector.
func NewEventBusMetrics() *EventBusMetrics {
	return &EventBusMetrics{
		published:     make(map[shared.EventType]int64),
		handled:       make(map[shared.EventType]int64),
		failed:        make(map[shared.EventType]int64),
		totalDuration: make(map[shared.EventType]time.Duration),
	}
}

// RecordPublish counts a published event.
func (m *EventBusMetrics) RecordPublish(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[eventType]++
	m.lastPublishedAt = time.Now().UTC()
}

// RecordHandlerExecution counts one handler run.
func (m *EventBusMetrics) RecordHandlerExecution(eventType shared.EventType, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalDuration[eventType] += duration
	if success {
		m.handled[eventType]++
	} else {
		m.failed[eventType]++
	}
}

// Snapshot returns a point-in-time copy of the totals.
func (m *EventBusMetrics) Snapshot() EventBusMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return EventBusMetricsSnapshot{
		TotalPublished:  sumCounts(m.published),
		TotalHandled:    sumCounts(m.handled),
		TotalFailed:     sumCounts(m.failed),
		LastPublishedAt: m.lastPublishedAt,
	}
}

func sumCounts(counts map[shared.EventType]int64) int64 {
	var total int64
	for _, v := range counts {
		total += v
	}
	return total
}

// EventBusMetricsSnapshot is a point-in-time view of bus activity.
type EventBusMetricsSnapshot struct {
	TotalPublished  int64
	TotalHandled    int64
	TotalFailed     int64
	LastPublishedAt time.Time
}
