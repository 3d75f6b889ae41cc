package messaging

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

func newSyncBus() *InMemoryEventBus {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	cfg.EnableMetrics = false
	return NewInMemoryEventBus(cfg)
}

func TestEventBusDeliversToSubscribers(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var mu sync.Mutex
	var seen []string

	err := bus.Subscribe(shared.EventSessionLogged, NewHandlerFunc("recorder", func(event shared.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, event.AggregateID())
		return nil
	}))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(shared.NewSessionLoggedEvent("user-1", "sess-1", 30, 36, 4)))
	require.NoError(t, bus.Publish(shared.NewSessionLoggedEvent("user-2", "sess-2", 45, 54, 1)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"user-1", "user-2"}, seen)
}

func TestEventBusIgnoresUnsubscribedTypes(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	called := false
	err := bus.Subscribe(shared.EventLevelUp, NewHandlerFunc("noop", func(shared.Event) error {
		called = true
		return nil
	}))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(shared.NewSessionLoggedEvent("user-1", "sess-1", 30, 36, 4)))
	assert.False(t, called)
}

func TestDispatcherRetriesUntilSuccess(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	d := NewDispatcher(DispatcherConfig{
		EventBus: bus,
		RetryConfig: RetryConfig{
			MaxRetries:     3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			Multiplier:     2.0,
		},
	})

	attempts := 0
	err := d.Register(shared.EventSessionLogged, NewHandlerFunc("flaky", func(shared.Event) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}))
	require.NoError(t, err)
	require.NoError(t, d.Start())

	require.NoError(t, bus.Publish(shared.NewSessionLoggedEvent("user-1", "sess-1", 30, 36, 4)))

	assert.Equal(t, 3, attempts)
	assert.Zero(t, d.DeadLetterQueue().Size())
}

func TestDispatcherParksExhaustedEvents(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	d := NewDispatcher(DispatcherConfig{
		EventBus: bus,
		RetryConfig: RetryConfig{
			MaxRetries:     2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
			Multiplier:     1.0,
		},
		DeadLetterSize: 10,
	})

	attempts := 0
	err := d.Register(shared.EventSessionLogged, NewHandlerFunc("broken", func(shared.Event) error {
		attempts++
		return errors.New("permanent")
	}))
	require.NoError(t, err)
	require.NoError(t, d.Start())

	_ = bus.Publish(shared.NewSessionLoggedEvent("user-1", "sess-1", 30, 36, 4))

	assert.Equal(t, 3, attempts)

	entries := d.DeadLetterQueue().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "broken", entries[0].HandlerName)
	assert.Equal(t, 3, entries[0].Attempts)
	assert.Equal(t, shared.EventSessionLogged, entries[0].Event.EventType())
}

func TestDispatcherRejectsRegistrationAfterStart(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	d := NewDispatcher(DispatcherConfig{EventBus: bus})
	require.NoError(t, d.Start())

	err := d.Register(shared.EventLevelUp, NewHandlerFunc("late", func(shared.Event) error { return nil }))
	assert.Error(t, err)
}

func TestRecoveryMiddlewareConvertsPanics(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	d := NewDispatcher(DispatcherConfig{
		EventBus: bus,
		RetryConfig: RetryConfig{
			MaxRetries:     1,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
			Multiplier:     1.0,
		},
	})
	d.Use(RecoveryMiddleware(slog.Default()))

	err := d.Register(shared.EventLevelUp, NewHandlerFunc("panicky", func(shared.Event) error {
		panic("boom")
	}))
	require.NoError(t, err)
	require.NoError(t, d.Start())

	_ = bus.Publish(shared.NewLevelUpEvent("user-1", 2, 3))

	entries := d.DeadLetterQueue().Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Error, "panicked")
}

func TestDeadLetterQueueEvictsOldest(t *testing.T) {
	q := NewDeadLetterQueue(2)

	q.Add(DeadLetterEntry{HandlerName: "a"})
	q.Add(DeadLetterEntry{HandlerName: "b"})
	q.Add(DeadLetterEntry{HandlerName: "c"})

	entries := q.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].HandlerName)
	assert.Equal(t, "c", entries[1].HandlerName)

	q.Clear()
	assert.Zero(t, q.Size())
}
