package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - each event represents something significant
// that happened in the domain. Handlers subscribe by type.
const (
	// User events
	EventUserRegistered EventType = "user.registered"
	EventUserUpdated    EventType = "user.updated"
	EventLevelUp        EventType = "user.level_up"
	EventStreakUpdated  EventType = "user.streak_updated"
	EventStreakBroken   EventType = "user.streak_broken"

	// Session events
	EventSessionLogged  EventType = "session.logged"
	EventSessionUpdated EventType = "session.updated"
	EventSessionDeleted EventType = "session.deleted"

	// Task events
	EventTaskCreated      EventType = "task.created"
	EventReadinessChanged EventType = "task.readiness_changed"

	// Badge events
	EventBadgeEarned EventType = "badge.earned"

	// Ensemble events
	EventEnsembleCreated    EventType = "ensemble.created"
	EventMemberJoined       EventType = "ensemble.member_joined"
	EventLeaderboardUpdated EventType = "ensemble.leaderboard_updated"

	// Challenge events
	EventChallengeCompleted EventType = "challenge.completed"
	EventChallengeExpired   EventType = "challenge.expired"
)

// Event is what every domain event exposes to the bus.
type Event interface {
	// EventType identifies the event for subscription matching.
	EventType() EventType

	// OccurredAt is the event's UTC timestamp.
	OccurredAt() time.Time

	// AggregateID names the aggregate the event belongs to.
	AggregateID() string

	// Payload flattens the event data for serialization and logging.
	Payload() map[string]interface{}
}

// BaseEvent carries the fields shared by every concrete event. Embed it
// and override Payload.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

func (e BaseEvent) EventType() EventType  { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) AggregateID() string   { return e.AggregateId }

// Payload defaults to just the aggregate ID.
func (e BaseEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"aggregate_id": e.AggregateId}
}

// NewBaseEvent stamps a fresh event with the current UTC time.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// EventHandler processes domain events.
type EventHandler interface {
	// Handle processes the event. Errors are logged by the bus, not propagated
	// to the publisher.
	Handle(event Event) error

	// Name returns the handler name for logging.
	Name() string
}

// EventBus publishes domain events to subscribed handlers.
type EventBus interface {
	// Publish delivers the event to all handlers subscribed to its type.
	Publish(event Event) error

	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error
}

// ═══════════════════════════════════════════════════════════════════════════
// Session Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionLoggedEvent is emitted when a practice session is logged.
type SessionLoggedEvent struct {
	BaseEvent
	UserID          string `json:"user_id"`
	SessionID       string `json:"session_id"`
	DurationMinutes int    `json:"duration_minutes"`
	PointsEarned    int    `json:"points_earned"`
	StreakCount     int    `json:"streak_count"`
}

// NewSessionLoggedEvent creates a session logged event.
func NewSessionLoggedEvent(userID, sessionID string, duration, points, streak int) SessionLoggedEvent {
	return SessionLoggedEvent{
		BaseEvent:       NewBaseEvent(EventSessionLogged, userID),
		UserID:          userID,
		SessionID:       sessionID,
		DurationMinutes: duration,
		PointsEarned:    points,
		StreakCount:     streak,
	}
}

// Payload implements Event interface.
func (e SessionLoggedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":          e.UserID,
		"session_id":       e.SessionID,
		"duration_minutes": e.DurationMinutes,
		"points_earned":    e.PointsEarned,
		"streak_count":     e.StreakCount,
	}
}

// SessionDeletedEvent is emitted when a practice session is deleted.
type SessionDeletedEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	SessionID      string `json:"session_id"`
	PointsReversed int    `json:"points_reversed"`
}

// NewSessionDeletedEvent creates a session deleted event.
func NewSessionDeletedEvent(userID, sessionID string, pointsReversed int) SessionDeletedEvent {
	return SessionDeletedEvent{
		BaseEvent:      NewBaseEvent(EventSessionDeleted, userID),
		UserID:         userID,
		SessionID:      sessionID,
		PointsReversed: pointsReversed,
	}
}

// Payload implements Event interface.
func (e SessionDeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"session_id":      e.SessionID,
		"points_reversed": e.PointsReversed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// User Events
// ═══════════════════════════════════════════════════════════════════════════

// LevelUpEvent is emitted when a user's level increases.
type LevelUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
}

// NewLevelUpEvent creates a level up event.
func NewLevelUpEvent(userID string, oldLevel, newLevel int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
	}
}

// StreakUpdatedEvent is emitted when a user's streak changes.
type StreakUpdatedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	OldStreak int    `json:"old_streak"`
	NewStreak int    `json:"new_streak"`
}

// NewStreakUpdatedEvent creates a streak updated event.
func NewStreakUpdatedEvent(userID string, oldStreak, newStreak int) StreakUpdatedEvent {
	eventType := EventStreakUpdated
	if newStreak < oldStreak {
		eventType = EventStreakBroken
	}
	return StreakUpdatedEvent{
		BaseEvent: NewBaseEvent(eventType, userID),
		UserID:    userID,
		OldStreak: oldStreak,
		NewStreak: newStreak,
	}
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"old_streak": e.OldStreak,
		"new_streak": e.NewStreak,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Badge Events
// ═══════════════════════════════════════════════════════════════════════════

// BadgeEarnedEvent is emitted when a user earns a new badge.
type BadgeEarnedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	BadgeType string `json:"badge_type"`
}

// NewBadgeEarnedEvent creates a badge earned event.
func NewBadgeEarnedEvent(userID, badgeType string) BadgeEarnedEvent {
	return BadgeEarnedEvent{
		BaseEvent: NewBaseEvent(EventBadgeEarned, userID),
		UserID:    userID,
		BadgeType: badgeType,
	}
}

// Payload implements Event interface.
func (e BadgeEarnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"badge_type": e.BadgeType,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Challenge Events
// ═══════════════════════════════════════════════════════════════════════════

// ChallengeCompletedEvent is emitted when a user completes a group challenge.
type ChallengeCompletedEvent struct {
	BaseEvent
	ChallengeID string `json:"challenge_id"`
	UserID      string `json:"user_id"`
}

// NewChallengeCompletedEvent creates a challenge completed event.
func NewChallengeCompletedEvent(challengeID, userID string) ChallengeCompletedEvent {
	return ChallengeCompletedEvent{
		BaseEvent:   NewBaseEvent(EventChallengeCompleted, challengeID),
		ChallengeID: challengeID,
		UserID:      userID,
	}
}

// Payload implements Event interface.
func (e ChallengeCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"challenge_id": e.ChallengeID,
		"user_id":      e.UserID,
	}
}
