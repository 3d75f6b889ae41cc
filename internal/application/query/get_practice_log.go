package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/session"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PRACTICE LOG QUERY
// A user's own session history, newest first, optionally bounded to a date
// range.
// ══════════════════════════════════════════════════════════════════════════════

// GetPracticeLogQuery contains the request parameters.
type GetPracticeLogQuery struct {
	UserID string

	// From and To bound the range when both set; zero values mean no bound.
	From time.Time
	To   time.Time

	// Limit caps the result when no range is given (default 50).
	Limit int
}

// Validate validates the query parameters.
func (q *GetPracticeLogQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	return nil
}

// GetPracticeLogHandler handles the GetPracticeLogQuery.
type GetPracticeLogHandler struct {
	sessionRepo session.Repository
}

// NewGetPracticeLogHandler creates a new GetPracticeLogHandler.
func NewGetPracticeLogHandler(sessionRepo session.Repository) *GetPracticeLogHandler {
	return &GetPracticeLogHandler{sessionRepo: sessionRepo}
}

// Handle lists the user's sessions.
func (h *GetPracticeLogHandler) Handle(ctx context.Context, q GetPracticeLogQuery) ([]*session.PracticeSession, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_practice_log: %w", err)
	}

	if !q.From.IsZero() && !q.To.IsZero() {
		sessions, err := h.sessionRepo.ListByUserBetween(ctx, q.UserID, q.From, q.To)
		if err != nil {
			return nil, fmt.Errorf("get_practice_log: %w", err)
		}
		return sessions, nil
	}

	sessions, err := h.sessionRepo.ListByUser(ctx, q.UserID, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("get_practice_log: %w", err)
	}
	return sessions, nil
}
