package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/task"
)

func TestDeleteSession_ReversesPointsAndTaskTime(t *testing.T) {
	f := newLogSessionFixture(t)
	u := f.seedUser(t)
	tk := f.seedTask(t, u.ID, 60)

	logged, err := f.handler.Handle(context.Background(), LogSessionCommand{
		UserID:          u.ID,
		StartTime:       time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 40,
		FocusRating:     intPtr(5),
		Tasks:           []TaskTime{{TaskID: tk.ID, MinutesSpent: 40}},
	})
	require.NoError(t, err)

	del := NewDeleteSessionHandler(f.users, f.sessions, f.tasks, f.bus)
	result, err := del.Handle(context.Background(), DeleteSessionCommand{
		SessionID: logged.SessionID,
		UserID:    u.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, logged.PointsEarned, result.PointsReversed)
	assert.Equal(t, 0, result.TotalPoints)
	assert.Equal(t, 1, result.Level)

	// Task time and count rolled back, readiness rescored to zero.
	updated, err := f.tasks.GetByID(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.TotalTimePracticed)
	assert.Equal(t, 0, updated.PracticeCount)
	assert.Zero(t, updated.ReadinessScore)
	assert.Equal(t, task.StatusInProgress, updated.Status, "status is not rolled back")

	// Streak and badges survive the delete.
	stored, _ := f.users.GetByID(context.Background(), u.ID)
	assert.Equal(t, 1, stored.Practice.StreakCount)
	held, _ := f.badges.HeldTypes(context.Background(), u.ID)
	assert.True(t, held["first_session"], "badges are not clawed back")

	_, err = f.sessions.GetByID(context.Background(), logged.SessionID)
	assert.ErrorIs(t, err, shared.ErrSessionNotFound)
}

func TestDeleteSession_FloorsUserPointsAtZero(t *testing.T) {
	f := newLogSessionFixture(t)
	u := f.seedUser(t)

	logged, err := f.handler.Handle(context.Background(), LogSessionCommand{
		UserID:          u.ID,
		StartTime:       time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 50,
	})
	require.NoError(t, err)

	// Drain the balance below the session's worth before deleting.
	stored, _ := f.users.GetByID(context.Background(), u.ID)
	stored.Practice.AddPoints(-30)
	require.NoError(t, f.users.Update(context.Background(), stored))

	del := NewDeleteSessionHandler(f.users, f.sessions, f.tasks, f.bus)
	result, err := del.Handle(context.Background(), DeleteSessionCommand{
		SessionID: logged.SessionID,
		UserID:    u.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalPoints, "total floors at zero, never negative")
}

func TestDeleteSession_WrongOwnerRejected(t *testing.T) {
	f := newLogSessionFixture(t)
	u := f.seedUser(t)

	logged, err := f.handler.Handle(context.Background(), LogSessionCommand{
		UserID:          u.ID,
		StartTime:       time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
	})
	require.NoError(t, err)

	del := NewDeleteSessionHandler(f.users, f.sessions, f.tasks, f.bus)
	_, err = del.Handle(context.Background(), DeleteSessionCommand{
		SessionID: logged.SessionID,
		UserID:    "somebody-else",
	})

	assert.ErrorIs(t, err, shared.ErrSessionNotFound)
	_, err = f.sessions.GetByID(context.Background(), logged.SessionID)
	assert.NoError(t, err, "session still there")
}

func TestUpdateSessionRatings_FocusChangeMovesPoints(t *testing.T) {
	f := newLogSessionFixture(t)
	u := f.seedUser(t)

	logged, err := f.handler.Handle(context.Background(), LogSessionCommand{
		UserID:          u.ID,
		StartTime:       time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 40,
		FocusRating:     intPtr(3),
	})
	require.NoError(t, err)
	require.Equal(t, 40, logged.PointsEarned)

	upd := NewUpdateSessionRatingsHandler(f.users, f.sessions, f.bus)
	result, err := upd.Handle(context.Background(), UpdateSessionRatingsCommand{
		SessionID:   logged.SessionID,
		UserID:      u.ID,
		FocusRating: intPtr(5),
	})
	require.NoError(t, err)

	assert.Equal(t, 48, result.PointsEarned, "40 * 1.2 focus bonus under streak 1")
	assert.Equal(t, 8, result.PointsDelta)
	assert.Equal(t, 48, result.TotalPoints)
}

func TestUpdateSessionRatings_NonFocusEditLeavesPoints(t *testing.T) {
	f := newLogSessionFixture(t)
	u := f.seedUser(t)

	logged, err := f.handler.Handle(context.Background(), LogSessionCommand{
		UserID:          u.ID,
		StartTime:       time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 40,
	})
	require.NoError(t, err)

	notes := "worked the coda slowly"
	upd := NewUpdateSessionRatingsHandler(f.users, f.sessions, f.bus)
	result, err := upd.Handle(context.Background(), UpdateSessionRatingsCommand{
		SessionID:      logged.SessionID,
		UserID:         u.ID,
		ProgressRating: intPtr(4),
		Notes:          &notes,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.PointsDelta)
	assert.Equal(t, logged.PointsEarned, result.PointsEarned)

	sess, _ := f.sessions.GetByID(context.Background(), logged.SessionID)
	assert.Equal(t, notes, sess.Notes)
	assert.Equal(t, 4, sess.ProgressRating.Int())
}
