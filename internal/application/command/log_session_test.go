package command

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practicebeats/practice-hub/internal/domain/badge"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/task"
	"github.com/practicebeats/practice-hub/internal/domain/user"
)

func intPtr(v int) *int { return &v }

type logSessionFixture struct {
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	tasks    *fakeTaskRepo
	badges   *fakeBadgeRepo
	bus      *fakeEventBus
	handler  *LogSessionHandler
}

func newLogSessionFixture(t *testing.T) *logSessionFixture {
	t.Helper()
	f := &logSessionFixture{
		users:    newFakeUserRepo(),
		sessions: newFakeSessionRepo(),
		tasks:    newFakeTaskRepo(),
		badges:   newFakeBadgeRepo(),
		bus:      &fakeEventBus{},
	}
	f.handler = NewLogSessionHandler(f.users, f.sessions, f.tasks, f.badges, f.bus, time.UTC)
	return f
}

func (f *logSessionFixture) seedUser(t *testing.T) *user.User {
	t.Helper()
	u, err := user.NewUser(user.NewUserParams{
		ID:    uuid.NewString(),
		Name:  "Dana Reyes",
		Email: shared.Email("dana@example.com"),
	})
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *logSessionFixture) seedTask(t *testing.T, userID string, estimate int) *task.Task {
	t.Helper()
	tk, err := task.NewTask(task.NewTaskParams{
		ID:               uuid.NewString(),
		UserID:           userID,
		Title:            "Concerto exposition",
		Category:         task.CategoryRepertoire,
		Difficulty:       4,
		EstimatedMinutes: estimate,
	})
	require.NoError(t, err)
	require.NoError(t, f.tasks.Create(context.Background(), tk))
	return tk
}

func TestLogSession_FullFlow(t *testing.T) {
	f := newLogSessionFixture(t)
	u := f.seedUser(t)
	tk := f.seedTask(t, u.ID, 60)

	// Day three of a streak, worked example numbers.
	twoDaysAgo := time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC)
	stored, _ := f.users.GetByID(context.Background(), u.ID)
	stored.Practice.StreakCount = 2
	yesterday := twoDaysAgo.AddDate(0, 0, 1)
	stored.Practice.LastPracticeDate = &yesterday
	require.NoError(t, f.users.Update(context.Background(), stored))

	result, err := f.handler.Handle(context.Background(), LogSessionCommand{
		UserID:          u.ID,
		StartTime:       time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 40,
		FocusRating:     intPtr(5),
		Tasks:           []TaskTime{{TaskID: tk.ID, MinutesSpent: 40}},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.StreakCount)
	assert.Equal(t, 57, result.PointsEarned, "40 min * 1.2 streak * 1.2 focus, floored")
	assert.Equal(t, 57, result.TotalPoints)
	assert.Equal(t, 1, result.Level)
	assert.False(t, result.LeveledUp)

	// Task moved into progress and got rescored.
	updated, err := f.tasks.GetByID(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, updated.Status)
	assert.Equal(t, 40, updated.TotalTimePracticed)
	assert.Equal(t, 1, updated.PracticeCount)
	// (40 + 2*5) / (60 + 30) * 100
	assert.InDelta(t, 55.555, result.TaskReadiness[tk.ID], 0.01)

	// First session plus streak day three plus perfect focus.
	assert.ElementsMatch(t,
		[]badge.Type{badge.TypeFirstSession, badge.TypeStreak3, badge.TypePerfectFocus},
		result.BadgesEarned)

	assert.Contains(t, f.bus.typesPublished(), shared.EventSessionLogged)
	assert.Contains(t, f.bus.typesPublished(), shared.EventStreakUpdated)
}

func TestLogSession_UnknownUserMutatesNothing(t *testing.T) {
	f := newLogSessionFixture(t)

	_, err := f.handler.Handle(context.Background(), LogSessionCommand{
		UserID:          "ghost",
		DurationMinutes: 30,
	})

	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, f.sessions.sessions, "no session row written")
	assert.Empty(t, f.bus.published, "no events published")
}

func TestLogSession_UnknownTaskMutatesNothing(t *testing.T) {
	f := newLogSessionFixture(t)
	u := f.seedUser(t)

	_, err := f.handler.Handle(context.Background(), LogSessionCommand{
		UserID:          u.ID,
		DurationMinutes: 30,
		Tasks:           []TaskTime{{TaskID: "ghost-task", MinutesSpent: 30}},
	})

	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, f.sessions.sessions)

	stored, _ := f.users.GetByID(context.Background(), u.ID)
	assert.Equal(t, 0, stored.Practice.TotalPoints, "user state untouched")
	assert.Equal(t, 0, stored.Practice.StreakCount)
}

func TestLogSession_RejectsAnotherUsersTask(t *testing.T) {
	f := newLogSessionFixture(t)
	owner := f.seedUser(t)
	tk := f.seedTask(t, owner.ID, 60)

	other, err := user.NewUser(user.NewUserParams{
		ID:    uuid.NewString(),
		Name:  "Sam Ito",
		Email: shared.Email("sam@example.com"),
	})
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), other))

	_, err = f.handler.Handle(context.Background(), LogSessionCommand{
		UserID:          other.ID,
		DurationMinutes: 30,
		Tasks:           []TaskTime{{TaskID: tk.ID, MinutesSpent: 30}},
	})

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLogSession_SameDaySecondSessionKeepsStreak(t *testing.T) {
	f := newLogSessionFixture(t)
	u := f.seedUser(t)
	today := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)

	first, err := f.handler.Handle(context.Background(), LogSessionCommand{
		UserID: u.ID, StartTime: today, DurationMinutes: 20,
	})
	require.NoError(t, err)
	require.Equal(t, 1, first.StreakCount)

	second, err := f.handler.Handle(context.Background(), LogSessionCommand{
		UserID: u.ID, StartTime: today.Add(10 * time.Hour), DurationMinutes: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, second.StreakCount, "same calendar day never grows the streak")
	assert.Equal(t, 40, second.TotalPoints, "points still accumulate on the same day")
}

func TestLogSession_LevelUpCrossesBoundary(t *testing.T) {
	f := newLogSessionFixture(t)
	u := f.seedUser(t)

	stored, _ := f.users.GetByID(context.Background(), u.ID)
	stored.Practice.AddPoints(95)
	require.NoError(t, f.users.Update(context.Background(), stored))

	result, err := f.handler.Handle(context.Background(), LogSessionCommand{
		UserID:          u.ID,
		StartTime:       time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC),
		DurationMinutes: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, 105, result.TotalPoints)
	assert.Equal(t, 2, result.Level)
	assert.True(t, result.LeveledUp)
	assert.Contains(t, f.bus.typesPublished(), shared.EventLevelUp)
}

func TestLogSession_BadgesNotRegranted(t *testing.T) {
	f := newLogSessionFixture(t)
	u := f.seedUser(t)
	start := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	first, err := f.handler.Handle(context.Background(), LogSessionCommand{
		UserID: u.ID, StartTime: start, DurationMinutes: 60,
	})
	require.NoError(t, err)
	require.Contains(t, first.BadgesEarned, badge.TypeMarathon)

	second, err := f.handler.Handle(context.Background(), LogSessionCommand{
		UserID: u.ID, StartTime: start.Add(2 * time.Hour), DurationMinutes: 90,
	})
	require.NoError(t, err)

	assert.NotContains(t, second.BadgesEarned, badge.TypeMarathon)
	assert.NotContains(t, second.BadgesEarned, badge.TypeFirstSession)
}

func TestLogSession_ValidationRejectsBadInput(t *testing.T) {
	f := newLogSessionFixture(t)
	u := f.seedUser(t)

	_, err := f.handler.Handle(context.Background(), LogSessionCommand{
		UserID:          u.ID,
		DurationMinutes: 0,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidDuration)

	_, err = f.handler.Handle(context.Background(), LogSessionCommand{
		UserID:          u.ID,
		DurationMinutes: 30,
		FocusRating:     intPtr(7),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidRating)
}
