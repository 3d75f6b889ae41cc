package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextStreak_FirstEverPractice(t *testing.T) {
	today := date(2026, time.March, 10)

	streak, last := NextStreak(today, nil, 0, time.UTC)

	assert.Equal(t, 1, streak)
	assert.Equal(t, today, last)
}

func TestNextStreak_SameDayUnchanged(t *testing.T) {
	today := time.Date(2026, time.March, 10, 22, 15, 0, 0, time.UTC)
	earlier := time.Date(2026, time.March, 10, 7, 30, 0, 0, time.UTC)

	streak, last := NextStreak(today, &earlier, 5, time.UTC)

	assert.Equal(t, 5, streak, "second session on the same day must not grow the streak")
	assert.Equal(t, date(2026, time.March, 10), last)
}

func TestNextStreak_ConsecutiveDayIncrements(t *testing.T) {
	yesterday := date(2026, time.March, 9)
	today := date(2026, time.March, 10)

	streak, last := NextStreak(today, &yesterday, 6, time.UTC)

	assert.Equal(t, 7, streak)
	assert.Equal(t, today, last)
}

func TestNextStreak_GapResets(t *testing.T) {
	twoDaysAgo := date(2026, time.March, 8)
	today := date(2026, time.March, 10)

	streak, _ := NextStreak(today, &twoDaysAgo, 29, time.UTC)

	assert.Equal(t, 1, streak, "a missed day resets the streak regardless of its length")
}

func TestNextStreak_FutureLastDateResets(t *testing.T) {
	// A stored date ahead of today can appear after clock skew. It is
	// neither today nor yesterday, so the streak resets.
	future := date(2026, time.March, 12)
	today := date(2026, time.March, 10)

	streak, last := NextStreak(today, &future, 9, time.UTC)

	assert.Equal(t, 1, streak)
	assert.Equal(t, today, last)
}

func TestNextStreak_MidnightBoundary(t *testing.T) {
	// 23:59 and 00:01 the next day are consecutive calendar days.
	lateNight := time.Date(2026, time.March, 9, 23, 59, 0, 0, time.UTC)
	justAfterMidnight := time.Date(2026, time.March, 10, 0, 1, 0, 0, time.UTC)

	streak, _ := NextStreak(justAfterMidnight, &lateNight, 3, time.UTC)

	assert.Equal(t, 4, streak)
}

func TestLevelForPoints(t *testing.T) {
	tests := []struct {
		points int
		level  int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{101, 2},
		{250, 3},
		{1000, 11},
		{-5, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelForPoints(tt.points), "points=%d", tt.points)
	}
}

func TestPointsToNextLevel(t *testing.T) {
	assert.Equal(t, 100, PointsToNextLevel(0))
	assert.Equal(t, 1, PointsToNextLevel(99))
	assert.Equal(t, 100, PointsToNextLevel(100))
	assert.Equal(t, 43, PointsToNextLevel(157))
}

func TestPracticeState_AddPoints(t *testing.T) {
	s := NewPracticeState()

	oldLevel, newLevel := s.AddPoints(157)
	assert.Equal(t, 1, oldLevel)
	assert.Equal(t, 2, newLevel)
	assert.Equal(t, 157, s.TotalPoints)

	// A delete that exceeds the balance floors at zero and drops the level.
	oldLevel, newLevel = s.AddPoints(-400)
	assert.Equal(t, 2, oldLevel)
	assert.Equal(t, 1, newLevel)
	assert.Equal(t, 0, s.TotalPoints)
}

func TestApplyPractice_UpdatesStateAndReturnsTransition(t *testing.T) {
	u := mustNewUser(t)
	yesterday := date(2026, time.March, 9)
	u.Practice.StreakCount = 2
	u.Practice.LastPracticeDate = &yesterday

	oldStreak, newStreak := u.ApplyPractice(date(2026, time.March, 10), time.UTC)

	assert.Equal(t, 2, oldStreak)
	assert.Equal(t, 3, newStreak)
	require.NotNil(t, u.Practice.LastPracticeDate)
	assert.Equal(t, date(2026, time.March, 10), *u.Practice.LastPracticeDate)
}
