package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestStreakMultiplier(t *testing.T) {
	tests := []struct {
		streak int
		want   float64
	}{
		{0, 1.0},
		{1, 1.0},
		{2, 1.0},
		{3, 1.2},
		{6, 1.2},
		{7, 1.5},
		{29, 1.5},
		{30, 2.0},
		{365, 2.0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, StreakMultiplier(tt.streak), 0.0001, "streak=%d", tt.streak)
	}
}

func TestCalculatePoints(t *testing.T) {
	tests := []struct {
		name     string
		duration int
		focus    *int
		streak   int
		want     int
	}{
		{"worked example", 40, intPtr(5), 3, 57},
		{"no bonuses", 25, nil, 1, 25},
		{"focus 4 earns the bonus", 30, intPtr(4), 0, 36},
		{"focus 3 earns nothing", 30, intPtr(3), 0, 30},
		{"week streak", 20, nil, 7, 30},
		{"month streak with focus", 60, intPtr(5), 30, 144},
		{"truncates toward zero", 7, nil, 3, 8}, // 7 * 1.2 = 8.4
		{"zero duration", 0, intPtr(5), 30, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculatePoints(tt.duration, tt.focus, tt.streak))
		})
	}
}

func TestApplyPoints_FreezesOnSession(t *testing.T) {
	s := mustNewSession(t, NewSessionParams{
		ID:              "b4d6f2e8-3a1c-4f59-8e72-9c0b5d1a6e34",
		UserID:          "user-1",
		StartTime:       time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 40,
		FocusRating:     intPtr(5),
	})

	earned := s.ApplyPoints(3)

	assert.Equal(t, 57, earned)
	assert.Equal(t, 57, s.PointsEarned)
}

func TestRecomputePointsDelta(t *testing.T) {
	s := mustNewSession(t, NewSessionParams{
		ID:              "b4d6f2e8-3a1c-4f59-8e72-9c0b5d1a6e35",
		UserID:          "user-1",
		StartTime:       time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 40,
		FocusRating:     intPtr(3),
	})
	s.ApplyPoints(3) // 40 * 1.2 = 48, no focus bonus

	focusChanged, err := s.UpdateRatings(intPtr(5), nil, nil, nil)
	require.NoError(t, err)
	require.True(t, focusChanged)

	delta := s.RecomputePointsDelta(3)

	assert.Equal(t, 9, delta) // 57 - 48
	assert.Equal(t, 57, s.PointsEarned)
}

func mustNewSession(t *testing.T, params NewSessionParams) *PracticeSession {
	t.Helper()
	s, err := NewSession(params)
	require.NoError(t, err)
	return s
}
