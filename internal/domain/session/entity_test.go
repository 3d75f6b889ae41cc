package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

func validParams() NewSessionParams {
	return NewSessionParams{
		ID:              "b4d6f2e8-3a1c-4f59-8e72-9c0b5d1a6e01",
		UserID:          "user-1",
		StartTime:       time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
	}
}

func TestNewSession_Validation(t *testing.T) {
	t.Run("valid minimal session", func(t *testing.T) {
		s, err := NewSession(validParams())
		require.NoError(t, err)
		assert.Nil(t, s.FocusRating)
		assert.Equal(t, 0, s.PointsEarned)
	})

	t.Run("zero duration rejected", func(t *testing.T) {
		p := validParams()
		p.DurationMinutes = 0
		_, err := NewSession(p)
		assert.ErrorIs(t, err, shared.ErrInvalidDuration)
	})

	t.Run("negative duration rejected", func(t *testing.T) {
		p := validParams()
		p.DurationMinutes = -10
		_, err := NewSession(p)
		assert.ErrorIs(t, err, shared.ErrInvalidDuration)
	})

	t.Run("rating out of range rejected", func(t *testing.T) {
		p := validParams()
		p.FocusRating = intPtr(6)
		_, err := NewSession(p)
		assert.ErrorIs(t, err, shared.ErrInvalidRating)
	})

	t.Run("zero rating rejected", func(t *testing.T) {
		p := validParams()
		p.EnergyRating = intPtr(0)
		_, err := NewSession(p)
		assert.ErrorIs(t, err, shared.ErrInvalidRating)
	})

	t.Run("bad task link rejected", func(t *testing.T) {
		p := validParams()
		p.TaskLinks = []TaskLink{{TaskID: "task-1", MinutesSpent: 0}}
		_, err := NewSession(p)
		assert.ErrorIs(t, err, shared.ErrInvalidMinutesSpent)
	})

	t.Run("link minutes may exceed session duration", func(t *testing.T) {
		p := validParams()
		p.TaskLinks = []TaskLink{
			{TaskID: "task-1", MinutesSpent: 25},
			{TaskID: "task-2", MinutesSpent: 25},
		}
		_, err := NewSession(p)
		assert.NoError(t, err)
	})
}

func TestUpdateRatings(t *testing.T) {
	t.Run("nil keeps existing values", func(t *testing.T) {
		p := validParams()
		p.FocusRating = intPtr(4)
		p.Notes = "chorale intonation"
		s := mustNewSession(t, p)

		focusChanged, err := s.UpdateRatings(nil, intPtr(3), nil, nil)
		require.NoError(t, err)

		assert.False(t, focusChanged)
		assert.Equal(t, 4, s.FocusInt())
		assert.Equal(t, 3, s.ProgressRating.Int())
		assert.Equal(t, "chorale intonation", s.Notes)
	})

	t.Run("same focus value is not a change", func(t *testing.T) {
		p := validParams()
		p.FocusRating = intPtr(4)
		s := mustNewSession(t, p)

		focusChanged, err := s.UpdateRatings(intPtr(4), nil, nil, nil)
		require.NoError(t, err)
		assert.False(t, focusChanged)
	})

	t.Run("setting focus on an unrated session is a change", func(t *testing.T) {
		s := mustNewSession(t, validParams())

		focusChanged, err := s.UpdateRatings(intPtr(5), nil, nil, nil)
		require.NoError(t, err)
		assert.True(t, focusChanged)
	})

	t.Run("invalid rating leaves session untouched", func(t *testing.T) {
		p := validParams()
		p.FocusRating = intPtr(4)
		s := mustNewSession(t, p)

		_, err := s.UpdateRatings(intPtr(9), nil, nil, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidRating)
		assert.Equal(t, 4, s.FocusInt())
	})
}
