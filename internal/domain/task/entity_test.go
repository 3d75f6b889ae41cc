package task

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

func TestNewTask_Defaults(t *testing.T) {
	task := mustNewTask(t)

	assert.Equal(t, StatusNotStarted, task.Status)
	assert.Equal(t, 0, task.TotalTimePracticed)
	assert.Equal(t, 0, task.PracticeCount)
	assert.Zero(t, task.ReadinessScore)
}

func TestNewTask_DefaultEstimate(t *testing.T) {
	task, err := NewTask(NewTaskParams{
		ID:         "7c2e9a41-5f8b-4d36-b190-2e4a8c6d0f53",
		UserID:     "user-1",
		Title:      "Warm-up routine",
		Category:   CategoryTechnique,
		Difficulty: 1,
	})
	assert.NoError(t, err)
	assert.Equal(t, DefaultEstimatedMinutes, task.EstimatedMinutes)
}

func TestNewTask_Validation(t *testing.T) {
	base := NewTaskParams{
		ID:         "7c2e9a41-5f8b-4d36-b190-2e4a8c6d0f54",
		UserID:     "user-1",
		Title:      "Title",
		Category:   CategoryRepertoire,
		Difficulty: 3,
	}

	t.Run("blank title", func(t *testing.T) {
		p := base
		p.Title = "  "
		_, err := NewTask(p)
		assert.Error(t, err)
	})

	t.Run("bad category", func(t *testing.T) {
		p := base
		p.Category = Category("scales")
		_, err := NewTask(p)
		assert.ErrorIs(t, err, shared.ErrInvalidCategory)
	})

	t.Run("difficulty out of range", func(t *testing.T) {
		p := base
		p.Difficulty = 6
		_, err := NewTask(p)
		assert.Error(t, err)
	})

	t.Run("negative estimate", func(t *testing.T) {
		p := base
		p.EstimatedMinutes = -10
		_, err := NewTask(p)
		assert.ErrorIs(t, err, shared.ErrInvalidEstimate)
	})
}

func TestCategoryAndStatusValidity(t *testing.T) {
	assert.True(t, CategorySightReading.IsValid())
	assert.False(t, Category("theory").IsValid())
	assert.True(t, StatusReady.IsValid())
	assert.False(t, Status("done").IsValid())
}
