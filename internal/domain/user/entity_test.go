package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

func mustNewUser(t *testing.T) *User {
	t.Helper()
	u, err := NewUser(NewUserParams{
		ID:    "3f9c7a52-1d4e-4b8a-9f21-6a0d8c3e5b17",
		Name:  "Dana Reyes",
		Email: shared.Email("dana@example.com"),
		Role:  RolePersonal,
	})
	require.NoError(t, err)
	return u
}

func TestNewUser_Defaults(t *testing.T) {
	u := mustNewUser(t)

	assert.Equal(t, DefaultWeeklyGoalMinutes, u.WeeklyGoalMinutes)
	assert.Equal(t, 0, u.Practice.StreakCount)
	assert.Equal(t, 0, u.Practice.TotalPoints)
	assert.Equal(t, 1, u.Practice.Level)
	assert.Nil(t, u.Practice.LastPracticeDate)
}

func TestNewUser_EmptyRoleBecomesPersonal(t *testing.T) {
	u, err := NewUser(NewUserParams{
		ID:    "3f9c7a52-1d4e-4b8a-9f21-6a0d8c3e5b18",
		Name:  "Sam Ito",
		Email: shared.Email("sam@example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, RolePersonal, u.Role)
}

func TestNewUser_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params NewUserParams
	}{
		{
			name: "empty name",
			params: NewUserParams{
				ID:    "3f9c7a52-1d4e-4b8a-9f21-6a0d8c3e5b19",
				Name:  "   ",
				Email: shared.Email("x@example.com"),
			},
		},
		{
			name: "invalid email",
			params: NewUserParams{
				ID:    "3f9c7a52-1d4e-4b8a-9f21-6a0d8c3e5b20",
				Name:  "X",
				Email: shared.Email("not-an-email"),
			},
		},
		{
			name: "unknown role",
			params: NewUserParams{
				ID:    "3f9c7a52-1d4e-4b8a-9f21-6a0d8c3e5b21",
				Name:  "X",
				Email: shared.Email("x@example.com"),
				Role:  Role("admin"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.params)
			assert.Error(t, err)
		})
	}
}

func TestLinkToTeacher(t *testing.T) {
	u := mustNewUser(t)

	err := u.LinkToTeacher("teacher-1")
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", u.TeacherID)
	assert.Equal(t, RoleStudent, u.Role)

	err = u.LinkToTeacher("")
	assert.ErrorIs(t, err, shared.ErrTeacherNotFound)
}

func TestWeeklyProgressPercent(t *testing.T) {
	u := mustNewUser(t)
	u.WeeklyGoalMinutes = 300

	assert.InDelta(t, 50.0, u.WeeklyProgressPercent(150), 0.001)
	assert.InDelta(t, 100.0, u.WeeklyProgressPercent(450), 0.001, "progress caps at 100")
	assert.InDelta(t, 0.0, u.WeeklyProgressPercent(0), 0.001)

	u.WeeklyGoalMinutes = 0
	assert.InDelta(t, 0.0, u.WeeklyProgressPercent(200), 0.001)
}

func TestClone_IsDeep(t *testing.T) {
	u := mustNewUser(t)
	u.ApplyPractice(date(2026, 3, 10), time.UTC)

	clone := u.Clone()
	*clone.Practice.LastPracticeDate = date(2020, 1, 1)

	assert.Equal(t, date(2026, 3, 10), *u.Practice.LastPracticeDate)
}
