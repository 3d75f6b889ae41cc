package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practicebeats/practice-hub/internal/domain/challenge"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

func TestRegisterUser(t *testing.T) {
	users := newFakeUserRepo()
	bus := &fakeEventBus{}
	h := NewRegisterUserHandler(users, NewCodeGenerator(), bus)

	t.Run("personal account", func(t *testing.T) {
		result, err := h.Handle(context.Background(), RegisterUserCommand{
			Name:       "Dana Reyes",
			Email:      "Dana@Example.com",
			Password:   "chorale-2026",
			Instrument: "trumpet",
			Section:    "brass",
		})
		require.NoError(t, err)

		assert.Equal(t, shared.Email("dana@example.com"), result.User.Email, "email is normalized")
		assert.NotEqual(t, "chorale-2026", result.User.PasswordHash, "password stored hashed")
		assert.Empty(t, result.TeacherCode)
		assert.Contains(t, bus.typesPublished(), shared.EventUserRegistered)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := h.Handle(context.Background(), RegisterUserCommand{
			Name:     "Other Dana",
			Email:    "dana@example.com",
			Password: "different-pass",
		})
		assert.ErrorIs(t, err, shared.ErrEmailTaken)
	})

	t.Run("short password rejected", func(t *testing.T) {
		_, err := h.Handle(context.Background(), RegisterUserCommand{
			Name:     "Sam",
			Email:    "sam@example.com",
			Password: "short",
		})
		assert.Error(t, err)
	})

	t.Run("teacher gets a 6-digit code", func(t *testing.T) {
		result, err := h.Handle(context.Background(), RegisterUserCommand{
			Name:     "Prof. Varga",
			Email:    "varga@example.com",
			Password: "embouchure",
			Role:     "teacher",
		})
		require.NoError(t, err)
		assert.Len(t, result.TeacherCode, 6)
		assert.True(t, result.User.TeacherCode.IsValid(shared.TeacherCodeLength))
	})
}

func TestAuthenticate(t *testing.T) {
	users := newFakeUserRepo()
	reg := NewRegisterUserHandler(users, NewCodeGenerator(), nil)
	_, err := reg.Handle(context.Background(), RegisterUserCommand{
		Name:     "Dana Reyes",
		Email:    "dana@example.com",
		Password: "chorale-2026",
	})
	require.NoError(t, err)

	auth := NewAuthenticateHandler(users)

	t.Run("valid credentials", func(t *testing.T) {
		u, err := auth.Handle(context.Background(), AuthenticateCommand{
			Email:    "dana@example.com",
			Password: "chorale-2026",
		})
		require.NoError(t, err)
		assert.Equal(t, "Dana Reyes", u.Name)
	})

	t.Run("wrong password and unknown email fail identically", func(t *testing.T) {
		_, wrongPass := auth.Handle(context.Background(), AuthenticateCommand{
			Email:    "dana@example.com",
			Password: "wrong",
		})
		_, unknownEmail := auth.Handle(context.Background(), AuthenticateCommand{
			Email:    "ghost@example.com",
			Password: "chorale-2026",
		})

		assert.ErrorIs(t, wrongPass, shared.ErrInvalidCredential)
		assert.ErrorIs(t, unknownEmail, shared.ErrInvalidCredential)
	})
}

func TestLinkTeacher(t *testing.T) {
	users := newFakeUserRepo()
	reg := NewRegisterUserHandler(users, NewCodeGenerator(), nil)

	teacher, err := reg.Handle(context.Background(), RegisterUserCommand{
		Name: "Prof. Varga", Email: "varga@example.com", Password: "embouchure", Role: "teacher",
	})
	require.NoError(t, err)

	student, err := reg.Handle(context.Background(), RegisterUserCommand{
		Name: "Dana Reyes", Email: "dana@example.com", Password: "chorale-2026",
	})
	require.NoError(t, err)

	link := NewLinkTeacherHandler(users)

	t.Run("link by code", func(t *testing.T) {
		linked, err := link.Handle(context.Background(), LinkTeacherCommand{
			StudentID:   student.User.ID,
			TeacherCode: teacher.TeacherCode,
		})
		require.NoError(t, err)
		assert.Equal(t, teacher.User.ID, linked.TeacherID)
		assert.False(t, linked.SharePracticeWithTeacher, "sharing starts off")
	})

	t.Run("bad code", func(t *testing.T) {
		_, err := link.Handle(context.Background(), LinkTeacherCommand{
			StudentID:   student.User.ID,
			TeacherCode: "000000",
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("sharing toggle", func(t *testing.T) {
		sharing := NewSetPracticeSharingHandler(users)
		require.NoError(t, sharing.Handle(context.Background(), SetPracticeSharingCommand{
			StudentID: student.User.ID,
			Share:     true,
		}))

		stored, err := users.GetByID(context.Background(), student.User.ID)
		require.NoError(t, err)
		assert.True(t, stored.SharePracticeWithTeacher)
	})
}

func TestEnsembleLifecycle(t *testing.T) {
	users := newFakeUserRepo()
	ensembles := newFakeEnsembleRepo()
	reg := NewRegisterUserHandler(users, NewCodeGenerator(), nil)

	founder, err := reg.Handle(context.Background(), RegisterUserCommand{
		Name: "Dana Reyes", Email: "dana@example.com", Password: "chorale-2026",
	})
	require.NoError(t, err)

	member, err := reg.Handle(context.Background(), RegisterUserCommand{
		Name: "Sam Ito", Email: "sam@example.com", Password: "paradiddle",
	})
	require.NoError(t, err)

	create := NewCreateEnsembleHandler(users, ensembles, NewCodeGenerator(), nil)
	ens, err := create.Handle(context.Background(), CreateEnsembleCommand{
		Name:      "Riverside Brass",
		CreatedBy: founder.User.ID,
	})
	require.NoError(t, err)
	assert.Len(t, ens.JoinCode.String(), 8)

	storedFounder, _ := users.GetByID(context.Background(), founder.User.ID)
	assert.Equal(t, ens.ID, storedFounder.EnsembleID, "founder joins automatically")

	join := NewJoinEnsembleHandler(users, ensembles, nil)

	t.Run("join by code", func(t *testing.T) {
		joined, err := join.Handle(context.Background(), JoinEnsembleCommand{
			UserID:   member.User.ID,
			JoinCode: ens.JoinCode.String(),
		})
		require.NoError(t, err)
		assert.Equal(t, ens.ID, joined.ID)

		stored, _ := users.GetByID(context.Background(), member.User.ID)
		assert.Equal(t, ens.ID, stored.EnsembleID)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := join.Handle(context.Background(), JoinEnsembleCommand{
			UserID:   member.User.ID,
			JoinCode: "00000000",
		})
		assert.ErrorIs(t, err, shared.ErrInvalidJoinCode)
	})

	t.Run("malformed code", func(t *testing.T) {
		_, err := join.Handle(context.Background(), JoinEnsembleCommand{
			UserID:   member.User.ID,
			JoinCode: "abc",
		})
		assert.ErrorIs(t, err, shared.ErrInvalidJoinCode)
	})
}

func TestCompleteChallenge(t *testing.T) {
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	challenges := newFakeChallengeRepo()
	ensembles := newFakeEnsembleRepo()
	tasks := newFakeTaskRepo()
	badges := newFakeBadgeRepo()
	bus := &fakeEventBus{}

	reg := NewRegisterUserHandler(users, NewCodeGenerator(), nil)
	member, err := reg.Handle(context.Background(), RegisterUserCommand{
		Name: "Dana Reyes", Email: "dana@example.com", Password: "chorale-2026",
	})
	require.NoError(t, err)

	create := NewCreateEnsembleHandler(users, ensembles, NewCodeGenerator(), nil)
	ens, err := create.Handle(context.Background(), CreateEnsembleCommand{
		Name: "Riverside Brass", CreatedBy: member.User.ID,
	})
	require.NoError(t, err)

	createCh := NewCreateChallengeHandler(users, challenges)
	ch, err := createCh.Handle(context.Background(), CreateChallengeCommand{
		EnsembleID:    ens.ID,
		Title:         "March push",
		GoalType:      string(challenge.GoalIndividualMinutes),
		TargetMinutes: 60,
		BonusPoints:   25,
		StartDate:     time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
		CreatedBy:     member.User.ID,
	})
	require.NoError(t, err)

	logSess := NewLogSessionHandler(users, sessions, tasks, badges, bus, time.UTC)
	complete := NewCompleteChallengeHandler(users, sessions, challenges, bus, time.UTC)
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	t.Run("goal not met", func(t *testing.T) {
		_, err := logSess.Handle(context.Background(), LogSessionCommand{
			UserID:          member.User.ID,
			StartTime:       time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
			DurationMinutes: 30,
		})
		require.NoError(t, err)

		result, err := complete.Handle(context.Background(), CompleteChallengeCommand{
			ChallengeID: ch.ID, UserID: member.User.ID, Now: now,
		})
		require.NoError(t, err)
		assert.False(t, result.Completed)
		assert.Equal(t, 30, result.MinutesPracticed)
	})

	t.Run("goal met awards bonus once", func(t *testing.T) {
		_, err := logSess.Handle(context.Background(), LogSessionCommand{
			UserID:          member.User.ID,
			StartTime:       time.Date(2026, time.March, 12, 9, 0, 0, 0, time.UTC),
			DurationMinutes: 40,
		})
		require.NoError(t, err)

		before, _ := users.GetByID(context.Background(), member.User.ID)

		result, err := complete.Handle(context.Background(), CompleteChallengeCommand{
			ChallengeID: ch.ID, UserID: member.User.ID, Now: now,
		})
		require.NoError(t, err)
		assert.True(t, result.Completed)
		assert.Equal(t, 25, result.PointsAwarded)

		after, _ := users.GetByID(context.Background(), member.User.ID)
		assert.Equal(t, before.Practice.TotalPoints+25, after.Practice.TotalPoints)

		_, err = complete.Handle(context.Background(), CompleteChallengeCommand{
			ChallengeID: ch.ID, UserID: member.User.ID, Now: now,
		})
		assert.ErrorIs(t, err, shared.ErrAlreadyCompleted)
	})

	t.Run("outside the window", func(t *testing.T) {
		_, err := complete.Handle(context.Background(), CompleteChallengeCommand{
			ChallengeID: ch.ID,
			UserID:      member.User.ID,
			Now:         time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC),
		})
		assert.ErrorIs(t, err, shared.ErrChallengeInactive)
	})
}
