package badge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func baseContext() Context {
	return Context{
		StreakCount:     1,
		SessionCount:    5,
		DurationMinutes: 30,
		StartTime:       time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC),
		Loc:             time.UTC,
	}
}

func TestEvaluate_FirstSession(t *testing.T) {
	ctx := baseContext()
	ctx.SessionCount = 1

	earned := Evaluate(ctx, nil)

	assert.Contains(t, earned, TypeFirstSession)
}

func TestEvaluate_StreakThresholds(t *testing.T) {
	tests := []struct {
		streak int
		want   []Type
	}{
		{2, nil},
		{3, []Type{TypeStreak3}},
		{7, []Type{TypeStreak3, TypeStreak7}},
		{30, []Type{TypeStreak3, TypeStreak7, TypeStreak30}},
	}

	for _, tt := range tests {
		ctx := baseContext()
		ctx.StreakCount = tt.streak

		earned := Evaluate(ctx, nil)

		for _, w := range tt.want {
			assert.Contains(t, earned, w, "streak=%d", tt.streak)
		}
		if tt.want == nil {
			assert.NotContains(t, earned, TypeStreak3, "streak=%d", tt.streak)
		}
	}
}

func TestEvaluate_Marathon(t *testing.T) {
	ctx := baseContext()
	ctx.DurationMinutes = 60
	assert.Contains(t, Evaluate(ctx, nil), TypeMarathon)

	ctx.DurationMinutes = 59
	assert.NotContains(t, Evaluate(ctx, nil), TypeMarathon)
}

func TestEvaluate_PerfectFocus(t *testing.T) {
	ctx := baseContext()
	ctx.FocusRating = intPtr(5)
	assert.Contains(t, Evaluate(ctx, nil), TypePerfectFocus)

	ctx.FocusRating = intPtr(4)
	assert.NotContains(t, Evaluate(ctx, nil), TypePerfectFocus)

	ctx.FocusRating = nil
	assert.NotContains(t, Evaluate(ctx, nil), TypePerfectFocus)
}

func TestEvaluate_TimeOfDay(t *testing.T) {
	ctx := baseContext()

	ctx.StartTime = time.Date(2026, time.March, 10, 7, 59, 0, 0, time.UTC)
	assert.Contains(t, Evaluate(ctx, nil), TypeEarlyBird)

	ctx.StartTime = time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	assert.NotContains(t, Evaluate(ctx, nil), TypeEarlyBird)

	ctx.StartTime = time.Date(2026, time.March, 10, 22, 0, 0, 0, time.UTC)
	assert.Contains(t, Evaluate(ctx, nil), TypeNightOwl)

	ctx.StartTime = time.Date(2026, time.March, 10, 21, 59, 0, 0, time.UTC)
	assert.NotContains(t, Evaluate(ctx, nil), TypeNightOwl)
}

func TestEvaluate_HourReadInConfiguredZone(t *testing.T) {
	// 06:30 UTC is 09:30 in UTC+3, past the early bird cutoff there.
	ctx := baseContext()
	ctx.StartTime = time.Date(2026, time.March, 10, 6, 30, 0, 0, time.UTC)

	ctx.Loc = time.UTC
	assert.Contains(t, Evaluate(ctx, nil), TypeEarlyBird)

	ctx.Loc = time.FixedZone("UTC+3", 3*60*60)
	assert.NotContains(t, Evaluate(ctx, nil), TypeEarlyBird)
}

func TestEvaluate_SkipsHeldBadges(t *testing.T) {
	ctx := baseContext()
	ctx.StreakCount = 7
	ctx.DurationMinutes = 90

	held := map[Type]bool{TypeStreak3: true, TypeMarathon: true}
	earned := Evaluate(ctx, held)

	assert.NotContains(t, earned, TypeStreak3)
	assert.NotContains(t, earned, TypeMarathon)
	assert.Contains(t, earned, TypeStreak7)
}

func TestEvaluate_Idempotent(t *testing.T) {
	ctx := baseContext()
	ctx.StreakCount = 3

	first := Evaluate(ctx, nil)
	held := map[Type]bool{}
	for _, b := range first {
		held[b] = true
	}

	assert.Empty(t, Evaluate(ctx, held), "re-evaluating the same context grants nothing")
}

func TestEvaluate_MultipleAtOnce(t *testing.T) {
	ctx := Context{
		StreakCount:     3,
		SessionCount:    3,
		DurationMinutes: 75,
		FocusRating:     intPtr(5),
		StartTime:       time.Date(2026, time.March, 10, 6, 0, 0, 0, time.UTC),
		Loc:             time.UTC,
	}

	earned := Evaluate(ctx, nil)

	assert.ElementsMatch(t, []Type{TypeStreak3, TypeMarathon, TypePerfectFocus, TypeEarlyBird}, earned)
}

func TestDefinitions_CoverEveryType(t *testing.T) {
	defs := AllDefinitions()
	assert.Len(t, defs, 8)
	for _, d := range defs {
		assert.True(t, d.Type.IsValid())
		assert.NotEmpty(t, d.Title)
		assert.NotNil(t, d.Qualifies)
	}
}
