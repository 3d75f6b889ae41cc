package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronExpression(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"wildcard", "* * * * *", false},
		{"step", "*/15 * * * *", false},
		{"daily evening", "0 21 * * *", false},
		{"weekly monday", "0 0 * * 1", false},
		{"range", "0 9-17 * * *", false},
		{"list", "0 8,12,20 * * *", false},
		{"too few fields", "* * * *", true},
		{"minute out of range", "61 * * * *", true},
		{"garbage", "tonight * * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := ParseCronExpression(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expr, expr.String())
		})
	}
}

func TestCronExpressionNext(t *testing.T) {
	// Wednesday 2026-01-14 18:30 UTC
	base := time.Date(2026, 1, 14, 18, 30, 0, 0, time.UTC)

	t.Run("daily at 21:00", func(t *testing.T) {
		expr := MustParseCronExpression(EveryDay21PM)
		next := expr.Next(base)
		assert.Equal(t, time.Date(2026, 1, 14, 21, 0, 0, 0, time.UTC), next)
	})

	t.Run("rolls over to next day", func(t *testing.T) {
		expr := MustParseCronExpression(EveryDay21PM)
		next := expr.Next(time.Date(2026, 1, 14, 21, 30, 0, 0, time.UTC))
		assert.Equal(t, time.Date(2026, 1, 15, 21, 0, 0, 0, time.UTC), next)
	})

	t.Run("every 15 minutes", func(t *testing.T) {
		expr := MustParseCronExpression(Every15Minutes)
		next := expr.Next(base)
		assert.Equal(t, time.Date(2026, 1, 14, 18, 45, 0, 0, time.UTC), next)
	})

	t.Run("weekly monday midnight", func(t *testing.T) {
		expr := MustParseCronExpression(EveryMonday)
		next := expr.Next(base)
		assert.Equal(t, time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC), next)
		assert.Equal(t, time.Monday, next.Weekday())
	})
}

func TestIntervalScheduleNext(t *testing.T) {
	s := NewIntervalSchedule(10 * time.Minute)

	base := time.Date(2026, 1, 14, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, base.Add(10*time.Minute), s.Next(base))
}

func TestCronSchedulerJobLifecycle(t *testing.T) {
	cs := NewCronScheduler(WithLocation(time.UTC))

	job := &stubJob{name: "nightly"}
	require.NoError(t, cs.AddJob("nightly", EveryDayMidnight, job))

	status, ok := cs.GetJobStatus("nightly")
	require.True(t, ok)
	assert.True(t, status.Enabled)
	assert.False(t, status.NextRun.IsZero())

	require.NoError(t, cs.DisableJob("nightly"))
	status, _ = cs.GetJobStatus("nightly")
	assert.False(t, status.Enabled)

	require.NoError(t, cs.EnableJob("nightly"))
	status, _ = cs.GetJobStatus("nightly")
	assert.True(t, status.Enabled)

	cs.RemoveJob("nightly")
	_, ok = cs.GetJobStatus("nightly")
	assert.False(t, ok)

	assert.Error(t, cs.AddJob("bad", "not a cron", job))
}
