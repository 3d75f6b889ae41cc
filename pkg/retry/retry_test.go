package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetrier(attempts int) *Retrier {
	return New(Policy{Attempts: attempts, Base: time.Millisecond, Cap: 5 * time.Millisecond})
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := fastRetrier(3).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("still down")
	calls := 0
	err := fastRetrier(3).Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	notFound := errors.New("no such row")
	calls := 0
	err := fastRetrier(5).Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(notFound)
	})

	assert.Equal(t, notFound, err)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := New(Policy{Attempts: 10, Base: 50 * time.Millisecond, Cap: time.Second}).
		Do(ctx, func(context.Context) error {
			calls++
			cancel()
			return errors.New("transient")
		})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPermanentNilStaysNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("plain")))
	assert.True(t, IsPermanent(Permanent(errors.New("wrapped"))))
}

func TestPolicyDelayIsBoundedByCap(t *testing.T) {
	p := Policy{Attempts: 8, Base: 10 * time.Millisecond, Cap: 40 * time.Millisecond}
	for attempt := 1; attempt <= 8; attempt++ {
		d := p.delay(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, p.Cap)
	}
}
