package schedule_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-go/storefront/pkg/schedule"
)

func TestRunRejectsBadSpec(t *testing.T) {
	s := schedule.New()
	err := s.Cron("not a cron").Name("bad").Run(func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestRunRejectsDuplicateName(t *testing.T) {
	s := schedule.New()
	noop := func(context.Context) error { return nil }
	require.NoError(t, s.EveryMinute().Name("tick").Run(noop))
	assert.Error(t, s.EveryMinute().Name("tick").Run(noop))
}

func TestEntriesAreSorted(t *testing.T) {
	s := schedule.New()
	noop := func(context.Context) error { return nil }
	require.NoError(t, s.Cron("@hourly").Name("b").Run(noop))
	require.NoError(t, s.Every(time.Minute).Name("a").Run(noop))

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "@every 1m0s", entries[0].Spec)
	assert.Equal(t, "b", entries[1].Name)
}

func TestRunNow(t *testing.T) {
	s := schedule.New()
	var calls atomic.Int32
	require.NoError(t, s.Cron("@daily").Name("sweep").Run(func(context.Context) error {
		calls.Add(1)
		return errors.New("partial")
	}))

	err := s.RunNow(context.Background(), "sweep")
	assert.EqualError(t, err, "partial")
	assert.Equal(t, int32(1), calls.Load())

	assert.Error(t, s.RunNow(context.Background(), "missing"))
}

func TestStartFiresAndStops(t *testing.T) {
	s := schedule.New()
	var calls atomic.Int32
	require.NoError(t, s.Every(time.Second).Name("tick").WithoutOverlapping().Run(func(context.Context) error {
		calls.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
