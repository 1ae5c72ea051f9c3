package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrollTrigger_Observe(t *testing.T) {
	primary := sizedPages(6, 6, 2)
	c := NewController(primary, nil, discardLogger())
	trig := NewScrollTrigger(c, discardLogger())
	ctx := context.Background()

	require.NoError(t, c.Reset(ctx, Context{}))

	assert.False(t, trig.Observe(ctx, 0.5), "partial visibility must not fetch")
	assert.Equal(t, []int{1}, primary.calls())

	assert.True(t, trig.Observe(ctx, 1))
	assert.True(t, trig.Observe(ctx, 1))
	assert.False(t, trig.Observe(ctx, 1), "exhausted feed must not fetch")
	assert.Equal(t, []int{1, 2, 3}, primary.calls())
	assert.Len(t, c.Snapshot().Jobs, 14)
}

func TestScrollTrigger_WatchStopsOnClose(t *testing.T) {
	primary := sizedPages(6, 6, 6, 6)
	c := NewController(primary, nil, discardLogger())
	trig := NewScrollTrigger(c, discardLogger())
	ctx := context.Background()
	require.NoError(t, c.Reset(ctx, Context{}))

	events := make(chan float64)
	done := make(chan struct{})
	go func() {
		trig.Watch(ctx, events)
		close(done)
	}()

	events <- 0.2
	events <- 1.0
	events <- 1.0
	close(events)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after channel close")
	}
	assert.Equal(t, []int{1, 2, 3}, primary.calls())
}

func TestScrollTrigger_WatchStopsOnCancel(t *testing.T) {
	c := NewController(sizedPages(6), nil, discardLogger())
	trig := NewScrollTrigger(c, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		trig.Watch(ctx, make(chan float64))
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
