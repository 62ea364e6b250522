package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_AdvanceFiresDueTimersInOrder(t *testing.T) {
	c := NewFake(epoch)

	var fired []string
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	c.AfterFunc(5*time.Second, func() { fired = append(fired, "c") })

	c.Advance(3 * time.Second)

	require.Equal(t, []string{"a", "b"}, fired)
	require.Equal(t, 1, c.Pending())
	require.Equal(t, epoch.Add(3*time.Second), c.Now())
}

func TestFake_StoppedTimerNeverFires(t *testing.T) {
	c := NewFake(epoch)

	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	require.True(t, timer.Stop())
	require.False(t, timer.Stop())

	c.Advance(time.Minute)
	require.False(t, fired)
	require.Zero(t, c.Pending())
}

func TestFake_CallbackSeesDeadlineAndMayReschedule(t *testing.T) {
	c := NewFake(epoch)

	var ticks []time.Time
	var tick func()
	tick = func() {
		ticks = append(ticks, c.Now())
		c.AfterFunc(time.Second, tick)
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(3500 * time.Millisecond)

	require.Equal(t, []time.Time{
		epoch.Add(time.Second),
		epoch.Add(2 * time.Second),
		epoch.Add(3 * time.Second),
	}, ticks)

	d, ok := c.NextDeadline()
	require.True(t, ok)
	require.Equal(t, 500*time.Millisecond, d)
}

func TestStop_NilTimer(t *testing.T) {
	require.NotPanics(t, func() { Stop(nil) })
}
