package game

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTimer(t *testing.T, tm *Timer, fc *clockwork.FakeClock) chan TimerUpdate {
	t.Helper()
	updates := make(chan TimerUpdate)
	tm.Start(func(u TimerUpdate) {
		updates <- u
	})
	fc.BlockUntil(1)
	return updates
}

func advanceOneTick(t *testing.T, fc *clockwork.FakeClock, updates chan TimerUpdate) TimerUpdate {
	t.Helper()
	fc.Advance(time.Second)
	select {
	case u := <-updates:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("no timer update published")
		return TimerUpdate{}
	}
}

func TestTimerCountsDown(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tm := NewTimer(1, fc)

	assert.Equal(t, TimerStopped, tm.State())
	assert.Equal(t, 60, tm.TimeLeft())

	updates := startTimer(t, tm, fc)
	assert.Equal(t, TimerRunning, tm.State())

	u := advanceOneTick(t, fc, updates)
	assert.Equal(t, 59, u.TimeLeft)
	assert.Equal(t, TimerRunning, u.TimerState)

	u = advanceOneTick(t, fc, updates)
	assert.Equal(t, 58, u.TimeLeft)
}

func TestTimerPauseKeepsProgress(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tm := NewTimer(2, fc)
	updates := startTimer(t, tm, fc)

	advanceOneTick(t, fc, updates)
	advanceOneTick(t, fc, updates)

	tm.Pause()
	assert.Equal(t, TimerPaused, tm.State())
	assert.Equal(t, 118, tm.TimeLeft())

	tm.Resume()
	fc.BlockUntil(1)
	assert.Equal(t, TimerRunning, tm.State())

	u := advanceOneTick(t, fc, updates)
	assert.Equal(t, 117, u.TimeLeft)
}

func TestTimerPauseOnlyWhenRunning(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tm := NewTimer(1, fc)

	tm.Pause()
	assert.Equal(t, TimerStopped, tm.State())

	tm.Resume()
	assert.Equal(t, TimerStopped, tm.State())
}

func TestTimerStopResetsProgress(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tm := NewTimer(1, fc)
	updates := startTimer(t, tm, fc)

	advanceOneTick(t, fc, updates)
	require.Equal(t, 59, tm.TimeLeft())

	tm.Stop()
	assert.Equal(t, TimerStopped, tm.State())
	assert.Equal(t, 60, tm.TimeLeft())
}

func TestTimerStartWhileRunningIsNoop(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tm := NewTimer(1, fc)
	updates := startTimer(t, tm, fc)

	// A second Start must not spawn a second tick loop.
	tm.Start(func(u TimerUpdate) {
		t.Error("publish rebound by duplicate start")
	})

	u := advanceOneTick(t, fc, updates)
	assert.Equal(t, 59, u.TimeLeft)
}

func TestTimerRunsToCompletion(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tm := NewTimer(1, fc)
	tm.SetDuration(1)
	updates := startTimer(t, tm, fc)

	for left := 59; left > 0; left-- {
		u := advanceOneTick(t, fc, updates)
		require.Equal(t, left, u.TimeLeft)
		require.Equal(t, TimerRunning, u.TimerState)
	}

	final := advanceOneTick(t, fc, updates)
	assert.Equal(t, 0, final.TimeLeft)
	assert.Equal(t, TimerStopped, final.TimerState)
	assert.Equal(t, TimerStopped, tm.State())

	// Elapsed time is discarded on completion, ready for the next round.
	assert.Equal(t, 60, tm.TimeLeft())
}

func TestTimerResetChangesDuration(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tm := NewTimer(1, fc)
	updates := startTimer(t, tm, fc)
	advanceOneTick(t, fc, updates)

	tm.Reset(5)
	assert.Equal(t, TimerStopped, tm.State())
	assert.Equal(t, 300, tm.TimeLeft())
}
