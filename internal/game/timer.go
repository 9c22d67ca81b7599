package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// TimerState is one of stopped, running, paused.
type TimerState string

const (
	TimerStopped TimerState = "stopped"
	TimerRunning TimerState = "running"
	TimerPaused  TimerState = "paused"
)

// TimerUpdate is pushed to subscribers on every tick.
type TimerUpdate struct {
	TimeLeft   int        `json:"timeLeft"`
	TimerState TimerState `json:"timerState"`
}

// TimerPublishFunc is the one-shot publish capability bound at Start. The
// timer holds no reference to its room or the transport; it only knows how
// to push updates through this func.
type TimerPublishFunc func(update TimerUpdate)

// Timer is a per-room countdown. It owns at most one tick goroutine; the
// already-running guard in Start is what prevents duplicate tick loops, not
// merely a log line.
type Timer struct {
	id    uuid.UUID
	clock clockwork.Clock

	mu              sync.Mutex
	durationMinutes int
	elapsedSeconds  int
	state           TimerState
	stopTick        chan struct{}
	publish         TimerPublishFunc
}

func NewTimer(durationMinutes int, clock clockwork.Clock) *Timer {
	return &Timer{
		id:              uuid.New(),
		clock:           clock,
		durationMinutes: durationMinutes,
		state:           TimerStopped,
	}
}

func (t *Timer) ID() uuid.UUID {
	return t.id
}

// Start begins the 1-second tick loop and binds the publish capability for
// this round. A no-op with a warning when already running.
func (t *Timer) Start(publish TimerPublishFunc) {
	t.mu.Lock()
	if t.state == TimerRunning {
		t.mu.Unlock()
		log.Warn().Str("timer_id", t.id.String()).Msg("timer already running")
		return
	}
	if publish != nil {
		t.publish = publish
	}
	t.state = TimerRunning
	stop := make(chan struct{})
	t.stopTick = stop
	t.mu.Unlock()

	go t.run(stop)

	log.Debug().
		Str("timer_id", t.id.String()).
		Int("duration_minutes", t.durationMinutes).
		Msg("timer started")
}

// Pause cancels the tick loop but keeps elapsed progress.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TimerRunning {
		log.Warn().
			Str("timer_id", t.id.String()).
			Str("state", string(t.state)).
			Msg("pause ignored, timer not running")
		return
	}
	t.state = TimerPaused
	t.cancelTickLocked()
}

// Resume restarts the tick loop from the preserved elapsed time.
func (t *Timer) Resume() {
	t.mu.Lock()
	if t.state != TimerPaused {
		t.mu.Unlock()
		log.Warn().
			Str("timer_id", t.id.String()).
			Str("state", string(t.state)).
			Msg("resume ignored, timer not paused")
		return
	}
	t.state = TimerRunning
	stop := make(chan struct{})
	t.stopTick = stop
	t.mu.Unlock()

	go t.run(stop)
}

// Stop cancels the tick loop and zeroes elapsed time. This is a hard reset,
// deliberately not idempotent with Pause: stopping always discards progress.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelTickLocked()
	t.elapsedSeconds = 0
	t.state = TimerStopped
}

// SetDuration changes the configured duration in minutes.
func (t *Timer) SetDuration(minutes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.durationMinutes = minutes
}

// Reset is Stop followed by SetDuration.
func (t *Timer) Reset(minutes int) {
	t.Stop()
	t.SetDuration(minutes)
}

func (t *Timer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// TimeLeft reports the remaining seconds at the moment of computation.
func (t *Timer) TimeLeft() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.durationMinutes*60 - t.elapsedSeconds
}

// Update snapshots the current tick payload, for state queries outside the
// tick loop.
func (t *Timer) Update() TimerUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TimerUpdate{
		TimeLeft:   t.durationMinutes*60 - t.elapsedSeconds,
		TimerState: t.state,
	}
}

// cancelTickLocked closes the stop channel exactly once. Callers hold t.mu.
func (t *Timer) cancelTickLocked() {
	if t.stopTick != nil {
		close(t.stopTick)
		t.stopTick = nil
	}
}

func (t *Timer) run(stop chan struct{}) {
	ticker := t.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if !t.tick() {
				return
			}
		}
	}
}

// tick advances elapsed time by one second and publishes the new remaining
// time. Returns false when the loop must exit. When the countdown reaches
// zero it publishes a final {0, stopped} update and stops before elapsed can
// advance any further.
func (t *Timer) tick() bool {
	t.mu.Lock()
	if t.state != TimerRunning {
		t.mu.Unlock()
		return false
	}
	t.elapsedSeconds++
	left := t.durationMinutes*60 - t.elapsedSeconds
	publish := t.publish

	if left <= 0 {
		t.elapsedSeconds = 0
		t.state = TimerStopped
		t.stopTick = nil
		t.mu.Unlock()

		if publish != nil {
			publish(TimerUpdate{TimeLeft: 0, TimerState: TimerStopped})
		}
		log.Debug().Str("timer_id", t.id.String()).Msg("timer finished")
		return false
	}
	t.mu.Unlock()

	if publish != nil {
		publish(TimerUpdate{TimeLeft: left, TimerState: TimerRunning})
	}
	return true
}
