// Package delivery implements the attempt-delivery core: the countdown timer,
// the autosave scheduler and the session controller that owns one student's
// in-memory attempt. One session, one timer, one autosaver; all three carry
// explicit stop handles and are safe for concurrent use.
package delivery

import (
	"sync"
	"time"
)

type TimerState string

const (
	TimerRunning TimerState = "running"
	TimerPaused  TimerState = "paused"
	TimerExpired TimerState = "expired"
	TimerStopped TimerState = "stopped"
)

const (
	// WarningThreshold marks the remaining-seconds boundary below which the
	// UI shows a warning state; CriticalThreshold the critical one.
	WarningThreshold  = 300
	CriticalThreshold = 60
)

type TimerOption func(*Timer)

// WithOnTick registers a callback invoked after every decrement with the new
// remaining value.
func WithOnTick(fn func(remaining int)) TimerOption {
	return func(t *Timer) { t.onTick = fn }
}

// WithTickInterval overrides the one-second tick cadence. Used by tests.
func WithTickInterval(d time.Duration) TimerOption {
	return func(t *Timer) { t.interval = d }
}

// Timer is a per-session countdown. It decrements once per tick while
// running, survives pause/resume without losing the remaining value, and
// fires its expiry callback exactly once when the count reaches zero.
type Timer struct {
	mu        sync.Mutex
	remaining int
	state     TimerState
	interval  time.Duration

	onTick   func(int)
	onExpire func()
	fired    bool
	started  bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewTimer(initialSeconds int, onExpire func(), opts ...TimerOption) *Timer {
	if initialSeconds < 0 {
		initialSeconds = 0
	}
	t := &Timer{
		remaining: initialSeconds,
		state:     TimerPaused,
		interval:  time.Second,
		onExpire:  onExpire,
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins the tick loop. Calling Start on an expired or stopped timer is
// a no-op; on a paused timer it resumes the existing loop instead of
// spawning a second one.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.state != TimerPaused || t.fired {
		t.mu.Unlock()
		return
	}
	t.state = TimerRunning
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	go t.loop()
}

func (t *Timer) loop() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			if done := t.tick(); done {
				return
			}
		}
	}
}

// tick performs one decrement and reports whether the loop should end. Ticks
// while paused are skipped without losing the remaining value.
func (t *Timer) tick() bool {
	t.mu.Lock()
	switch t.state {
	case TimerPaused:
		t.mu.Unlock()
		return false
	case TimerExpired, TimerStopped:
		t.mu.Unlock()
		return true
	}

	if t.remaining > 0 {
		t.remaining--
	}
	remaining := t.remaining
	onTick := t.onTick

	expire := false
	if remaining <= 0 && !t.fired {
		// One-shot guard: pause/resume races near the boundary must not
		// refire the callback.
		t.fired = true
		t.state = TimerExpired
		expire = true
	}
	onExpire := t.onExpire
	t.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if expire {
		if onExpire != nil {
			onExpire()
		}
		return true
	}
	return false
}

// Pause halts ticking without losing the remaining value. Idempotent.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TimerRunning {
		t.state = TimerPaused
	}
}

// Resume restarts a paused timer. Idempotent; a no-op once expired.
func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TimerPaused && !t.fired {
		t.state = TimerRunning
	}
}

// Stop ends the tick loop permanently. The owning session must call this
// when it unmounts.
func (t *Timer) Stop() {
	t.mu.Lock()
	if t.state != TimerExpired {
		t.state = TimerStopped
	}
	t.mu.Unlock()

	t.stopOnce.Do(func() { close(t.stopCh) })
}

func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *Timer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsWarning reports whether the remaining time sits in the warning band.
func (t *Timer) IsWarning() bool {
	r := t.Remaining()
	return r > CriticalThreshold && r <= WarningThreshold
}

// IsCritical reports whether the remaining time is at or below the critical
// boundary.
func (t *Timer) IsCritical() bool {
	return t.Remaining() <= CriticalThreshold
}
