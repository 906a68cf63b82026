package delivery

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// newManualTimer returns a running timer whose loop never fires on its own,
// so tests drive tick() deterministically.
func newManualTimer(t *testing.T, initial int, onExpire func(), opts ...TimerOption) *Timer {
	t.Helper()
	opts = append(opts, WithTickInterval(time.Hour))
	tm := NewTimer(initial, onExpire, opts...)
	tm.Start()
	t.Cleanup(tm.Stop)
	return tm
}

func TestTimer_TickDecrements(t *testing.T) {
	var ticks []int
	tm := newManualTimer(t, 65, nil, WithOnTick(func(r int) { ticks = append(ticks, r) }))

	for i := 0; i < 5; i++ {
		tm.tick()
	}

	assert.Equal(t, 60, tm.Remaining())
	assert.Equal(t, []int{64, 63, 62, 61, 60}, ticks)
	assert.True(t, tm.IsCritical())
	assert.False(t, tm.IsWarning())
}

func TestTimer_Thresholds(t *testing.T) {
	tm := NewTimer(600, nil)
	assert.False(t, tm.IsWarning())
	assert.False(t, tm.IsCritical())

	tm = NewTimer(300, nil)
	assert.True(t, tm.IsWarning())
	assert.False(t, tm.IsCritical())

	tm = NewTimer(61, nil)
	assert.True(t, tm.IsWarning())

	tm = NewTimer(60, nil)
	assert.False(t, tm.IsWarning())
	assert.True(t, tm.IsCritical())
}

func TestTimer_ExpiresExactlyOnce(t *testing.T) {
	var fired int32
	tm := newManualTimer(t, 2, func() { atomic.AddInt32(&fired, 1) })

	// Toggle pause/resume around the boundary; the one-shot guard must hold.
	tm.tick()
	tm.Pause()
	tm.Resume()
	tm.tick() // reaches 0, expires
	tm.Pause()
	tm.Resume()
	tm.tick()
	tm.tick()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
	assert.Equal(t, TimerExpired, tm.State())
	assert.Equal(t, 0, tm.Remaining())
}

func TestTimer_PauseHoldsRemaining(t *testing.T) {
	tm := newManualTimer(t, 10, nil)

	tm.tick()
	tm.Pause()
	tm.Pause() // idempotent
	assert.Equal(t, TimerPaused, tm.State())

	// Ticks while paused are skipped.
	tm.tick()
	tm.tick()
	assert.Equal(t, 9, tm.Remaining())

	tm.Resume()
	tm.Resume() // idempotent
	tm.tick()
	assert.Equal(t, 8, tm.Remaining())
}

func TestTimer_ResumeAfterExpiryIsNoop(t *testing.T) {
	tm := newManualTimer(t, 1, nil)

	tm.tick()
	assert.Equal(t, TimerExpired, tm.State())

	tm.Resume()
	assert.Equal(t, TimerExpired, tm.State())
}

func TestTimer_RunsOnRealTicker(t *testing.T) {
	expired := make(chan struct{})
	tm := NewTimer(2, func() { close(expired) }, WithTickInterval(2*time.Millisecond))
	tm.Start()
	defer tm.Stop()

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not expire")
	}
	assert.Equal(t, 0, tm.Remaining())
}

func TestTimer_StopEndsLoop(t *testing.T) {
	tm := NewTimer(100, nil, WithTickInterval(time.Millisecond))
	tm.Start()
	tm.Stop()

	remaining := tm.Remaining()
	time.Sleep(10 * time.Millisecond)
	// A couple of in-flight ticks may land, but the loop must be done.
	assert.InDelta(t, remaining, tm.Remaining(), 2)
	assert.Equal(t, TimerStopped, tm.State())
}

func TestTimer_StartAfterPauseKeepsSingleLoop(t *testing.T) {
	var decrements atomic.Int64
	tm := NewTimer(1000, nil,
		WithTickInterval(10*time.Millisecond),
		WithOnTick(func(int) { decrements.Add(1) }))

	tm.Start()
	tm.Pause()
	tm.Start()
	defer tm.Stop()
	assert.Equal(t, TimerRunning, tm.State())

	time.Sleep(300 * time.Millisecond)
	tm.Pause()

	// One loop gives ~30 decrements here; a duplicate loop would double that.
	n := decrements.Load()
	assert.Greater(t, n, int64(10))
	assert.Less(t, n, int64(45))
}
