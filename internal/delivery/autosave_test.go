package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/brightclass/assessment-delivery/internal/models"
)

type saveRecorder struct {
	mu    sync.Mutex
	calls int
	err   error
	block chan struct{}
}

func (r *saveRecorder) save(_ context.Context, _ *models.AssessmentAttempt) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func (r *saveRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newTestAutosaver(rec *saveRecorder) *Autosaver {
	attempt := &models.AssessmentAttempt{ID: 1}
	return NewAutosaver(AutosaverConfig{
		Snapshot: func() *models.AssessmentAttempt { return attempt },
		Save:     rec.save,
		Interval: time.Hour, // ticks driven manually in tests
		Enabled:  true,
	})
}

func TestAutosaver_DirtyTransitions(t *testing.T) {
	rec := &saveRecorder{}
	a := newTestAutosaver(rec)

	assert.Equal(t, SaveStatusSaved, a.Status())

	a.MarkDirty()
	assert.Equal(t, SaveStatusPending, a.Status())

	assert.NoError(t, a.SaveNow(context.Background()))
	assert.Equal(t, SaveStatusSaved, a.Status())
	assert.Equal(t, 1, rec.count())
}

func TestAutosaver_SaveErrorRevertsToPending(t *testing.T) {
	rec := &saveRecorder{err: errors.New("disk full")}
	a := newTestAutosaver(rec)

	a.MarkDirty()
	assert.Error(t, a.SaveNow(context.Background()))
	assert.Equal(t, SaveStatusPending, a.Status())

	// Next tick retries and succeeds.
	rec.mu.Lock()
	rec.err = nil
	rec.mu.Unlock()
	assert.NoError(t, a.SaveNow(context.Background()))
	assert.Equal(t, SaveStatusSaved, a.Status())
}

func TestAutosaver_OverlappingSavesSkipped(t *testing.T) {
	rec := &saveRecorder{block: make(chan struct{})}
	a := newTestAutosaver(rec)

	done := make(chan struct{})
	go func() {
		_ = a.SaveNow(context.Background())
		close(done)
	}()

	// Wait for the first save to be in flight, then try to overlap.
	assert.Eventually(t, func() bool { return a.Status() == SaveStatusSaving },
		time.Second, time.Millisecond)
	assert.NoError(t, a.SaveNow(context.Background())) // skipped, no second save

	close(rec.block)
	<-done
	assert.Equal(t, 1, rec.count())
}

func TestAutosaver_DirtyDuringSaveStaysPending(t *testing.T) {
	rec := &saveRecorder{block: make(chan struct{})}
	a := newTestAutosaver(rec)

	done := make(chan struct{})
	go func() {
		_ = a.SaveNow(context.Background())
		close(done)
	}()
	assert.Eventually(t, func() bool { return a.Status() == SaveStatusSaving },
		time.Second, time.Millisecond)

	a.MarkDirty() // change lands while the save is in flight
	close(rec.block)
	<-done

	assert.Equal(t, SaveStatusPending, a.Status())
}

func TestAutosaver_DisabledNeverSaves(t *testing.T) {
	rec := &saveRecorder{}
	attempt := &models.AssessmentAttempt{ID: 1}
	a := NewAutosaver(AutosaverConfig{
		Snapshot: func() *models.AssessmentAttempt { return attempt },
		Save:     rec.save,
		Enabled:  false,
	})
	a.Start()

	a.MarkDirty()
	assert.NoError(t, a.SaveNow(context.Background()))
	assert.Equal(t, 0, rec.count())
	a.Close()
	assert.Equal(t, 0, rec.count())
}

func TestAutosaver_CloseFlushes(t *testing.T) {
	rec := &saveRecorder{}
	a := newTestAutosaver(rec)
	a.Start()

	a.MarkDirty()
	a.Close()

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, SaveStatusSaved, a.Status())
}

func TestAutosaver_PeriodicTick(t *testing.T) {
	rec := &saveRecorder{}
	attempt := &models.AssessmentAttempt{ID: 1}
	a := NewAutosaver(AutosaverConfig{
		Snapshot: func() *models.AssessmentAttempt { return attempt },
		Save:     rec.save,
		Interval: 2 * time.Millisecond,
		Enabled:  true,
	})
	a.Start()
	defer a.Close()

	a.MarkDirty()
	assert.Eventually(t, func() bool { return rec.count() >= 1 },
		time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return a.Status() == SaveStatusSaved },
		time.Second, time.Millisecond)
}
