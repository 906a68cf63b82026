package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/brightclass/assessment-delivery/internal/models"
)

type SaveStatus string

const (
	SaveStatusSaved   SaveStatus = "saved"
	SaveStatusPending SaveStatus = "pending"
	SaveStatusSaving  SaveStatus = "saving"
)

// DefaultAutosaveInterval is the flush cadence when none is configured.
const DefaultAutosaveInterval = 30 * time.Second

// AutosaverConfig wires an Autosaver to its data source and sink.
type AutosaverConfig struct {
	// Snapshot returns the current attempt state to persist. A nil snapshot
	// skips the flush.
	Snapshot func() *models.AssessmentAttempt
	// Save persists one full snapshot. Errors are logged and retried on the
	// next tick, never surfaced to the student.
	Save     func(ctx context.Context, attempt *models.AssessmentAttempt) error
	Interval time.Duration
	Enabled  bool
	Logger   *slog.Logger
}

// Autosaver periodically re-persists the owning session's attempt. Data
// changes mark it dirty but do not save immediately; only the interval tick,
// a manual SaveNow or Close flushes. Overlapping flushes are skipped.
type Autosaver struct {
	mu       sync.Mutex
	snapshot func() *models.AssessmentAttempt
	save     func(ctx context.Context, attempt *models.AssessmentAttempt) error
	interval time.Duration
	enabled  bool
	logger   *slog.Logger

	status   SaveStatus
	dirty    bool // data changed while a save was in flight
	inFlight bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewAutosaver(cfg AutosaverConfig) *Autosaver {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultAutosaveInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Autosaver{
		snapshot: cfg.Snapshot,
		save:     cfg.Save,
		interval: cfg.Interval,
		enabled:  cfg.Enabled,
		logger:   cfg.Logger,
		status:   SaveStatusSaved,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the periodic flush loop. A disabled autosaver never ticks.
func (a *Autosaver) Start() {
	if !a.enabled {
		return
	}
	go a.loop()
}

func (a *Autosaver) loop() {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			if err := a.flush(context.Background()); err != nil {
				a.logger.Error("autosave failed, will retry on next tick", "error", err)
			}
		}
	}
}

// MarkDirty records that the attempt changed since the last save.
func (a *Autosaver) MarkDirty() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == SaveStatusSaving {
		a.dirty = true
		return
	}
	a.status = SaveStatusPending
}

// SaveNow flushes immediately, bypassing the interval.
func (a *Autosaver) SaveNow(ctx context.Context) error {
	return a.flush(ctx)
}

// Flush is the best-effort shutdown save: failures are swallowed after
// logging, since no retry is possible once the session is gone.
func (a *Autosaver) Flush(ctx context.Context) {
	if err := a.flush(ctx); err != nil {
		a.logger.Error("final autosave flush failed", "error", err)
	}
}

func (a *Autosaver) flush(ctx context.Context) error {
	a.mu.Lock()
	if !a.enabled || a.inFlight {
		a.mu.Unlock()
		return nil
	}
	attempt := a.snapshot()
	if attempt == nil {
		a.mu.Unlock()
		return nil
	}
	a.inFlight = true
	a.status = SaveStatusSaving
	a.mu.Unlock()

	err := a.save(ctx, attempt)

	a.mu.Lock()
	a.inFlight = false
	switch {
	case err != nil:
		a.status = SaveStatusPending
	case a.dirty:
		a.status = SaveStatusPending
		a.dirty = false
	default:
		a.status = SaveStatusSaved
	}
	a.mu.Unlock()

	return err
}

func (a *Autosaver) Status() SaveStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Close stops the flush loop and performs one final best-effort save.
func (a *Autosaver) Close() {
	a.stopOnce.Do(func() { close(a.stopCh) })
	if a.enabled {
		a.Flush(context.Background())
	}
}
