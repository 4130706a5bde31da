// Package autoupdate runs the background snapshot refresh loop:
// a single worker polling on a fixed interval, stoppable with a bounded
// join. Grounded on the config hot-reload worker in
// internal/config/reload_coordinator.go, trimmed from its 6-phase
// pipeline (this domain has one phase: check-then-swap) but keeping its
// atomic-apply-plus-structured-logging shape.
package autoupdate

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// CheckFunc fetches and applies a fresh snapshot, returning whether it
// changed the in-memory snapshot version.
type CheckFunc func(ctx context.Context) (changed bool, err error)

// Callback is invoked after every check attempt (success or failure).
type Callback func(success bool, err error)

// Updater is the single background polling worker.
type Updater struct {
	interval time.Duration
	check    CheckFunc
	callback Callback
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	done    chan struct{}
}

// New builds an Updater; call Schedule to start polling.
func New(logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.Default()
	}
	return &Updater{logger: logger.With("component", "autoupdate")}
}

// Schedule starts the background worker polling every interval. A
// second call while already running is a no-op (matches the facade's
// "scheduleSnapshotAutoUpdate is idempotent while already scheduled"
// behavior).
func (u *Updater) Schedule(interval time.Duration, check CheckFunc, callback Callback) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.running {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	u.interval = interval
	u.check = check
	u.callback = callback
	u.cancel = cancel
	u.running = true
	u.done = make(chan struct{})

	go u.run(ctx, u.done)
}

func (u *Updater) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.tick(ctx)
		}
	}
}

func (u *Updater) tick(ctx context.Context) {
	changed, err := u.check(ctx)
	if err != nil {
		u.logger.Warn("auto-update check failed", "error", err)
	} else if changed {
		u.logger.Info("auto-update applied new snapshot")
	}
	if u.callback != nil {
		u.callback(err == nil, err)
	}
}

// Terminate stops the worker, waiting up to timeout for it to exit. A
// timeout of 0 or less waits indefinitely. Safe to call when not
// running.
func (u *Updater) Terminate(timeout time.Duration) error {
	u.mu.Lock()
	if !u.running {
		u.mu.Unlock()
		return nil
	}
	cancel := u.cancel
	done := u.done
	u.running = false
	u.mu.Unlock()

	cancel()

	if timeout <= 0 {
		<-done
		return nil
	}

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}

// Running reports whether the worker is currently scheduled.
func (u *Updater) Running() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.running
}
