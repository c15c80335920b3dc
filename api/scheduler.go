/*
scheduler.go - Automated rate-table persistence

PURPOSE:
  Periodically saves the in-memory rate table to sqlite when it changed,
  so a restart resumes from the last edited rates.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Compares the handler's rate version with the last saved one, manual
    saves through /api/rates/save included
  - Skips the save when nothing changed
  - Saves once more on Stop so the final edits are not lost

CONFIGURATION:
  - CheckInterval: How often to check (default: 5 minutes)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewSnapshotScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: SaveRates endpoint (manual save)
  - store/sqlite: rate_snapshots table
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/bond-engine/store/sqlite"
)

// SnapshotScheduler saves the rate table when it changes.
type SnapshotScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool
	Logger        *slog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	running bool
}

// NewSnapshotScheduler creates a new scheduler.
func NewSnapshotScheduler(store *sqlite.Store, handler *Handler) *SnapshotScheduler {
	return &SnapshotScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 5 * time.Minute,
		Enabled:       true,
		Logger:        handler.Logger,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (ss *SnapshotScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		ss.logger().Info("snapshot scheduler disabled, not starting")
		return
	}
	if ss.running {
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.running = true
	ss.wg.Add(1)

	go ss.run()

	ss.logger().Info("snapshot scheduler started", "interval", ss.CheckInterval)
}

// Stop stops the scheduler and saves pending changes.
func (ss *SnapshotScheduler) Stop() {
	ss.mu.Lock()
	if !ss.running {
		ss.mu.Unlock()
		return
	}
	ss.ticker.Stop()
	close(ss.stop)
	ss.running = false
	ss.mu.Unlock()

	ss.wg.Wait()
	if _, err := ss.RunNow(context.Background()); err != nil {
		ss.logger().Error("final rate snapshot failed", "error", err)
	}
	ss.logger().Info("snapshot scheduler stopped")
}

func (ss *SnapshotScheduler) run() {
	defer ss.wg.Done()

	for {
		select {
		case <-ss.ticker.C:
			if _, err := ss.RunNow(context.Background()); err != nil {
				ss.logger().Error("rate snapshot failed", "error", err)
			}
		case <-ss.stop:
			return
		}
	}
}

// RunNow saves the table if it changed since the last save and reports
// whether it did.
func (ss *SnapshotScheduler) RunNow(ctx context.Context) (bool, error) {
	snap, version, changed := ss.Handler.unsavedRates()
	if !changed {
		ss.logger().Debug("rate table unchanged, skipping snapshot", "version", version)
		return false, nil
	}

	id, err := ss.Store.SaveRateSnapshot(ctx, snap)
	if err != nil {
		return false, err
	}
	ss.Handler.markSaved(version)

	ss.logger().Info("saved rate snapshot", "id", id, "version", version, "days", snap.Days)
	return true, nil
}

func (ss *SnapshotScheduler) logger() *slog.Logger {
	if ss.Logger != nil {
		return ss.Logger
	}
	return slog.Default()
}
