/*
scheduler.go - Automated wallet expiry sweeper

PURPOSE:
  Periodically scans for admin-issued wallets whose expiry has passed and
  settles them (deactivate, claw back the unused issuance).

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Delegates the actual work to wallet.Reconciler, which skips wallets
    already settled, so overlapping or repeated runs are safe
  - Logs each sweep's counters for audit

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether the sweeper is active (default: true)

USAGE:
  sweeper := NewExpirySweeper(reconciler)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - handlers.go: TriggerExpirySweep endpoint (manual sweep)
  - wallet/expiry.go: Reconciler
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/skyfare/booking-engine/wallet"
)

// ExpirySweeper runs the wallet expiry sweep on an interval.
type ExpirySweeper struct {
	Reconciler    *wallet.Reconciler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewExpirySweeper creates a new sweeper.
func NewExpirySweeper(reconciler *wallet.Reconciler) *ExpirySweeper {
	return &ExpirySweeper{
		Reconciler:    reconciler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the sweeper.
func (es *ExpirySweeper) Start() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if !es.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}

	es.ticker = time.NewTicker(es.CheckInterval)
	es.wg.Add(1)

	go es.run()

	log.Printf("[Sweeper] Started with check interval: %v", es.CheckInterval)
}

// Stop stops the sweeper.
func (es *ExpirySweeper) Stop() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.ticker != nil {
		es.ticker.Stop()
		close(es.stop)
		es.wg.Wait()
		log.Println("[Sweeper] Stopped")
	}
}

func (es *ExpirySweeper) run() {
	defer es.wg.Done()

	// Run immediately on start
	es.sweep()

	for {
		select {
		case <-es.ticker.C:
			es.sweep()
		case <-es.stop:
			return
		}
	}
}

func (es *ExpirySweeper) sweep() {
	ctx := context.Background()
	now := time.Now()

	log.Printf("[Sweeper] Checking for expired wallets at %v", now)

	result, err := es.Reconciler.Sweep(ctx, now)
	if err != nil {
		log.Printf("[Sweeper] Error sweeping wallets: %v", err)
		return
	}

	if result.Scanned > 0 {
		log.Printf("[Sweeper] Completed: %d scanned, %d processed, %d failed",
			result.Scanned, result.Processed, result.Failed)
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (es *ExpirySweeper) RunNow() {
	es.sweep()
}

// GetNextRunTime returns when the next scheduled sweep will occur.
func (es *ExpirySweeper) GetNextRunTime() time.Time {
	return time.Now().Add(es.CheckInterval)
}
