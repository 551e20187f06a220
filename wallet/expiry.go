/*
expiry.go - Sweep over expired admin-issued wallets

PURPOSE:
  Reconciler finds admin-issued wallets whose expiry has passed while still
  active and runs ProcessExpiry on each. The sweep is safe to run at any
  frequency and from multiple triggers: ProcessExpiry is idempotent, so a
  wallet processed by an earlier sweep is skipped by the next.

  One failing wallet does not abort the sweep. Failures are logged and
  counted; the remaining wallets still get processed.

SEE ALSO:
  - ledger.go: ProcessExpiry semantics
  - api: runs the sweep on a ticker
*/
package wallet

import (
	"context"
	"log"
	"time"
)

// SweepResult summarizes one reconciler pass.
type SweepResult struct {
	Scanned   int
	Processed int
	Failed    int
}

// Reconciler expires admin-issued wallets past their validity window.
type Reconciler struct {
	store   Store
	service *Service
}

func NewReconciler(store Store, service *Service) *Reconciler {
	return &Reconciler{store: store, service: service}
}

// Sweep processes every expired, still-active admin-issued wallet as of now.
func (r *Reconciler) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	wallets, err := r.store.ExpiredActiveWallets(ctx, now)
	if err != nil {
		return SweepResult{}, err
	}

	res := SweepResult{Scanned: len(wallets)}
	for _, w := range wallets {
		if _, err := r.service.ProcessExpiry(ctx, w.ID, now); err != nil {
			log.Printf("[Reconciler] Failed to expire wallet %s: %v", w.ID, err)
			res.Failed++
			continue
		}
		res.Processed++
	}
	if res.Scanned > 0 {
		log.Printf("[Reconciler] Sweep complete: %d scanned, %d processed, %d failed",
			res.Scanned, res.Processed, res.Failed)
	}
	return res, nil
}
