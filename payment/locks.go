package payment

import "sync"

// keyedMutex serializes orchestration per booking ID. Inventory and wallets
// serialize their own writes, but the read-check-act around a booking's
// status needs one holder at a time or two confirmations could both observe
// PENDING and both charge.
//
// Entries are never removed. The number of in-flight bookings in one
// process is small enough that reclaiming idle mutexes is not worth the
// bookkeeping.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
