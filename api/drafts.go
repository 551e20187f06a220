/*
drafts.go - TTL-bounded storage for in-progress booking forms

PURPOSE:
  Holds partially filled booking requests server-side so a client can
  resume a multi-step flow. Drafts are explicit resources with an id and
  an expiry rather than ambient per-session state.

INVARIANTS:
  - A draft past its expiry is never returned, even before eviction runs.
  - Drafts are in-memory only. Losing them on restart is acceptable; a
    draft is never a reservation and holds no seats.

SEE ALSO:
  - handlers.go: Draft endpoints
*/
package api

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDraftTTL bounds how long an abandoned draft survives.
const DefaultDraftTTL = 30 * time.Minute

type draftEntry struct {
	draft     DraftDTO
	expiresAt time.Time
}

// DraftStore is an in-memory TTL cache of booking drafts.
type DraftStore struct {
	mu      sync.Mutex
	entries map[string]draftEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewDraftStore creates a draft store with the given TTL.
// A non-positive ttl falls back to DefaultDraftTTL.
func NewDraftStore(ttl time.Duration) *DraftStore {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &DraftStore{
		entries: make(map[string]draftEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Save stores a draft and returns it with its assigned id and expiry.
// Saving also evicts any expired drafts, keeping the map bounded
// without a background goroutine.
func (d *DraftStore) Save(userID string, req CreateBookingRequest) DraftDTO {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, e := range d.entries {
		if now.After(e.expiresAt) {
			delete(d.entries, id)
		}
	}

	expiresAt := now.Add(d.ttl)
	draft := DraftDTO{
		ID:        uuid.NewString(),
		UserID:    userID,
		Booking:   req,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}
	d.entries[draft.ID] = draftEntry{draft: draft, expiresAt: expiresAt}
	return draft
}

// Get returns a live draft. Expired drafts report not-found.
func (d *DraftStore) Get(id string) (DraftDTO, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.entries[id]
	if !ok {
		return DraftDTO{}, false
	}
	if d.now().After(e.expiresAt) {
		delete(d.entries, id)
		return DraftDTO{}, false
	}
	return e.draft, true
}

// Delete discards a draft. Deleting a missing draft is a no-op.
func (d *DraftStore) Delete(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, id)
}
