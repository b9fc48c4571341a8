package main

import "sync"

// --- Ticket Registry ---

// TicketRecord represents one open ticket. Immutable once inserted: replacement
// is create-then-delete only, never in-place mutation.
type TicketRecord struct {
	ID             string // ULID reference, for logs and operator cleanup
	OwnerID        string
	TextChannelID  string
	VoiceChannelID string
	Category       TicketCategory
}

// TicketRegistry is the authoritative in-memory mapping from ticket owner to
// ticket record. It is owned exclusively by the TicketManager. Interaction
// handlers run on separate goroutines, so all access goes through the mutex.
//
// The registry does not enforce the one-ticket-per-user invariant itself;
// callers must guard Has before Put (the manager does this under its own lock).
type TicketRegistry struct {
	mu      sync.RWMutex
	tickets map[string]TicketRecord // ownerID → record
}

func newTicketRegistry() *TicketRegistry {
	return &TicketRegistry{tickets: make(map[string]TicketRecord)}
}

// Has reports whether the user has an active ticket.
func (r *TicketRegistry) Has(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tickets[userID]
	return ok
}

// Get returns the user's ticket record, if any.
func (r *TicketRegistry) Get(userID string) (TicketRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.tickets[userID]
	return rec, ok
}

// Put inserts a record, silently overwriting any existing one.
func (r *TicketRegistry) Put(userID string, rec TicketRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[userID] = rec
}

// RemoveByOwner deletes the user's record.
func (r *TicketRegistry) RemoveByOwner(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tickets, userID)
}

// FindByTextChannel resolves which ticket a text channel belongs to. Linear
// scan: ticket counts are human-scale (tens, not thousands).
func (r *TicketRegistry) FindByTextChannel(channelID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for ownerID, rec := range r.tickets {
		if rec.TextChannelID == channelID {
			return ownerID, true
		}
	}
	return "", false
}

// Len returns the number of active tickets.
func (r *TicketRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tickets)
}
