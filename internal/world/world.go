package world

import (
	"log/slog"
	"sync"

	"auction_go/internal/domain"
)

// Roster is the runtime actor directory: which account each actor belongs to
// and which actors currently have a live session. Session events arrive from
// network goroutines, so unlike the engine it carries its own lock.
type Roster struct {
	mu       sync.RWMutex
	accounts map[string]string // actor -> account
	sessions map[string]string // actor -> network origin, present while online
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{
		accounts: make(map[string]string),
		sessions: make(map[string]string),
	}
}

// Register binds an actor to its persistent account.
func (r *Roster) Register(actor, account string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[actor] = account
}

// Connect marks an actor online at the given network origin.
func (r *Roster) Connect(actor, origin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[actor] = origin
}

// Disconnect ends an actor's live session.
func (r *Roster) Disconnect(actor string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, actor)
}

// AccountOf returns the persistent account behind an actor.
func (r *Roster) AccountOf(actor string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[actor]
	return acc, ok
}

// OriginOf returns the network origin of an actor's live session.
func (r *Roster) OriginOf(actor string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	origin, ok := r.sessions[actor]
	return origin, ok
}

// IsOnline reports whether the actor has a live session.
func (r *Roster) IsOnline(actor string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[actor]
	return ok
}

// Bags is the runtime inventory the marketplace withdraws listed items from.
// Grants arrive from outside the engine loop, so it locks.
type Bags struct {
	mu    sync.RWMutex
	items map[string]map[uint64]*domain.Item // owner -> item id -> item
}

// NewBags creates an empty inventory.
func NewBags() *Bags {
	return &Bags{items: make(map[string]map[uint64]*domain.Item)}
}

// Grant places an item into its owner's bags.
func (b *Bags) Grant(it *domain.Item) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.items[it.Owner] == nil {
		b.items[it.Owner] = make(map[uint64]*domain.Item)
	}
	b.items[it.Owner][it.ID] = it
}

// Get looks up an item an actor holds.
func (b *Bags) Get(owner string, itemID uint64) (*domain.Item, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	it, ok := b.items[owner][itemID]
	return it, ok
}

// Withdraw removes an item from its owner's bags when the marketplace takes
// custody.
func (b *Bags) Withdraw(owner string, itemID uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.items[owner][itemID]; !ok {
		return domain.ErrItemMissing
	}
	delete(b.items[owner], itemID)
	return nil
}

// LogNotifier is the default Notifier: notices land in the structured log
// until a session transport picks them up.
type LogNotifier struct{}

// Notify logs the notice for the actor.
func (LogNotifier) Notify(actor string, n domain.Notice) {
	slog.Info("notice",
		slog.String("actor", actor),
		slog.String("kind", string(n.Kind)),
		slog.Uint64("listing", n.ListingID),
		slog.Int64("amount", n.Amount))
}
