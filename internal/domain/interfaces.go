package domain

// Directory resolves actors to their persistent account, live session state
// and network origin. Account resolution must work for offline actors; origin
// resolution only for online ones.
type Directory interface {
	// AccountOf returns the persistent account id behind an actor, or false
	// if no such actor exists at all.
	AccountOf(actor string) (string, bool)
	// OriginOf returns the network origin of an actor's live session, or
	// false if the actor is offline.
	OriginOf(actor string) (string, bool)
	// IsOnline reports whether the actor has a live session.
	IsOnline(actor string) bool
}

// Inventory is the item subsystem's narrow contract: look up an item an actor
// holds and withdraw it when the marketplace takes custody. Items only ever
// come back through mail, never through this interface.
type Inventory interface {
	Get(owner string, itemID uint64) (*Item, bool)
	Withdraw(owner string, itemID uint64) error
}

// Notifier delivers live notices to online actors. Best effort; the durable
// path is always the mail outbox.
type Notifier interface {
	Notify(actor string, n Notice)
}
