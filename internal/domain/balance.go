package domain

import (
	"auction_go/pkg/safe"
)

// Balance is one actor's currency ledger, keyed by persistent actor identity
// so it can be charged and credited while the actor is offline.
type Balance struct {
	Actor  string `gorm:"primaryKey" json:"actor"`
	Copper int64  `json:"copper"`
}

func (Balance) TableName() string { return "balances" }

// CanAfford reports whether the balance covers amount.
func (b *Balance) CanAfford(amount int64) bool {
	return amount <= b.Copper
}

// Credit adds funds to the balance. Panics on overflow.
func (b *Balance) Credit(amount int64) {
	b.Copper = safe.SafeAdd(b.Copper, amount)
}

// Debit removes funds from the balance.
func (b *Balance) Debit(amount int64) error {
	if !b.CanAfford(amount) {
		return ErrInsufficientFunds
	}
	b.Copper = safe.SafeSub(b.Copper, amount)
	return nil
}

// BalanceBook manages all actor balances.
type BalanceBook struct {
	balances map[string]*Balance
}

// NewBalanceBook creates an empty balance book.
func NewBalanceBook() *BalanceBook {
	return &BalanceBook{
		balances: make(map[string]*Balance),
	}
}

// Get returns the balance for an actor, creating an empty one if not present.
func (bb *BalanceBook) Get(actor string) *Balance {
	b, ok := bb.balances[actor]
	if !ok {
		b = &Balance{Actor: actor}
		bb.balances[actor] = b
	}
	return b
}

// Put installs a loaded balance row.
func (bb *BalanceBook) Put(b *Balance) {
	bb.balances[b.Actor] = b
}

// Snapshot returns a copy of all balances (for state dump).
func (bb *BalanceBook) Snapshot() map[string]Balance {
	result := make(map[string]Balance, len(bb.balances))
	for k, v := range bb.balances {
		result[k] = *v
	}
	return result
}
