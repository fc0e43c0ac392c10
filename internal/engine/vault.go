package engine

import (
	"auction_go/internal/domain"
)

// ItemVault tracks exclusive marketplace custody of listed items. An item in
// the vault belongs to exactly one listing and is invisible to inventories
// until released to a deferred-delivery recipient.
type ItemVault struct {
	items map[uint64]*domain.Item
}

// NewItemVault creates an empty vault.
func NewItemVault() *ItemVault {
	return &ItemVault{items: make(map[uint64]*domain.Item)}
}

// Take places an item under custody. Listing the same item twice is refused.
func (v *ItemVault) Take(it *domain.Item) error {
	if _, exists := v.items[it.ID]; exists {
		return domain.ErrAlreadyInCustody
	}
	v.items[it.ID] = it
	return nil
}

// Release ends custody and returns the item.
func (v *ItemVault) Release(id uint64) (*domain.Item, bool) {
	it, ok := v.items[id]
	if ok {
		delete(v.items, id)
	}
	return it, ok
}

// Peek returns the item without ending custody.
func (v *ItemVault) Peek(id uint64) (*domain.Item, bool) {
	it, ok := v.items[id]
	return it, ok
}

// Len returns the number of items under custody.
func (v *ItemVault) Len() int { return len(v.items) }
