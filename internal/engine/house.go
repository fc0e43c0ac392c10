package engine

import (
	"sort"

	"auction_go/internal/domain"
)

// House is one partition of the marketplace: the keyed collection of active
// listings for a single trading segment. It owns its listings outright;
// removal from the map is the only way a listing dies.
//
// A House has no lock. All access must go through the engine loop.
type House struct {
	id       string
	listings map[uint64]*domain.Listing
}

// NewHouse creates an empty house.
func NewHouse(id string) *House {
	return &House{
		id:       id,
		listings: make(map[uint64]*domain.Listing),
	}
}

// ID returns the house's identifier.
func (h *House) ID() string { return h.id }

// Len returns the number of active listings.
func (h *House) Len() int { return len(h.listings) }

// Add inserts a listing.
func (h *House) Add(l *domain.Listing) {
	h.listings[l.ID] = l
}

// Get looks up a listing by id.
func (h *House) Get(id uint64) (*domain.Listing, bool) {
	l, ok := h.listings[id]
	return l, ok
}

// Remove deletes a listing by id and returns it.
func (h *House) Remove(id uint64) (*domain.Listing, bool) {
	l, ok := h.listings[id]
	if ok {
		delete(h.listings, id)
	}
	return l, ok
}

// CountOwned returns how many listings an actor currently has in this house.
func (h *House) CountOwned(owner string) int {
	count := 0
	for _, l := range h.listings {
		if l.Seller == owner {
			count++
		}
	}
	return count
}

// Snapshot returns copies of every listing matching pred, in id order so
// paginated enumeration is stable across calls.
func (h *House) Snapshot(pred func(*domain.Listing) bool) []domain.Listing {
	out := make([]domain.Listing, 0)
	for _, l := range h.listings {
		if pred == nil || pred(l) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Expired returns the listings whose time has run out, in id order. Callers
// settle each one and Remove it; a removed listing can never be swept twice.
func (h *House) Expired(now int64) []*domain.Listing {
	var out []*domain.Listing
	for _, l := range h.listings {
		if l.IsExpired(now) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
