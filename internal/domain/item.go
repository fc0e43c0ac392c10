package domain

// Item is the custody-side snapshot of a listed item. The inventory subsystem
// owns the full record; the marketplace only needs the fields that drive
// deposits, search filters and client previews.
type Item struct {
	ID            uint64 `gorm:"primaryKey" json:"id"`
	Template      uint32 `json:"template"` // item kind, shown in previews
	Name          string `json:"name"`
	Owner         string `json:"owner"`
	StackCount    int32  `json:"stack_count"`
	BasePrice     int64  `json:"base_price"` // vendor value per stack, deposit basis
	Quality       int32  `json:"quality"`
	RequiredLevel int32  `json:"required_level"`
	Bound         bool   `json:"bound"`      // bound to its owner, never tradable
	Conjured      bool   `json:"conjured"`   // vanishes on logout
	ExpiresAt     int64  `json:"expires_at"` // 0 = permanent; temporary items cannot be listed
}

func (Item) TableName() string { return "custody_items" }

// Tradable reports whether the item may change hands at all.
func (it *Item) Tradable() bool {
	return !it.Bound && !it.Conjured && it.ExpiresAt == 0
}
