package domain

import (
	"auction_go/pkg/safe"
)

// Listing is the record of one timed sale. The listed item is in marketplace
// custody for the listing's whole lifetime; all monetary values are strictly
// int64 copper.
type Listing struct {
	ID          uint64 `gorm:"primaryKey" json:"id"`
	HouseID     string `gorm:"index" json:"house_id"`
	ItemID      uint64 `gorm:"uniqueIndex" json:"item_id"`
	Seller      string `gorm:"index" json:"seller"`
	Bidder      string `gorm:"index" json:"bidder"` // empty until the first bid
	StartPrice  int64  `json:"start_price"`
	CurrentBid  int64  `json:"current_bid"`
	BuyoutPrice int64  `json:"buyout_price"` // 0 = no buyout
	Deposit     int64  `json:"deposit"`
	CreatedAt   int64  `json:"created_at"` // unix seconds
	ExpiresAt   int64  `gorm:"index" json:"expires_at"`
}

// TableName pins the table so renaming the struct never silently forks the schema.
func (Listing) TableName() string { return "listings" }

// OutbidIncrement is the minimum raise over the current bid: 5% of it,
// floored, never less than 1 copper.
func OutbidIncrement(currentBid int64) int64 {
	inc := safe.SafeMul(currentBid/100, 5)
	if inc == 0 {
		inc = 1
	}
	return inc
}

// HasBidder reports whether a bid has been placed.
func (l *Listing) HasBidder() bool { return l.Bidder != "" }

// MinimumBid returns the lowest acceptable next bid. The first bid may equal
// the start price; every later bid must clear the outbid increment.
func (l *Listing) MinimumBid() int64 {
	if !l.HasBidder() {
		return l.StartPrice
	}
	return safe.SafeAdd(l.CurrentBid, OutbidIncrement(l.CurrentBid))
}

// IsExpired reports whether the listing's time has run out.
func (l *Listing) IsExpired(now int64) bool { return now > l.ExpiresAt }

// IsBuyoutPrice reports whether price triggers the instant-buyout branch.
func (l *Listing) IsBuyoutPrice(price int64) bool {
	return l.BuyoutPrice != 0 && price >= l.BuyoutPrice
}
