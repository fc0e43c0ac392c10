package domain

// Closed result enumerations, one per marketplace operation. Validation and
// policy rejections are results, not errors: they carry no stack context and
// are never logged as faults.

// SellResult is the outcome of a sell (create-listing) request.
type SellResult int

const (
	SellOK SellResult = iota
	SellErrInvalidPrice
	SellErrInvalidDuration
	SellErrItemNotFound
	SellErrAlreadyListed
	SellErrNotTradable
	SellErrNotEnoughMoney
	SellErrTooManyListings
	SellErrInternal
)

func (r SellResult) String() string {
	switch r {
	case SellOK:
		return "ok"
	case SellErrInvalidPrice:
		return "invalid-price"
	case SellErrInvalidDuration:
		return "invalid-duration"
	case SellErrItemNotFound:
		return "item-not-found"
	case SellErrAlreadyListed:
		return "item-already-listed"
	case SellErrNotTradable:
		return "item-not-tradable"
	case SellErrNotEnoughMoney:
		return "not-enough-money"
	case SellErrTooManyListings:
		return "too-many-listings"
	default:
		return "internal-error"
	}
}

// BidResult is the outcome of a bid or buyout request. The Ignored results
// are deliberately silent: stale, underpriced and unaffordable bids are
// dropped without an error so duplicate or raced submissions stay harmless.
type BidResult int

const (
	BidOK BidResult = iota
	BidErrOwnListing // also covers unknown listing ids
	BidErrMustWait
	BidIgnoredStale
	BidIgnoredTooLow
	BidIgnoredNoFunds
	BidErrInternal
)

func (r BidResult) String() string {
	switch r {
	case BidOK:
		return "ok"
	case BidErrOwnListing:
		return "cannot-bid-own-listing"
	case BidErrMustWait:
		return "must-wait"
	case BidIgnoredStale:
		return "ignored-stale"
	case BidIgnoredTooLow:
		return "ignored-too-low"
	case BidIgnoredNoFunds:
		return "ignored-no-funds"
	default:
		return "internal-error"
	}
}

// Accepted reports whether the bid mutated the listing.
func (r BidResult) Accepted() bool { return r == BidOK }

// CancelResult is the outcome of an owner cancelling their listing.
type CancelResult int

const (
	CancelOK CancelResult = iota
	CancelErrNotOwner // also covers unknown listing ids
	CancelErrNotEnoughMoney
	CancelErrInternal
)

func (r CancelResult) String() string {
	switch r {
	case CancelOK:
		return "ok"
	case CancelErrNotOwner:
		return "not-owner"
	case CancelErrNotEnoughMoney:
		return "not-enough-money"
	default:
		return "internal-error"
	}
}

// NoticeKind tags a live, best-effort notification to an online actor.
type NoticeKind string

const (
	NoticeSalePending NoticeKind = "SALE_PENDING"
	NoticeSold        NoticeKind = "SOLD"
	NoticeExpired     NoticeKind = "EXPIRED"
	NoticeOutbid      NoticeKind = "OUTBID"
	NoticeWon         NoticeKind = "WON"
)

// Notice is the payload of a live notification. Unlike Mail it carries no
// money or items and may be lost if the recipient disconnects.
type Notice struct {
	Kind         NoticeKind `json:"kind"`
	ListingID    uint64     `json:"listing_id"`
	Amount       int64      `json:"amount"`
	ItemTemplate uint32     `json:"item_template"`
}
