package domain

// MailKind tags the reason a deferred-delivery message was sent.
type MailKind string

const (
	MailOutbid            MailKind = "OUTBID"              // previous bidder, refund attached
	MailWon               MailKind = "WON"                 // winning bidder, item attached
	MailSuccessful        MailKind = "SUCCESSFUL"          // seller, sale price minus cut attached
	MailExpired           MailKind = "EXPIRED"             // seller, unsold item returned
	MailCancelled         MailKind = "CANCELLED"           // owner, item returned after cancel
	MailCancelledToBidder MailKind = "CANCELLED_TO_BIDDER" // bidder, full bid refunded after cancel
)

// Mail is one store-and-forward message to a possibly-offline actor. From the
// engine's point of view the attached money and item are consumed the instant
// the row is queued; delivery and retries belong to the mail subsystem.
//
// ListingID tags the message with the sale it settles, so a client session
// that already saw the debit applies nothing twice.
type Mail struct {
	ID        string   `gorm:"primaryKey" json:"id"` // uuid
	Recipient string   `gorm:"index" json:"recipient"`
	Kind      MailKind `json:"kind"`
	Money     int64    `json:"money"`
	Item      *Item    `gorm:"serializer:json" json:"item,omitempty"`
	// ItemTemplate previews the subject item even when no item is attached,
	// e.g. an outbid notice still shows what was lost.
	ItemTemplate uint32 `json:"item_template"`
	ListingID    uint64 `gorm:"index" json:"listing_id"`
	DeliverAt    int64  `json:"deliver_at"` // unix seconds; 0 = immediately
	CreatedAt    int64  `json:"created_at"`
}

func (Mail) TableName() string { return "mail_outbox" }
