package engine

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"auction_go/internal/domain"
	"auction_go/internal/infra"
	"auction_go/internal/infra/storage"
	"auction_go/pkg/safe"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Registry owns every auction house, the custody vault, the balance book and
// the settlement-mail orchestration. It has no lock: every call must arrive
// through the engine Loop, which serializes request handlers and the expiry
// sweep onto one goroutine.
//
// Persistence discipline: each operation batches all of its writes into one
// storage transaction and mutates in-memory state only after the commit
// succeeds, so a failed commit leaves nothing partially applied.
type Registry struct {
	cfg     *infra.Config
	store   *storage.Store
	dir     domain.Directory
	inv     domain.Inventory
	notify  domain.Notifier
	metrics *infra.Metrics

	houses   map[string]*House
	vault    *ItemVault
	balances *domain.BalanceBook
	nextID   uint64
}

// NewRegistry wires a registry from its collaborators. Call Load before use.
func NewRegistry(cfg *infra.Config, store *storage.Store, dir domain.Directory, inv domain.Inventory, notify domain.Notifier) *Registry {
	houses := make(map[string]*House, len(cfg.Market.Houses))
	for _, h := range cfg.Market.Houses {
		houses[h.ID] = NewHouse(h.ID)
	}
	return &Registry{
		cfg:      cfg,
		store:    store,
		dir:      dir,
		inv:      inv,
		notify:   notify,
		metrics:  infra.GlobalMetrics,
		houses:   houses,
		vault:    NewItemVault(),
		balances: domain.NewBalanceBook(),
		nextID:   1,
	}
}

// ======================================================================================
// Routing & economics
// ======================================================================================

// HouseFor routes a requester's segment to its auction house. With
// cross-segment trading enabled every segment shares the neutral house;
// unknown segments always fall back to it.
func (r *Registry) HouseFor(segment string) *House {
	if r.cfg.Market.CrossSegmentTrading {
		return r.houses[r.cfg.Market.NeutralHouse]
	}
	if houseID, ok := r.cfg.Market.Segments[segment]; ok {
		if h, ok := r.houses[houseID]; ok {
			return h
		}
	}
	return r.houses[r.cfg.Market.NeutralHouse]
}

func (r *Registry) depositRate(houseID string) decimal.Decimal {
	if r.cfg.Market.CrossSegmentTrading {
		return r.cfg.Market.CrossDepositRate
	}
	if h, ok := r.cfg.HouseByID(houseID); ok {
		return h.DepositRate
	}
	return r.cfg.Market.CrossDepositRate
}

func (r *Registry) cutPercent(houseID string) int64 {
	if r.cfg.Market.CrossSegmentTrading {
		return r.cfg.Market.CrossCutPercent
	}
	if h, ok := r.cfg.HouseByID(houseID); ok {
		return h.CutPercent
	}
	return r.cfg.Market.CrossCutPercent
}

// DepositFor computes the non-refundable listing fee:
// basePrice * houseRate * globalRate * stackCount * durationBuckets, floored.
func (r *Registry) DepositFor(item *domain.Item, durationSecs int64, houseID string) int64 {
	if item.BasePrice <= 0 {
		return 0
	}
	buckets := durationSecs / r.cfg.MinDurationSeconds()
	d := decimal.NewFromInt(item.BasePrice).
		Mul(r.depositRate(houseID)).
		Mul(r.cfg.Rates.Deposit).
		Mul(decimal.NewFromInt(int64(item.StackCount))).
		Mul(decimal.NewFromInt(buckets))
	if d.IsNegative() {
		return 0
	}
	return d.Floor().IntPart()
}

// CutFor computes the marketplace's share of the current bid.
func (r *Registry) CutFor(l *domain.Listing) int64 {
	d := decimal.NewFromInt(r.cutPercent(l.HouseID)).
		Mul(decimal.NewFromInt(l.CurrentBid)).
		Mul(r.cfg.Rates.Cut).
		Div(decimal.NewFromInt(100))
	return d.Floor().IntPart()
}

// ======================================================================================
// Sell
// ======================================================================================

// SellRequest creates a new listing.
type SellRequest struct {
	Seller        string
	Segment       string
	ItemID        uint64
	StartPrice    int64
	BuyoutPrice   int64 // 0 = no buyout
	DurationHours int64
}

// Sell charges the deposit, takes custody of the item and inserts the new
// listing into the routed house, all in one atomic unit.
func (r *Registry) Sell(req SellRequest, now time.Time) (domain.SellResult, uint64) {
	if req.StartPrice <= 0 || req.BuyoutPrice < 0 {
		return domain.SellErrInvalidPrice, 0
	}
	durationSecs, ok := r.cfg.DurationSeconds(req.DurationHours)
	if !ok {
		return domain.SellErrInvalidDuration, 0
	}

	house := r.HouseFor(req.Segment)
	if house.CountOwned(req.Seller) >= r.cfg.Market.MaxListingsPerActor {
		return domain.SellErrTooManyListings, 0
	}
	if _, held := r.vault.Peek(req.ItemID); held {
		return domain.SellErrAlreadyListed, 0
	}
	item, ok := r.inv.Get(req.Seller, req.ItemID)
	if !ok {
		return domain.SellErrItemNotFound, 0
	}
	if !item.Tradable() {
		return domain.SellErrNotTradable, 0
	}

	deposit := r.DepositFor(item, durationSecs, house.ID())
	bal := r.balances.Get(req.Seller)
	if !bal.CanAfford(deposit) {
		return domain.SellErrNotEnoughMoney, 0
	}

	liveSecs := decimal.NewFromInt(durationSecs).Mul(r.cfg.Rates.Time).IntPart()
	id := r.nextID
	r.nextID++

	listing := &domain.Listing{
		ID:          id,
		HouseID:     house.ID(),
		ItemID:      item.ID,
		Seller:      req.Seller,
		StartPrice:  req.StartPrice,
		BuyoutPrice: req.BuyoutPrice,
		Deposit:     deposit,
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Unix() + liveSecs,
	}

	err := r.store.Txn(func(tx *storage.Txn) error {
		if err := tx.SaveListing(listing); err != nil {
			return err
		}
		if err := tx.SaveItem(item); err != nil {
			return err
		}
		return tx.SaveBalance(&domain.Balance{Actor: req.Seller, Copper: safe.SafeSub(bal.Copper, deposit)})
	})
	if err != nil {
		slog.Error("sell: persistence failed", slog.Uint64("listing", id), slog.Any("error", err))
		r.metrics.RecordError()
		return domain.SellErrInternal, 0
	}

	_ = bal.Debit(deposit) // affordability checked above
	if err := r.inv.Withdraw(req.Seller, item.ID); err != nil {
		slog.Error("sell: inventory withdraw failed after commit",
			slog.String("seller", req.Seller), slog.Uint64("item", item.ID), slog.Any("error", err))
		r.metrics.RecordIntegrityEvent()
	}
	_ = r.vault.Take(item) // duplicate listing refused above
	house.Add(listing)
	r.metrics.RecordListing()

	slog.Debug("listing created",
		slog.Uint64("listing", id), slog.String("house", house.ID()),
		slog.String("seller", req.Seller), slog.Int64("start", req.StartPrice),
		slog.Int64("buyout", req.BuyoutPrice), slog.Int64("deposit", deposit))
	return domain.SellOK, id
}

// ======================================================================================
// Bid / Buyout
// ======================================================================================

// BidRequest raises the bid on a listing, or buys it out.
type BidRequest struct {
	Bidder    string
	Segment   string
	ListingID uint64
	Price     int64
}

// PlaceBid validates the bid in a fixed order, then takes either the raise or
// the buyout branch. Rejections mutate nothing.
func (r *Registry) PlaceBid(req BidRequest, now time.Time) domain.BidResult {
	house := r.HouseFor(req.Segment)
	l, ok := house.Get(req.ListingID)
	if !ok || l.Seller == req.Bidder {
		return domain.BidErrOwnListing
	}
	// An online owner cannot be the caller; otherwise compare persistent
	// accounts to catch bids from the seller's alternate characters.
	if !r.dir.IsOnline(l.Seller) {
		if ownerAcc, ok := r.dir.AccountOf(l.Seller); ok {
			if bidderAcc, ok := r.dir.AccountOf(req.Bidder); ok && ownerAcc == bidderAcc {
				return domain.BidErrOwnListing
			}
		}
	}
	// Bot protection: shortly after listing, only a session from the seller's
	// own network origin may buy the item out.
	if guard := r.cfg.Market.BuyoutGuardSecs; guard > 0 && now.Unix() < l.CreatedAt+guard && l.IsBuyoutPrice(req.Price) {
		if sellerOrigin, online := r.dir.OriginOf(l.Seller); online {
			bidderOrigin, _ := r.dir.OriginOf(req.Bidder)
			if bidderOrigin != sellerOrigin {
				return domain.BidErrMustWait
			}
		}
	}
	if req.Price <= l.CurrentBid {
		return domain.BidIgnoredStale
	}
	isBuyout := l.IsBuyoutPrice(req.Price)
	if !isBuyout && req.Price < l.MinimumBid() {
		return domain.BidIgnoredTooLow
	}
	if !r.balances.Get(req.Bidder).CanAfford(req.Price) {
		return domain.BidIgnoredNoFunds
	}

	if isBuyout {
		return r.buyout(house, l, req, now)
	}
	return r.raise(house, l, req, now)
}

func (r *Registry) raise(house *House, l *domain.Listing, req BidRequest, now time.Time) domain.BidResult {
	prevBidder, prevBid := l.Bidder, l.CurrentBid

	debit := req.Price
	if prevBidder == req.Bidder {
		debit = safe.SafeSub(req.Price, prevBid)
	}
	refundPrev := prevBidder != "" && prevBidder != req.Bidder

	var template uint32
	if item, ok := r.vault.Peek(l.ItemID); ok {
		template = item.Template
	}

	bal := r.balances.Get(req.Bidder)
	updated := *l
	updated.Bidder = req.Bidder
	updated.CurrentBid = req.Price

	mails := 0
	err := r.store.Txn(func(tx *storage.Txn) error {
		mails = 0
		if err := tx.SaveListing(&updated); err != nil {
			return err
		}
		if refundPrev {
			if _, ok := r.dir.AccountOf(prevBidder); ok {
				mail := r.newMail(prevBidder, domain.MailOutbid, prevBid, nil, l.ID, template, 0, now)
				if err := tx.QueueMail(mail); err != nil {
					return err
				}
				mails++
			} else {
				slog.Error("outbid refund dropped, bidder unresolvable",
					slog.Uint64("listing", l.ID), slog.String("bidder", prevBidder))
				r.metrics.RecordIntegrityEvent()
			}
		}
		return tx.SaveBalance(&domain.Balance{Actor: req.Bidder, Copper: safe.SafeSub(bal.Copper, debit)})
	})
	if err != nil {
		slog.Error("bid: persistence failed", slog.Uint64("listing", l.ID), slog.Any("error", err))
		r.metrics.RecordError()
		return domain.BidErrInternal
	}

	_ = bal.Debit(debit)
	l.Bidder = req.Bidder
	l.CurrentBid = req.Price
	r.metrics.RecordBid()
	r.recordMails(mails)

	if refundPrev && r.dir.IsOnline(prevBidder) {
		r.notify.Notify(prevBidder, domain.Notice{
			Kind: domain.NoticeOutbid, ListingID: l.ID, Amount: req.Price, ItemTemplate: template,
		})
	}
	return domain.BidOK
}

func (r *Registry) buyout(house *House, l *domain.Listing, req BidRequest, now time.Time) domain.BidResult {
	item, ok := r.vault.Peek(l.ItemID)
	if !ok {
		ie := &domain.IntegrityError{Op: "buyout", ListingID: l.ID, ItemID: l.ItemID, Err: domain.ErrItemMissing}
		slog.Error("buyout refused", slog.Any("error", ie))
		r.metrics.RecordIntegrityEvent()
		return domain.BidErrInternal
	}

	prevBidder, prevBid := l.Bidder, l.CurrentBid
	price := l.BuyoutPrice
	debit := price
	if prevBidder == req.Bidder {
		debit = safe.SafeSub(price, prevBid)
	}

	bal := r.balances.Get(req.Bidder)
	updated := *l
	updated.Bidder = req.Bidder
	updated.CurrentBid = price

	mails := 0
	err := r.store.Txn(func(tx *storage.Txn) error {
		mails = 0
		if prevBidder != "" && prevBidder != req.Bidder {
			if _, ok := r.dir.AccountOf(prevBidder); ok {
				if err := tx.QueueMail(r.newMail(prevBidder, domain.MailOutbid, prevBid, nil, l.ID, item.Template, 0, now)); err != nil {
					return err
				}
				mails++
			} else {
				slog.Error("outbid refund dropped, bidder unresolvable",
					slog.Uint64("listing", l.ID), slog.String("bidder", prevBidder))
				r.metrics.RecordIntegrityEvent()
			}
		}
		if err := tx.SaveBalance(&domain.Balance{Actor: req.Bidder, Copper: safe.SafeSub(bal.Copper, debit)}); err != nil {
			return err
		}
		n, err := r.settleTx(tx, &updated, item, now)
		mails += n
		return err
	})
	if err != nil {
		slog.Error("buyout: persistence failed", slog.Uint64("listing", l.ID), slog.Any("error", err))
		r.metrics.RecordError()
		return domain.BidErrInternal
	}

	_ = bal.Debit(debit)
	l.Bidder = req.Bidder
	l.CurrentBid = price
	r.metrics.RecordBid()
	r.recordMails(mails)

	if prevBidder != "" && prevBidder != req.Bidder && r.dir.IsOnline(prevBidder) {
		r.notify.Notify(prevBidder, domain.Notice{
			Kind: domain.NoticeOutbid, ListingID: l.ID, Amount: price, ItemTemplate: item.Template,
		})
	}
	r.settleApply(house, l, item)
	return domain.BidOK
}

// ======================================================================================
// Cancel
// ======================================================================================

// CancelRequest terminates the caller's own listing.
type CancelRequest struct {
	Owner     string
	Segment   string
	ListingID uint64
}

// Cancel returns the item to its owner by mail. If someone already bid, the
// owner pays the marketplace cut as a penalty and the bidder is refunded in
// full.
func (r *Registry) Cancel(req CancelRequest, now time.Time) domain.CancelResult {
	house := r.HouseFor(req.Segment)
	l, ok := house.Get(req.ListingID)
	if !ok || l.Seller != req.Owner {
		slog.Warn("cancel refused, caller does not own listing",
			slog.Uint64("listing", req.ListingID), slog.String("caller", req.Owner))
		return domain.CancelErrNotOwner
	}

	item, ok := r.vault.Peek(l.ItemID)
	if !ok {
		ie := &domain.IntegrityError{Op: "cancel", ListingID: l.ID, ItemID: l.ItemID, Err: domain.ErrItemMissing}
		slog.Error("cancel refused", slog.Any("error", ie))
		r.metrics.RecordIntegrityEvent()
		return domain.CancelErrInternal
	}

	bal := r.balances.Get(req.Owner)
	var penalty int64
	if l.HasBidder() {
		penalty = r.CutFor(l)
		if !bal.CanAfford(penalty) {
			return domain.CancelErrNotEnoughMoney
		}
	}

	mails := 0
	err := r.store.Txn(func(tx *storage.Txn) error {
		mails = 0
		if l.HasBidder() {
			if _, ok := r.dir.AccountOf(l.Bidder); ok {
				if err := tx.QueueMail(r.newMail(l.Bidder, domain.MailCancelledToBidder, l.CurrentBid, nil, l.ID, item.Template, 0, now)); err != nil {
					return err
				}
				mails++
			} else {
				slog.Error("cancel refund dropped, bidder unresolvable",
					slog.Uint64("listing", l.ID), slog.String("bidder", l.Bidder))
				r.metrics.RecordIntegrityEvent()
			}
			if err := tx.SaveBalance(&domain.Balance{Actor: req.Owner, Copper: safe.SafeSub(bal.Copper, penalty)}); err != nil {
				return err
			}
		}
		if err := tx.QueueMail(r.newMail(req.Owner, domain.MailCancelled, 0, item, l.ID, item.Template, 0, now)); err != nil {
			return err
		}
		mails++
		if err := tx.DeleteItem(item.ID); err != nil {
			return err
		}
		return tx.DeleteListing(l.ID)
	})
	if err != nil {
		slog.Error("cancel: persistence failed", slog.Uint64("listing", l.ID), slog.Any("error", err))
		r.metrics.RecordError()
		return domain.CancelErrInternal
	}

	_ = bal.Debit(penalty)
	r.vault.Release(l.ItemID)
	house.Remove(l.ID)
	r.metrics.RecordSettlement()
	r.recordMails(mails)
	return domain.CancelOK
}

// ======================================================================================
// Expiry sweep & settlement
// ======================================================================================

// Tick runs the expiry sweep over every house. Invoked on the engine loop by
// the scheduler, never by request handlers.
func (r *Registry) Tick(now time.Time) {
	for _, id := range r.houseIDs() {
		r.sweepHouse(r.houses[id], now)
	}
}

func (r *Registry) sweepHouse(h *House, now time.Time) {
	for _, l := range h.Expired(now.Unix()) {
		r.finishExpired(h, l, now)
	}
}

func (r *Registry) finishExpired(h *House, l *domain.Listing, now time.Time) {
	item, ok := r.vault.Peek(l.ItemID)
	if !ok {
		// The item is gone. Drop the listing so the sweep cannot see it again.
		ie := &domain.IntegrityError{Op: "sweep", ListingID: l.ID, ItemID: l.ItemID, Err: domain.ErrItemMissing}
		slog.Error("orphaned listing dropped", slog.Any("error", ie))
		r.metrics.RecordIntegrityEvent()
		if err := r.store.Txn(func(tx *storage.Txn) error { return tx.DeleteListing(l.ID) }); err != nil {
			slog.Error("sweep: failed to drop orphaned listing", slog.Uint64("listing", l.ID), slog.Any("error", err))
			r.metrics.RecordError()
			return
		}
		h.Remove(l.ID)
		return
	}

	if !l.HasBidder() {
		r.returnExpired(h, l, item, now)
		return
	}

	mails := 0
	err := r.store.Txn(func(tx *storage.Txn) error {
		n, err := r.settleTx(tx, l, item, now)
		mails = n
		return err
	})
	if err != nil {
		slog.Error("sweep: settlement persistence failed", slog.Uint64("listing", l.ID), slog.Any("error", err))
		r.metrics.RecordError()
		return
	}
	r.recordMails(mails)
	r.settleApply(h, l, item)
}

// returnExpired sends an unsold item back to its owner. No currency moves;
// the deposit stays consumed.
func (r *Registry) returnExpired(h *House, l *domain.Listing, item *domain.Item, now time.Time) {
	_, resolvable := r.dir.AccountOf(l.Seller)
	err := r.store.Txn(func(tx *storage.Txn) error {
		if resolvable {
			if err := tx.QueueMail(r.newMail(l.Seller, domain.MailExpired, 0, item, l.ID, item.Template, 0, now)); err != nil {
				return err
			}
		}
		if err := tx.DeleteItem(item.ID); err != nil {
			return err
		}
		return tx.DeleteListing(l.ID)
	})
	if err != nil {
		slog.Error("sweep: expiry persistence failed", slog.Uint64("listing", l.ID), slog.Any("error", err))
		r.metrics.RecordError()
		return
	}
	if resolvable {
		r.metrics.RecordMail()
	}
	if !resolvable {
		slog.Error("expired item destroyed, owner unresolvable",
			slog.Uint64("listing", l.ID), slog.String("owner", l.Seller), slog.Uint64("item", item.ID))
		r.metrics.RecordIntegrityEvent()
	}

	r.vault.Release(l.ItemID)
	h.Remove(l.ID)
	r.metrics.RecordSettlement()

	if r.dir.IsOnline(l.Seller) {
		r.notify.Notify(l.Seller, domain.Notice{
			Kind: domain.NoticeExpired, ListingID: l.ID, ItemTemplate: item.Template,
		})
	}
}

// settleTx queues the terminal transfers for a sold listing: sale price minus
// cut to the seller (deposit stays sunk), item to the winning bidder. Rows
// are deleted in the same transaction. Returns how many mails were queued so
// callers can count them once the commit succeeds.
func (r *Registry) settleTx(tx *storage.Txn, l *domain.Listing, item *domain.Item, now time.Time) (int, error) {
	cut := r.CutFor(l)
	profit := safe.SafeSub(l.CurrentBid, cut)
	queued := 0

	if _, ok := r.dir.AccountOf(l.Seller); ok {
		deliverAt := now.Unix() + r.cfg.Market.MailDeliveryDelaySecs
		if err := tx.QueueMail(r.newMail(l.Seller, domain.MailSuccessful, profit, nil, l.ID, item.Template, deliverAt, now)); err != nil {
			return 0, err
		}
		queued++
	} else {
		slog.Error("sale proceeds destroyed, seller unresolvable",
			slog.Uint64("listing", l.ID), slog.String("seller", l.Seller), slog.Int64("profit", profit))
		r.metrics.RecordIntegrityEvent()
	}

	if _, ok := r.dir.AccountOf(l.Bidder); ok {
		if err := tx.QueueMail(r.newMail(l.Bidder, domain.MailWon, 0, item, l.ID, item.Template, 0, now)); err != nil {
			return 0, err
		}
		queued++
	} else {
		slog.Error("won item destroyed, bidder unresolvable",
			slog.Uint64("listing", l.ID), slog.String("bidder", l.Bidder), slog.Uint64("item", item.ID))
		r.metrics.RecordIntegrityEvent()
	}

	if err := tx.DeleteItem(item.ID); err != nil {
		return 0, err
	}
	return queued, tx.DeleteListing(l.ID)
}

func (r *Registry) recordMails(n int) {
	for i := 0; i < n; i++ {
		r.metrics.RecordMail()
	}
}

// settleApply finishes a settlement in memory after the commit: release
// custody, remove the listing, and fire live notices.
func (r *Registry) settleApply(h *House, l *domain.Listing, item *domain.Item) {
	r.vault.Release(l.ItemID)
	h.Remove(l.ID)
	r.metrics.RecordSettlement()

	cut := r.CutFor(l)
	if r.dir.IsOnline(l.Seller) {
		r.notify.Notify(l.Seller, domain.Notice{
			Kind: domain.NoticeSalePending, ListingID: l.ID, Amount: safe.SafeSub(l.CurrentBid, cut), ItemTemplate: item.Template,
		})
	}
	if r.dir.IsOnline(l.Bidder) {
		r.notify.Notify(l.Bidder, domain.Notice{
			Kind: domain.NoticeWon, ListingID: l.ID, Amount: l.CurrentBid, ItemTemplate: item.Template,
		})
	}
}

// RemoveAllListingsOf terminates every listing one owner has, across all
// houses: sold listings settle, unsold ones are returned. Used by account
// purges.
func (r *Registry) RemoveAllListingsOf(owner string, now time.Time) {
	for _, id := range r.houseIDs() {
		h := r.houses[id]
		for _, snap := range h.Snapshot(func(l *domain.Listing) bool { return l.Seller == owner }) {
			l, ok := h.Get(snap.ID)
			if !ok {
				continue
			}
			r.finishOwned(h, l, now)
		}
	}
}

func (r *Registry) finishOwned(h *House, l *domain.Listing, now time.Time) {
	item, ok := r.vault.Peek(l.ItemID)
	if !ok {
		slog.Error("purge: listing has no custody item, dropping",
			slog.Uint64("listing", l.ID), slog.Uint64("item", l.ItemID))
		r.metrics.RecordIntegrityEvent()
		if err := r.store.Txn(func(tx *storage.Txn) error { return tx.DeleteListing(l.ID) }); err != nil {
			r.metrics.RecordError()
			return
		}
		h.Remove(l.ID)
		return
	}
	if l.HasBidder() {
		mails := 0
		err := r.store.Txn(func(tx *storage.Txn) error {
			n, err := r.settleTx(tx, l, item, now)
			mails = n
			return err
		})
		if err != nil {
			slog.Error("purge: settlement persistence failed", slog.Uint64("listing", l.ID), slog.Any("error", err))
			r.metrics.RecordError()
			return
		}
		r.recordMails(mails)
		r.settleApply(h, l, item)
		return
	}
	r.returnExpired(h, l, item, now)
}

// ======================================================================================
// Enumeration
// ======================================================================================

// ListingView is the client-facing snapshot of one listing.
type ListingView struct {
	Listing      domain.Listing `json:"listing"`
	Item         domain.Item    `json:"item"`
	MinimumBid   int64          `json:"minimum_bid"`
	TimeLeftSecs int64          `json:"time_left_secs"`
}

const searchPageSize = 50

// SearchQuery filters a house's listings. Zero values mean "any".
type SearchQuery struct {
	Segment  string
	Name     string
	LevelMin int32
	LevelMax int32
	Quality  int32 // -1 = any
	Offset   int
}

// Search enumerates the routed house's listings with the client's filters,
// windowed to one page.
func (r *Registry) Search(q SearchQuery, now time.Time) []ListingView {
	house := r.HouseFor(q.Segment)
	needle := strings.ToLower(q.Name)

	views := make([]ListingView, 0, searchPageSize)
	matched := 0
	for _, snap := range house.Snapshot(nil) {
		item, ok := r.vault.Peek(snap.ItemID)
		if !ok {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(item.Name), needle) {
			continue
		}
		if q.LevelMin > 0 && item.RequiredLevel < q.LevelMin {
			continue
		}
		if q.LevelMax > 0 && item.RequiredLevel > q.LevelMax {
			continue
		}
		if q.Quality >= 0 && item.Quality != q.Quality {
			continue
		}
		if matched >= q.Offset && len(views) < searchPageSize {
			views = append(views, r.view(snap, item, now))
		}
		matched++
	}
	return views
}

// OwnerListings returns the caller's own listings in the routed house.
func (r *Registry) OwnerListings(segment, owner string, now time.Time) []ListingView {
	return r.viewsWhere(segment, now, func(l *domain.Listing) bool { return l.Seller == owner })
}

// BidderListings returns the listings the caller is currently winning.
func (r *Registry) BidderListings(segment, bidder string, now time.Time) []ListingView {
	return r.viewsWhere(segment, now, func(l *domain.Listing) bool { return l.Bidder == bidder })
}

func (r *Registry) viewsWhere(segment string, now time.Time, pred func(*domain.Listing) bool) []ListingView {
	house := r.HouseFor(segment)
	var views []ListingView
	for _, snap := range house.Snapshot(pred) {
		item, ok := r.vault.Peek(snap.ItemID)
		if !ok {
			continue
		}
		views = append(views, r.view(snap, item, now))
	}
	return views
}

func (r *Registry) view(l domain.Listing, item *domain.Item, now time.Time) ListingView {
	timeLeft := l.ExpiresAt - now.Unix()
	if timeLeft < 0 {
		timeLeft = 0
	}
	return ListingView{
		Listing:      l,
		Item:         *item,
		MinimumBid:   l.MinimumBid(),
		TimeLeftSecs: timeLeft,
	}
}

// ======================================================================================
// Lifecycle
// ======================================================================================

// Load rebuilds every house from durable storage. Custody items load first;
// listings that lost their item or their house mapping are dropped with an
// integrity log, returning the item to the owner when it can still be found.
func (r *Registry) Load() error {
	items, err := r.store.Items()
	if err != nil {
		return err
	}
	for i := range items {
		_ = r.vault.Take(&items[i])
	}

	balances, err := r.store.Balances()
	if err != nil {
		return err
	}
	for i := range balances {
		r.balances.Put(&balances[i])
	}

	listings, err := r.store.Listings()
	if err != nil {
		return err
	}
	loaded := 0
	for i := range listings {
		l := listings[i]
		if l.ID >= r.nextID {
			r.nextID = l.ID + 1
		}

		house, houseKnown := r.houses[l.HouseID]
		item, itemHeld := r.vault.Peek(l.ItemID)

		if !houseKnown {
			// House vanished from configuration. Send the item home and drop
			// the listing.
			slog.Error("load: listing references unknown house",
				slog.Uint64("listing", l.ID), slog.String("house", l.HouseID))
			r.metrics.RecordIntegrityEvent()
			now := time.Now()
			mails := 0
			err := r.store.Txn(func(tx *storage.Txn) error {
				mails = 0
				if itemHeld {
					if _, ok := r.dir.AccountOf(l.Seller); ok {
						if err := tx.QueueMail(r.newMail(l.Seller, domain.MailExpired, 0, item, l.ID, item.Template, 0, now)); err != nil {
							return err
						}
						mails++
					}
					if err := tx.DeleteItem(item.ID); err != nil {
						return err
					}
				}
				return tx.DeleteListing(l.ID)
			})
			if err != nil {
				return err
			}
			r.recordMails(mails)
			if itemHeld {
				r.vault.Release(l.ItemID)
			}
			continue
		}

		if !itemHeld {
			slog.Error("load: listing references missing item, dropped",
				slog.Uint64("listing", l.ID), slog.Uint64("item", l.ItemID))
			r.metrics.RecordIntegrityEvent()
			if err := r.store.Txn(func(tx *storage.Txn) error { return tx.DeleteListing(l.ID) }); err != nil {
				return err
			}
			continue
		}

		house.Add(&l)
		loaded++
	}

	slog.Info("marketplace loaded",
		slog.Int("listings", loaded), slog.Int("items", r.vault.Len()),
		slog.Int("dropped", len(listings)-loaded))
	return nil
}

// Flush marks the end of the registry's lifecycle. All writes are already
// durable per operation; this logs the final state for the shutdown record.
func (r *Registry) Flush() error {
	total := 0
	for _, h := range r.houses {
		total += h.Len()
	}
	slog.Info("marketplace flushed",
		slog.Int("active_listings", total), slog.Int("custody_items", r.vault.Len()))
	return nil
}

// DumpState writes the entire internal state to a file (for post-mortem).
func (r *Registry) DumpState(filename string) {
	slog.Info("Dumping marketplace state...", slog.String("file", filename))

	houses := make(map[string][]domain.Listing, len(r.houses))
	for id, h := range r.houses {
		houses[id] = h.Snapshot(nil)
	}
	data := struct {
		NextID   uint64                      `json:"next_id"`
		Houses   map[string][]domain.Listing `json:"houses"`
		Balances map[string]domain.Balance   `json:"balances"`
	}{
		NextID:   r.nextID,
		Houses:   houses,
		Balances: r.balances.Snapshot(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}

func (r *Registry) houseIDs() []string {
	ids := make([]string, 0, len(r.houses))
	for id := range r.houses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) newMail(recipient string, kind domain.MailKind, money int64, item *domain.Item, listingID uint64, template uint32, deliverAt int64, now time.Time) *domain.Mail {
	return &domain.Mail{
		ID:           uuid.NewString(),
		Recipient:    recipient,
		Kind:         kind,
		Money:        money,
		Item:         item,
		ItemTemplate: template,
		ListingID:    listingID,
		DeliverAt:    deliverAt,
		CreatedAt:    now.Unix(),
	}
}
