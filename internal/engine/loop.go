package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"auction_go/internal/domain"
	"auction_go/internal/infra"
)

// task is one unit of work for the loop: a closure over the registry plus a
// completion signal the submitter waits on.
type task struct {
	fn   func(*Registry)
	done chan struct{}
}

// Loop is the single-threaded command processor. Every registry mutation and
// read funnels through its inbox, so the registry never needs a lock.
type Loop struct {
	inbox chan task
	reg   *Registry
}

// NewLoop creates a loop around a loaded registry.
func NewLoop(inboxSize int, reg *Registry) *Loop {
	return &Loop{
		inbox: make(chan task, inboxSize),
		reg:   reg,
	}
}

// Run starts the main command loop. This MUST be run in a single goroutine.
func (lp *Loop) Run(ctx context.Context) {
	slog.Info("Engine loop started (Single-Thread Hotpath)")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			lp.reg.DumpState("panic_dump.json")
			// Corrupt in-memory state must not keep trading. Halt after dump.
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Engine loop stopping...")
			return
		case t := <-lp.inbox:
			t.fn(lp.reg)
			infra.GlobalMetrics.RecordCommand()
			close(t.done)
		}
	}
}

// do submits fn to the loop and blocks until it has run, or until ctx is
// cancelled before the loop picks it up.
func (lp *Loop) do(ctx context.Context, fn func(*Registry)) error {
	t := task{fn: fn, done: make(chan struct{})}
	select {
	case lp.inbox <- t:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sell runs a sell request on the loop.
func (lp *Loop) Sell(ctx context.Context, req SellRequest) (domain.SellResult, uint64, error) {
	var res domain.SellResult
	var id uint64
	err := lp.do(ctx, func(r *Registry) {
		res, id = r.Sell(req, time.Now())
	})
	return res, id, err
}

// PlaceBid runs a bid or buyout request on the loop.
func (lp *Loop) PlaceBid(ctx context.Context, req BidRequest) (domain.BidResult, error) {
	var res domain.BidResult
	err := lp.do(ctx, func(r *Registry) {
		res = r.PlaceBid(req, time.Now())
	})
	return res, err
}

// Cancel runs a cancel request on the loop.
func (lp *Loop) Cancel(ctx context.Context, req CancelRequest) (domain.CancelResult, error) {
	var res domain.CancelResult
	err := lp.do(ctx, func(r *Registry) {
		res = r.Cancel(req, time.Now())
	})
	return res, err
}

// Search runs a filtered enumeration on the loop.
func (lp *Loop) Search(ctx context.Context, q SearchQuery) ([]ListingView, error) {
	var views []ListingView
	err := lp.do(ctx, func(r *Registry) {
		views = r.Search(q, time.Now())
	})
	return views, err
}

// OwnerListings returns the caller's own listings.
func (lp *Loop) OwnerListings(ctx context.Context, segment, owner string) ([]ListingView, error) {
	var views []ListingView
	err := lp.do(ctx, func(r *Registry) {
		views = r.OwnerListings(segment, owner, time.Now())
	})
	return views, err
}

// BidderListings returns the listings the caller is winning.
func (lp *Loop) BidderListings(ctx context.Context, segment, bidder string) ([]ListingView, error) {
	var views []ListingView
	err := lp.do(ctx, func(r *Registry) {
		views = r.BidderListings(segment, bidder, time.Now())
	})
	return views, err
}

// Tick runs one expiry sweep on the loop.
func (lp *Loop) Tick(ctx context.Context) error {
	return lp.do(ctx, func(r *Registry) {
		r.Tick(time.Now())
	})
}

// RemoveAllListingsOf purges every listing one owner has.
func (lp *Loop) RemoveAllListingsOf(ctx context.Context, owner string) error {
	return lp.do(ctx, func(r *Registry) {
		r.RemoveAllListingsOf(owner, time.Now())
	})
}
