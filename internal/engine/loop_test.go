package engine

import (
	"context"
	"testing"
	"time"

	"auction_go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T, f *fixture) *Loop {
	t.Helper()
	lp := NewLoop(64, f.reg)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go lp.Run(ctx)
	return lp
}

func TestLoop_SerializesCommands(t *testing.T) {
	f := newFixture(t)
	f.fund("arden", 1000)
	f.fund("bryn", 1000)
	f.seedItem("arden", 100, "Ironwood Shield")
	lp := startLoop(t, f)
	ctx := context.Background()

	res, id, err := lp.Sell(ctx, SellRequest{
		Seller: "arden", Segment: "westhold", ItemID: 100,
		StartPrice: 50, BuyoutPrice: 500, DurationHours: 12,
	})
	require.NoError(t, err)
	require.Equal(t, domain.SellOK, res)

	bidRes, err := lp.PlaceBid(ctx, BidRequest{Bidder: "bryn", Segment: "westhold", ListingID: id, Price: 50})
	require.NoError(t, err)
	assert.Equal(t, domain.BidOK, bidRes)

	views, err := lp.Search(ctx, SearchQuery{Segment: "westhold", Quality: -1})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, int64(50), views[0].Listing.CurrentBid)

	owned, err := lp.OwnerListings(ctx, "westhold", "arden")
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	winning, err := lp.BidderListings(ctx, "westhold", "bryn")
	require.NoError(t, err)
	assert.Len(t, winning, 1)

	require.NoError(t, lp.Tick(ctx))

	cancelRes, err := lp.Cancel(ctx, CancelRequest{Owner: "arden", Segment: "westhold", ListingID: id})
	require.NoError(t, err)
	// A bid is standing, so the cancel costs the cut; arden can afford it.
	assert.Equal(t, domain.CancelOK, cancelRes)
}

func TestLoop_ManyConcurrentSubmitters(t *testing.T) {
	f := newFixture(t)
	f.cfg.Market.MaxListingsPerActor = 100
	f.fund("arden", 100_000)
	for id := uint64(1); id <= 20; id++ {
		f.seedItem("arden", id, "Copper Ore")
	}
	lp := startLoop(t, f)

	// Submitters race; the loop must apply them one at a time with no lost
	// updates and strictly increasing listing ids.
	done := make(chan uint64, 20)
	for id := uint64(1); id <= 20; id++ {
		go func(itemID uint64) {
			res, lid, err := lp.Sell(context.Background(), SellRequest{
				Seller: "arden", Segment: "westhold", ItemID: itemID,
				StartPrice: 10, DurationHours: 12,
			})
			assert.NoError(t, err)
			assert.Equal(t, domain.SellOK, res)
			done <- lid
		}(id)
	}

	seen := make(map[uint64]bool)
	for i := 0; i < 20; i++ {
		lid := <-done
		assert.False(t, seen[lid], "listing ids must be unique")
		seen[lid] = true
	}
	assert.Equal(t, 20, f.reg.houses["alliance"].Len())
}

func TestLoop_ContextCancelledBeforeSubmit(t *testing.T) {
	f := newFixture(t)
	lp := NewLoop(0, f.reg) // unbuffered, nobody draining

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := lp.Sell(ctx, SellRequest{Seller: "arden", Segment: "westhold", ItemID: 1, StartPrice: 10, DurationHours: 12})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoop_StopsOnContextDone(t *testing.T) {
	f := newFixture(t)
	lp := NewLoop(1, f.reg)
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		lp.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on context cancellation")
	}
}
