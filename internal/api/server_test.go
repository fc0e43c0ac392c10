package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"auction_go/internal/domain"
	"auction_go/internal/engine"
	"auction_go/internal/infra"
	"auction_go/internal/infra/storage"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDirectory struct{}

func (stubDirectory) AccountOf(actor string) (string, bool) { return "acc-" + actor, true }
func (stubDirectory) OriginOf(actor string) (string, bool)  { return "", false }
func (stubDirectory) IsOnline(actor string) bool            { return false }

type stubInventory struct {
	items map[uint64]*domain.Item
}

func (s *stubInventory) Get(owner string, itemID uint64) (*domain.Item, bool) {
	it, ok := s.items[itemID]
	if !ok || it.Owner != owner {
		return nil, false
	}
	return it, true
}

func (s *stubInventory) Withdraw(owner string, itemID uint64) error {
	delete(s.items, itemID)
	return nil
}

type stubNotifier struct{}

func (stubNotifier) Notify(string, domain.Notice) {}

func testConfig() *infra.Config {
	one := decimal.NewFromInt(1)
	cfg := &infra.Config{}
	cfg.Market.NeutralHouse = "neutral"
	cfg.Market.CrossCutPercent = 5
	cfg.Market.CrossDepositRate = decimal.RequireFromString("0.15")
	cfg.Market.Houses = []infra.HouseConfig{
		{ID: "alliance", CutPercent: 5, DepositRate: decimal.RequireFromString("0.15")},
		{ID: "neutral", CutPercent: 15, DepositRate: decimal.RequireFromString("0.75")},
	}
	cfg.Market.Segments = map[string]string{"westhold": "alliance"}
	cfg.Market.DurationsHours = []int64{12, 24, 48}
	cfg.Market.MaxListingsPerActor = 50
	cfg.Market.MailDeliveryDelaySecs = 3600
	cfg.Rates.Deposit, cfg.Rates.Cut, cfg.Rates.Time = one, one, one
	return cfg
}

func setupRouter(t *testing.T) *mux.Router {
	t.Helper()

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	// Balances are loaded from the store, so seed them there.
	require.NoError(t, store.Txn(func(tx *storage.Txn) error {
		if err := tx.SaveBalance(&domain.Balance{Actor: "arden", Copper: 1000}); err != nil {
			return err
		}
		return tx.SaveBalance(&domain.Balance{Actor: "bryn", Copper: 1000})
	}))

	inv := &stubInventory{items: map[uint64]*domain.Item{
		100: {ID: 100, Template: 4711, Name: "Ironwood Shield", Owner: "arden", StackCount: 1, BasePrice: 30},
	}}

	reg := engine.NewRegistry(testConfig(), store, stubDirectory{}, inv, stubNotifier{})
	require.NoError(t, reg.Load())

	loop := engine.NewLoop(64, reg)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go loop.Run(ctx)

	return NewHandler(loop).SetupRoutes()
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func createListing(t *testing.T, router *mux.Router) uint64 {
	t.Helper()
	rec, body := doJSON(t, router, "POST", "/api/v1/auctions", map[string]any{
		"seller": "arden", "segment": "westhold", "item_id": 100,
		"start_price": 50, "buyout_price": 500, "duration_hours": 12,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "ok", body["result"])
	return uint64(body["listing_id"].(float64))
}

func TestHealthCheck(t *testing.T) {
	router := setupRouter(t)
	rec, body := doJSON(t, router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestCreateListing(t *testing.T) {
	router := setupRouter(t)
	id := createListing(t, router)
	assert.Equal(t, uint64(1), id)
}

func TestCreateListing_Validation(t *testing.T) {
	router := setupRouter(t)

	rec, _ := doJSON(t, router, "POST", "/api/v1/auctions", map[string]any{
		"segment": "westhold", "item_id": 100, "start_price": 50, "duration_hours": 12,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing seller")

	rec, body := doJSON(t, router, "POST", "/api/v1/auctions", map[string]any{
		"seller": "arden", "segment": "westhold", "item_id": 100, "start_price": 0, "duration_hours": 12,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid-price", body["result"])

	rec, body = doJSON(t, router, "POST", "/api/v1/auctions", map[string]any{
		"seller": "arden", "segment": "westhold", "item_id": 999, "start_price": 50, "duration_hours": 12,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "item-not-found", body["result"])
}

func TestPlaceBid(t *testing.T) {
	router := setupRouter(t)
	id := createListing(t, router)

	rec, body := doJSON(t, router, "POST", fmt.Sprintf("/api/v1/auctions/%d/bids", id), map[string]any{
		"bidder": "bryn", "segment": "westhold", "price": 50,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["accepted"])

	// A stale bid is dropped, not an error.
	rec, body = doJSON(t, router, "POST", fmt.Sprintf("/api/v1/auctions/%d/bids", id), map[string]any{
		"bidder": "bryn", "segment": "westhold", "price": 50,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["accepted"])
	assert.Equal(t, "ignored-stale", body["result"])

	// Sellers cannot bid on their own listings.
	rec, _ = doJSON(t, router, "POST", fmt.Sprintf("/api/v1/auctions/%d/bids", id), map[string]any{
		"bidder": "arden", "segment": "westhold", "price": 60,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = doJSON(t, router, "POST", "/api/v1/auctions/not-a-number/bids", map[string]any{
		"bidder": "bryn", "segment": "westhold", "price": 60,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelListing(t *testing.T) {
	router := setupRouter(t)
	id := createListing(t, router)

	rec, _ := doJSON(t, router, "DELETE", fmt.Sprintf("/api/v1/auctions/%d?owner=bryn&segment=westhold", id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "only the owner may cancel")

	rec, body := doJSON(t, router, "DELETE", fmt.Sprintf("/api/v1/auctions/%d?owner=arden&segment=westhold", id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["result"])
}

func TestSearchAndViews(t *testing.T) {
	router := setupRouter(t)
	id := createListing(t, router)

	rec, body := doJSON(t, router, "GET", "/api/v1/auctions?segment=westhold&name=shield", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, body = doJSON(t, router, "GET", "/api/v1/auctions?segment=westhold&name=dagger", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["count"])

	rec, body = doJSON(t, router, "GET", "/api/v1/auctions/mine?segment=westhold&actor=arden", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	_, _ = doJSON(t, router, "POST", fmt.Sprintf("/api/v1/auctions/%d/bids", id), map[string]any{
		"bidder": "bryn", "segment": "westhold", "price": 50,
	})
	rec, body = doJSON(t, router, "GET", "/api/v1/auctions/bidding?segment=westhold&actor=bryn", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, _ = doJSON(t, router, "GET", "/api/v1/auctions/mine?segment=westhold", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "actor is required")
}

func TestPurgeActor(t *testing.T) {
	router := setupRouter(t)
	createListing(t, router)

	rec, body := doJSON(t, router, "DELETE", "/api/v1/actors/arden/auctions", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["result"])

	rec, body = doJSON(t, router, "GET", "/api/v1/auctions/mine?segment=westhold&actor=arden", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["count"], "purged actors hold no listings")
}

func TestStats(t *testing.T) {
	router := setupRouter(t)
	createListing(t, router)

	rec, body := doJSON(t, router, "GET", "/stats", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "listings_created")
	assert.Contains(t, body, "commands_processed")
}
