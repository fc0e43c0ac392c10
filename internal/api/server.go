package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"auction_go/internal/domain"
	"auction_go/internal/engine"
	"auction_go/internal/infra"

	"github.com/gorilla/mux"
)

// Handler contains HTTP request handlers. All marketplace calls go through
// the engine loop; the handler never touches registry state directly.
type Handler struct {
	loop *engine.Loop
}

// NewHandler creates a new HTTP handler.
func NewHandler(loop *engine.Loop) *Handler {
	return &Handler{loop: loop}
}

// SetupRoutes configures all HTTP routes.
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/stats", h.Stats).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auctions", h.CreateListing).Methods("POST")
	api.HandleFunc("/auctions", h.SearchListings).Methods("GET")
	api.HandleFunc("/auctions/mine", h.OwnerListings).Methods("GET")
	api.HandleFunc("/auctions/bidding", h.BidderListings).Methods("GET")
	api.HandleFunc("/auctions/{id}/bids", h.PlaceBid).Methods("POST")
	api.HandleFunc("/auctions/{id}", h.CancelListing).Methods("DELETE")
	api.HandleFunc("/actors/{actor}/auctions", h.PurgeActor).Methods("DELETE")

	router.Use(loggingMiddleware)

	return router
}

// HealthCheck returns service health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "marketplace",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Stats returns the engine's counters.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, infra.GlobalMetrics.Snapshot())
}

type createListingRequest struct {
	Seller        string `json:"seller"`
	Segment       string `json:"segment"`
	ItemID        uint64 `json:"item_id"`
	StartPrice    int64  `json:"start_price"`
	BuyoutPrice   int64  `json:"buyout_price"`
	DurationHours int64  `json:"duration_hours"`
}

// CreateListing handles sell requests.
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Seller == "" {
		respondError(w, http.StatusBadRequest, "Seller is required")
		return
	}

	res, id, err := h.loop.Sell(r.Context(), engine.SellRequest{
		Seller:        req.Seller,
		Segment:       req.Segment,
		ItemID:        req.ItemID,
		StartPrice:    req.StartPrice,
		BuyoutPrice:   req.BuyoutPrice,
		DurationHours: req.DurationHours,
	})
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Engine unavailable")
		return
	}

	respondJSON(w, sellStatus(res), map[string]any{
		"result":     res.String(),
		"listing_id": id,
	})
}

type placeBidRequest struct {
	Bidder  string `json:"bidder"`
	Segment string `json:"segment"`
	Price   int64  `json:"price"`
}

// PlaceBid handles bid and buyout requests.
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	listingID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid listing id")
		return
	}

	var req placeBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Bidder == "" {
		respondError(w, http.StatusBadRequest, "Bidder is required")
		return
	}
	if req.Price <= 0 {
		respondError(w, http.StatusBadRequest, "Bid price must be positive")
		return
	}

	res, err := h.loop.PlaceBid(r.Context(), engine.BidRequest{
		Bidder:    req.Bidder,
		Segment:   req.Segment,
		ListingID: listingID,
		Price:     req.Price,
	})
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Engine unavailable")
		return
	}

	respondJSON(w, bidStatus(res), map[string]any{
		"result":   res.String(),
		"accepted": res.Accepted(),
	})
}

// CancelListing handles an owner cancelling their own listing.
func (h *Handler) CancelListing(w http.ResponseWriter, r *http.Request) {
	listingID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid listing id")
		return
	}
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		respondError(w, http.StatusBadRequest, "Owner is required")
		return
	}

	res, err := h.loop.Cancel(r.Context(), engine.CancelRequest{
		Owner:     owner,
		Segment:   r.URL.Query().Get("segment"),
		ListingID: listingID,
	})
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Engine unavailable")
		return
	}

	respondJSON(w, cancelStatus(res), map[string]any{"result": res.String()})
}

// PurgeActor terminates every listing an actor has, across all houses. Used
// when an account is deleted: sold listings settle, unsold items go home.
func (h *Handler) PurgeActor(w http.ResponseWriter, r *http.Request) {
	actor := mux.Vars(r)["actor"]
	if actor == "" {
		respondError(w, http.StatusBadRequest, "Actor is required")
		return
	}
	if err := h.loop.RemoveAllListingsOf(r.Context(), actor); err != nil {
		respondError(w, http.StatusServiceUnavailable, "Engine unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

// SearchListings enumerates the routed house with the client's filters.
func (h *Handler) SearchListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := engine.SearchQuery{
		Segment:  q.Get("segment"),
		Name:     q.Get("name"),
		LevelMin: int32(queryInt(q.Get("level_min"))),
		LevelMax: int32(queryInt(q.Get("level_max"))),
		Quality:  -1,
		Offset:   int(queryInt(q.Get("offset"))),
	}
	if raw := q.Get("quality"); raw != "" {
		query.Quality = int32(queryInt(raw))
	}

	views, err := h.loop.Search(r.Context(), query)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Engine unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(views),
		"listings": views,
	})
}

// OwnerListings returns the caller's own listings.
func (h *Handler) OwnerListings(w http.ResponseWriter, r *http.Request) {
	h.actorListings(w, r, h.loop.OwnerListings)
}

// BidderListings returns the listings the caller is currently winning.
func (h *Handler) BidderListings(w http.ResponseWriter, r *http.Request) {
	h.actorListings(w, r, h.loop.BidderListings)
}

func (h *Handler) actorListings(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, segment, actor string) ([]engine.ListingView, error)) {
	actor := r.URL.Query().Get("actor")
	if actor == "" {
		respondError(w, http.StatusBadRequest, "Actor is required")
		return
	}
	views, err := fetch(r.Context(), r.URL.Query().Get("segment"), actor)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Engine unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(views),
		"listings": views,
	})
}

func sellStatus(res domain.SellResult) int {
	switch res {
	case domain.SellOK:
		return http.StatusCreated
	case domain.SellErrInvalidPrice, domain.SellErrInvalidDuration:
		return http.StatusBadRequest
	case domain.SellErrItemNotFound:
		return http.StatusNotFound
	case domain.SellErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}

func bidStatus(res domain.BidResult) int {
	switch res {
	case domain.BidOK:
		return http.StatusCreated
	case domain.BidErrInternal:
		return http.StatusInternalServerError
	case domain.BidErrMustWait:
		return http.StatusTooEarly
	case domain.BidErrOwnListing:
		return http.StatusConflict
	default:
		// Ignored bids are not faults; the listing simply did not change.
		return http.StatusOK
	}
}

func cancelStatus(res domain.CancelResult) int {
	switch res {
	case domain.CancelOK:
		return http.StatusOK
	case domain.CancelErrNotOwner:
		return http.StatusNotFound
	case domain.CancelErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}

func queryInt(raw string) int64 {
	n, _ := strconv.ParseInt(raw, 10, 64)
	return n
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}

// loggingMiddleware logs all HTTP requests.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request",
			slog.String("method", r.Method),
			slog.String("uri", r.RequestURI),
			slog.Duration("duration", time.Since(start)))
	})
}
