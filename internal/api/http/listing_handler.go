package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"streamrent/internal/domain"
	"streamrent/internal/service"
	"streamrent/internal/utils"
)

type ListingHandler struct {
	listings service.ListingService
}

func NewListingHandler(listings service.ListingService) *ListingHandler {
	return &ListingHandler{listings: listings}
}

type createListingRequest struct {
	Asset              domain.AssetRef `json:"asset"`
	PricePerSecond     int64           `json:"price_per_second"`
	MinDurationSeconds int64           `json:"min_duration_seconds"`
	MaxDurationSeconds int64           `json:"max_duration_seconds"`
	CollateralRequired int64           `json:"collateral_required"`
}

func (h *ListingHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Asset.Collection == "" {
		writeBadRequest(w, "asset.collection is required")
		return
	}

	listing, err := h.listings.CreateListing(r.Context(), caller.Account, req.Asset,
		req.PricePerSecond, req.MinDurationSeconds, req.MaxDurationSeconds, req.CollateralRequired)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

func (h *ListingHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())
	id := mux.Vars(r)["id"]

	listing, err := h.listings.Deactivate(r.Context(), caller.Account, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *ListingHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.GetListing(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

type quoteResponse struct {
	*service.ListingQuote
	DurationSeconds int64                `json:"duration_seconds,omitempty"`
	Duration        string               `json:"duration,omitempty"`
	Breakdown       *utils.CostBreakdown `json:"breakdown,omitempty"`
}

func (h *ListingHandler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.listings.Quote(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	resp := quoteResponse{ListingQuote: quote}
	if raw := r.URL.Query().Get("duration"); raw != "" {
		duration, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeBadRequest(w, "duration must be a second count")
			return
		}
		breakdown, err := utils.CalculateCostBreakdown(quote.Listing.PricePerSecond, duration)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		resp.DurationSeconds = duration
		resp.Duration = utils.FormatDuration(duration)
		resp.Breakdown = &breakdown
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ListingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner := domain.Account(r.URL.Query().Get("owner"))
	if owner.IsZero() {
		// Default to the caller's own listings.
		owner = CallerFromContext(r.Context()).Account
	}

	listings, err := h.listings.ListByOwner(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}
