package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"streamrent/internal/domain"
	"streamrent/internal/security"
	"streamrent/internal/service"
)

type RentalHandler struct {
	rentals service.RentalService
}

func NewRentalHandler(rentals service.RentalService) *RentalHandler {
	return &RentalHandler{rentals: rentals}
}

type rentRequest struct {
	ListingID       string `json:"listing_id"`
	DurationSeconds int64  `json:"duration_seconds"`
	Payment         int64  `json:"payment"`
}

func (h *RentalHandler) HandleRent(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	var req rentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.ListingID == "" {
		writeBadRequest(w, "listing_id is required")
		return
	}

	rental, err := h.rentals.Rent(r.Context(), caller.Account, req.ListingID, req.DurationSeconds, req.Payment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rental)
}

func (h *RentalHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	rental, err := h.rentals.CompleteRental(r.Context(), caller.Account, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

type disputeRequest struct {
	Reason string `json:"reason"`
}

func (h *RentalHandler) HandleDispute(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	var req disputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	rental, err := h.rentals.Dispute(r.Context(), caller.Account, mux.Vars(r)["id"], req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

type resolveRequest struct {
	FavorRenter  bool  `json:"favor_renter"`
	RefundAmount int64 `json:"refund_amount"`
}

func (h *RentalHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())
	if !caller.HasRole(security.RoleResolver) {
		writeError(w, domain.ErrNotResolver)
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	rental, err := h.rentals.ResolveDispute(r.Context(), caller.Account, mux.Vars(r)["id"], req.FavorRenter, req.RefundAmount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (h *RentalHandler) HandleRecover(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())
	if !caller.HasRole(security.RoleOperator) {
		writeError(w, domain.ErrNotOperator)
		return
	}

	rental, err := h.rentals.EmergencyRecover(r.Context(), caller.Account, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (h *RentalHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rental, err := h.rentals.GetRental(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (h *RentalHandler) HandleListRecoverable(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())
	if !caller.HasRole(security.RoleOperator) {
		writeError(w, domain.ErrNotOperator)
		return
	}

	rentals, err := h.rentals.ListRecoverable(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rentals": rentals})
}

type collateralRequest struct {
	Amount int64 `json:"amount"`
}

func (h *RentalHandler) HandleDepositCollateral(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	var req collateralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	acct, err := h.rentals.DepositCollateral(r.Context(), caller.Account, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *RentalHandler) HandleWithdrawCollateral(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	var req collateralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	acct, err := h.rentals.WithdrawCollateral(r.Context(), caller.Account, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *RentalHandler) HandleGetCollateral(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	acct, err := h.rentals.GetCollateralAccount(r.Context(), caller.Account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}
