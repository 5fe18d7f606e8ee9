package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"streamrent/internal/domain"
	"streamrent/internal/service"
)

type ReputationHandler struct {
	reputation service.ReputationService
}

func NewReputationHandler(reputation service.ReputationService) *ReputationHandler {
	return &ReputationHandler{reputation: reputation}
}

func (h *ReputationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	account := domain.Account(mux.Vars(r)["account"])

	record, err := h.reputation.GetRecord(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// HandleSizeCollateral quotes the collateral an account would owe against a
// base requirement, without touching any state.
func (h *ReputationHandler) HandleSizeCollateral(w http.ResponseWriter, r *http.Request) {
	account := domain.Account(mux.Vars(r)["account"])

	base, err := strconv.ParseInt(r.URL.Query().Get("base"), 10, 64)
	if err != nil || base < 0 {
		writeBadRequest(w, "base must be a non-negative integer")
		return
	}

	required, err := h.reputation.SizeCollateral(r.Context(), account, base)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"base": base, "required": required})
}
