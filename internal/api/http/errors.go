package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"streamrent/internal/domain"
	"streamrent/internal/logger"
)

// errorResponse is the wire shape of every failed call. Code is a stable
// machine-readable kind; clients dispatch on it, not on the message text.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errorCodes = map[error]struct {
	status int
	code   string
}{
	domain.ErrZeroPrice:        {http.StatusBadRequest, "ZERO_PRICE"},
	domain.ErrInvalidDuration:  {http.StatusBadRequest, "INVALID_DURATION"},
	domain.ErrInvalidRecipient: {http.StatusBadRequest, "INVALID_RECIPIENT"},
	domain.ErrZeroDeposit:      {http.StatusBadRequest, "ZERO_DEPOSIT"},
	domain.ErrStartInPast:      {http.StatusBadRequest, "START_IN_PAST"},
	domain.ErrStopBeforeStart:  {http.StatusBadRequest, "STOP_BEFORE_START"},
	domain.ErrInvalidAmount:    {http.StatusBadRequest, "INVALID_AMOUNT"},

	domain.ErrNotOwner:            {http.StatusForbidden, "NOT_OWNER"},
	domain.ErrNotListingOwner:     {http.StatusForbidden, "NOT_LISTING_OWNER"},
	domain.ErrSelfRentalForbidden: {http.StatusForbidden, "SELF_RENTAL_FORBIDDEN"},
	domain.ErrNotParticipant:      {http.StatusForbidden, "NOT_PARTICIPANT"},
	domain.ErrNotStreamParty:      {http.StatusForbidden, "NOT_STREAM_PARTY"},
	domain.ErrNotRecipient:        {http.StatusForbidden, "NOT_RECIPIENT"},
	domain.ErrNotResolver:         {http.StatusForbidden, "NOT_RESOLVER"},
	domain.ErrNotOperator:         {http.StatusForbidden, "NOT_OPERATOR"},
	domain.ErrNotSessionManager:   {http.StatusForbidden, "NOT_SESSION_MANAGER"},

	domain.ErrNotFound: {http.StatusNotFound, "NOT_FOUND"},

	domain.ErrListingInactive:     {http.StatusConflict, "LISTING_INACTIVE"},
	domain.ErrRentalInProgress:    {http.StatusConflict, "RENTAL_IN_PROGRESS"},
	domain.ErrRentalNotActive:     {http.StatusConflict, "RENTAL_NOT_ACTIVE"},
	domain.ErrRentalNotDisputed:   {http.StatusConflict, "RENTAL_NOT_DISPUTED"},
	domain.ErrTooEarly:            {http.StatusConflict, "TOO_EARLY"},
	domain.ErrDisputeWindowClosed: {http.StatusConflict, "DISPUTE_WINDOW_CLOSED"},
	domain.ErrGracePeriodActive:   {http.StatusConflict, "GRACE_PERIOD_ACTIVE"},
	domain.ErrStreamInactive:      {http.StatusConflict, "STREAM_INACTIVE"},

	domain.ErrInsufficientPayment:    {http.StatusPaymentRequired, "INSUFFICIENT_PAYMENT"},
	domain.ErrInsufficientCollateral: {http.StatusPaymentRequired, "INSUFFICIENT_COLLATERAL"},
	domain.ErrInsufficientVested:     {http.StatusPaymentRequired, "INSUFFICIENT_VESTED"},
	domain.ErrInsufficientBalance:    {http.StatusPaymentRequired, "INSUFFICIENT_BALANCE"},
}

func writeError(w http.ResponseWriter, err error) {
	for sentinel, m := range errorCodes {
		if errors.Is(err, sentinel) {
			writeJSON(w, m.status, errorResponse{Code: m.code, Message: err.Error()})
			return
		}
	}
	logger.Error("unmapped handler error", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "INTERNAL", Message: "internal error"})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Code: "BAD_REQUEST", Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
