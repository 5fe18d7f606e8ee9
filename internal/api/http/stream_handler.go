package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"streamrent/internal/clock"
	"streamrent/internal/domain"
	"streamrent/internal/service"
)

type StreamHandler struct {
	streams service.StreamService
	clk     clock.Clock
}

func NewStreamHandler(streams service.StreamService, clk clock.Clock) *StreamHandler {
	return &StreamHandler{streams: streams, clk: clk}
}

type createStreamRequest struct {
	Recipient domain.Account `json:"recipient"`
	Deposit   int64          `json:"deposit"`
	StartTime int64          `json:"start_time"`
	StopTime  int64          `json:"stop_time"`
}

func (h *StreamHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	var req createStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	stream, err := h.streams.CreateStream(r.Context(), caller.Account, req.Recipient, req.Deposit, req.StartTime, req.StopTime)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stream)
}

func (h *StreamHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	stream, err := h.streams.GetStream(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stream)
}

func (h *StreamHandler) HandleVested(w http.ResponseWriter, r *http.Request) {
	at := h.clk.Now().Unix()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeBadRequest(w, "at must be a unix timestamp")
			return
		}
		at = parsed
	}

	vested, err := h.streams.VestedAmount(r.Context(), mux.Vars(r)["id"], at)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"vested": vested, "at": at})
}

type withdrawRequest struct {
	Amount int64 `json:"amount"`
}

func (h *StreamHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	stream, err := h.streams.Withdraw(r.Context(), caller.Account, mux.Vars(r)["id"], req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stream)
}

func (h *StreamHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	settlement, err := h.streams.Cancel(r.Context(), caller.Account, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlement)
}
