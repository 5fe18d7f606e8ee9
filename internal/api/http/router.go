package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"streamrent/internal/clock"
	"streamrent/internal/security"
	"streamrent/internal/service"
)

// RouterDeps bundle everything the HTTP surface needs.
type RouterDeps struct {
	Listings   service.ListingService
	Rentals    service.RentalService
	Streams    service.StreamService
	Reputation service.ReputationService
	Keys       *security.APIKeyAuthenticator
	Tokens     security.TokenManager
	Clock      clock.Clock
}

// NewRouter assembles the API. Everything under /api/v1 except the token
// exchange and the health check requires a bearer token.
func NewRouter(deps RouterDeps) *mux.Router {
	root := mux.NewRouter()
	root.Use(Logging)

	root.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	auth := NewAuthHandler(deps.Keys, deps.Tokens)
	root.HandleFunc("/api/v1/auth/token", auth.HandleToken).Methods("POST")

	api := root.PathPrefix("/api/v1").Subrouter()
	api.Use(NewAuthMiddleware(deps.Tokens).Require)

	listings := NewListingHandler(deps.Listings)
	api.HandleFunc("/listings", listings.HandleCreate).Methods("POST")
	api.HandleFunc("/listings", listings.HandleList).Methods("GET")
	api.HandleFunc("/listings/{id}", listings.HandleGet).Methods("GET")
	api.HandleFunc("/listings/{id}", listings.HandleDeactivate).Methods("DELETE")
	api.HandleFunc("/listings/{id}/quote", listings.HandleQuote).Methods("GET")

	rentals := NewRentalHandler(deps.Rentals)
	api.HandleFunc("/rentals", rentals.HandleRent).Methods("POST")
	api.HandleFunc("/rentals/recoverable", rentals.HandleListRecoverable).Methods("GET")
	api.HandleFunc("/rentals/{id}", rentals.HandleGet).Methods("GET")
	api.HandleFunc("/rentals/{id}/complete", rentals.HandleComplete).Methods("POST")
	api.HandleFunc("/rentals/{id}/dispute", rentals.HandleDispute).Methods("POST")
	api.HandleFunc("/rentals/{id}/resolve", rentals.HandleResolve).Methods("POST")
	api.HandleFunc("/rentals/{id}/recover", rentals.HandleRecover).Methods("POST")

	api.HandleFunc("/collateral", rentals.HandleGetCollateral).Methods("GET")
	api.HandleFunc("/collateral/deposit", rentals.HandleDepositCollateral).Methods("POST")
	api.HandleFunc("/collateral/withdraw", rentals.HandleWithdrawCollateral).Methods("POST")

	streams := NewStreamHandler(deps.Streams, deps.Clock)
	api.HandleFunc("/streams", streams.HandleCreate).Methods("POST")
	api.HandleFunc("/streams/{id}", streams.HandleGet).Methods("GET")
	api.HandleFunc("/streams/{id}/vested", streams.HandleVested).Methods("GET")
	api.HandleFunc("/streams/{id}/withdraw", streams.HandleWithdraw).Methods("POST")
	api.HandleFunc("/streams/{id}/cancel", streams.HandleCancel).Methods("POST")

	reputation := NewReputationHandler(deps.Reputation)
	api.HandleFunc("/reputation/{account}", reputation.HandleGet).Methods("GET")
	api.HandleFunc("/reputation/{account}/collateral", reputation.HandleSizeCollateral).Methods("GET")

	return root
}
