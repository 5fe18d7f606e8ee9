package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamrent/internal/assetreg"
	"streamrent/internal/clock"
	"streamrent/internal/domain"
	"streamrent/internal/events"
	"streamrent/internal/ledger"
	"streamrent/internal/oracle"
	"streamrent/internal/policy"
	"streamrent/internal/repository/memory"
	"streamrent/internal/security"
	"streamrent/internal/service"
)

type apiFixture struct {
	router   http.Handler
	balances *ledger.MemoryLedger
	registry *assetreg.MockRegistry
	clk      *clock.Fixed
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	balances := ledger.NewMemoryLedger()
	registry := assetreg.NewMockRegistry()
	clk := clock.NewFixed(time.Unix(1_000_000, 0).UTC())
	publisher := events.Noop{}

	streams := service.NewStreamService(store.StreamRepository, balances, clk, publisher, "custody:streams")
	reputation := service.NewReputationService(store.ReputationRepository, policy.DefaultParams(),
		clk, publisher, domain.SessionManagerAccount)
	listings := service.NewListingService(store.ListingRepository, store.RentalRepository,
		registry, oracle.NewStaticOracle(), clk, publisher, 60, 30*24*3600)
	rentals := service.NewRentalService(store.RentalRepository, store.ListingRepository,
		store.CollateralRepository, streams, reputation, balances, registry, clk, publisher,
		service.RentalConfig{
			RecoveryGraceSeconds: 7 * 24 * 3600,
			DisputeWindowSeconds: 3 * 24 * 3600,
			Identity:             domain.SessionManagerAccount,
			CollateralCustody:    "custody:collateral",
			Operator:             "ops",
			Resolver:             "arbiter",
		})

	sharedHash, err := security.HashAPIKey("shared-key")
	require.NoError(t, err)
	opsHash, err := security.HashAPIKey("ops-key")
	require.NoError(t, err)
	arbiterHash, err := security.HashAPIKey("arbiter-key")
	require.NoError(t, err)
	keys := security.NewAPIKeyAuthenticator([]security.Principal{
		{Account: "*", KeyHash: sharedHash},
		{Account: "ops", Roles: []string{security.RoleOperator}, KeyHash: opsHash},
		{Account: "arbiter", Roles: []string{security.RoleResolver}, KeyHash: arbiterHash},
	})
	tokens := security.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)

	router := NewRouter(RouterDeps{
		Listings:   listings,
		Rentals:    rentals,
		Streams:    streams,
		Reputation: reputation,
		Keys:       keys,
		Tokens:     tokens,
		Clock:      clk,
	})
	return &apiFixture{router: router, balances: balances, registry: registry, clk: clk}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) token(t *testing.T, account, apiKey string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"account": account,
		"api_key": apiKey,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Code
}

func TestRouter_AuthFlow(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("HealthIsOpen", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("APIRequiresToken", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/listings", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHENTICATED", decodeErrorCode(t, rec))
	})

	t.Run("BadAPIKeyRejected", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
			"account": "alice", "api_key": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ExchangeAndCall", func(t *testing.T) {
		token := f.token(t, "alice", "shared-key")
		rec := f.do(t, http.MethodGet, "/api/v1/listings", token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRouter_RentalLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	asset := domain.AssetRef{Collection: "cyberpets", ItemID: 42}
	f.registry.SetOwner(asset, "alice")
	f.balances.Mint("bob", 400_000)

	aliceToken := f.token(t, "alice", "shared-key")
	bobToken := f.token(t, "bob", "shared-key")

	// Alice lists the asset.
	rec := f.do(t, http.MethodPost, "/api/v1/listings", aliceToken, map[string]any{
		"asset":                asset,
		"price_per_second":     100,
		"min_duration_seconds": 60,
		"max_duration_seconds": 7200,
		"collateral_required":  500,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var listing domain.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))

	// Quote with a duration includes the tier breakdown.
	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/listings/%s/quote?duration=3600", listing.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var quote struct {
		StoredPrice int64  `json:"stored_price"`
		Duration    string `json:"duration"`
		Breakdown   *struct {
			TotalCost int64 `json:"total_cost"`
		} `json:"breakdown"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, int64(100), quote.StoredPrice)
	assert.Equal(t, "1h", quote.Duration)
	require.NotNil(t, quote.Breakdown)
	assert.Equal(t, int64(360_000), quote.Breakdown.TotalCost)

	// Bob rents for an hour.
	rec = f.do(t, http.MethodPost, "/api/v1/rentals", bobToken, map[string]any{
		"listing_id":       listing.ID,
		"duration_seconds": 3600,
		"payment":          360_185,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rental domain.Rental
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rental))
	assert.Equal(t, domain.RentalStatusActive, rental.Status)

	// A second rent on the same listing maps to a conflict.
	rec = f.do(t, http.MethodPost, "/api/v1/rentals", bobToken, map[string]any{
		"listing_id":       listing.ID,
		"duration_seconds": 3600,
		"payment":          360_185,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "LISTING_INACTIVE", decodeErrorCode(t, rec))

	// Early completion maps to a conflict too.
	rec = f.do(t, http.MethodPost, "/api/v1/rentals/"+rental.ID+"/complete", aliceToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "TOO_EARLY", decodeErrorCode(t, rec))

	// Vested amount is visible through the stream endpoint.
	f.clk.Advance(1800 * time.Second)
	rec = f.do(t, http.MethodGet, "/api/v1/streams/"+rental.StreamID+"/vested", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var vested map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vested))
	assert.Equal(t, int64(180_000), vested["vested"])

	// After the window the rental completes.
	f.clk.Advance(1800 * time.Second)
	rec = f.do(t, http.MethodPost, "/api/v1/rentals/"+rental.ID+"/complete", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/v1/rentals/"+rental.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var final domain.Rental
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &final))
	assert.Equal(t, domain.RentalStatusCompleted, final.Status)

	// Bob's released collateral is withdrawable.
	rec = f.do(t, http.MethodPost, "/api/v1/collateral/withdraw", bobToken, map[string]any{"amount": 185})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Reputation reflects the clean completion.
	rec = f.do(t, http.MethodGet, "/api/v1/reputation/bob", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var repRec domain.ReputationRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &repRec))
	assert.Equal(t, int64(55), repRec.Score)
}

func TestRouter_RoleEnforcement(t *testing.T) {
	f := newAPIFixture(t)
	asset := domain.AssetRef{Collection: "cyberpets", ItemID: 7}
	f.registry.SetOwner(asset, "alice")
	f.balances.Mint("bob", 400_000)

	aliceToken := f.token(t, "alice", "shared-key")
	bobToken := f.token(t, "bob", "shared-key")
	opsToken := f.token(t, "ops", "ops-key")
	arbiterToken := f.token(t, "arbiter", "arbiter-key")

	rec := f.do(t, http.MethodPost, "/api/v1/listings", aliceToken, map[string]any{
		"asset":                asset,
		"price_per_second":     100,
		"min_duration_seconds": 60,
		"max_duration_seconds": 7200,
		"collateral_required":  500,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var listing domain.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))

	rec = f.do(t, http.MethodPost, "/api/v1/rentals", bobToken, map[string]any{
		"listing_id":       listing.ID,
		"duration_seconds": 3600,
		"payment":          360_185,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rental domain.Rental
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rental))

	rec = f.do(t, http.MethodPost, "/api/v1/rentals/"+rental.ID+"/dispute", bobToken, map[string]any{
		"reason": "asset unusable",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("ResolveNeedsResolverRole", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/rentals/"+rental.ID+"/resolve", bobToken, map[string]any{
			"favor_renter": true, "refund_amount": 0,
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "NOT_RESOLVER", decodeErrorCode(t, rec))
	})

	t.Run("RecoveryNeedsOperatorRole", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/rentals/"+rental.ID+"/recover", bobToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "NOT_OPERATOR", decodeErrorCode(t, rec))

		rec = f.do(t, http.MethodGet, "/api/v1/rentals/recoverable", bobToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "NOT_OPERATOR", decodeErrorCode(t, rec))
	})

	t.Run("OperatorListsRecoverable", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/rentals/recoverable", opsToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("ResolverRules", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/rentals/"+rental.ID+"/resolve", arbiterToken, map[string]any{
			"favor_renter": true, "refund_amount": 0,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resolved domain.Rental
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
		assert.Equal(t, domain.RentalStatusResolved, resolved.Status)
	})
}

func TestRouter_ErrorMapping(t *testing.T) {
	f := newAPIFixture(t)
	token := f.token(t, "mallory", "shared-key")

	t.Run("NotFound", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/rentals/nope", token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decodeErrorCode(t, rec))
	})

	t.Run("ForbiddenOperations", func(t *testing.T) {
		f := newAPIFixture(t)
		asset := domain.AssetRef{Collection: "cyberpets", ItemID: 42}
		f.registry.SetOwner(asset, "alice")
		token := f.token(t, "mallory", "shared-key")

		rec := f.do(t, http.MethodPost, "/api/v1/listings", token, map[string]any{
			"asset":                asset,
			"price_per_second":     100,
			"min_duration_seconds": 60,
			"max_duration_seconds": 7200,
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "NOT_OWNER", decodeErrorCode(t, rec))
	})

	t.Run("BadBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/rentals", bytes.NewBufferString("{broken"))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
