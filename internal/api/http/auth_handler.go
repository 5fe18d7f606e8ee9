package http

import (
	"encoding/json"
	"net/http"

	"streamrent/internal/domain"
	"streamrent/internal/security"
)

// AuthHandler exchanges an account's API key for a short-lived access token.
type AuthHandler struct {
	keys   *security.APIKeyAuthenticator
	tokens security.TokenManager
}

func NewAuthHandler(keys *security.APIKeyAuthenticator, tokens security.TokenManager) *AuthHandler {
	return &AuthHandler{keys: keys, tokens: tokens}
}

type tokenRequest struct {
	Account domain.Account `json:"account"`
	APIKey  string         `json:"api_key"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Account.IsZero() || req.APIKey == "" {
		writeBadRequest(w, "account and api_key are required")
		return
	}

	roles, err := h.keys.Authenticate(req.Account, req.APIKey)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Code: "UNAUTHENTICATED", Message: err.Error()})
		return
	}

	token, err := h.tokens.GenerateAccessToken(req.Account, roles)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "Bearer"})
}
