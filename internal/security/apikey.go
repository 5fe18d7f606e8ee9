package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"streamrent/internal/domain"
)

var ErrUnknownPrincipal = errors.New("unknown account or bad API key")

// Principal is an account that may exchange an API key for an access token.
type Principal struct {
	Account domain.Account
	Roles   []string
	KeyHash string // bcrypt hash of the API key
}

// APIKeyAuthenticator verifies API keys against configured bcrypt hashes.
type APIKeyAuthenticator struct {
	principals map[domain.Account]Principal
}

func NewAPIKeyAuthenticator(principals []Principal) *APIKeyAuthenticator {
	m := make(map[domain.Account]Principal, len(principals))
	for _, p := range principals {
		m[p.Account] = p
	}
	return &APIKeyAuthenticator{principals: m}
}

// Authenticate returns the principal's roles when the key matches. Accounts
// not listed in the configuration authenticate with no roles only if an
// open-enrollment principal ("*") is configured with a shared key.
func (a *APIKeyAuthenticator) Authenticate(account domain.Account, apiKey string) ([]string, error) {
	p, ok := a.principals[account]
	if !ok {
		p, ok = a.principals["*"]
		if !ok {
			return nil, ErrUnknownPrincipal
		}
		p.Roles = nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.KeyHash), []byte(apiKey)); err != nil {
		return nil, ErrUnknownPrincipal
	}
	return p.Roles, nil
}

// HashAPIKey produces a bcrypt hash suitable for the principals config.
func HashAPIKey(apiKey string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
