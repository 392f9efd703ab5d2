package api

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStore provides and persists the bearer tokens.
type TokenStore interface {
	// Tokens returns the current access and refresh tokens; either may be
	// empty.
	Tokens() (access, refresh string, err error)

	// SaveAccess stores a freshly issued access token.
	SaveAccess(access string) error
}

// MemoryTokens is a TokenStore kept in memory.
type MemoryTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
}

// NewMemoryTokens returns a MemoryTokens seeded with the given pair.
func NewMemoryTokens(access, refresh string) *MemoryTokens {
	return &MemoryTokens{access: access, refresh: refresh}
}

// Tokens implements TokenStore.
func (m *MemoryTokens) Tokens() (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, m.refresh, nil
}

// SaveAccess implements TokenStore.
func (m *MemoryTokens) SaveAccess(access string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = access
	return nil
}

// refreshLeeway is how close to expiry an access token may get before it is
// refreshed ahead of a request.
const refreshLeeway = 30 * time.Second

// expiresWithin reports whether token is a JWT whose exp claim falls within
// d of now. Tokens that are not JWTs, or carry no exp, never expire here;
// the server has the final word.
func expiresWithin(token string, d time.Duration, now time.Time) bool {
	if token == "" {
		return false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.Time.After(now.Add(d))
}
