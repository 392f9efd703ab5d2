package api

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, exp *time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "diner"}
	if exp != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*exp)
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func TestExpiresWithin(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	soon := now.Add(20 * time.Second)
	later := now.Add(5 * time.Minute)
	past := now.Add(-time.Minute)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"empty", "", false},
		{"not a jwt", "opaque-token", false},
		{"no exp", signed(t, nil), false},
		{"expires soon", signed(t, &soon), true},
		{"already expired", signed(t, &past), true},
		{"plenty of time", signed(t, &later), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expiresWithin(tt.token, refreshLeeway, now))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error key", `{"error":"Offer not found"}`, "Offer not found"},
		{"message key", `{"message":"nope"}`, "nope"},
		{"detail key", `{"detail":"Not found."}`, "Not found."},
		{"error wins", `{"detail":"d","error":"e"}`, "e"},
		{"plain text", "  Bad Gateway \n", "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMessage([]byte(tt.body)))
		})
	}
}

func TestBackoff(t *testing.T) {
	c := NewClient("http://x", WithBackoff(time.Second))
	assert.Equal(t, time.Second, c.backoff(0))
	assert.Equal(t, 4*time.Second, c.backoff(2))
	assert.Equal(t, 30*time.Second, c.backoff(5))
	assert.Equal(t, 30*time.Second, c.backoff(40))
}

func TestErrorTypes(t *testing.T) {
	assert.True(t, IsAuthError(&AuthError{Message: "x"}))
	assert.True(t, IsValidationError(&ValidationError{Message: "x"}))
	assert.True(t, IsNotFound(&APIError{Status: 404}))
	assert.False(t, IsNotFound(&APIError{Status: 500}))
	assert.Contains(t, (&APIError{Status: 500, Method: "GET", Path: "/offers/", Message: "boom"}).Error(), "500")
}
