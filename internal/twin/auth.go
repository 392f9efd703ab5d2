package twin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

type ctxKey struct{}

// claims are the JWT claims the twin issues.
type claims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// IssueTokens returns a fresh access/refresh pair for user.
func (t *Twin) IssueTokens(user string) (access, refresh string, err error) {
	access, err = t.sign(user, tokenAccess, accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = t.sign(user, tokenRefresh, refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// IssueAccessToken signs an access token for user valid for ttl. A
// non-positive ttl yields an already expired token.
func (t *Twin) IssueAccessToken(user string, ttl time.Duration) (string, error) {
	return t.sign(user, tokenAccess, ttl)
}

func (t *Twin) sign(user, typ string, ttl time.Duration) (string, error) {
	now := t.now()
	c := claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", typ, err)
	}
	return s, nil
}

// parse validates a token of the expected type and returns its subject.
func (t *Twin) parse(token, typ string) (string, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if c.TokenType != typ {
		return "", errors.New("wrong token type")
	}
	if c.Subject == "" {
		return "", errors.New("missing subject")
	}
	return c.Subject, nil
}

// bearer extracts the bearer token, reporting whether a header was sent.
func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")), true
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": detail})
}

// optionalAuth authenticates the request when a token is sent; a bad token
// is still rejected.
func (t *Twin) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, sent := bearer(r)
		if !sent {
			next.ServeHTTP(w, r)
			return
		}
		user, err := t.parse(token, tokenAccess)
		if err != nil {
			unauthorized(w, "Given token not valid for any token type")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	})
}

// requireAuth rejects requests without a valid access token.
func (t *Twin) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, sent := bearer(r)
		if !sent {
			unauthorized(w, "Authentication credentials were not provided.")
			return
		}
		user, err := t.parse(token, tokenAccess)
		if err != nil {
			unauthorized(w, "Given token not valid for any token type")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	})
}

// userFrom returns the authenticated user, or "".
func userFrom(ctx context.Context) string {
	u, _ := ctx.Value(ctxKey{}).(string)
	return u
}

func (t *Twin) handleObtainToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	access, refresh, err := t.IssueTokens(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (t *Twin) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		writeError(w, http.StatusBadRequest, "refresh is required")
		return
	}

	user, err := t.parse(req.Refresh, tokenRefresh)
	if err != nil {
		unauthorized(w, "Token is invalid or expired")
		return
	}

	access, err := t.sign(user, tokenAccess, accessTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}
