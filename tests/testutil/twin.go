package testutil

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kahan44/airdine/internal/twin"
)

// TwinServer is a running backend twin.
type TwinServer struct {
	Twin    *twin.Twin
	Server  *httptest.Server
	BaseURL string // API root including /api
	Access  string
	Refresh string
}

// NewTwinServer starts a twin on an httptest server and issues a token
// pair for a test user. The server is closed when the test completes.
func NewTwinServer(t *testing.T, opts ...twin.Option) *TwinServer {
	t.Helper()

	tw := twin.New(opts...)
	srv := httptest.NewServer(tw.Handler())
	t.Cleanup(srv.Close)

	access, refresh, err := tw.IssueTokens("diner@example.com")
	if err != nil {
		t.Fatalf("issuing twin tokens: %v", err)
	}

	return &TwinServer{
		Twin:    tw,
		Server:  srv,
		BaseURL: srv.URL + "/api",
		Access:  access,
		Refresh: refresh,
	}
}

// ExpiredAccess returns an access token for the test user that has already
// expired.
func (s *TwinServer) ExpiredAccess(t *testing.T) string {
	t.Helper()
	tok, err := s.Twin.IssueAccessToken("diner@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("issuing expired token: %v", err)
	}
	return tok
}
