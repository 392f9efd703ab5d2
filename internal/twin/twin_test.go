package twin

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahan44/airdine/internal/model"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func setup(t *testing.T) (*Twin, *httptest.Server, *fakeClock, string) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	tw := New(WithClock(clock.now))
	srv := httptest.NewServer(tw.Handler())
	t.Cleanup(srv.Close)

	access, _, err := tw.IssueTokens("diner@example.com")
	require.NoError(t, err)
	return tw, srv, clock, access
}

func do(t *testing.T, method, url, token, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestListOffers_PaginatedAndFiltered(t *testing.T) {
	_, srv, _, _ := setup(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/offers/", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Count   int           `json:"count"`
		Results []model.Offer `json:"results"`
	}
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, 5, page.Count, "expired seed offer is hidden")
	assert.True(t, page.Results[0].IsFeatured, "featured first")
	for _, o := range page.Results {
		assert.NotEqual(t, int64(6), o.ID)
		assert.Nil(t, o.RemainingUses, "anonymous callers see no usage")
	}
}

func TestFeaturedOffers(t *testing.T) {
	_, srv, _, token := setup(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/offers/featured/", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var offers []model.Offer
	require.NoError(t, json.Unmarshal(body, &offers))
	require.Len(t, offers, 3)
	for _, o := range offers {
		assert.True(t, o.IsFeatured)
		require.NotNil(t, o.RemainingUses)
		assert.Equal(t, 3, *o.RemainingUses)
	}
}

func TestRestaurantOffers(t *testing.T) {
	_, srv, _, _ := setup(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/offers/restaurant/6f1c2a4e-8d0b-4c51-9a37-2b8e5d9f0c11/", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var offers []model.Offer
	require.NoError(t, json.Unmarshal(body, &offers))
	assert.Len(t, offers, 2)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/offers/restaurant/00000000-0000-0000-0000-000000000000/", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/offers/restaurant/not-a-uuid/", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestActivate_IssuesCodeAndReusesPending(t *testing.T) {
	_, srv, clock, token := setup(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/offers/1/activate/", token, "{}")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var first model.ActivationResponse
	require.NoError(t, json.Unmarshal(body, &first))
	require.NotNil(t, first.Activation)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), first.Activation.Code)
	assert.Equal(t, clock.now().Add(DefaultActivationTTL), first.Activation.ExpiresAt)
	assert.Equal(t, "Pizza Night", first.Activation.OfferTitle)
	assert.Equal(t, model.ActivationPending, first.Activation.Status)

	clock.advance(30 * time.Second)
	resp, body = do(t, http.MethodPost, srv.URL+"/api/offers/1/activate/", token, "{}")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var again model.ActivationResponse
	require.NoError(t, json.Unmarshal(body, &again))
	assert.Equal(t, first.Activation.Code, again.Activation.Code)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/offers/1/", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var o model.Offer
	require.NoError(t, json.Unmarshal(body, &o))
	require.NotNil(t, o.UserActivation)
	assert.Equal(t, first.Activation.Code, o.UserActivation.Code)
}

// freshToken issues an access token valid at the twin's current time.
func freshToken(t *testing.T, tw *Twin) string {
	t.Helper()
	access, _, err := tw.IssueTokens("diner@example.com")
	require.NoError(t, err)
	return access
}

func TestActivate_AfterExpiryIssuesNewCodeUntilLimit(t *testing.T) {
	tw, srv, clock, token := setup(t)

	codes := map[string]bool{}
	for i := 0; i < 3; i++ {
		token = freshToken(t, tw)
		resp, body := do(t, http.MethodPost, srv.URL+"/api/offers/2/activate/", token, "{}")
		require.Equal(t, http.StatusCreated, resp.StatusCode, "activation %d", i)
		var r model.ActivationResponse
		require.NoError(t, json.Unmarshal(body, &r))
		codes[r.Activation.Code] = true
		clock.advance(DefaultActivationTTL)
	}

	assert.Len(t, codes, 3)
	token = freshToken(t, tw)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/offers/2/activate/", token, "{}")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "usage limit")

	resp, body = do(t, http.MethodGet, srv.URL+"/api/offers/activations/", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var acts []model.ActivationPayload
	require.NoError(t, json.Unmarshal(body, &acts))
	require.Len(t, acts, 3)
	for _, a := range acts {
		assert.Equal(t, model.ActivationExpired, a.Status)
	}
}

func TestActivate_Errors(t *testing.T) {
	_, srv, _, token := setup(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/offers/6/activate/", token, "{}")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Offer is not currently valid"}`, string(body))

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/offers/999/activate/", token, "{}")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodPost, srv.URL+"/api/offers/1/activate/", "", "{}")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "detail")
}

func TestAuth_ExpiredAndRefresh(t *testing.T) {
	tw, srv, clock, _ := setup(t)

	access, refresh, err := tw.IssueTokens("diner@example.com")
	require.NoError(t, err)

	clock.advance(accessTTL + time.Second)
	resp, _ := do(t, http.MethodPost, srv.URL+"/api/offers/1/activate/", access, "{}")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/offers/", access, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "bad token rejected even on public routes")

	resp, body := do(t, http.MethodPost, srv.URL+"/api/auth/token/refresh/", "", `{"refresh":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rr struct {
		Access string `json:"access"`
	}
	require.NoError(t, json.Unmarshal(body, &rr))

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/offers/1/activate/", rr.Access, "{}")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/auth/token/refresh/", "", `{"refresh":"`+rr.Access+`"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "access token is not a refresh token")
}

func TestObtainToken(t *testing.T) {
	_, srv, _, _ := setup(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/auth/token/", "", `{"email":"Me@Example.com","password":"x"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "refresh")

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/auth/token/", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFaults_QueuedInOrderThenCleared(t *testing.T) {
	tw, srv, _, _ := setup(t)

	resp, _ := do(t, http.MethodPost, srv.URL+"/admin/faults", "",
		`{"path":"/offers/","faults":[{"status":503,"retry_after":2},{"status":429}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/offers/", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "2", resp.Header.Get("Retry-After"))

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/offers/featured/", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "other paths unaffected")

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/offers/", "", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/offers/", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	tw.InjectFaults(anyPath, Fault{Status: 502})
	resp, _ = do(t, http.MethodDelete, srv.URL+"/admin/faults", "", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, srv.URL+"/api/offers/featured/", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, srv.URL+"/admin/faults", "", `{"faults":[{"status":200}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReset(t *testing.T) {
	_, srv, _, token := setup(t)

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/offers/1/activate/", token, "{}")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, srv.URL+"/admin/reset", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/offers/activations/", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestNewCode(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	for i := 0; i < 100; i++ {
		assert.Regexp(t, re, newCode())
	}
}
