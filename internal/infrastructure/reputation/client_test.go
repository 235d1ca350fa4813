package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parcelreview/backend/internal/infrastructure/auth"
)

// tokenServer is a fake authorization server counting grants by type
type tokenServer struct {
	server        *httptest.Server
	refreshCalls  atomic.Int32
	passwordCalls atomic.Int32
	failRefresh   atomic.Bool
	failPassword  atomic.Bool

	// when set, a refresh signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())

		var access string
		switch r.PostForm.Get("grant_type") {
		case "refresh_token":
			n := ts.refreshCalls.Add(1)
			if ts.release != nil {
				select {
				case ts.entered <- struct{}{}:
				default:
				}
				<-ts.release
			}
			if ts.failRefresh.Load() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			access = "refreshed-" + string(rune('0'+n))
		case "password":
			ts.passwordCalls.Add(1)
			if ts.failPassword.Load() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
				return
			}
			access = "password-access"
		default:
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":       access,
			"token_type":         "Bearer",
			"expires_in":         3600,
			"refresh_token":      "refresh-next",
			"refresh_expires_in": 7200,
		})
	}))
	t.Cleanup(ts.server.Close)
	return ts
}

// apiServer replies with the scripted status codes in order, then 200
type apiServer struct {
	server *httptest.Server
	calls  atomic.Int32

	mu   sync.Mutex
	auth []string
}

func (as *apiServer) authHeaders() []string {
	as.mu.Lock()
	defer as.mu.Unlock()
	return append([]string(nil), as.auth...)
}

func newAPIServer(t *testing.T, statuses ...int) *apiServer {
	t.Helper()
	as := &apiServer{}
	as.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(as.calls.Add(1))
		as.mu.Lock()
		as.auth = append(as.auth, r.Header.Get("Authorization"))
		as.mu.Unlock()

		status := http.StatusCreated
		if n <= len(statuses) {
			status = statuses[n-1]
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusCreated {
			_, _ = w.Write([]byte(`{"id":"inv-1","status":"PENDING"}`))
			return
		}
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	t.Cleanup(as.server.Close)
	return as
}

type clientFixture struct {
	client  *Client
	store   *auth.InMemoryTokenStore
	manager *auth.TokenManager
	tokens  *tokenServer
	api     *apiServer
}

func newClientFixture(t *testing.T, seedTokens bool, statuses ...int) *clientFixture {
	t.Helper()
	tokens := newTokenServer(t)
	api := newAPIServer(t, statuses...)

	cfg := Config{
		APIBaseURL:   api.server.URL,
		TokenURL:     tokens.server.URL + "/oauth/token",
		ClientID:     "client",
		ClientSecret: "secret",
		Username:     "svc",
		Password:     "pw",
		TokenHostID:  "reputation",
		Timeout:      5 * time.Second,
	}

	store := auth.NewInMemoryTokenStore()
	manager := auth.NewTokenManager(store, cfg.TokenHostID, zap.NewNop())
	if seedTokens {
		require.NoError(t, manager.SetTokens(context.Background(), auth.Grant{
			AccessToken:      "seed-access",
			AccessExpiresIn:  3600,
			RefreshToken:     "seed-refresh",
			RefreshExpiresIn: 3600,
		}))
	}

	client := NewClient(cfg, manager, NewOAuth2Authenticator(cfg, nil), nil, zap.NewNop())
	return &clientFixture{client: client, store: store, manager: manager, tokens: tokens, api: api}
}

func TestClient_Do_Success(t *testing.T) {
	f := newClientFixture(t, true)

	resp, err := f.client.Do(context.Background(), http.MethodPost, InvitationsPath, map[string]string{"a": "b"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int32(1), f.api.calls.Load())
	assert.Equal(t, []string{"Bearer seed-access"}, f.api.authHeaders())
	assert.Zero(t, f.tokens.refreshCalls.Load())
	assert.Zero(t, f.tokens.passwordCalls.Load())
}

func TestClient_Do_RetriesExactlyOnceOnUnauthorized(t *testing.T) {
	f := newClientFixture(t, true, http.StatusUnauthorized, http.StatusUnauthorized)

	_, err := f.client.Do(context.Background(), http.MethodPost, InvitationsPath, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, int32(2), f.api.calls.Load())
	assert.LessOrEqual(t, f.tokens.refreshCalls.Load(), int32(1))
	assert.LessOrEqual(t, f.tokens.passwordCalls.Load(), int32(1))
	assert.Equal(t, "Bearer refreshed-1", f.api.authHeaders()[1])
}

func TestClient_Do_RefreshThenRetrySucceeds(t *testing.T) {
	f := newClientFixture(t, true, http.StatusUnauthorized)

	resp, err := f.client.Do(context.Background(), http.MethodPost, InvitationsPath, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int32(1), f.tokens.refreshCalls.Load())
	assert.Zero(t, f.tokens.passwordCalls.Load())

	pair, err := f.store.Get(context.Background(), "reputation")
	require.NoError(t, err)
	assert.Equal(t, "refreshed-1", pair.AccessToken)
	assert.Equal(t, "refresh-next", pair.RefreshToken)
	assert.Equal(t, int64(7200), pair.RefreshExpiresIn)
}

func TestClient_Do_FallsBackToReauthentication(t *testing.T) {
	f := newClientFixture(t, true, http.StatusUnauthorized)
	f.tokens.failRefresh.Store(true)

	_, err := f.client.Do(context.Background(), http.MethodPost, InvitationsPath, nil)
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.tokens.refreshCalls.Load())
	assert.Equal(t, int32(1), f.tokens.passwordCalls.Load())
	assert.Equal(t, "Bearer password-access", f.api.authHeaders()[1])
}

func TestClient_Do_NoStoredTokens(t *testing.T) {
	f := newClientFixture(t, false)

	_, err := f.client.Do(context.Background(), http.MethodGet, "/v1/ping", nil)
	require.NoError(t, err)

	// the first attempt never reached the API
	assert.Equal(t, int32(1), f.api.calls.Load())
	assert.Zero(t, f.tokens.refreshCalls.Load())
	assert.Equal(t, int32(1), f.tokens.passwordCalls.Load())
}

func TestClient_Do_ExpiredAccessTokenRenews(t *testing.T) {
	f := newClientFixture(t, false)
	issued := time.Now().Add(-2 * time.Hour)
	require.NoError(t, f.store.Save(context.Background(), &auth.TokenPair{
		HostID:           "reputation",
		AccessToken:      "stale",
		AccessIssuedAt:   &issued,
		AccessExpiresIn:  60,
		RefreshToken:     "still-good",
		RefreshIssuedAt:  &issued,
		RefreshExpiresIn: 86400,
	}))

	_, err := f.client.Do(context.Background(), http.MethodGet, "/v1/ping", nil)
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.tokens.refreshCalls.Load())
	assert.Equal(t, []string{"Bearer refreshed-1"}, f.api.authHeaders())
}

func TestClient_Do_NonAuthErrorIsNotRetried(t *testing.T) {
	f := newClientFixture(t, true, http.StatusInternalServerError)

	_, err := f.client.Do(context.Background(), http.MethodPost, InvitationsPath, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.HTTPStatusCode())
	assert.JSONEq(t, `{"error":"nope"}`, apiErr.ResponseBody())
	assert.Equal(t, int32(1), f.api.calls.Load())
	assert.Zero(t, f.tokens.refreshCalls.Load())
}

func TestClient_Do_RenewalFailure(t *testing.T) {
	f := newClientFixture(t, true, http.StatusUnauthorized)
	f.tokens.failRefresh.Store(true)
	f.tokens.failPassword.Store(true)

	_, err := f.client.Do(context.Background(), http.MethodPost, InvitationsPath, nil)

	assert.True(t, errors.Is(err, ErrAuthenticationFailed))
	assert.Equal(t, int32(1), f.api.calls.Load())
}

func TestClient_SharedRenewalSurvivesFirstCallerCancel(t *testing.T) {
	f := newClientFixture(t, true)
	f.tokens.entered = make(chan struct{}, 1)
	f.tokens.release = make(chan struct{})

	firstCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := make(chan error, 1)
	go func() { first <- f.client.renew(firstCtx) }()
	<-f.tokens.entered

	second := make(chan error, 1)
	go func() { second <- f.client.renew(context.Background()) }()
	// let the second caller join the in-flight exchange
	time.Sleep(50 * time.Millisecond)
	cancel()
	close(f.tokens.release)

	require.NoError(t, <-first)
	require.NoError(t, <-second)
	assert.Equal(t, int32(1), f.tokens.refreshCalls.Load())
	assert.Zero(t, f.tokens.passwordCalls.Load())

	pair, err := f.store.Get(context.Background(), "reputation")
	require.NoError(t, err)
	assert.Equal(t, "refreshed-1", pair.AccessToken)
}

func TestInvitationAPI_SendInvitation(t *testing.T) {
	var received invitationPayload
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, InvitationsPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ext-42","status":"SCHEDULED"}`))
	}))
	defer api.Close()

	store := auth.NewInMemoryTokenStore()
	manager := auth.NewTokenManager(store, "reputation", zap.NewNop())
	require.NoError(t, manager.SetTokens(context.Background(), auth.Grant{AccessToken: "a", AccessExpiresIn: 60}))

	cfg := Config{APIBaseURL: api.URL + "/", TokenHostID: "reputation"}
	client := NewClient(cfg, manager, NewOAuth2Authenticator(cfg, nil), nil, nil)
	invitations := NewInvitationAPI(client, nil)

	receipt, err := invitations.SendInvitation(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, "ext-42", receipt.ExternalID)
	assert.Equal(t, "SCHEDULED", receipt.Status)
	assert.Equal(t, "Grace", received.FirstName)
	assert.Equal(t, "fr_FR", received.Locale)
	assert.Equal(t, []string{"PARCEL", "Acme"}, received.Tags)
}
