package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parcelreview/backend/internal/infrastructure/auth"
)

const testHost = "reputation"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestManager(store auth.TokenStore) (*auth.TokenManager, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
	return auth.NewTokenManager(store, testHost, zap.NewNop(), auth.WithClock(clock.Now)), clock
}

func TestTokenManager_HostNotFound(t *testing.T) {
	manager, _ := newTestManager(auth.NewInMemoryTokenStore())
	ctx := context.Background()

	_, err := manager.GetAccessToken(ctx)
	assert.ErrorIs(t, err, auth.ErrHostNotFound)

	_, err = manager.GetRefreshToken(ctx)
	assert.ErrorIs(t, err, auth.ErrHostNotFound)
}

func TestTokenManager_TokenNotFound(t *testing.T) {
	store := auth.NewInMemoryTokenStore()
	require.NoError(t, store.Save(context.Background(), &auth.TokenPair{HostID: testHost}))
	manager, _ := newTestManager(store)

	_, err := manager.GetAccessToken(context.Background())
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)

	_, err = manager.GetRefreshToken(context.Background())
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)
}

func TestTokenManager_SetAndGet(t *testing.T) {
	store := auth.NewInMemoryTokenStore()
	manager, clock := newTestManager(store)
	ctx := context.Background()

	require.NoError(t, manager.SetTokens(ctx, auth.Grant{
		AccessToken:      "access-1",
		AccessExpiresIn:  3600,
		RefreshToken:     "refresh-1",
		RefreshExpiresIn: 86400,
	}))

	access, err := manager.GetAccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", access)

	refresh, err := manager.GetRefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", refresh)

	pair, err := store.Get(ctx, testHost)
	require.NoError(t, err)
	require.NotNil(t, pair.AccessIssuedAt)
	assert.Equal(t, clock.now, *pair.AccessIssuedAt)
	assert.Equal(t, clock.now, *pair.RefreshIssuedAt)
}

func TestTokenManager_ExpiredAccessIsCleared(t *testing.T) {
	store := auth.NewInMemoryTokenStore()
	manager, clock := newTestManager(store)
	ctx := context.Background()

	require.NoError(t, manager.SetTokens(ctx, auth.Grant{
		AccessToken:      "access-1",
		AccessExpiresIn:  60,
		RefreshToken:     "refresh-1",
		RefreshExpiresIn: 3600,
	}))

	// issuedAt + expiresIn == now is already expired
	clock.Advance(60 * time.Second)

	_, err := manager.GetAccessToken(ctx)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)

	pair, err := store.Get(ctx, testHost)
	require.NoError(t, err)
	assert.Empty(t, pair.AccessToken)
	assert.Nil(t, pair.AccessIssuedAt)
	assert.Equal(t, "refresh-1", pair.RefreshToken)

	// second read sees the cleared field
	_, err = manager.GetAccessToken(ctx)
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)

	refresh, err := manager.GetRefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", refresh)
}

func TestTokenManager_ExpiredRefreshIsCleared(t *testing.T) {
	store := auth.NewInMemoryTokenStore()
	manager, clock := newTestManager(store)
	ctx := context.Background()

	require.NoError(t, manager.SetTokens(ctx, auth.Grant{
		AccessToken:      "access-1",
		AccessExpiresIn:  7200,
		RefreshToken:     "refresh-1",
		RefreshExpiresIn: 1800,
	}))
	clock.Advance(time.Hour)

	_, err := manager.GetRefreshToken(ctx)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)

	pair, err := store.Get(ctx, testHost)
	require.NoError(t, err)
	assert.Empty(t, pair.RefreshToken)
	assert.Equal(t, "access-1", pair.AccessToken)
}

func TestTokenManager_SetTokensOverwrites(t *testing.T) {
	store := auth.NewInMemoryTokenStore()
	manager, clock := newTestManager(store)
	ctx := context.Background()

	require.NoError(t, manager.SetTokens(ctx, auth.Grant{AccessToken: "old", AccessExpiresIn: 10, RefreshToken: "old-r", RefreshExpiresIn: 10}))
	clock.Advance(time.Minute)
	require.NoError(t, manager.SetTokens(ctx, auth.Grant{AccessToken: "new", AccessExpiresIn: 10, RefreshToken: "new-r", RefreshExpiresIn: 10}))

	access, err := manager.GetAccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", access)
}

type failingStore struct {
	*auth.InMemoryTokenStore
	clearErr error
}

func (s *failingStore) ClearAccess(context.Context, string) error { return s.clearErr }

func TestTokenManager_ClearFailureKeepsExpiredError(t *testing.T) {
	store := &failingStore{InMemoryTokenStore: auth.NewInMemoryTokenStore(), clearErr: errors.New("db down")}
	manager, clock := newTestManager(store)
	ctx := context.Background()

	require.NoError(t, manager.SetTokens(ctx, auth.Grant{AccessToken: "a", AccessExpiresIn: 1}))
	clock.Advance(time.Minute)

	_, err := manager.GetAccessToken(ctx)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
	assert.ErrorContains(t, err, "db down")
	assert.True(t, auth.IsTokenError(err))
}
