package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// TokenManager owns the lifecycle of the token pair of one external host.
// Expired tokens are cleared from the store the first time they are observed.
type TokenManager struct {
	store  TokenStore
	hostID string
	logger *zap.Logger
	now    func() time.Time
}

// TokenManagerOption configures a TokenManager
type TokenManagerOption func(*TokenManager)

// WithClock overrides the time source
func WithClock(now func() time.Time) TokenManagerOption {
	return func(m *TokenManager) {
		m.now = now
	}
}

// NewTokenManager creates a token manager for the given host
func NewTokenManager(store TokenStore, hostID string, logger *zap.Logger, opts ...TokenManagerOption) *TokenManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &TokenManager{
		store:  store,
		hostID: hostID,
		logger: logger.Named("auth.tokens").With(zap.String("host_id", hostID)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HostID returns the external host this manager serves
func (m *TokenManager) HostID() string {
	return m.hostID
}

// GetAccessToken returns a valid access token.
// Fails with ErrHostNotFound, ErrTokenNotFound or ErrTokenExpired.
func (m *TokenManager) GetAccessToken(ctx context.Context) (string, error) {
	pair, err := m.store.Get(ctx, m.hostID)
	if err != nil {
		return "", err
	}
	if !pair.HasAccessToken() {
		return "", ErrTokenNotFound
	}
	if !pair.AccessValid(m.now()) {
		m.logger.Debug("Access token expired, clearing")
		if err := m.store.ClearAccess(ctx, m.hostID); err != nil {
			return "", errors.Join(ErrTokenExpired, err)
		}
		return "", ErrTokenExpired
	}
	return pair.AccessToken, nil
}

// GetRefreshToken returns a valid refresh token.
// Fails with ErrHostNotFound, ErrTokenNotFound or ErrTokenExpired.
func (m *TokenManager) GetRefreshToken(ctx context.Context) (string, error) {
	pair, err := m.store.Get(ctx, m.hostID)
	if err != nil {
		return "", err
	}
	if !pair.HasRefreshToken() {
		return "", ErrTokenNotFound
	}
	if !pair.RefreshValid(m.now()) {
		m.logger.Debug("Refresh token expired, clearing")
		if err := m.store.ClearRefresh(ctx, m.hostID); err != nil {
			return "", errors.Join(ErrTokenExpired, err)
		}
		return "", ErrTokenExpired
	}
	return pair.RefreshToken, nil
}

// SetTokens overwrites both tokens in a single write stamped with the current time
func (m *TokenManager) SetTokens(ctx context.Context, grant Grant) error {
	pair := NewTokenPair(m.hostID, grant, m.now())
	if err := m.store.Save(ctx, pair); err != nil {
		return err
	}
	m.logger.Debug("Stored new token pair",
		zap.Int64("access_expires_in", grant.AccessExpiresIn),
		zap.Int64("refresh_expires_in", grant.RefreshExpiresIn),
	)
	return nil
}
