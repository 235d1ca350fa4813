package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/parcelreview/backend/internal/infrastructure/auth"
)

// Authenticator obtains token grants from the authorization server
type Authenticator interface {
	// Refresh exchanges a refresh token for a new grant
	Refresh(ctx context.Context, refreshToken string) (auth.Grant, error)
	// RetrieveTokens performs a full authentication with the long-lived credentials
	RetrieveTokens(ctx context.Context) (auth.Grant, error)
}

// OAuth2Authenticator implements Authenticator with the refresh_token and password grants
type OAuth2Authenticator struct {
	config     *oauth2.Config
	username   string
	password   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	httpClient *http.Client
	now        func() time.Time
}

// NewOAuth2Authenticator creates an authenticator from the platform config
func NewOAuth2Authenticator(cfg Config, httpClient *http.Client) *OAuth2Authenticator {
	cfg = cfg.WithDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OAuth2Authenticator{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		username:   cfg.Username,
		password:   cfg.Password,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Refresh exchanges the refresh token for a new grant
func (a *OAuth2Authenticator) Refresh(ctx context.Context, refreshToken string) (auth.Grant, error) {
	src := a.config.TokenSource(a.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return auth.Grant{}, fmt.Errorf("reputation: refresh token grant: %w", err)
	}
	return a.toGrant(token), nil
}

// RetrieveTokens authenticates with the resource owner credentials
func (a *OAuth2Authenticator) RetrieveTokens(ctx context.Context) (auth.Grant, error) {
	token, err := a.config.PasswordCredentialsToken(a.clientContext(ctx), a.username, a.password)
	if err != nil {
		return auth.Grant{}, fmt.Errorf("reputation: password grant: %w", err)
	}
	return a.toGrant(token), nil
}

func (a *OAuth2Authenticator) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

func (a *OAuth2Authenticator) toGrant(token *oauth2.Token) auth.Grant {
	grant := auth.Grant{
		AccessToken:      token.AccessToken,
		AccessExpiresIn:  int64(a.accessTTL / time.Second),
		RefreshToken:     token.RefreshToken,
		RefreshExpiresIn: int64(a.refreshTTL / time.Second),
	}
	if !token.Expiry.IsZero() {
		grant.AccessExpiresIn = int64(token.Expiry.Sub(a.now()) / time.Second)
	}
	if secs, ok := extraSeconds(token.Extra("refresh_expires_in")); ok {
		grant.RefreshExpiresIn = secs
	}
	return grant
}

// extraSeconds reads a numeric token extra, which is a float64 for JSON responses
// and a string for form-encoded ones.
func extraSeconds(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), n > 0
	case int64:
		return n, n > 0
	case int:
		return int64(n), n > 0
	case json.Number:
		i, err := n.Int64()
		return i, err == nil && i > 0
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil && i > 0
	default:
		return 0, false
	}
}

var _ Authenticator = (*OAuth2Authenticator)(nil)
