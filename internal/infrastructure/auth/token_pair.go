package auth

import "time"

// TokenPair is the persisted credential state for one external host.
// Access and refresh fields are cleared independently.
type TokenPair struct {
	HostID string

	AccessToken     string
	AccessIssuedAt  *time.Time
	AccessExpiresIn int64 // seconds

	RefreshToken     string
	RefreshIssuedAt  *time.Time
	RefreshExpiresIn int64 // seconds
}

// Grant is a freshly issued pair of tokens as returned by an authorization server
type Grant struct {
	AccessToken      string
	AccessExpiresIn  int64
	RefreshToken     string
	RefreshExpiresIn int64
}

// HasAccessToken reports whether the access fields are populated
func (p *TokenPair) HasAccessToken() bool {
	return p.AccessToken != "" && p.AccessIssuedAt != nil
}

// HasRefreshToken reports whether the refresh fields are populated
func (p *TokenPair) HasRefreshToken() bool {
	return p.RefreshToken != "" && p.RefreshIssuedAt != nil
}

// AccessValid reports whether the access token is still usable at now
func (p *TokenPair) AccessValid(now time.Time) bool {
	return p.HasAccessToken() && tokenValid(*p.AccessIssuedAt, p.AccessExpiresIn, now)
}

// RefreshValid reports whether the refresh token is still usable at now
func (p *TokenPair) RefreshValid(now time.Time) bool {
	return p.HasRefreshToken() && tokenValid(*p.RefreshIssuedAt, p.RefreshExpiresIn, now)
}

// ClearAccess removes the access token fields
func (p *TokenPair) ClearAccess() {
	p.AccessToken = ""
	p.AccessIssuedAt = nil
	p.AccessExpiresIn = 0
}

// ClearRefresh removes the refresh token fields
func (p *TokenPair) ClearRefresh() {
	p.RefreshToken = ""
	p.RefreshIssuedAt = nil
	p.RefreshExpiresIn = 0
}

// NewTokenPair stamps a grant with its issue time
func NewTokenPair(hostID string, grant Grant, issuedAt time.Time) *TokenPair {
	at := issuedAt
	pair := &TokenPair{HostID: hostID}
	if grant.AccessToken != "" {
		pair.AccessToken = grant.AccessToken
		pair.AccessIssuedAt = &at
		pair.AccessExpiresIn = grant.AccessExpiresIn
	}
	if grant.RefreshToken != "" {
		pair.RefreshToken = grant.RefreshToken
		pair.RefreshIssuedAt = &at
		pair.RefreshExpiresIn = grant.RefreshExpiresIn
	}
	return pair
}

func tokenValid(issuedAt time.Time, expiresIn int64, now time.Time) bool {
	return issuedAt.Add(time.Duration(expiresIn) * time.Second).After(now)
}
