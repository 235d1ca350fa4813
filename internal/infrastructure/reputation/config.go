package reputation

import (
	"errors"
	"time"
)

// Config holds the connection settings for the reputation platform
type Config struct {
	// APIBaseURL is the root of the invitation API
	APIBaseURL string
	// TokenURL is the OAuth2 token endpoint
	TokenURL string
	// ClientID and ClientSecret identify this service to the authorization server
	ClientID     string
	ClientSecret string
	// Username and Password are the long-lived credentials used for full re-authentication
	Username string
	Password string
	// TokenHostID keys the token pair in the token store
	TokenHostID string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// AccessTokenTTL applies when the token response carries no expiry
	AccessTokenTTL time.Duration
	// RefreshTokenTTL applies when the token response carries no refresh_expires_in
	RefreshTokenTTL time.Duration
}

// Errors for reputation configuration
var (
	ErrMissingAPIBaseURL  = errors.New("reputation: api base url is required")
	ErrMissingTokenURL    = errors.New("reputation: token url is required")
	ErrMissingClientID    = errors.New("reputation: client id is required")
	ErrMissingCredentials = errors.New("reputation: username and password are required")
	ErrMissingTokenHostID = errors.New("reputation: token host id is required")
)

// Default values
const (
	DefaultTimeout         = 30 * time.Second
	DefaultAccessTokenTTL  = time.Hour
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
	DefaultTokenHostID     = "reputation"
)

// WithDefaults returns a copy of the config with zero values replaced by defaults
func (c Config) WithDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if c.RefreshTokenTTL <= 0 {
		c.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if c.TokenHostID == "" {
		c.TokenHostID = DefaultTokenHostID
	}
	return c
}

// Validate validates the reputation configuration
func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return ErrMissingAPIBaseURL
	}
	if c.TokenURL == "" {
		return ErrMissingTokenURL
	}
	if c.ClientID == "" {
		return ErrMissingClientID
	}
	if c.Username == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	if c.TokenHostID == "" {
		return ErrMissingTokenHostID
	}
	return nil
}
