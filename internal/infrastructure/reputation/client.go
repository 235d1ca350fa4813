package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/parcelreview/backend/internal/infrastructure/auth"
	"github.com/parcelreview/backend/internal/infrastructure/telemetry"
)

// maxResponseSize caps how much of a response body is read (1MB)
const maxResponseSize = 1 << 20

// TokenProvider is the token lifecycle the client depends on
type TokenProvider interface {
	HostID() string
	GetAccessToken(ctx context.Context) (string, error)
	GetRefreshToken(ctx context.Context) (string, error)
	SetTokens(ctx context.Context, grant auth.Grant) error
}

// Response is a successful platform response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into v
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("reputation: failed to decode response: %w", err)
	}
	return nil
}

// RequestOption customizes a single request
type RequestOption func(*http.Request)

// WithHeader sets a request header
func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// WithQuery merges query parameters into the request URL
func WithQuery(values url.Values) RequestOption {
	return func(req *http.Request) {
		q := req.URL.Query()
		for k, vs := range values {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
}

// Client is an authenticated HTTP client for the reputation platform.
// A call that fails on authentication renews the credentials and is retried exactly once.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokens        TokenProvider
	authenticator Authenticator
	renewals      singleflight.Group
	logger        *zap.Logger
}

// NewClient creates a new authenticated client
func NewClient(cfg Config, tokens TokenProvider, authenticator Authenticator, httpClient *http.Client, logger *zap.Logger) *Client {
	cfg = cfg.WithDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.APIBaseURL, "/"),
		httpClient:    httpClient,
		tokens:        tokens,
		authenticator: authenticator,
		logger:        logger.Named("reputation.client"),
	}
}

// Do performs an authenticated request. body is JSON encoded when non-nil.
// On a 401 or a missing/expired access token the credentials are renewed
// (refresh, falling back to full re-authentication) and the call is retried once.
// The error of the retried call is returned as is.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("reputation: failed to marshal request: %w", err)
		}
	}

	ctx, span := telemetry.StartSpan(ctx, "reputation.request",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("http.method", method),
		telemetry.WithAttribute("http.route", path),
	)
	defer span.End()

	resp, err := c.attempt(ctx, method, path, payload, opts)
	if err == nil || !needsRenewal(err) {
		telemetry.RecordError(span, err)
		return resp, err
	}

	c.logger.Info("Renewing credentials after authentication failure",
		zap.String("method", method),
		zap.String("path", path),
		zap.Error(err),
	)
	telemetry.AddEvent(span, "credentials_renewal")

	if renewErr := c.renew(ctx); renewErr != nil {
		telemetry.RecordError(span, renewErr)
		return nil, renewErr
	}

	resp, err = c.attempt(ctx, method, path, payload, opts)
	telemetry.RecordError(span, err)
	return resp, err
}

func needsRenewal(err error) bool {
	return IsUnauthorized(err) || auth.IsTokenError(err)
}

// attempt performs a single request with the current access token
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, opts []RequestOption) (*Response, error) {
	accessToken, err := c.tokens.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("reputation: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reputation: failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       respBody,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// renew obtains and stores a new token pair. Concurrent renewals for the
// same host share one exchange, which outlives the caller that started it.
func (c *Client) renew(ctx context.Context) error {
	_, err, shared := c.renewals.Do(c.tokens.HostID(), func() (any, error) {
		return nil, c.renewCredentials(context.WithoutCancel(ctx))
	})
	if shared {
		c.logger.Debug("Joined in-flight credential renewal")
	}
	return err
}

func (c *Client) renewCredentials(ctx context.Context) error {
	grant, err := c.refresh(ctx)
	if err != nil {
		c.logger.Warn("Token refresh failed, re-authenticating", zap.Error(err))

		grant, err = c.authenticator.RetrieveTokens(ctx)
		if err != nil {
			c.logger.Error("Re-authentication failed", zap.Error(err))
			return errors.Join(ErrAuthenticationFailed, err)
		}
	}

	if err := c.tokens.SetTokens(ctx, grant); err != nil {
		return fmt.Errorf("reputation: failed to store tokens: %w", err)
	}
	return nil
}

func (c *Client) refresh(ctx context.Context) (auth.Grant, error) {
	refreshToken, err := c.tokens.GetRefreshToken(ctx)
	if err != nil {
		return auth.Grant{}, err
	}
	return c.authenticator.Refresh(ctx, refreshToken)
}
