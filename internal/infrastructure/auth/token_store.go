package auth

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore persists token pairs keyed by external host id
type TokenStore interface {
	// Get returns the stored pair, or ErrHostNotFound when the host has no record
	Get(ctx context.Context, hostID string) (*TokenPair, error)

	// Save overwrites the whole pair, creating the host record when missing
	Save(ctx context.Context, pair *TokenPair) error

	// ClearAccess removes the access token fields of the host record
	ClearAccess(ctx context.Context, hostID string) error

	// ClearRefresh removes the refresh token fields of the host record
	ClearRefresh(ctx context.Context, hostID string) error
}

// Redis hash fields
const (
	fieldHostID           = "host_id"
	fieldAccessToken      = "access_token"
	fieldAccessIssuedAt   = "access_issued_at"
	fieldAccessExpiresIn  = "access_expires_in"
	fieldRefreshToken     = "refresh_token"
	fieldRefreshIssuedAt  = "refresh_issued_at"
	fieldRefreshExpiresIn = "refresh_expires_in"
)

// RedisTokenStore implements TokenStore with one Redis hash per host
type RedisTokenStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisTokenStoreConfig holds configuration for the Redis token store
type RedisTokenStoreConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisTokenStore creates a new Redis-based token store
func NewRedisTokenStore(cfg RedisTokenStoreConfig) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     5,
		MinIdleConns: 1,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis for token store: %w", err)
	}

	return NewRedisTokenStoreWithClient(client), nil
}

// NewRedisTokenStoreWithClient creates a token store with an existing Redis client
func NewRedisTokenStoreWithClient(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{
		client:    client,
		keyPrefix: "external:token:",
	}
}

func (s *RedisTokenStore) key(hostID string) string {
	return s.keyPrefix + hostID
}

// Get loads the token pair of a host
func (s *RedisTokenStore) Get(ctx context.Context, hostID string) (*TokenPair, error) {
	values, err := s.client.HGetAll(ctx, s.key(hostID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load token pair: %w", err)
	}
	if len(values) == 0 {
		return nil, ErrHostNotFound
	}
	return decodeTokenHash(hostID, values)
}

// Save replaces the token pair of a host
func (s *RedisTokenStore) Save(ctx context.Context, pair *TokenPair) error {
	key := s.key(pair.HostID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, encodeTokenHash(pair))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save token pair: %w", err)
	}
	return nil
}

// ClearAccess removes the access fields of a host
func (s *RedisTokenStore) ClearAccess(ctx context.Context, hostID string) error {
	return s.clearFields(ctx, hostID, fieldAccessToken, fieldAccessIssuedAt, fieldAccessExpiresIn)
}

// ClearRefresh removes the refresh fields of a host
func (s *RedisTokenStore) ClearRefresh(ctx context.Context, hostID string) error {
	return s.clearFields(ctx, hostID, fieldRefreshToken, fieldRefreshIssuedAt, fieldRefreshExpiresIn)
}

func (s *RedisTokenStore) clearFields(ctx context.Context, hostID string, fields ...string) error {
	exists, err := s.client.Exists(ctx, s.key(hostID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check token pair: %w", err)
	}
	if exists == 0 {
		return ErrHostNotFound
	}
	if err := s.client.HDel(ctx, s.key(hostID), fields...).Err(); err != nil {
		return fmt.Errorf("failed to clear token fields: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

var _ TokenStore = (*RedisTokenStore)(nil)

// encodeTokenHash flattens a pair into hash fields. Empty fields are omitted.
func encodeTokenHash(pair *TokenPair) map[string]any {
	values := map[string]any{fieldHostID: pair.HostID}
	if pair.HasAccessToken() {
		values[fieldAccessToken] = pair.AccessToken
		values[fieldAccessIssuedAt] = pair.AccessIssuedAt.UTC().Format(time.RFC3339Nano)
		values[fieldAccessExpiresIn] = pair.AccessExpiresIn
	}
	if pair.HasRefreshToken() {
		values[fieldRefreshToken] = pair.RefreshToken
		values[fieldRefreshIssuedAt] = pair.RefreshIssuedAt.UTC().Format(time.RFC3339Nano)
		values[fieldRefreshExpiresIn] = pair.RefreshExpiresIn
	}
	return values
}

func decodeTokenHash(hostID string, values map[string]string) (*TokenPair, error) {
	pair := &TokenPair{HostID: hostID}

	var err error
	if pair.AccessIssuedAt, err = parseHashTime(values[fieldAccessIssuedAt]); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", fieldAccessIssuedAt, err)
	}
	if pair.AccessExpiresIn, err = parseHashInt(values[fieldAccessExpiresIn]); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", fieldAccessExpiresIn, err)
	}
	if pair.RefreshIssuedAt, err = parseHashTime(values[fieldRefreshIssuedAt]); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", fieldRefreshIssuedAt, err)
	}
	if pair.RefreshExpiresIn, err = parseHashInt(values[fieldRefreshExpiresIn]); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", fieldRefreshExpiresIn, err)
	}
	pair.AccessToken = values[fieldAccessToken]
	pair.RefreshToken = values[fieldRefreshToken]
	return pair, nil
}

func parseHashTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseHashInt(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// InMemoryTokenStore provides an in-memory implementation for tests and single-process runs
type InMemoryTokenStore struct {
	mu    sync.RWMutex
	pairs map[string]TokenPair
}

// NewInMemoryTokenStore creates a new in-memory token store
func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{
		pairs: make(map[string]TokenPair),
	}
}

// Get returns a copy of the stored pair
func (s *InMemoryTokenStore) Get(_ context.Context, hostID string) (*TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pair, ok := s.pairs[hostID]
	if !ok {
		return nil, ErrHostNotFound
	}
	return &pair, nil
}

// Save stores a copy of the pair
func (s *InMemoryTokenStore) Save(_ context.Context, pair *TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs[pair.HostID] = *pair
	return nil
}

// ClearAccess removes the access fields of a host
func (s *InMemoryTokenStore) ClearAccess(_ context.Context, hostID string) error {
	return s.update(hostID, (*TokenPair).ClearAccess)
}

// ClearRefresh removes the refresh fields of a host
func (s *InMemoryTokenStore) ClearRefresh(_ context.Context, hostID string) error {
	return s.update(hostID, (*TokenPair).ClearRefresh)
}

func (s *InMemoryTokenStore) update(hostID string, fn func(*TokenPair)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, ok := s.pairs[hostID]
	if !ok {
		return ErrHostNotFound
	}
	fn(&pair)
	s.pairs[hostID] = pair
	return nil
}

var _ TokenStore = (*InMemoryTokenStore)(nil)
