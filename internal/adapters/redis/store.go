// Package redis stores chat sessions in Redis and serializes them across replicas.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bbkanego/seerbot/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the adapter writes.
const DefaultPrefix = "seerbot:session:"

// noExpiryScore is the index score of sessions without a TTL (2100-01-01).
const noExpiryScore = 4102444800

// SessionStore implements ports.SessionStore using Redis.
// Sessions are JSON strings; a sorted set indexes them by expiry for List.
type SessionStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithTTL expires sessions ttl after their last save.
func WithTTL(ttl time.Duration) Option {
	return func(s *SessionStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *SessionStore) {
		s.prefix = prefix
	}
}

// NewClient opens a client from a redis:// URL.
func NewClient(url string) (*backend.Client, error) {
	opts, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return backend.NewClient(opts), nil
}

// NewSessionStore creates a store on an existing client.
func NewSessionStore(client *backend.Client, opts ...Option) *SessionStore {
	s := &SessionStore{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *SessionStore) indexKey() string {
	return s.prefix + "index"
}

// Save writes the snapshot and refreshes its index entry in one pipeline.
func (s *SessionStore) Save(ctx context.Context, sessionID string, snap domain.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	score := float64(noExpiryScore)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).Unix())
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(sessionID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: sessionID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

// Load reads the snapshot of sessionID.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("failed to get session from redis: %w", err)
	}

	var snap domain.SessionSnapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return snap, nil
}

// Delete removes the session and its index entry.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

// List prunes expired index entries and returns the live session ids.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	now := fmt.Sprintf("%d", time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", now).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *SessionStore) Close() error {
	return s.client.Close()
}
