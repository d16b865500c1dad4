package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/kharven/refract/pkg/domain"
)

const defaultPrefix = "refract:session:"

// noExpiryScore is the index score for sessions saved without a TTL,
// 2100-01-01, far enough that lazy pruning never touches them.
const noExpiryScore = 4102444800

// Store implements ports.StateStore on Redis. Sessions live as JSON values
// under prefix+id, with a ZSET index keyed by expiry so List can prune
// without scanning the keyspace.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL makes saved sessions expire. Zero, the default, keeps them until
// deleted.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix overrides the key prefix, for sharing one Redis between
// deployments.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// NewFromClient builds a store over an existing client connection.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// NewFromURL builds a store from a redis:// connection URL.
func NewFromURL(url string, opts ...Option) (*Store, error) {
	redisOpts, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewFromClient(backend.NewClient(redisOpts), opts...), nil
}

// Client exposes the underlying client so collaborators sharing the
// connection (e.g. the session locker) don't open a second one.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save writes the session value and its index entry in one pipeline.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.ExamState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = noExpiryScore
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(sessionID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: sessionID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session to redis: %w", err)
	}
	return nil
}

// Load fetches and decodes one session.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.ExamState, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session from redis: %w", err)
	}

	var state domain.ExamState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	// The engine increments into Verdicts without a nil check.
	if state.Verdicts == nil {
		state.Verdicts = make(map[domain.VerdictKind]int)
	}
	return &state, nil
}

// Delete removes the session value and its index entry.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns live session IDs, first pruning index entries whose expiry
// score has passed. Values expire on their own; only the index needs help.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("prune expired sessions: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Close releases the client's connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
