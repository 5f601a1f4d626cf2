// Package redis stores each document as a Redis hash of JSON-encoded fields
// plus a version counter. Writes run as a Lua script so the version check,
// the merge, the bump and the change announcement are one atomic step.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/julianstephens/habitboard/internal/constants"
	"github.com/julianstephens/habitboard/internal/logger"
	"github.com/julianstephens/habitboard/internal/storage"
)

// versionField is the hash field holding the document version
const versionField = "_version"

// mergeScript merges field/value pairs into a document hash.
// KEYS[1] = document hash
// KEYS[2] = change channel
// ARGV[1] = expected version, or -1 to skip the check
// ARGV[2..] = field, value, field, value, ...
// Returns the new version, or -1 on a version mismatch.
var mergeScript = redis.NewScript(`
local current = tonumber(redis.call("HGET", KEYS[1], "_version") or "0")
local expected = tonumber(ARGV[1])
if expected >= 0 and current ~= expected then
    return -1
end

for i = 2, #ARGV, 2 do
    redis.call("HSET", KEYS[1], ARGV[i], ARGV[i + 1])
end

local version = redis.call("HINCRBY", KEYS[1], "_version", 1)
redis.call("PUBLISH", KEYS[2], version)
return version
`)

type Store struct {
	client        *redis.Client
	keyPrefix     string
	channelPrefix string
	logger        *log.Logger
	closed        atomic.Bool

	mu   sync.Mutex
	subs map[*redis.PubSub]struct{}
}

var _ storage.DocumentStore = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithNamespace prefixes every key and channel, isolating stores that share a server.
func WithNamespace(ns string) Option {
	return func(s *Store) {
		s.keyPrefix = ns + constants.RedisKeyPrefix
		s.channelPrefix = ns + constants.RedisChannelPrefix
	}
}

// New connects to the server at url (redis://[user@]host:port/db).
func New(url string, opts ...Option) (*Store, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewWithClient(redis.NewClient(options), opts...), nil
}

// NewWithClient wraps an existing client. Close closes it.
func NewWithClient(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client:        client,
		keyPrefix:     constants.RedisKeyPrefix,
		channelPrefix: constants.RedisChannelPrefix,
		logger:        logger.With("store", "redis"),
		subs:          make(map[*redis.PubSub]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) hashKey(key string) string { return s.keyPrefix + key }
func (s *Store) channel(key string) string { return s.channelPrefix + key }

func (s *Store) Get(ctx context.Context, key string) (storage.Snapshot, error) {
	if s.closed.Load() {
		return storage.Snapshot{}, storage.ErrClosed
	}

	values, err := s.client.HGetAll(ctx, s.hashKey(key)).Result()
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("failed to read document %s: %w", key, err)
	}

	snap := storage.Snapshot{Key: key}
	if len(values) == 0 {
		return snap, nil
	}

	snap.Exists = true
	snap.Data = make(storage.Document, len(values))
	for field, value := range values {
		if field == versionField {
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return storage.Snapshot{}, fmt.Errorf("corrupt version on %s: %w", key, err)
			}
			snap.Version = v
			continue
		}
		snap.Data[field] = json.RawMessage(value)
	}
	return snap, nil
}

func (s *Store) Subscribe(ctx context.Context, key string) (<-chan storage.Snapshot, error) {
	if s.closed.Load() {
		return nil, storage.ErrClosed
	}

	pubsub := s.client.Subscribe(ctx, s.channel(key))
	// Wait for the subscription to be live so no write between the initial
	// read and the first message is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", key, err)
	}
	s.track(pubsub)

	wake := make(chan struct{}, 1)
	go func() {
		defer close(wake)
		for msg := range pubsub.ChannelWithSubscriptions() {
			if sub, ok := msg.(*redis.Subscription); ok {
				// Resubscribed after a reconnect; writes published meanwhile were missed.
				s.logger.Debug("Resubscribed to document changes", "key", key, "kind", sub.Kind)
			}
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	}()

	return storage.Follow(ctx, key, s.Get, wake, 0, s.logger, func() {
		s.untrack(pubsub)
		_ = pubsub.Close()
	})
}

func (s *Store) track(ps *redis.PubSub) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[ps] = struct{}{}
}

func (s *Store) untrack(ps *redis.PubSub) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, ps)
}

func (s *Store) MergeWrite(ctx context.Context, key string, fields storage.Document) (int64, error) {
	return s.write(ctx, key, fields, -1)
}

func (s *Store) MergeWriteIf(ctx context.Context, key string, fields storage.Document, version int64) (int64, error) {
	return s.write(ctx, key, fields, version)
}

func (s *Store) write(ctx context.Context, key string, fields storage.Document, expected int64) (int64, error) {
	if s.closed.Load() {
		return 0, storage.ErrClosed
	}
	if err := storage.CheckFields(fields); err != nil {
		return 0, err
	}
	if _, ok := fields[versionField]; ok {
		return 0, fmt.Errorf("%w: %q is reserved", storage.ErrInvalidField, versionField)
	}

	args := make([]interface{}, 0, 1+2*len(fields))
	args = append(args, expected)
	for name, raw := range fields {
		args = append(args, name, string(raw))
	}

	version, err := mergeScript.Run(ctx, s.client, []string{s.hashKey(key), s.channel(key)}, args...).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to write document %s: %w", key, err)
	}
	if version < 0 {
		return 0, storage.ErrVersionConflict
	}

	s.logger.Debug("Merged document fields", "key", key, "version", version, "fields", len(fields))
	return version, nil
}

// Close ends every subscription and closes the client.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.mu.Lock()
	subs := make([]*redis.PubSub, 0, len(s.subs))
	for ps := range s.subs {
		subs = append(subs, ps)
	}
	s.subs = make(map[*redis.PubSub]struct{})
	s.mu.Unlock()

	var errs []error
	for _, ps := range subs {
		if err := ps.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.client.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
