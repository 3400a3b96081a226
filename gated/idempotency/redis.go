package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces idempotency keys in Redis.
const DefaultKeyPrefix = "gated:idempotency:"

const pendingMarker = "__pending__"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithRedisLogger sets the logger used for corrupt records.
func WithRedisLogger(logger log.Logger) RedisOption {
	return func(r *Redis) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Redis is a Store backed by Redis. Reservations use SET NX with a TTL so
// concurrent gateway instances agree on which request owns a key.
type Redis struct {
	client redis.UniversalClient
	prefix string
	logger log.Logger
}

// NewRedis creates a Redis store over client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) (*Redis, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	r := &Redis{
		client: client,
		prefix: DefaultKeyPrefix,
		logger: log.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Reserve implements Store.
func (r *Redis) Reserve(ctx context.Context, key string, ttl time.Duration) (*Record, error) {
	key, err := normalize(key)
	if err != nil {
		return nil, err
	}

	redisKey := r.prefix + key

	// A key that expires between SETNX and GET is retried once.
	for range 2 {
		ok, err := r.client.SetNX(ctx, redisKey, pendingMarker, ttlOrDefault(ttl)).Result()
		if err != nil {
			return nil, fmt.Errorf("reserve idempotency key: %w", err)
		}

		if ok {
			return nil, nil
		}

		raw, err := r.client.Get(ctx, redisKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("read idempotency key: %w", err)
		}

		if raw == pendingMarker {
			return nil, ErrInFlight
		}

		return r.decode(ctx, key, raw)
	}

	return nil, ErrInFlight
}

// Complete implements Store.
func (r *Redis) Complete(ctx context.Context, key string, record Record, ttl time.Duration) error {
	key, err := normalize(key)
	if err != nil {
		return err
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}

	if err := r.client.Set(ctx, r.prefix+key, payload, ttlOrDefault(ttl)).Err(); err != nil {
		return fmt.Errorf("store idempotency record: %w", err)
	}

	return nil
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) (*Record, error) {
	key, err := normalize(key)
	if err != nil {
		return nil, err
	}

	raw, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) || raw == pendingMarker {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	return r.decode(ctx, key, raw)
}

// Release drops a pending reservation. Completed records are kept.
func (r *Redis) Release(ctx context.Context, key string) error {
	key, err := normalize(key)
	if err != nil {
		return err
	}

	if err := releaseScript.Run(ctx, r.client, []string{r.prefix + key}, pendingMarker).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release idempotency key: %w", err)
	}

	return nil
}

func (r *Redis) decode(ctx context.Context, key, raw string) (*Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		r.logger.Log(ctx, log.LevelError, "corrupt idempotency record",
			log.String("key", key), log.Err(err))

		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}

	return &rec, nil
}
