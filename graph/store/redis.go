package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	redis "github.com/redis/go-redis/v9"
)

// appendScript performs the fenced checkpoint write. It compares the incoming
// sequence number against the thread's recorded high-water mark and writes
// both atomically, so two racing writers cannot interleave out of order.
var appendScript = redis.NewScript(`
local last = redis.call('HGET', KEYS[1], 'last')
if last and tonumber(ARGV[1]) <= tonumber(last) then
  return 0
end
redis.call('HSET', KEYS[1], 'last', ARGV[1], 'cp:' .. ARGV[1], ARGV[2])
return 1
`)

// RedisStore is a Redis implementation of Store[S].
//
// Each thread's history lives in a single hash: one field per checkpoint plus
// a "last" field holding the high-water sequence number. Durability follows
// the Redis server's persistence configuration (AOF recommended).
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type RedisStore[S any] struct {
	client *redis.Client
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*redisConfig)

type redisConfig struct {
	prefix string
}

// WithKeyPrefix overrides the default "threadflow:thread:" key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(c *redisConfig) {
		c.prefix = prefix
	}
}

// NewRedisStore creates a new Redis-backed store connecting to the given address.
func NewRedisStore[S any](addr, password string, db int, opts ...RedisOption) *RedisStore[S] {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient[S](client, opts...)
}

// NewRedisStoreFromClient creates a store from an existing client, which the
// caller remains responsible for closing.
func NewRedisStoreFromClient[S any](client *redis.Client, opts ...RedisOption) *RedisStore[S] {
	cfg := redisConfig{prefix: "threadflow:thread:"}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &RedisStore[S]{client: client, prefix: cfg.prefix}
}

func (r *RedisStore[S]) key(threadID string) string {
	return r.prefix + threadID
}

// Latest returns the highest-sequence checkpoint for the thread.
func (r *RedisStore[S]) Latest(ctx context.Context, threadID string) (Checkpoint[S], error) {
	var zero Checkpoint[S]

	last, err := r.client.HGet(ctx, r.key(threadID), "last").Result()
	if err == redis.Nil {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to read thread high-water mark: %w", err)
	}

	data, err := r.client.HGet(ctx, r.key(threadID), "cp:"+last).Result()
	if err != nil {
		return zero, fmt.Errorf("failed to read checkpoint %s: %w", last, err)
	}

	var cp Checkpoint[S]
	if err := json.Unmarshal([]byte(data), &cp); err != nil {
		return zero, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return cp, nil
}

// Append durably writes a checkpoint, enforcing strictly increasing sequence
// numbers per thread via a server-side script.
func (r *RedisStore[S]) Append(ctx context.Context, cp Checkpoint[S]) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	ok, err := appendScript.Run(ctx, r.client, []string{r.key(cp.ThreadID)}, cp.Seq, data).Int()
	if err != nil {
		return fmt.Errorf("failed to append checkpoint: %w", err)
	}
	if ok == 0 {
		return ErrSequenceConflict
	}
	return nil
}

// History returns the thread's checkpoints oldest first.
func (r *RedisStore[S]) History(ctx context.Context, threadID string) ([]Checkpoint[S], error) {
	fields, err := r.client.HGetAll(ctx, r.key(threadID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read thread history: %w", err)
	}

	history := make([]Checkpoint[S], 0, len(fields))
	for field, data := range fields {
		if !strings.HasPrefix(field, "cp:") {
			continue
		}
		var cp Checkpoint[S]
		if err := json.Unmarshal([]byte(data), &cp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checkpoint %s: %w", field, err)
		}
		history = append(history, cp)
	}

	sort.Slice(history, func(i, j int) bool { return history[i].Seq < history[j].Seq })
	return history, nil
}

// Close closes the underlying client.
func (r *RedisStore[S]) Close() error {
	return r.client.Close()
}

// Ping verifies the Redis connection is alive.
func (r *RedisStore[S]) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
