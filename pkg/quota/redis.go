package quota

import (
	"context"
	_ "embed"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed fixed_window.lua
var fixedWindowScript string

// RedisStore is a bucket store backed by a shared Redis instance.
//
// The refill-and-consume step runs inside a Lua script, so Redis serializes
// concurrent accesses to the same bucket across any number of processes. No
// client-side locking is involved.
//
// Bucket keys carry no TTL; a bucket lives until Remove or RemoveAll.
type RedisStore struct {
	client    *redis.Client
	scriptSHA string
	prefix    string
	timeout   time.Duration
	recorder  MetricsRecorder
}

// NewRedisStore connects the store to client and preloads the bucket script
// into the Redis script cache.
func NewRedisStore(client *redis.Client, opts ...RedisOption) (*RedisStore, error) {
	s := &RedisStore{
		client:   client,
		prefix:   "quota:",
		timeout:  5 * time.Second,
		recorder: &NoOpMetricsRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, &StoreError{Op: "connect", Err: err}
	}

	sha, err := client.ScriptLoad(ctx, fixedWindowScript).Result()
	if err != nil {
		return nil, &StoreError{Op: "script_load", Err: err}
	}
	s.scriptSHA = sha

	return s, nil
}

// key namespaces and escapes a bucket id so that arbitrary caller-supplied
// identities cannot collide with unrelated keys or break Redis key syntax.
func (s *RedisStore) key(bucketID string) string {
	return s.prefix + url.QueryEscape(bucketID)
}

// GetBucket runs the atomic refill-and-consume script for bucketID.
//
// Any failure to evaluate the script surfaces as a StoreError matching
// ErrStoreUnavailable; the store never substitutes a full bucket for an
// unreachable one.
func (s *RedisStore) GetBucket(ctx context.Context, bucketID string, capacity int64, window time.Duration) (Decision, error) {
	if err := validateBucketArgs(capacity, window); err != nil {
		return Decision{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.eval(ctx, []string{s.key(bucketID)},
		capacity,
		window.Milliseconds(),
		start.UnixMilli(),
	)

	s.recorder.Add("quota.call", 1, nil)
	s.recorder.Observe("quota.latency", time.Since(start).Seconds(), nil)

	if err != nil {
		return Decision{}, &StoreError{Op: "get_bucket", Err: err}
	}

	dec, err := decodeDecision(bucketID, result)
	if err != nil {
		return Decision{}, &StoreError{Op: "get_bucket", Err: err}
	}
	return dec, nil
}

// eval prefers EvalSha and falls back to Eval when the script cache has been
// flushed, for example after a Redis restart.
func (s *RedisStore) eval(ctx context.Context, keys []string, args ...any) (any, error) {
	result, err := s.client.EvalSha(ctx, s.scriptSHA, keys, args...).Result()
	if err != nil && redis.HasErrorPrefix(err, "NOSCRIPT") {
		return s.client.Eval(ctx, fixedWindowScript, keys, args...).Result()
	}
	return result, err
}

// Remove deletes the bucket if present.
func (s *RedisStore) Remove(ctx context.Context, bucketID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key(bucketID)).Err(); err != nil {
		return &StoreError{Op: "remove", Err: err}
	}
	return nil
}

// RemoveAll deletes every bucket under this store's key prefix.
func (s *RedisStore) RemoveAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return &StoreError{Op: "remove_all", Err: err}
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return &StoreError{Op: "remove_all", Err: err}
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// decodeDecision parses the script reply:
// {allowed, tokens, resetTime, lastUpdatedAt, capacity, windowMs}.
func decodeDecision(bucketID string, result any) (Decision, error) {
	values, ok := result.([]any)
	if !ok || len(values) != 6 {
		return Decision{}, fmt.Errorf("unexpected script reply: %T", result)
	}

	nums := make([]int64, len(values))
	for i, v := range values {
		n, err := toInt64(v)
		if err != nil {
			return Decision{}, err
		}
		nums[i] = n
	}

	return Decision{
		Allowed: nums[0] == 1,
		Bucket: Bucket{
			ID:              bucketID,
			Capacity:        nums[4],
			Window:          time.Duration(nums[5]) * time.Millisecond,
			Tokens:          nums[1],
			WindowStartedAt: time.UnixMilli(nums[2]),
			LastUpdatedAt:   time.UnixMilli(nums[3]),
		},
	}, nil
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected script reply element: %T", v)
	}
}
