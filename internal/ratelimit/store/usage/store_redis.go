package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"paythru/internal/ratelimit/models"
	"paythru/pkg/platform/sentinel"
)

// incrementScript runs the fixed-window check atomically.
// KEYS[1] counter key; ARGV[1] limit; ARGV[2] window in ms.
// Returns {allowed, count, ttl_ms}.
var incrementScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local ttl = redis.call("PTTL", KEYS[1])
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
if ttl <= 0 then
  redis.call("SET", KEYS[1], 1, "PX", window)
  return {1, 1, window}
end
if current >= limit then
  return {0, current, ttl}
end
local n = redis.call("INCR", KEYS[1])
return {1, n, ttl}
`)

// RedisStore implements ports.UsageStore on Redis so every replica shares
// one allowance per caller.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Increment(ctx context.Context, key string, limit int, window time.Duration) (*models.UsageResult, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{key}, limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("usage increment %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("usage increment %s: unexpected reply %v: %w", key, res, sentinel.ErrUnavailable)
	}

	now := s.now()
	resetAt := now.Add(time.Duration(res[2]) * time.Millisecond)
	count := int(res[1])
	if res[0] == 0 {
		return &models.UsageResult{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: models.RetryAfterSeconds(now, resetAt),
		}, nil
	}
	return &models.UsageResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   resetAt,
	}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("usage reset %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}
