package ratelimit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims hits older than the window, then either reports the
// wait until the oldest hit leaves or records a new hit and refreshes the TTL.
// Returns {allowed, retry_after_ms}.
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
local count = redis.call("ZCARD", key)
if count >= max then
  local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
  local retry = window
  if oldest[2] then
    retry = tonumber(oldest[2]) + window - now
  end
  return {0, retry}
end
redis.call("ZADD", key, now, ARGV[4])
redis.call("PEXPIRE", key, window)
return {1, 0}
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Redis shares hit counters across processes. The script runs atomically.
type Redis struct {
	client redisEvaler
	prefix string
	now    func() time.Time
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "auirah:rl:", now: time.Now}
}

func (l *Redis) Attempt(ctx context.Context, key string, max int, window time.Duration) (Decision, error) {
	nowMs := l.now().UnixMilli()
	member, err := hitID(nowMs)
	if err != nil {
		return Decision{}, err
	}
	res, err := l.client.Eval(ctx, slidingWindowScript, []string{l.prefix + key},
		nowMs, window.Milliseconds(), max, member).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit eval: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("rate limit eval: unexpected reply %v", res)
	}
	if res[0] == 1 {
		return Decision{Allowed: true}, nil
	}
	return Decision{RetryAfter: roundUp(time.Duration(res[1]) * time.Millisecond)}, nil
}

func hitID(nowMs int64) (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rate limit member: %w", err)
	}
	return fmt.Sprintf("%d-%s", nowMs, hex.EncodeToString(b)), nil
}
