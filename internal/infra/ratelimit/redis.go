package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentinel/internal/domain"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript bumps the counter and stamps the window expiry in one
// round trip. INCR and PEXPIRE must not be split across calls or a crash
// between them could leave the key counting forever.
var slidingWindowScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {hits, redis.call("PTTL", KEYS[1])}
`)

// redisLimiter is the production limiter. Counts live in Redis, so every
// stateless instance of the service shares the same window.
type redisLimiter struct {
	scripts redis.Scripter
	now     func() time.Time
}

type RedisLimiterConfig struct {
	Addr     string
	Password string
	DB       int
	Now      func() time.Time
}

func NewRedisLimiter(cfg RedisLimiterConfig) (domain.RateLimiter, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &redisLimiter{scripts: client, now: cfg.Now}, nil
}

func (r *redisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	windowMillis := window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = 1000
	}
	raw, err := slidingWindowScript.Run(ctx, r.scripts, []string{key}, windowMillis).Result()
	if err != nil {
		return domain.RateLimitDecision{}, fmt.Errorf("rate limit script: %w", err)
	}
	hits, ttlMillis, err := parseScriptReply(raw)
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	decision := domain.RateLimitDecision{
		Allowed: hits <= int64(limit),
		Limit:   limit,
		ResetAt: r.now(),
	}
	if ttlMillis > 0 {
		decision.ResetAt = decision.ResetAt.Add(time.Duration(ttlMillis) * time.Millisecond)
	}
	if rem := limit - int(hits); rem > 0 {
		decision.Remaining = rem
	}
	return decision, nil
}

// parseScriptReply unpacks the {hits, ttl} pair the script returns. A
// negative ttl means the key carries no expiry and is passed through as is.
func parseScriptReply(raw any) (hits, ttlMillis int64, err error) {
	values, ok := raw.([]any)
	if !ok || len(values) != 2 {
		return 0, 0, errors.New("rate limit script: malformed reply")
	}
	if hits, ok = values[0].(int64); !ok {
		return 0, 0, errors.New("rate limit script: non-integer counter")
	}
	if ttlMillis, ok = values[1].(int64); !ok {
		return 0, 0, errors.New("rate limit script: non-integer ttl")
	}
	return hits, ttlMillis, nil
}
