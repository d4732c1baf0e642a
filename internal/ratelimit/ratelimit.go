// Package ratelimit implements a fixed-window request limiter on Redis so
// limits hold across replicas. A nil client disables limiting entirely,
// which keeps single-node deployments and tests working without Redis.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var windowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// Limiter counts hits per scope and subject in fixed windows.
type Limiter struct {
	client redis.UniversalClient
	prefix string
}

// NewLimiter constructs a Limiter. A nil client yields a limiter that
// allows everything.
func NewLimiter(client redis.UniversalClient, prefix string) *Limiter {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = "kiemxu:rate_limit"
	}
	return &Limiter{client: client, prefix: trimmed}
}

// Consume records one hit and reports whether the subject is over the
// limit for this window, with the seconds until the window resets.
func (l *Limiter) Consume(ctx context.Context, scope, subject string, limit int, window time.Duration) (allowed bool, retryAfterSeconds int, err error) {
	if l == nil || l.client == nil || limit <= 0 || window <= 0 {
		return true, 0, nil
	}
	scope = strings.TrimSpace(scope)
	subject = strings.TrimSpace(subject)
	if scope == "" || subject == "" {
		return true, 0, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s:%s", l.prefix, scope, subject)
	raw, errRun := windowScript.Run(ctx, l.client, []string{key}, windowMs).Result()
	if errRun != nil {
		return false, 0, errRun
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("ratelimit: unexpected script result shape: %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("ratelimit: unexpected count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return false, 0, fmt.Errorf("ratelimit: unexpected ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return count <= int64(limit), retryAfter, nil
}
