package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-ticketing/internal/config"
)

// tokenBucket refills lazily on every call.  KEYS[1] is the bucket;
// ARGV is now_ms, capacity, refill_tokens, interval_ms, ttl_seconds.  It
// returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local state = redis.call('HMGET', KEYS[1], 'tokens', 'last_refill_ms')
local now_ms, capacity = tonumber(ARGV[1]), tonumber(ARGV[2])
local refill, interval = tonumber(ARGV[3]), tonumber(ARGV[4])
local tokens, last = tonumber(state[1]), tonumber(state[2])
if tokens == nil or last == nil then
	tokens, last = capacity, now_ms
end
local steps = math.floor(math.max(0, now_ms - last) / interval)
if steps > 0 then
	tokens = math.min(capacity, tokens + steps * refill)
	last = last + steps * interval
end
local allowed, retry = 0, 0
if tokens > 0 then
	allowed, tokens = 1, tokens - 1
else
	retry = math.max(0, interval - (now_ms - last))
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'last_refill_ms', last)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return {allowed, tokens, retry}
`)

// passthrough is the middleware used when a Redis-backed feature is off.
func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewTokenBucket returns a per-key token bucket kept in Redis.  The bucket
// refills RefillTokens every RefillInterval up to Capacity.  Requests are
// let through when Redis is unavailable.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			res, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL/time.Second),
			).Result()
			if err != nil {
				c.Logger().Warnf("ratelimit: redis error for key=%s: %v", key, err)
				return next(c)
			}
			allowed, remaining, retryMs, ok := parseBucket(res)
			if !ok {
				c.Logger().Warnf("ratelimit: unexpected script result for key=%s: %#v", key, res)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if allowed {
				return next(c)
			}

			secs := int(math.Ceil(float64(retryMs) / 1000))
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				c.Logger().Infof("ratelimit: block key=%s retry=%dms", key, retryMs)
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

func parseBucket(v interface{}) (allowed bool, remaining, retryMs int64, ok bool) {
	arr, isSlice := v.([]interface{})
	if !isSlice || len(arr) != 3 {
		return false, 0, 0, false
	}
	return asInt64(arr[0]) == 1, asInt64(arr[1]), asInt64(arr[2]), true
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := userID(c)
	route := fmt.Sprintf("%s %s", c.Request().Method, c.Path())

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", uid)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", uid, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	return strings.Join(parts, ":")
}
