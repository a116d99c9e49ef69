package middleware

import (
    "context"
    "fmt"
    "log/slog"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/mapit/internal/config"
)

// tokenBucket refills a per-key bucket and takes one token. It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local tokens = tonumber(redis.call('HGET', key, 'tokens'))
local last = tonumber(redis.call('HGET', key, 'last_refill_ms'))
if tokens == nil or last == nil then
    tokens = capacity
    last = now
end

local steps = math.floor(math.max(0, now - last) / interval)
if steps > 0 then
    tokens = math.min(capacity, tokens + steps * refill)
    last = last + steps * interval
end

local allowed = 0
local retry = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    retry = math.max(0, interval - (now - last))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last)
redis.call('EXPIRE', key, ttl)
return {allowed, tokens, retry}
`)

// Decision is the outcome of one bucket check.
type Decision struct {
    Allowed    bool
    Remaining  int64
    RetryAfter time.Duration
}

// RateLimiter is a Redis token bucket keyed by client IP and/or route.
type RateLimiter struct {
    cfg config.RateLimitConfig
    rdb redis.Scripter
    log *slog.Logger
}

// NewRateLimiter returns nil when limiting is disabled or Redis is not
// configured; a nil limiter's Middleware lets every request through.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, log *slog.Logger) *RateLimiter {
    if !cfg.Enabled || rdb == nil {
        return nil
    }
    return &RateLimiter{cfg: cfg, rdb: rdb, log: log.With("component", "ratelimit")}
}

// Take consumes one token for key.
func (l *RateLimiter) Take(ctx context.Context, key string, now time.Time) (Decision, error) {
    res, err := tokenBucket.Run(ctx, l.rdb, []string{key},
        now.UnixMilli(),
        l.cfg.Capacity,
        l.cfg.RefillTokens,
        l.cfg.RefillInterval.Milliseconds(),
        int64(l.cfg.TTL/time.Second),
    ).Int64Slice()
    if err != nil {
        return Decision{}, err
    }
    if len(res) != 3 {
        return Decision{}, fmt.Errorf("unexpected token bucket reply %v", res)
    }
    return Decision{
        Allowed:    res[0] == 1,
        Remaining:  res[1],
        RetryAfter: time.Duration(res[2]) * time.Millisecond,
    }, nil
}

// Middleware enforces the bucket. Redis failures let the request through.
func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        if l == nil {
            return next
        }
        return func(c echo.Context) error {
            key := l.key(c)
            d, err := l.Take(c.Request().Context(), key, time.Now())
            if err != nil {
                l.log.Warn("rate limit check failed", "key", key, "error", err)
                return next(c)
            }
            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
            if !d.Allowed {
                secs := int(math.Ceil(d.RetryAfter.Seconds()))
                h.Set("Retry-After", strconv.Itoa(secs))
                if l.cfg.LogDecisions {
                    l.log.Debug("rate limited", "key", key, "retry_after_s", secs)
                }
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "success":     false,
                    "error":       "rate limit exceeded",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}

// key builds "<prefix>:<parts>" according to the configured strategy:
// "ip", "route" or "ip_route" (default).
func (l *RateLimiter) key(c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    route := c.Request().Method + " " + c.Path()
    parts := []string{l.cfg.Prefix}
    switch l.cfg.KeyStrategy {
    case config.KeyByIP:
        parts = append(parts, "ip", ip)
    case config.KeyByRoute:
        parts = append(parts, "route", route)
    default:
        parts = append(parts, "ip", ip, "route", route)
    }
    return strings.Join(parts, ":")
}
