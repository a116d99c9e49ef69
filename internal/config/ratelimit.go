package config

import "time"

// Rate limit key strategies.  The bucket is shared by every request that
// maps to the same key.
const (
    KeyByIP      = "ip"
    KeyByRoute   = "route"
    KeyByIPRoute = "ip_route"
)

// RateLimitConfig drives the Redis token bucket placed in front of the
// credential endpoints (register, login, admin login).  A bucket holds
// Capacity tokens and regains RefillTokens every RefillInterval; idle
// buckets expire after TTL.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    // LogDecisions logs every rejected request at debug level.
    LogDecisions bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  RATE_LIMIT_BURST is
// accepted as an alias of RATE_LIMIT_CAPACITY.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", envInt("RATE_LIMIT_BURST", 10)),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 6*time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", KeyByIPRoute),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "mapit:rl"),
        LogDecisions:   envBool("RATE_LIMIT_DEBUG", false),
    }
    return cfg.normalized()
}

// normalized clamps out-of-range values.  The TTL is at least five refill
// intervals.
func (c RateLimitConfig) normalized() RateLimitConfig {
    c.Capacity = max(c.Capacity, 1)
    c.RefillTokens = max(c.RefillTokens, 1)
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    c.TTL = max(c.TTL, 5*c.RefillInterval)
    switch c.KeyStrategy {
    case KeyByIP, KeyByRoute, KeyByIPRoute:
    default:
        c.KeyStrategy = KeyByIPRoute
    }
    return c
}
