package config

import (
    "strings"
    "time"
)

// CacheConfig configures the Redis response cache in front of the package
// catalog.  Only 200 responses of the listed methods are stored, and bodies
// larger than MaxBodyBytes are passed through uncached.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string // route, method_route or route_query
    Prefix       string
    MaxBodyBytes int
}

// Cacheable reports whether responses to method may be stored.
func (c CacheConfig) Cacheable(method string) bool { return c.Methods[strings.ToUpper(method)] }

// LoadCacheConfig reads CACHE_* variables.  The catalog changes rarely, so
// a minute of staleness is the default.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
        TTL:          envDur("CACHE_TTL", time.Minute),
        KeyStrategy:  strings.ToLower(envStr("CACHE_KEY_STRATEGY", "route_query")),
        Prefix:       envStr("CACHE_PREFIX", "mapit:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if cfg.TTL <= 0 {
        cfg.TTL = time.Minute
    }
    return cfg
}

// parseMethods turns "get, head" into an upper-cased set.
func parseMethods(s string) map[string]bool {
    set := make(map[string]bool)
    for _, m := range parseList(strings.ToUpper(s)) {
        if m != "*" {
            set[m] = true
        }
    }
    return set
}
