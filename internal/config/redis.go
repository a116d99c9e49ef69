package config

import (
    "context"
    "crypto/tls"
    "fmt"
    "net"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment:
//   REDIS_URL                  full redis:// or rediss:// URL, wins over the rest
//   REDIS_ADDR                 host:port
//   REDIS_HOST, REDIS_PORT     alternative to REDIS_ADDR
//   REDIS_PASSWORD, REDIS_DB   credentials and database number
//   REDIS_TLS                  enable TLS
// ok is false when REDIS_DISABLED is set.
func RedisOptions() (opts *redis.Options, ok bool, err error) {
    if envBool("REDIS_DISABLED", false) {
        return nil, false, nil
    }
    if url := envStr("REDIS_URL", ""); url != "" {
        opts, err := redis.ParseURL(url)
        if err != nil {
            return nil, false, fmt.Errorf("parse REDIS_URL: %w", err)
        }
        return opts, true, nil
    }
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host := envStr("REDIS_HOST", ""); host != "" {
        addr = net.JoinHostPort(host, envStr("REDIS_PORT", "6379"))
    }
    opts = &redis.Options{
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
    }
    if envBool("REDIS_TLS", false) {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return opts, true, nil
}

// NewRedisClient connects to Redis and pings it.  Redis backs the rate
// limiter and the package catalog cache, both of which pass requests
// through without a client, so a nil client is returned (with the reason)
// rather than failing startup.
func NewRedisClient(ctx context.Context) (*redis.Client, error) {
    opts, ok, err := RedisOptions()
    if !ok || err != nil {
        return nil, err
    }
    client := redis.NewClient(opts)
    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
    }
    return client, nil
}
