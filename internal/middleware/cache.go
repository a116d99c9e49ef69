package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "log/slog"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/mapit/internal/config"
)

// cachedResponse is the Redis value of a cached response.
type cachedResponse struct {
    Status      int    `json:"status"`
    ContentType string `json:"content_type"`
    Body        []byte `json:"body"`
}

// teeWriter forwards the response and keeps a copy of up to limit bytes.
type teeWriter struct {
    http.ResponseWriter
    status    int
    buf       bytes.Buffer
    limit     int
    truncated bool
}

func (w *teeWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
    if !w.truncated {
        if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
            w.truncated = true
            w.buf.Reset()
        } else {
            w.buf.Write(b)
        }
    }
    return w.ResponseWriter.Write(b)
}

// ResponseCache serves successful responses of read-only routes from Redis.
type ResponseCache struct {
    cfg config.CacheConfig
    rdb *redis.Client
    log *slog.Logger
}

// NewResponseCache returns nil when caching is disabled or Redis is not
// configured; a nil cache's Middleware is a no-op.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client, log *slog.Logger) *ResponseCache {
    if !cfg.Enabled || rdb == nil {
        return nil
    }
    if cfg.TTL <= 0 {
        cfg.TTL = time.Minute
    }
    return &ResponseCache{cfg: cfg, rdb: rdb, log: log.With("component", "cache")}
}

// Key derives the Redis key of a request from the configured strategy:
// "route", "method_route" or "route_query" (default).
func (rc *ResponseCache) Key(c echo.Context) string {
    r := c.Request()
    var tail string
    switch strings.ToLower(rc.cfg.KeyStrategy) {
    case "route":
        tail = c.Path()
    case "method_route":
        tail = r.Method + " " + c.Path()
    default:
        tail = c.Path() + "?" + r.URL.RawQuery
    }
    sum := sha1.Sum([]byte(tail))
    return rc.cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// Middleware replays cached 200 responses and stores fresh ones. Headers
// X-Cache: HIT or MISS tell the two apart.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        if rc == nil {
            return next
        }
        return func(c echo.Context) error {
            if !rc.cfg.Cacheable(c.Request().Method) {
                return next(c)
            }
            ctx := c.Request().Context()
            key := rc.Key(c)

            if raw, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
                var hit cachedResponse
                if json.Unmarshal(raw, &hit) == nil {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(hit.Status, hit.ContentType, hit.Body)
                }
            } else if err != redis.Nil {
                rc.log.Warn("cache read failed", "key", key, "error", err)
            }

            tw := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: rc.cfg.MaxBodyBytes}
            c.Response().Writer = tw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if tw.status != http.StatusOK || tw.truncated {
                return nil
            }
            payload, err := json.Marshal(cachedResponse{
                Status:      tw.status,
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        tw.buf.Bytes(),
            })
            if err != nil {
                return nil
            }
            // The request context may already be cancelled once the body is written.
            if err := rc.rdb.Set(context.WithoutCancel(ctx), key, payload, rc.cfg.TTL).Err(); err != nil {
                rc.log.Warn("cache write failed", "key", key, "error", err)
            }
            return nil
        }
    }
}
