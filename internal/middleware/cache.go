package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-ticketing/internal/config"
)

// captureWriter copies up to limit bytes of the response body while
// forwarding everything to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
	over   bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.over {
		if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
			cw.over = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// groupPrefix is the key prefix of one resource group, e.g. "cache:movies".
func groupPrefix(cfg config.CacheConfig, group string) string {
	return cfg.Prefix + ":" + group
}

// cacheKey builds the key of a request inside its group.
func cacheKey(cfg config.CacheConfig, group string, c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", c.Path()}
	case "method_route":
		parts = []string{"method", r.Method, "route", c.Path()}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
	default: // route_query
		parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
	}
	// Path parameters are part of the key; c.Path() is only the pattern.
	parts = append(parts, "params", strings.Join(c.ParamValues(), "/"))
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", groupPrefix(cfg, group), sum[:])
}

// NewRedisCache caches successful responses of the configured methods for
// one resource group and drops the whole group after any successful write
// to it.  It must run after authentication so cached bodies are only
// served to callers allowed to read them.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, group string) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			method := strings.ToUpper(c.Request().Method)
			if !cfg.Methods[method] {
				err := next(c)
				if err == nil && c.Response().Status < http.StatusBadRequest && method != http.MethodHead {
					invalidate(c, rdb, groupPrefix(cfg, group))
				}
				return err
			}

			ctx := c.Request().Context()
			key := cacheKey(cfg, group, c)
			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var hit cachedResponse
				if json.Unmarshal(bs, &hit) == nil {
					for k, vals := range hit.Header {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(hit.Status, hit.Header.Get(echo.HeaderContentType), hit.Body)
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.over {
				return nil
			}
			entry := cachedResponse{Status: cw.status, Header: c.Response().Header().Clone(), Body: cw.buf.Bytes()}
			entry.Header.Del("X-Cache")
			if payload, err := json.Marshal(entry); err == nil {
				_ = rdb.SetEx(context.Background(), key, payload, ttl).Err()
			}
			return nil
		}
	}
}

// invalidate deletes every key under prefix.
func invalidate(c echo.Context, rdb *redis.Client, prefix string) {
	ctx := context.Background()
	iter := rdb.Scan(ctx, 0, prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.Logger().Warnf("cache: scan %s failed: %v", prefix, err)
		return
	}
	if len(keys) > 0 {
		if err := rdb.Del(ctx, keys...).Err(); err != nil {
			c.Logger().Warnf("cache: invalidate %s failed: %v", prefix, err)
		}
	}
}
