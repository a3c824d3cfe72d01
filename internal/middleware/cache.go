package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/gsr-share/internal/config"
	"github.com/iliyamo/gsr-share/internal/logger"
)

// CacheTTLKey is the Echo context key a handler sets (time.Duration) to
// shorten the lifetime of the response it is producing.  A non-positive
// value disables caching for that response.
const CacheTTLKey = "cache_ttl"

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 {
		cw.buf.Write(b)
	} else if remain := cw.limit - cw.size; remain > 0 {
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// CacheKey builds the Redis key for a request.  Every strategy includes the
// concrete request path, never the route pattern, so two resources behind
// the same route cannot share an entry.
func CacheKey(cfg config.CacheConfig, method, path, query string) string {
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "path":
		parts = []string{"path", path}
	case "method_path":
		parts = []string{"method", method, "path", path}
	case "method_path_query":
		parts = []string{"method", method, "path", path, "q", query}
	default: // "path_query"
		parts = []string{"path", path, "q", query}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	return CacheKey(cfg, r.Method, r.URL.Path, r.URL.RawQuery)
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// NewRedisCache stores status, headers and body of 200 responses so hits are
// byte-identical to the original.  Responses larger than MaxBodyBytes are
// not stored.
func NewRedisCache(cfg config.CacheConfig, rdb redis.Cmdable) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) || strings.EqualFold(k, echo.HeaderXRequestID) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					if len(body) > 0 {
						_, _ = c.Response().Write(body)
					}
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}
			entryTTL := ttl
			if hint, ok := c.Get(CacheTTLKey).(time.Duration); ok {
				if hint <= 0 {
					return nil
				}
				entryTTL = min(entryTTL, hint)
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := rdb.SetEx(context.WithoutCancel(ctx), key, payload, entryTTL).Err(); err != nil {
				logger.WithContext(ctx).Warn("cache store failed", "key", key, "error", err)
			}
			return nil
		}
	}
}

// NewPurgeableCache returns a cache middleware and the purger that clears
// its entries.  Both key on method and path only, so every query variant
// of a URL shares the one entry Purge removes.
func NewPurgeableCache(cfg config.CacheConfig, rdb redis.Cmdable) (echo.MiddlewareFunc, *CachePurger) {
	cfg.KeyStrategy = "method_path"
	return NewRedisCache(cfg, rdb), NewCachePurger(cfg, rdb)
}

// CachePurger deletes cached responses for concrete paths.  A nil client or
// a disabled cache makes Purge a no-op.
type CachePurger struct {
	cfg config.CacheConfig
	rdb redis.Cmdable
}

func NewCachePurger(cfg config.CacheConfig, rdb redis.Cmdable) *CachePurger {
	return &CachePurger{cfg: cfg, rdb: rdb}
}

// Purge removes the GET entries (without query string) for paths.
func (p *CachePurger) Purge(ctx context.Context, paths ...string) error {
	if p == nil || p.rdb == nil || !p.cfg.Enabled || len(paths) == 0 {
		return nil
	}
	keys := make([]string, 0, len(paths))
	for _, path := range paths {
		keys = append(keys, CacheKey(p.cfg, http.MethodGet, path, ""))
	}
	return p.rdb.Del(ctx, keys...).Err()
}
