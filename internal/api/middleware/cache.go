package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rohits-web03/estately/internal/config"
)

const maxCachedBody = 1 << 20

// captureWriter copies the response body while forwarding it to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.buf.Len()+len(b) <= maxCachedBody {
		cw.buf.Write(b)
	}
	return cw.ResponseWriter.Write(b)
}

// ResponseCache caches successful GET responses in Redis. Invalidate bumps a
// generation counter that is part of every key, so old entries simply expire.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
	return &ResponseCache{cfg: cfg, rdb: rdb}
}

func (c *ResponseCache) enabled() bool { return c != nil && c.cfg.Enabled && c.rdb != nil }

func (c *ResponseCache) genKey() string { return c.cfg.Prefix + ":gen" }

func (c *ResponseCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.rdb.Incr(context.WithoutCancel(ctx), c.genKey()).Err(); err != nil {
		slog.Warn("cache: invalidate failed", "err", err)
	}
}

func cacheKey(prefix, gen string, r *http.Request) string {
	sum := sha1.Sum([]byte(r.URL.Path + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%s:%s:%x", prefix, gen, sum[:])
}

// encodePayload packs [4 bytes status][4 bytes header len][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (int, http.Header, []byte, bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status := int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	hdr := make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, hdr, bs[8+hlen:], true
}

func (c *ResponseCache) Middleware(next http.Handler) http.Handler {
	if !c.enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		gen, err := c.rdb.Get(ctx, c.genKey()).Result()
		if err == redis.Nil {
			gen = "0"
		} else if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		key := cacheKey(c.cfg.Prefix, gen, r)

		if bs, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
			if status, hdr, body, ok := decodePayload(bs); ok {
				for k, vals := range hdr {
					if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, "X-Request-Id") {
						continue
					}
					for _, v := range vals {
						w.Header().Add(k, v)
					}
				}
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(status)
				_, _ = w.Write(body)
				return
			}
		}

		w.Header().Set("X-Cache", "MISS")
		cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(cw, r)

		if cw.status != http.StatusOK || cw.buf.Len() == 0 {
			return
		}
		hdr := w.Header().Clone()
		hdr.Del("X-Cache")
		if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
			_ = c.rdb.Set(context.WithoutCancel(ctx), key, payload, c.cfg.TTL).Err()
		}
	})
}
