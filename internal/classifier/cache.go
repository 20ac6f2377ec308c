package classifier

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cached stores verdicts per image URL. Errors are never cached.
type Cached struct {
	next Classifier
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCached(next Classifier, rdb *redis.Client, ttl time.Duration) *Cached {
	return &Cached{next: next, rdb: rdb, ttl: ttl}
}

func cacheKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return "classifier:" + hex.EncodeToString(sum[:])
}

func (c *Cached) Classify(ctx context.Context, imageURL string) (Verdict, error) {
	key := cacheKey(imageURL)
	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var v Verdict
		if json.Unmarshal(raw, &v) == nil {
			return v, nil
		}
	} else if err != redis.Nil {
		slog.Warn("classifier cache read failed", "err", err)
	}

	v, err := c.next.Classify(ctx, imageURL)
	if err != nil {
		return v, err
	}
	if raw, err := json.Marshal(v); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			slog.Warn("classifier cache write failed", "err", err)
		}
	}
	return v, nil
}
