package purge

import (
	"context"
	"log/slog"
	"time"

	"github.com/rohits-web03/estately/internal/metrics"
	"github.com/rohits-web03/estately/internal/worker"
)

// InlinePurger deletes objects on the in-process worker pool.
type InlinePurger struct {
	pool    *worker.Pool
	store   Deleter
	timeout time.Duration
}

func NewInlinePurger(pool *worker.Pool, store Deleter, timeout time.Duration) *InlinePurger {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &InlinePurger{pool: pool, store: store, timeout: timeout}
}

// Purge schedules one delete per URL and returns immediately. The request
// context is not used for the deletes; they outlive the request.
func (p *InlinePurger) Purge(_ context.Context, reason string, urls []string) {
	for _, url := range urls {
		ok := p.pool.Submit(func() { p.delete(reason, url) })
		if !ok {
			slog.Warn("purge dropped, worker pool stopped", "reason", reason, "url", url)
			metrics.PurgeFailures.Inc()
		}
	}
}

func (p *InlinePurger) delete(reason, url string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.store.DeleteByURL(ctx, url); err != nil {
		slog.Error("image purge failed", "reason", reason, "url", url, "err", err)
		metrics.PurgeFailures.Inc()
		return
	}
	slog.Debug("image purged", "reason", reason, "url", url)
}
