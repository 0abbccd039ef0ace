// Package janitor sweeps expired, non-permanent result-cache entries.
package janitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SirClappington/synq/internal/storage"
)

type Janitor struct {
	cache storage.ResultCache
	log   *zap.Logger
}

func New(cache storage.ResultCache, log *zap.Logger) *Janitor {
	return &Janitor{cache: cache, log: log}
}

// Sweep removes non-permanent entries older than maxAge (by expires_at, or
// last_accessed_at when no expiry is set) and returns the removed count.
// Running it twice in succession removes nothing the second time.
func (j *Janitor) Sweep(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	removed, err := j.cache.Purge(ctx, cutoff, false)
	if err != nil {
		j.log.Error("cache sweep failed", zap.Error(err))
		return 0, err
	}
	j.log.Info("cache sweep finished",
		zap.Time("cutoff", cutoff),
		zap.Int64("removed", removed))
	return removed, nil
}
