// Package registry abstracts the external voice-model registry consulted on
// every Submit.
package registry

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// ModelRegistry answers whether a voice model exists and is active.
type ModelRegistry interface {
	IsActiveVoiceModel(ctx context.Context, id string) (bool, error)
}

// Cached memoizes registry answers for a short TTL so a burst of Submits
// against the same model costs one upstream call. Negative answers are
// cached too; a model flipping to active becomes visible after the TTL.
type Cached struct {
	upstream ModelRegistry
	cache    *ttlcache.Cache[string, bool]
}

func NewCached(upstream ModelRegistry, ttl time.Duration) *Cached {
	cache := ttlcache.New[string, bool](
		ttlcache.WithTTL[string, bool](ttl),
	)
	go cache.Start()
	return &Cached{upstream: upstream, cache: cache}
}

func (c *Cached) IsActiveVoiceModel(ctx context.Context, id string) (bool, error) {
	if item := c.cache.Get(id); item != nil {
		return item.Value(), nil
	}
	active, err := c.upstream.IsActiveVoiceModel(ctx, id)
	if err != nil {
		return false, err
	}
	c.cache.Set(id, active, ttlcache.DefaultTTL)
	return active, nil
}

// Stop halts the cache's expiry loop.
func (c *Cached) Stop() { c.cache.Stop() }
