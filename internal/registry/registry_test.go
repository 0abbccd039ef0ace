package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SirClappington/synq/internal/registry"
)

type countingRegistry struct {
	active map[string]bool
	calls  int
}

func (c *countingRegistry) IsActiveVoiceModel(_ context.Context, id string) (bool, error) {
	c.calls++
	return c.active[id], nil
}

func TestCachedRegistryMemoizes(t *testing.T) {
	upstream := &countingRegistry{active: map[string]bool{"m1": true}}
	cached := registry.NewCached(upstream, time.Minute)
	defer cached.Stop()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		active, err := cached.IsActiveVoiceModel(ctx, "m1")
		require.NoError(t, err)
		assert.True(t, active)
	}
	assert.Equal(t, 1, upstream.calls)

	// Negative answers are cached too.
	for i := 0; i < 3; i++ {
		active, err := cached.IsActiveVoiceModel(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, active)
	}
	assert.Equal(t, 2, upstream.calls)
}

func TestCachedRegistryExpires(t *testing.T) {
	upstream := &countingRegistry{active: map[string]bool{"m1": false}}
	cached := registry.NewCached(upstream, 10*time.Millisecond)
	defer cached.Stop()

	ctx := context.Background()
	active, err := cached.IsActiveVoiceModel(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, active)

	// Model flips to active; visible after the TTL.
	upstream.active["m1"] = true
	time.Sleep(30 * time.Millisecond)

	active, err = cached.IsActiveVoiceModel(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, 2, upstream.calls)
}
