package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SirClappington/synq/internal/domain"
	"github.com/SirClappington/synq/internal/storage"
)

func TestCacheLookupBumpsHitCount(t *testing.T) {
	cache := storage.NewMemoryResultCache()
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, cache.Insert(ctx, &domain.CacheEntry{
		ID:                uuid.NewString(),
		TextFingerprint:   "fp",
		VoiceModelID:      "m1",
		ConfigFingerprint: "cfg",
		OutputRef:         "s3://out/a.wav",
		Duration:          2.5,
		LastAccessedAt:    now,
		CreatedAt:         now,
	}))

	entry, found, err := cache.Lookup(ctx, "fp", "m1", "cfg")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "s3://out/a.wav", entry.OutputRef)
	assert.Equal(t, 2.5, entry.Duration)
	assert.EqualValues(t, 1, entry.HitCount)

	entry, found, err = cache.Lookup(ctx, "fp", "m1", "cfg")
	require.NoError(t, err)
	require.True(t, found)
	assert.EqualValues(t, 2, entry.HitCount)
	assert.False(t, entry.LastAccessedAt.Before(now))

	_, found, err = cache.Lookup(ctx, "fp", "m2", "cfg")
	require.NoError(t, err)
	assert.False(t, found, "every key component participates")
}

func TestCacheInsertDuplicateKey(t *testing.T) {
	cache := storage.NewMemoryResultCache()
	ctx := context.Background()

	e := &domain.CacheEntry{
		ID: uuid.NewString(), TextFingerprint: "fp", VoiceModelID: "m1", ConfigFingerprint: "cfg",
		OutputRef: "s3://a", LastAccessedAt: time.Now().UTC(), CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, cache.Insert(ctx, e))

	dup := *e
	dup.ID = uuid.NewString()
	err := cache.Insert(ctx, &dup)
	assert.True(t, domain.IsCode(err, domain.CodeDuplicateKey))
}

func TestJobStoreFindDuplicatePicksOldest(t *testing.T) {
	jobs := storage.NewMemoryJobStore()
	ctx := context.Background()

	mk := func(created time.Time) *domain.Job {
		return &domain.Job{
			ID: uuid.NewString(), OwnerID: "o", VoiceModelID: "m1",
			TextFingerprint: "fp",
			Config:          domain.SynthesisConfig{OutputFormat: "wav", SampleRate: 22050}.WithDefaults(),
			Status:          domain.StatusPending,
			CreatedAt:       created, UpdatedAt: created,
		}
	}
	older := mk(time.Now().UTC().Add(-time.Hour))
	newer := mk(time.Now().UTC())
	require.NoError(t, jobs.Insert(ctx, newer))
	require.NoError(t, jobs.Insert(ctx, older))

	found, err := jobs.FindDuplicate(ctx, "o", "fp", "m1", "wav", 22050)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, older.ID, found.ID)

	found, err = jobs.FindDuplicate(ctx, "o", "fp", "m1", "mp3", 22050)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestJobStoreListSortAndPage(t *testing.T) {
	jobs := storage.NewMemoryJobStore()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		created := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, jobs.Insert(ctx, &domain.Job{
			ID: uuid.NewString(), OwnerID: "o", VoiceModelID: "m1",
			TextContent: "job", Status: domain.StatusPending,
			CreatedAt: created, UpdatedAt: created,
		}))
	}

	page, total, err := jobs.List(ctx, "o", storage.ListParams{
		Limit: 2, Offset: 0, SortField: "created_at", SortOrder: storage.SortAsc,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page, 2)
	assert.True(t, page[0].CreatedAt.Before(page[1].CreatedAt))

	page, _, err = jobs.List(ctx, "o", storage.ListParams{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, _, err = jobs.List(ctx, "o", storage.ListParams{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page)

	_, total, err = jobs.List(ctx, "someone-else", storage.ListParams{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
