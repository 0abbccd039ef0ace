package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/SirClappington/synq/internal/domain"
)

// ResultCache maps (text fingerprint, voice model, config fingerprint) to a
// prior synthesis output. Entries are shared across owners; the cache is
// keyed by content.
type ResultCache interface {
	// Lookup returns the entry for the key and, as a side effect of the hit,
	// increments hit_count and refreshes last_accessed_at.
	Lookup(ctx context.Context, textFingerprint, voiceModelID, configFingerprint string) (*domain.CacheEntry, bool, error)

	// Insert fails with CodeDuplicateKey when the key is already cached.
	// Callers racing on the same key treat that as a benign no-op.
	Insert(ctx context.Context, entry *domain.CacheEntry) error

	// Purge removes non-permanent entries whose expires_at (or, if unset,
	// last_accessed_at) is older than before. With includePermanent it is an
	// administrative purge that ignores the permanence flag.
	Purge(ctx context.Context, before time.Time, includePermanent bool) (int64, error)
}

const uniqueViolation = "23505"

// PostgresResultCache persists cache entries in the cache_entries table.
type PostgresResultCache struct {
	db *pgxpool.Pool
}

func NewPostgresResultCache(db *pgxpool.Pool) *PostgresResultCache {
	return &PostgresResultCache{db: db}
}

func (c *PostgresResultCache) Lookup(ctx context.Context, textFingerprint, voiceModelID, configFingerprint string) (*domain.CacheEntry, bool, error) {
	// Bump-and-read in one statement so concurrent hits serialize on the row.
	row := c.db.QueryRow(ctx, `update cache_entries
set hit_count = hit_count + 1, last_accessed_at = now()
where text_fingerprint = $1 and voice_model_id = $2 and config_fingerprint = $3
returning id, text_fingerprint, voice_model_id, config_fingerprint,
  output_ref, duration, hit_count, last_accessed_at, expires_at, is_permanent, created_at`,
		textFingerprint, voiceModelID, configFingerprint)

	var e domain.CacheEntry
	err := row.Scan(
		&e.ID, &e.TextFingerprint, &e.VoiceModelID, &e.ConfigFingerprint,
		&e.OutputRef, &e.Duration, &e.HitCount, &e.LastAccessedAt,
		&e.ExpiresAt, &e.IsPermanent, &e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.WrapStorage(err, "cache lookup")
	}
	return &e, true, nil
}

func (c *PostgresResultCache) Insert(ctx context.Context, entry *domain.CacheEntry) error {
	_, err := c.db.Exec(ctx, `insert into cache_entries(
id, text_fingerprint, voice_model_id, config_fingerprint,
output_ref, duration, hit_count, last_accessed_at, expires_at, is_permanent, created_at
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		entry.ID, entry.TextFingerprint, entry.VoiceModelID, entry.ConfigFingerprint,
		entry.OutputRef, entry.Duration, entry.HitCount, entry.LastAccessedAt,
		entry.ExpiresAt, entry.IsPermanent, entry.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.Errorf(domain.CodeDuplicateKey, "cache entry already exists for key (%s, %s, %s)",
			entry.TextFingerprint, entry.VoiceModelID, entry.ConfigFingerprint)
	}
	if err != nil {
		return domain.WrapStorage(err, "cache insert")
	}
	return nil
}

func (c *PostgresResultCache) Purge(ctx context.Context, before time.Time, includePermanent bool) (int64, error) {
	tag, err := c.db.Exec(ctx, `delete from cache_entries
where coalesce(expires_at, last_accessed_at) < $1
  and (is_permanent = false or $2)`,
		before, includePermanent)
	if err != nil {
		return 0, domain.WrapStorage(err, "cache purge")
	}
	return tag.RowsAffected(), nil
}
