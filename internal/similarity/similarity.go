// Package similarity glues the external vector-similarity collaborator to
// the exact-key result cache. The two-stage design (approximate pre-filter,
// exact confirmation) keeps embedding concerns out of the cache itself.
package similarity

import (
	"context"

	"github.com/SirClappington/synq/internal/domain"
	"github.com/SirClappington/synq/internal/storage"
)

// Candidate is a ranked match supplied by the vector-similarity service.
// Distance is cosine distance; smaller is closer.
type Candidate struct {
	TextFingerprint string
	Distance        float64
}

// CandidateSource is the external vector-similarity collaborator.
type CandidateSource interface {
	Candidates(ctx context.Context, text string, limit int) ([]Candidate, error)
}

type Finder struct {
	source CandidateSource
	cache  storage.ResultCache
	limit  int
}

func NewFinder(source CandidateSource, cache storage.ResultCache, limit int) *Finder {
	if limit <= 0 {
		limit = 10
	}
	return &Finder{source: source, cache: cache, limit: limit}
}

// FindSimilar asks the candidate source for near matches to text, keeps
// those within threshold (distance <= 1 - threshold), and confirms each
// against the exact cache key until one is found. Confirmation goes through
// Lookup, so a reused entry gets its hit bookkeeping updated as usual.
func (f *Finder) FindSimilar(ctx context.Context, text, voiceModelID, configFingerprint string, threshold float64) (*domain.CacheEntry, bool, error) {
	candidates, err := f.source.Candidates(ctx, text, f.limit)
	if err != nil {
		return nil, false, err
	}
	maxDistance := 1 - threshold
	for _, c := range candidates {
		if c.Distance > maxDistance {
			continue
		}
		entry, found, err := f.cache.Lookup(ctx, c.TextFingerprint, voiceModelID, configFingerprint)
		if err != nil {
			return nil, false, err
		}
		if found {
			return entry, true, nil
		}
	}
	return nil, false, nil
}
