package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SirClappington/synq/internal/domain"
)

// MemoryJobStore is a mutex-guarded in-memory JobStore. It backs tests and
// the no-database dev mode and mirrors the Postgres semantics, including
// dedup lookups and filtered listing.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.Job
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]domain.Job)}
}

func (s *MemoryJobStore) Insert(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.Errorf(domain.CodeNotFound, "job %s not found", id)
	}
	return &job, nil
}

func (s *MemoryJobStore) Update(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return domain.Errorf(domain.CodeNotFound, "job %s not found", job.ID)
	}
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryJobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return domain.Errorf(domain.CodeNotFound, "job %s not found", id)
	}
	delete(s.jobs, id)
	return nil
}

func (s *MemoryJobStore) FindDuplicate(_ context.Context, ownerID, textFingerprint, voiceModelID, outputFormat string, sampleRate int) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var match *domain.Job
	for id := range s.jobs {
		job := s.jobs[id]
		if job.OwnerID != ownerID || job.TextFingerprint != textFingerprint ||
			job.VoiceModelID != voiceModelID ||
			job.Config.OutputFormat != outputFormat || job.Config.SampleRate != sampleRate {
			continue
		}
		if match == nil || job.CreatedAt.Before(match.CreatedAt) {
			j := job
			match = &j
		}
	}
	return match, nil
}

func (s *MemoryJobStore) List(_ context.Context, ownerID string, p ListParams) ([]domain.Job, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Job
	for id := range s.jobs {
		job := s.jobs[id]
		if job.OwnerID != ownerID {
			continue
		}
		if p.Filter.Status != "" && job.Status != p.Filter.Status {
			continue
		}
		if p.Filter.VoiceModelID != "" && job.VoiceModelID != p.Filter.VoiceModelID {
			continue
		}
		if p.Filter.TextSearch != "" &&
			!strings.Contains(strings.ToLower(job.TextContent), strings.ToLower(p.Filter.TextSearch)) {
			continue
		}
		matched = append(matched, job)
	}
	total := int64(len(matched))

	asc := p.SortOrder == SortAsc
	sort.Slice(matched, func(i, j int) bool {
		var less bool
		switch p.SortField {
		case "updated_at":
			less = matched[i].UpdatedAt.Before(matched[j].UpdatedAt)
		case "status":
			less = matched[i].Status < matched[j].Status
		default:
			less = matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		if asc {
			return less
		}
		return !less
	})

	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	if p.Offset >= len(matched) {
		return nil, total, nil
	}
	end := p.Offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[p.Offset:end], total, nil
}

type cacheKey struct {
	text, model, config string
}

// MemoryResultCache is the in-memory ResultCache counterpart.
type MemoryResultCache struct {
	mu      sync.Mutex
	entries map[cacheKey]domain.CacheEntry
}

func NewMemoryResultCache() *MemoryResultCache {
	return &MemoryResultCache{entries: make(map[cacheKey]domain.CacheEntry)}
}

func (c *MemoryResultCache) Lookup(_ context.Context, textFingerprint, voiceModelID, configFingerprint string) (*domain.CacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := cacheKey{textFingerprint, voiceModelID, configFingerprint}
	entry, ok := c.entries[k]
	if !ok {
		return nil, false, nil
	}
	entry.HitCount++
	entry.LastAccessedAt = time.Now().UTC()
	c.entries[k] = entry
	return &entry, true, nil
}

func (c *MemoryResultCache) Insert(_ context.Context, entry *domain.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := cacheKey{entry.TextFingerprint, entry.VoiceModelID, entry.ConfigFingerprint}
	if _, exists := c.entries[k]; exists {
		return domain.Errorf(domain.CodeDuplicateKey, "cache entry already exists for key (%s, %s, %s)",
			entry.TextFingerprint, entry.VoiceModelID, entry.ConfigFingerprint)
	}
	c.entries[k] = *entry
	return nil
}

func (c *MemoryResultCache) Purge(_ context.Context, before time.Time, includePermanent bool) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var removed int64
	for k, entry := range c.entries {
		if entry.IsPermanent && !includePermanent {
			continue
		}
		basis := entry.LastAccessedAt
		if entry.ExpiresAt != nil {
			basis = *entry.ExpiresAt
		}
		if basis.Before(before) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed, nil
}
