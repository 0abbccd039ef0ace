// Package lifecycle owns the synthesis-job state machine: job creation with
// dedup, worker-driven status transitions, and the result-cache write-through
// on completion.
package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/SirClappington/synq/internal/domain"
	"github.com/SirClappington/synq/internal/fingerprint"
	"github.com/SirClappington/synq/internal/registry"
	"github.com/SirClappington/synq/internal/storage"
)

type Manager struct {
	jobs   storage.JobStore
	cache  storage.ResultCache
	models registry.ModelRegistry
	log    *zap.Logger
}

func NewManager(jobs storage.JobStore, cache storage.ResultCache, models registry.ModelRegistry, log *zap.Logger) *Manager {
	return &Manager{jobs: jobs, cache: cache, models: models, log: log}
}

type SubmitParams struct {
	OwnerID      string
	VoiceModelID string
	Text         string
	Config       domain.SynthesisConfig
}

// Submit validates the request, dedups against live jobs and the result
// cache, and otherwise creates a new pending job. Two Submits racing on the
// same dedup key may both pass the existence check and create duplicates;
// that race is accepted and left to the storage layer's ordering.
func (m *Manager) Submit(ctx context.Context, p SubmitParams) (*domain.Job, error) {
	fields := map[string]string{}
	if p.OwnerID == "" {
		fields["owner_id"] = "must not be empty"
	}
	if p.VoiceModelID == "" {
		fields["voice_model_id"] = "must not be empty"
	}
	for k, msg := range p.Config.Validate() {
		fields[k] = msg
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError(fields)
	}

	active, err := m.models.IsActiveVoiceModel(ctx, p.VoiceModelID)
	if err != nil {
		return nil, errors.Wrap(err, "model registry lookup")
	}
	if !active {
		return nil, domain.Errorf(domain.CodeModelNotFound, "voice model %s not found or inactive", p.VoiceModelID)
	}

	cfg := p.Config.WithDefaults()
	normalized := cfg.Normalized()
	textFP := fingerprint.Text(p.Text)

	// Dedup keys on (text fingerprint, model, format, rate) only; prosody
	// fields are deliberately excluded from the key.
	dup, err := m.jobs.FindDuplicate(ctx, p.OwnerID, textFP, p.VoiceModelID, cfg.OutputFormat, cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		m.log.Debug("submit deduplicated to existing job",
			zap.String("job_id", dup.ID), zap.String("owner_id", p.OwnerID))
		return dup, nil
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:              uuid.NewString(),
		OwnerID:         p.OwnerID,
		VoiceModelID:    p.VoiceModelID,
		TextContent:     p.Text,
		TextFingerprint: textFP,
		Config:          cfg,
		Status:          domain.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// No live duplicate; a prior result may still be reusable. The cache is
	// content-addressed, so this reuse crosses owners.
	entry, found, err := m.cache.Lookup(ctx, textFP, p.VoiceModelID, fingerprint.Config(normalized))
	if err != nil {
		return nil, err
	}
	if found {
		outputRef := entry.OutputRef
		duration := entry.Duration
		job.Status = domain.StatusCompleted
		job.Progress = 1.0
		job.CacheHit = true
		job.CachedResultID = &entry.ID
		job.OutputRef = &outputRef
		job.Duration = &duration
		job.CompletedAt = &now
	}

	if err := m.jobs.Insert(ctx, job); err != nil {
		return nil, err
	}
	m.log.Info("job submitted",
		zap.String("job_id", job.ID),
		zap.String("voice_model_id", job.VoiceModelID),
		zap.Bool("cache_hit", job.CacheHit))
	return job, nil
}

func (m *Manager) Get(ctx context.Context, jobID, requestedBy string) (*domain.Job, error) {
	job, err := m.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != requestedBy {
		return nil, domain.Errorf(domain.CodeAccessDenied, "job %s does not belong to requester", jobID)
	}
	return job, nil
}

// List returns the owner's jobs with optional status/model/text filters,
// paging, and sorting, plus the unpaged total.
func (m *Manager) List(ctx context.Context, ownerID string, p storage.ListParams) ([]domain.Job, int64, error) {
	fields := map[string]string{}
	if p.Filter.Status != "" && !p.Filter.Status.Valid() {
		fields["status"] = "unknown status"
	}
	if p.SortField != "" && !storage.SortableField(p.SortField) {
		fields["sort_field"] = "must be one of: created_at, updated_at, status"
	}
	if p.SortOrder != "" && p.SortOrder != storage.SortAsc && p.SortOrder != storage.SortDesc {
		fields["sort_order"] = "must be one of: asc, desc"
	}
	if len(fields) > 0 {
		return nil, 0, domain.NewValidationError(fields)
	}
	return m.jobs.List(ctx, ownerID, p)
}

// ApplyUpdate is the synthesis worker's reporting path. All validation runs
// before any mutation; an invalid patch leaves the job untouched.
func (m *Manager) ApplyUpdate(ctx context.Context, jobID, requestedBy string, patch domain.Patch) (*domain.Job, error) {
	job, err := m.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != requestedBy {
		return nil, domain.Errorf(domain.CodeAccessDenied, "job %s does not belong to requester", jobID)
	}

	fields := map[string]string{}
	if patch.Status != nil && !patch.Status.Valid() {
		fields["status"] = "unknown status"
	}
	if patch.Progress != nil && (*patch.Progress < 0 || *patch.Progress > 1) {
		fields["progress"] = "must be between 0.0 and 1.0"
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError(fields)
	}
	if patch.Status != nil && !job.Status.CanTransition(*patch.Status) {
		return nil, domain.NewInvalidTransition(job.Status, *patch.Status)
	}
	// Terminal jobs are immutable except through an explicit restart.
	if patch.Status == nil && job.Status.Terminal() {
		return nil, domain.Errorf(domain.CodeInvalidTransition,
			"job in terminal status %q cannot be modified", job.Status)
	}

	now := time.Now().UTC()
	enteredCompleted := false
	if patch.Status != nil {
		next := *patch.Status
		job.Status = next
		switch {
		case next == domain.StatusProcessing && job.StartedAt == nil:
			job.StartedAt = &now
		case next == domain.StatusPending:
			// Restart: the retry run stamps fresh timestamps.
			job.Progress = 0
			job.ErrorMessage = nil
			job.StartedAt = nil
			job.CompletedAt = nil
		}
		if next.Terminal() && job.CompletedAt == nil {
			job.CompletedAt = &now
		}
		enteredCompleted = next == domain.StatusCompleted
	}
	if patch.Progress != nil {
		job.Progress = *patch.Progress
	}
	if patch.ErrorMessage != nil {
		job.ErrorMessage = patch.ErrorMessage
	}
	if patch.OutputRef != nil {
		job.OutputRef = patch.OutputRef
	}
	if patch.Duration != nil {
		job.Duration = patch.Duration
	}
	if patch.ProcessingMs != nil {
		job.ProcessingMs = patch.ProcessingMs
	}
	job.UpdatedAt = now

	if err := m.jobs.Update(ctx, job); err != nil {
		return nil, err
	}

	// The completion is already recorded; the cache write is best-effort,
	// and a failure here only costs a future cache miss. Persisting first
	// also keeps a failed update from leaving an orphaned cache entry.
	if enteredCompleted && !job.CacheHit {
		if err := m.cacheResult(ctx, job, now); err != nil {
			m.log.Warn("failed to cache synthesis result",
				zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	return job, nil
}

// cacheResult records a freshly completed job's output for reuse. A key
// collision means a concurrent job already cached the same content; that is
// a benign no-op, never surfaced.
func (m *Manager) cacheResult(ctx context.Context, job *domain.Job, now time.Time) error {
	if job.OutputRef == nil {
		m.log.Warn("completed job has no output ref, skipping cache insert",
			zap.String("job_id", job.ID))
		return nil
	}
	var duration float64
	if job.Duration != nil {
		duration = *job.Duration
	}
	entry := &domain.CacheEntry{
		ID:                uuid.NewString(),
		TextFingerprint:   job.TextFingerprint,
		VoiceModelID:      job.VoiceModelID,
		ConfigFingerprint: fingerprint.Config(job.Config.Normalized()),
		OutputRef:         *job.OutputRef,
		Duration:          duration,
		LastAccessedAt:    now,
		CreatedAt:         now,
	}
	err := m.cache.Insert(ctx, entry)
	if domain.IsCode(err, domain.CodeDuplicateKey) {
		m.log.Debug("result already cached by concurrent job", zap.String("job_id", job.ID))
		return nil
	}
	return err
}

// Delete removes a finished job. In-flight jobs cannot be deleted.
func (m *Manager) Delete(ctx context.Context, jobID, requestedBy string) error {
	job, err := m.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.OwnerID != requestedBy {
		return domain.Errorf(domain.CodeAccessDenied, "job %s does not belong to requester", jobID)
	}
	if !job.Status.Terminal() {
		return domain.Errorf(domain.CodeNotDeletable, "cannot delete job in status %q", job.Status)
	}
	if err := m.jobs.Delete(ctx, jobID); err != nil {
		return err
	}
	m.log.Info("job deleted", zap.String("job_id", jobID))
	return nil
}

// Cancel is the legacy convenience path for ApplyUpdate(status=cancelled).
func (m *Manager) Cancel(ctx context.Context, jobID, requestedBy string) (*domain.Job, error) {
	job, err := m.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != requestedBy {
		return nil, domain.Errorf(domain.CodeAccessDenied, "job %s does not belong to requester", jobID)
	}
	if job.Status != domain.StatusPending && job.Status != domain.StatusProcessing {
		return nil, domain.Errorf(domain.CodeNotCancellable, "cannot cancel job in status %q", job.Status)
	}
	cancelled := domain.StatusCancelled
	return m.ApplyUpdate(ctx, jobID, requestedBy, domain.Patch{Status: &cancelled})
}
