package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/SirClappington/synq/internal/domain"
)

// JobFilter narrows a job listing. Zero values mean "no filter".
type JobFilter struct {
	Status       domain.Status
	VoiceModelID string
	TextSearch   string
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type ListParams struct {
	Filter    JobFilter
	Limit     int
	Offset    int
	SortField string
	SortOrder SortOrder
}

// JobStore is the persistence abstraction for job records. Implementations
// must serialize concurrent writes to the same row at the storage layer.
type JobStore interface {
	Insert(ctx context.Context, job *domain.Job) error
	Get(ctx context.Context, id string) (*domain.Job, error)
	Update(ctx context.Context, job *domain.Job) error
	Delete(ctx context.Context, id string) error

	// FindDuplicate looks up an existing job for the dedup key
	// (owner, text fingerprint, voice model, output format, sample rate).
	// Returns (nil, nil) when no such job exists.
	FindDuplicate(ctx context.Context, ownerID, textFingerprint, voiceModelID, outputFormat string, sampleRate int) (*domain.Job, error)

	List(ctx context.Context, ownerID string, p ListParams) ([]domain.Job, int64, error)
}

var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"status":     "status",
}

// SortableField reports whether field is accepted by List.
func SortableField(field string) bool {
	_, ok := sortColumns[field]
	return ok
}

// PostgresJobStore persists jobs in the jobs table (source of truth).
type PostgresJobStore struct {
	db *pgxpool.Pool
}

func NewPostgresJobStore(db *pgxpool.Pool) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

const jobColumns = `id, owner_id, voice_model_id, text_content, text_fingerprint,
output_format, sample_rate, config, status, progress, output_ref, error_message,
duration, processing_time_ms, cache_hit, cached_result_id,
created_at, started_at, completed_at, updated_at`

func (s *PostgresJobStore) Insert(ctx context.Context, job *domain.Job) error {
	cfg, err := json.Marshal(job.Config)
	if err != nil {
		return domain.WrapStorage(errors.Wrap(err, "marshal config"), "insert job")
	}
	_, err = s.db.Exec(ctx, `insert into jobs(`+jobColumns+`) values (
$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		job.ID, job.OwnerID, job.VoiceModelID, job.TextContent, job.TextFingerprint,
		job.Config.OutputFormat, job.Config.SampleRate, cfg, job.Status, job.Progress,
		job.OutputRef, job.ErrorMessage, job.Duration, job.ProcessingMs,
		job.CacheHit, job.CachedResultID,
		job.CreatedAt, job.StartedAt, job.CompletedAt, job.UpdatedAt,
	)
	if err != nil {
		return domain.WrapStorage(err, "insert job")
	}
	return nil
}

func (s *PostgresJobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := s.db.QueryRow(ctx, `select `+jobColumns+` from jobs where id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Errorf(domain.CodeNotFound, "job %s not found", id)
	}
	if err != nil {
		return nil, domain.WrapStorage(err, "get job")
	}
	return job, nil
}

func (s *PostgresJobStore) Update(ctx context.Context, job *domain.Job) error {
	cfg, err := json.Marshal(job.Config)
	if err != nil {
		return domain.WrapStorage(errors.Wrap(err, "marshal config"), "update job")
	}
	tag, err := s.db.Exec(ctx, `update jobs set
status = $2, progress = $3, output_ref = $4, error_message = $5,
duration = $6, processing_time_ms = $7, cache_hit = $8, cached_result_id = $9,
config = $10, started_at = $11, completed_at = $12, updated_at = $13
where id = $1`,
		job.ID, job.Status, job.Progress, job.OutputRef, job.ErrorMessage,
		job.Duration, job.ProcessingMs, job.CacheHit, job.CachedResultID,
		cfg, job.StartedAt, job.CompletedAt, job.UpdatedAt,
	)
	if err != nil {
		return domain.WrapStorage(err, "update job")
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.CodeNotFound, "job %s not found", job.ID)
	}
	return nil
}

func (s *PostgresJobStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `delete from jobs where id = $1`, id)
	if err != nil {
		return domain.WrapStorage(err, "delete job")
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.CodeNotFound, "job %s not found", id)
	}
	return nil
}

func (s *PostgresJobStore) FindDuplicate(ctx context.Context, ownerID, textFingerprint, voiceModelID, outputFormat string, sampleRate int) (*domain.Job, error) {
	row := s.db.QueryRow(ctx, `select `+jobColumns+` from jobs
where owner_id = $1 and text_fingerprint = $2 and voice_model_id = $3
  and output_format = $4 and sample_rate = $5
order by created_at asc limit 1`,
		ownerID, textFingerprint, voiceModelID, outputFormat, sampleRate)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapStorage(err, "find duplicate job")
	}
	return job, nil
}

func (s *PostgresJobStore) List(ctx context.Context, ownerID string, p ListParams) ([]domain.Job, int64, error) {
	where := []string{"owner_id = $1"}
	args := []any{ownerID}

	if p.Filter.Status != "" {
		args = append(args, p.Filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if p.Filter.VoiceModelID != "" {
		args = append(args, p.Filter.VoiceModelID)
		where = append(where, fmt.Sprintf("voice_model_id = $%d", len(args)))
	}
	if p.Filter.TextSearch != "" {
		args = append(args, "%"+p.Filter.TextSearch+"%")
		where = append(where, fmt.Sprintf("text_content ilike $%d", len(args)))
	}
	cond := strings.Join(where, " and ")

	var total int64
	if err := s.db.QueryRow(ctx, `select count(*) from jobs where `+cond, args...).Scan(&total); err != nil {
		return nil, 0, domain.WrapStorage(err, "count jobs")
	}

	col, ok := sortColumns[p.SortField]
	if !ok {
		col = "created_at"
	}
	dir := "desc"
	if p.SortOrder == SortAsc {
		dir = "asc"
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}

	args = append(args, limit, p.Offset)
	q := fmt.Sprintf(`select %s from jobs where %s order by %s %s limit $%d offset $%d`,
		jobColumns, cond, col, dir, len(args)-1, len(args))

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, domain.WrapStorage(err, "list jobs")
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, domain.WrapStorage(err, "scan job")
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.WrapStorage(err, "list jobs")
	}
	return jobs, total, nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job          domain.Job
		outputFormat string
		sampleRate   int
		cfg          []byte
	)
	err := row.Scan(
		&job.ID, &job.OwnerID, &job.VoiceModelID, &job.TextContent, &job.TextFingerprint,
		&outputFormat, &sampleRate, &cfg, &job.Status, &job.Progress,
		&job.OutputRef, &job.ErrorMessage, &job.Duration, &job.ProcessingMs,
		&job.CacheHit, &job.CachedResultID,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &job.Config); err != nil {
			return nil, errors.Wrap(err, "unmarshal config")
		}
	}
	return &job, nil
}
