// Package notify turns polled job state into a live per-subscriber event
// stream. The polling contract (fixed interval, progress events until a
// terminal status, exactly one complete event) is externally observable and
// preserved; the loop itself is a ticker bound to the subscriber's context.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SirClappington/synq/internal/domain"
	"github.com/SirClappington/synq/internal/storage"
)

type EventType string

const (
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

const CodeJobNotFound = "JOB_NOT_FOUND"

// Event is the tagged variant delivered to subscribers. Progress events
// carry status/progress/timestamps; complete events carry the final status;
// error events carry a machine code and message.
type Event struct {
	Type        EventType     `json:"type"`
	JobID       string        `json:"job_id"`
	Status      domain.Status `json:"status,omitempty"`
	Progress    float64       `json:"progress,omitempty"`
	Message     string        `json:"message,omitempty"`
	Code        string        `json:"code,omitempty"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

const DefaultPollInterval = time.Second

type Notifier struct {
	jobs     storage.JobStore
	interval time.Duration
	log      *zap.Logger
}

func NewNotifier(jobs storage.JobStore, interval time.Duration, log *zap.Logger) *Notifier {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Notifier{jobs: jobs, interval: interval, log: log}
}

// Subscribe opens a push-only event stream for the job. Access control
// mirrors ApplyUpdate: NotFound/AccessDenied are returned synchronously
// before any event is emitted. The first progress event reflecting current
// state is buffered before Subscribe returns; the channel closes after the
// complete (or error) event, or when ctx is cancelled.
func (n *Notifier) Subscribe(ctx context.Context, jobID, requestedBy string) (<-chan Event, error) {
	job, err := n.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != requestedBy {
		return nil, domain.Errorf(domain.CodeAccessDenied, "job %s does not belong to requester", jobID)
	}

	ch := make(chan Event, 1)
	ch <- progressEvent(job)
	go n.poll(ctx, job, ch)
	return ch, nil
}

func (n *Notifier) poll(ctx context.Context, job *domain.Job, ch chan<- Event) {
	defer close(ch)

	if job.Status.Terminal() {
		n.send(ctx, ch, completeEvent(job))
		return
	}

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		current, err := n.jobs.Get(ctx, job.ID)
		if domain.IsCode(err, domain.CodeNotFound) {
			n.send(ctx, ch, Event{
				Type:      EventError,
				JobID:     job.ID,
				Code:      CodeJobNotFound,
				Message:   "job no longer exists",
				Timestamp: time.Now().UTC(),
			})
			return
		}
		if err != nil {
			n.log.Warn("progress poll failed", zap.String("job_id", job.ID), zap.Error(err))
			n.send(ctx, ch, Event{
				Type:      EventError,
				JobID:     job.ID,
				Code:      string(domain.CodeStorage),
				Message:   "failed to read job state",
				Timestamp: time.Now().UTC(),
			})
			return
		}

		if current.Status.Terminal() {
			n.send(ctx, ch, completeEvent(current))
			return
		}
		if !n.send(ctx, ch, progressEvent(current)) {
			return
		}
	}
}

// send delivers ev unless the subscriber has gone away.
func (n *Notifier) send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func progressEvent(job *domain.Job) Event {
	msg := ""
	if job.ErrorMessage != nil {
		msg = *job.ErrorMessage
	}
	return Event{
		Type:        EventProgress,
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		Message:     msg,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		Timestamp:   time.Now().UTC(),
	}
}

func completeEvent(job *domain.Job) Event {
	return Event{
		Type:      EventComplete,
		JobID:     job.ID,
		Status:    job.Status,
		Timestamp: time.Now().UTC(),
	}
}
