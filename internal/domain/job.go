package domain

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// transitions is the full lifecycle table. Anything absent here is an
// InvalidTransition. failed/cancelled -> pending is the explicit restart path.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted:  {},
	StatusFailed:     {StatusPending},
	StatusCancelled:  {StatusPending},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further worker-driven transition is expected.
// failed and cancelled count as terminal absent an explicit restart.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether the lifecycle table allows s -> next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Job is one synthesis request tracked through its asynchronous lifecycle.
// Mutated only through the lifecycle manager.
type Job struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"owner_id"`
	VoiceModelID    string          `json:"voice_model_id"`
	TextContent     string          `json:"text_content"`
	TextFingerprint string          `json:"text_fingerprint"`
	Config          SynthesisConfig `json:"config"`
	Status          Status          `json:"status"`
	Progress        float64         `json:"progress"`
	OutputRef       *string         `json:"output_ref,omitempty"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	Duration        *float64        `json:"duration,omitempty"`
	ProcessingMs    *int            `json:"processing_time_ms,omitempty"`
	CacheHit        bool            `json:"cache_hit"`
	CachedResultID  *string         `json:"cached_result_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Patch is a partial update applied by the synthesis worker. Nil fields are
// left untouched.
type Patch struct {
	Status       *Status
	Progress     *float64
	ErrorMessage *string
	OutputRef    *string
	Duration     *float64
	ProcessingMs *int
}
