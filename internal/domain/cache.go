package domain

import "time"

// CacheEntry is a reusable prior synthesis result, keyed by
// (TextFingerprint, VoiceModelID, ConfigFingerprint). The key is unique;
// the cache is content-addressed, so reuse crosses owners by design.
type CacheEntry struct {
	ID                string     `json:"id"`
	TextFingerprint   string     `json:"text_fingerprint"`
	VoiceModelID      string     `json:"voice_model_id"`
	ConfigFingerprint string     `json:"config_fingerprint"`
	OutputRef         string     `json:"output_ref"`
	Duration          float64    `json:"duration"`
	HitCount          int64      `json:"hit_count"`
	LastAccessedAt    time.Time  `json:"last_accessed_at"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	IsPermanent       bool       `json:"is_permanent"`
	CreatedAt         time.Time  `json:"created_at"`
}
