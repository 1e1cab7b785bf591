package model

import (
	"encoding/json"
	"time"
)

// PreviewStartRequest is the HTTP body for submitting an asset
type PreviewStartRequest struct {
	Bucket   string   `json:"bucket" validate:"required"`
	Key      string   `json:"key" validate:"required"`
	Profiles []string `json:"profiles" validate:"required,min=1,dive,required"`
	Queue    string   `json:"queue,omitempty" validate:"omitempty,url"`
	Brand    string   `json:"brand,omitempty"`
	AssetID  string   `json:"assetId,omitempty"`
}

// PreviewStartResponse is returned when a preview job is accepted
type PreviewStartResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// PreviewStatusResponse describes job progress
type PreviewStatusResponse struct {
	JobID       string     `json:"jobId"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	RetryCount  int        `json:"retryCount"`
}

// PreviewCancelResponse confirms cancellation
type PreviewCancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"jobId"`
	Status  JobStatus `json:"status"`
}

// PreviewResult aggregates the outcome of one asset: the pass-through
// identifiers, the source metadata, and one storage key per profile that
// was actually derived and uploaded. Profiles that were skipped or failed
// are simply absent from Previews; consumers infer completeness from key
// presence.
type PreviewResult struct {
	Brand    string            `json:"-"`
	AssetID  string            `json:"-"`
	JobID    string            `json:"-"`
	Metadata *ImageMetadata    `json:"-"`
	Previews map[string]string `json:"-"`

	// Omitted lists requested profiles that produced no key. Diagnostic
	// only, never serialized.
	Omitted []string `json:"-"`
}

// MarshalJSON flattens the result so each derived profile becomes a
// top-level key, matching the payload shape the postback consumer expects.
func (r *PreviewResult) MarshalJSON() ([]byte, error) {
	payload := make(map[string]interface{}, len(r.Previews)+4)
	payload["brand"] = r.Brand
	payload["assetId"] = r.AssetID
	payload["jobId"] = r.JobID
	payload["metadata"] = r.Metadata
	for name, key := range r.Previews {
		payload[name] = key
	}
	return json.Marshal(payload)
}
