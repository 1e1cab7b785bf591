package model

import "time"

// JobStatus values for background jobs
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Job represents a background job in the system
type Job struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Payload     []byte     `json:"-"` // Stored as JSON
	Result      []byte     `json:"-"` // Stored as JSON
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	RetryCount  int        `json:"retryCount"`
}

// Job types
const (
	JobTypePreview = "preview"
)

// PreviewJobPayload is the unit of work for one asset: where the source
// lives, which profiles to derive, and where the result goes. Brand and
// asset identifiers are opaque pass-through values echoed back untouched.
type PreviewJobPayload struct {
	Bucket   string   `json:"bucket"`
	Key      string   `json:"key"`
	Profiles []string `json:"profiles"`
	Queue    string   `json:"queue,omitempty"`
	Brand    string   `json:"brand,omitempty"`
	AssetID  string   `json:"assetId,omitempty"`
}
