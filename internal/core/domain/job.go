package domain

import (
	"errors"
	"time"
)

type JobID string

type JobKind string

const (
	JobKindDocument   JobKind = "document"
	JobKindRemoteSpec JobKind = "remote-spec"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusAnalyzing  JobStatus = "analyzing"
	JobStatusGenerating JobStatus = "generating"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is the unit of work owned by the orchestrator. It is mutated only by
// the orchestrator's transition logic; readers always get copies.
type Job struct {
	ID        JobID           `json:"id"`
	Kind      JobKind         `json:"kind"`
	Provider  string          `json:"provider"`
	Status    JobStatus       `json:"status"`
	Progress  int             `json:"progress"`
	Message   string          `json:"message"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Analysis  *AnalysisResult `json:"analysis,omitempty"`
	SDK       *GeneratedSDK   `json:"sdk,omitempty"`
}

// JobProgress is the snapshot handed to status pollers.
type JobProgress struct {
	JobID    JobID     `json:"jobId"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Message  string    `json:"message"`
	Error    string    `json:"error,omitempty"`
}

// ProgressEvent is the ephemeral message published on every job transition.
// It is never stored; a subscriber that is not registered misses it for good.
type ProgressEvent struct {
	JobID    JobID     `json:"jobId"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Message  string    `json:"message"`
	Error    string    `json:"error,omitempty"`
}

var (
	ErrJobNotFound = errors.New("job not found")

	// ErrMalformedInput marks input rejected at the normalization stage:
	// bad file signature or no extractable text.
	ErrMalformedInput = errors.New("malformed input document")

	// ErrInvalidSpec marks a fetched document that is neither a Swagger 2.0
	// nor an OpenAPI 3.x description.
	ErrInvalidSpec = errors.New("not a valid Swagger/OpenAPI document")
)
