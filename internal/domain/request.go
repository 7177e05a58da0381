package domain

import "time"

// RequestStatus enumerates the lifecycle of a queued generation request.
type RequestStatus string

const (
	RequestStatusQueued             RequestStatus = "queued"
	RequestStatusRunning            RequestStatus = "running"
	RequestStatusDone               RequestStatus = "done"
	RequestStatusFailed             RequestStatus = "failed"
	RequestStatusPersistedPartially RequestStatus = "persisted_partially"
)

// GenerationRequest is the durable queue entry enqueued by the API and
// claimed by the worker.
type GenerationRequest struct {
	ID            string         `json:"id"`
	Kind          JobKind        `json:"kind"`
	Input         JobInput       `json:"input"`
	Lineage       LineageContext `json:"lineage"`
	Status        RequestStatus  `json:"status"`
	ErrorKind     ErrorKind      `json:"error_kind,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	ResultKind    NodeKind       `json:"result_kind,omitempty"`
	ResultID      string         `json:"result_id,omitempty"`
	ProviderJobID string         `json:"provider_job_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// RequestOutcome is what the worker records when a request finishes.
type RequestOutcome struct {
	Status        RequestStatus
	ErrorKind     ErrorKind
	ErrorMessage  string
	ResultKind    NodeKind
	ResultID      string
	ProviderJobID string
}
