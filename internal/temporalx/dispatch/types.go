package dispatch

import "time"

const (
	WorkflowName    = "dataset_dispatch"
	ActivityBegin   = "dataset_dispatch_begin"
	ActivityDeliver = "dataset_dispatch_deliver"
	ActivityFail    = "dataset_dispatch_fail"
)

// Input starts one dataset.process delivery. The workflow ID is the job reference.
type Input struct {
	JobReference string        `json:"job_id"`
	DatasetID    uint          `json:"dataset_id"`
	MaxAttempts  int           `json:"max_attempts"`
	Backoff      time.Duration `json:"backoff"`
	// Deadline is the overall execution budget carried over from the outbox
	// task. No delivery attempt starts after it. Zero means unbounded.
	Deadline time.Time `json:"deadline,omitempty"`
}

type FailInput struct {
	DatasetID    uint   `json:"dataset_id"`
	JobReference string `json:"job_id"`
	Cause        string `json:"cause"`
}

const (
	OutcomeDelivered = "delivered"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

type Result struct {
	Outcome  string `json:"outcome"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}
