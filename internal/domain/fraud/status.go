package fraud

import (
	"errors"
	"fmt"
)

var ErrIllegalTransition = errors.New("illegal status transition")

type DatasetStatus string

const (
	DatasetPending    DatasetStatus = "pending"
	DatasetProcessing DatasetStatus = "processing"
	DatasetProcessed  DatasetStatus = "processed"
	DatasetFailed     DatasetStatus = "failed"
)

var datasetTransitions = map[DatasetStatus][]DatasetStatus{
	DatasetPending:    {DatasetProcessing},
	DatasetProcessing: {DatasetProcessed, DatasetFailed},
	// failed -> processing only happens through an explicit retry.
	DatasetFailed: {DatasetProcessing},
}

func (s DatasetStatus) Valid() bool {
	switch s {
	case DatasetPending, DatasetProcessing, DatasetProcessed, DatasetFailed:
		return true
	}
	return false
}

func (s DatasetStatus) CanTransition(to DatasetStatus) bool {
	for _, next := range datasetTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// DatasetSourcesFor lists the statuses a dataset may move to `to` from.
func DatasetSourcesFor(to DatasetStatus) []DatasetStatus {
	var out []DatasetStatus
	for _, from := range []DatasetStatus{DatasetPending, DatasetProcessing, DatasetProcessed, DatasetFailed} {
		if from.CanTransition(to) {
			out = append(out, from)
		}
	}
	return out
}

func ValidateDatasetTransition(from, to DatasetStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: dataset %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobRetrying   JobStatus = "retrying"
)

var jobTransitions = map[JobStatus][]JobStatus{
	JobPending:    {JobProcessing, JobCompleted, JobFailed},
	JobRetrying:   {JobProcessing, JobCompleted, JobFailed},
	JobProcessing: {JobCompleted, JobFailed},
}

func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobProcessing, JobCompleted, JobFailed, JobRetrying:
		return true
	}
	return false
}

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

func (s JobStatus) CanTransition(to JobStatus) bool {
	for _, next := range jobTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func JobSourcesFor(to JobStatus) []JobStatus {
	var out []JobStatus
	for _, from := range []JobStatus{JobPending, JobRetrying, JobProcessing, JobCompleted, JobFailed} {
		if from.CanTransition(to) {
			out = append(out, from)
		}
	}
	return out
}

func ValidateJobTransition(from, to JobStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: job %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskRunning   TaskStatus = "running"
	TaskDelivered TaskStatus = "delivered"
	TaskFailed    TaskStatus = "failed"
)
