package model

import (
	"encoding/json"
	"strings"
)

// JobStatus is the state reported by the unified results endpoint.
type JobStatus string

// Job statuses reported by the backend. PENDING and RUNNING come from the
// job table, SUCCESS and FAILURE from the task queue's result backend.
const (
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobSuccess   JobStatus = "SUCCESS"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
	JobFailure   JobStatus = "FAILURE"
	JobUnknown   JobStatus = "UNKNOWN"
)

// ResultType tags the payload carried by a finished job.
type ResultType string

// Result types.
const (
	ResultGraph   ResultType = "graph"
	ResultGeneric ResultType = "generic"
)

// IsSuccess reports whether the status is success-equivalent.
func (s JobStatus) IsSuccess() bool {
	switch JobStatus(strings.ToUpper(string(s))) {
	case JobSuccess, JobCompleted:
		return true
	}
	return false
}

// IsFailure reports whether the job ended in failure.
func (s JobStatus) IsFailure() bool {
	switch JobStatus(strings.ToUpper(string(s))) {
	case JobFailed, JobFailure:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition can occur.
func (s JobStatus) IsTerminal() bool {
	return s.IsSuccess() || s.IsFailure()
}

// Job is a single response from the results endpoint.
type Job struct {
	ID         string          `json:"-"`
	Status     JobStatus       `json:"status"`
	ResultType ResultType      `json:"result_type,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// JobTicket is returned by endpoints that enqueue backend work.
type JobTicket struct {
	JobID   string `json:"job_id"`
	Message string `json:"message,omitempty"`
}
