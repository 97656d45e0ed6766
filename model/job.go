package model

import "time"

type JobState string

const (
	JOB_SCHEDULED     JobState = "SCHEDULED"
	JOB_RUNNING       JobState = "RUNNING"
	JOB_FAILED        JobState = "FAILED"
	JOB_DEAD_LETTERED JobState = "DEAD_LETTERED"
)

const (
	JOB_KIND_TIMER   = "timer"
	JOB_KIND_MESSAGE = "message"
	JOB_KIND_ASYNC   = "async-continuation"
)

type Job struct {
	Id             string            `json:"id"`
	InstanceRef    string            `json:"instanceRef"`
	Kind           string            `json:"kind"`
	DueAt          time.Time         `json:"dueAt"`
	RetryCount     int               `json:"retryCount"`
	LastError      string            `json:"lastError,omitempty"`
	TenantTag      string            `json:"tenantTag,omitempty"`
	State          JobState          `json:"state"`
	TargetWorkerId string            `json:"targetWorkerId,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	Payload        map[string]any    `json:"payload,omitempty"`
	// Cycle is a cron spec; a successful cyclic job is rescheduled instead of removed.
	Cycle     string    `json:"cycle,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (j *Job) IsDue(now time.Time) bool {
	return !j.DueAt.After(now)
}
