package model

import "time"

type EventType string

const (
	EVENT_JOB_EXECUTED      EventType = "JobExecuted"
	EVENT_JOB_FAILED        EventType = "JobFailed"
	EVENT_JOB_DEAD_LETTERED EventType = "JobDeadLettered"
	EVENT_PROCESS_STARTED   EventType = "ProcessStarted"
	EVENT_PROCESS_COMPLETED EventType = "ProcessCompleted"
	EVENT_PROCESS_FAILED    EventType = "ProcessFailed"
)

type Event struct {
	EventType   EventType      `json:"eventType"`
	InstanceRef string         `json:"instanceRef"`
	TenantTag   string         `json:"tenantTag,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Payload     map[string]any `json:"payload,omitempty"`
}
