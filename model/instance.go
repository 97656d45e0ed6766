package model

import "time"

type InstanceState string

const (
	INSTANCE_RUNNING   InstanceState = "RUNNING"
	INSTANCE_COMPLETED InstanceState = "COMPLETED"
	INSTANCE_FAILED    InstanceState = "FAILED"
)

type InstanceRecord struct {
	Id        string         `json:"id"`
	ProcessId string         `json:"processId"`
	TenantTag string         `json:"tenantTag,omitempty"`
	State     InstanceState  `json:"state"`
	Trace     []string       `json:"trace"`
	Variables map[string]any `json:"variables,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type ProcessStartRequest struct {
	ProcessId string         `json:"processId"`
	TenantTag string         `json:"tenantTag"`
	Variables map[string]any `json:"variables"`
}

type JobScheduleRequest struct {
	InstanceRef    string            `json:"instanceRef"`
	Kind           string            `json:"kind"`
	TenantTag      string            `json:"tenantTag"`
	DelaySeconds   int               `json:"delaySeconds"`
	Cycle          string            `json:"cycle"`
	TargetWorkerId string            `json:"targetWorkerId"`
	Attributes     map[string]string `json:"attributes"`
	Payload        map[string]any    `json:"payload"`
}
