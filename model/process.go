package model

import "errors"

var ErrMalformedGraph = errors.New("malformed process graph")

type EventKind string

const (
	EVENT_START              EventKind = "start"
	EVENT_END                EventKind = "end"
	EVENT_BOUNDARY           EventKind = "boundary"
	EVENT_INTERMEDIATE_CATCH EventKind = "intermediateCatch"
	EVENT_INTERMEDIATE_THROW EventKind = "intermediateThrow"
)

type EventDefinitionKind string

const (
	EVENT_DEF_NONE         EventDefinitionKind = ""
	EVENT_DEF_TIMER        EventDefinitionKind = "timer"
	EVENT_DEF_MESSAGE      EventDefinitionKind = "message"
	EVENT_DEF_ERROR        EventDefinitionKind = "error"
	EVENT_DEF_SIGNAL       EventDefinitionKind = "signal"
	EVENT_DEF_COMPENSATION EventDefinitionKind = "compensation"
)

type GatewayKind string

const (
	GATEWAY_EXCLUSIVE GatewayKind = "exclusive"
	GATEWAY_PARALLEL  GatewayKind = "parallel"
	GATEWAY_INCLUSIVE GatewayKind = "inclusive"
)

const (
	TASK_USER          = "userTask"
	TASK_SERVICE       = "serviceTask"
	TASK_BUSINESS_RULE = "businessRuleTask"
	TASK_SCRIPT        = "scriptTask"
	TASK_SEND          = "sendTask"
	TASK_RECEIVE       = "receiveTask"
	TASK_MANUAL        = "manualTask"
	TASK_GENERIC       = "task"
	CALL_ACTIVITY      = "callActivity"
)

type TimerDefinition struct {
	Date     string `json:"date,omitempty"`
	Duration string `json:"duration,omitempty"`
	Cycle    string `json:"cycle,omitempty"`
}

type FlowEvent struct {
	Id                  string              `json:"id"`
	Name                string              `json:"name,omitempty"`
	Kind                EventKind           `json:"kind"`
	AttachedToId        string              `json:"attachedToId,omitempty"`
	IsCompensation      bool                `json:"isCompensation,omitempty"`
	CancelActivity      bool                `json:"cancelActivity,omitempty"`
	EventDefinitionKind EventDefinitionKind `json:"eventDefinitionKind,omitempty"`
	Timer               *TimerDefinition    `json:"timer,omitempty"`
	MessageRef          string              `json:"messageRef,omitempty"`
}

type FlowTask struct {
	Id             string            `json:"id"`
	Name           string            `json:"name,omitempty"`
	Kind           string            `json:"kind"`
	Implementation string            `json:"implementation,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

type Gateway struct {
	Id            string      `json:"id"`
	Name          string      `json:"name,omitempty"`
	Kind          GatewayKind `json:"kind"`
	DefaultFlowId string      `json:"defaultFlowId,omitempty"`
}

type Subprocess struct {
	Id                string `json:"id"`
	Name              string `json:"name,omitempty"`
	IsMultiInstance   bool   `json:"isMultiInstance,omitempty"`
	IsEventSubprocess bool   `json:"isEventSubprocess,omitempty"`
	IsTransaction     bool   `json:"isTransaction,omitempty"`
	IsSequential      bool   `json:"isSequential,omitempty"`
	IsAdHoc           bool   `json:"isAdHoc,omitempty"`
	LoopCardinality   *int   `json:"loopCardinality,omitempty"`
}

type SequenceFlow struct {
	Id                  string `json:"id"`
	Name                string `json:"name,omitempty"`
	SourceId            string `json:"sourceId"`
	TargetId            string `json:"targetId"`
	ConditionExpression string `json:"conditionExpression,omitempty"`
}

// ProcessGraph is built once and never mutated afterwards, so it can be walked
// concurrently.
type ProcessGraph struct {
	Id           string         `json:"id"`
	Name         string         `json:"name,omitempty"`
	Events       []FlowEvent    `json:"events"`
	Tasks        []FlowTask     `json:"tasks"`
	Gateways     []Gateway      `json:"gateways"`
	Subprocesses []Subprocess   `json:"subprocesses"`
	Flows        []SequenceFlow `json:"flows"`
}

type NodeType int

const (
	NODE_UNKNOWN NodeType = iota
	NODE_GATEWAY
	NODE_SUBPROCESS
	NODE_TASK
	NODE_EVENT
)

func (g *ProcessGraph) StartEvents() []FlowEvent {
	var out []FlowEvent
	for _, ev := range g.Events {
		if ev.Kind == EVENT_START {
			out = append(out, ev)
		}
	}
	return out
}

// Outgoing returns the flows leaving id in declaration order.
func (g *ProcessGraph) Outgoing(id string) []SequenceFlow {
	var out []SequenceFlow
	for _, f := range g.Flows {
		if f.SourceId == id {
			out = append(out, f)
		}
	}
	return out
}

func (g *ProcessGraph) Incoming(id string) []SequenceFlow {
	var out []SequenceFlow
	for _, f := range g.Flows {
		if f.TargetId == id {
			out = append(out, f)
		}
	}
	return out
}

func (g *ProcessGraph) Flow(id string) (SequenceFlow, bool) {
	for _, f := range g.Flows {
		if f.Id == id {
			return f, true
		}
	}
	return SequenceFlow{}, false
}

func (g *ProcessGraph) Event(id string) (FlowEvent, bool) {
	for _, ev := range g.Events {
		if ev.Id == id {
			return ev, true
		}
	}
	return FlowEvent{}, false
}

func (g *ProcessGraph) Task(id string) (FlowTask, bool) {
	for _, t := range g.Tasks {
		if t.Id == id {
			return t, true
		}
	}
	return FlowTask{}, false
}

func (g *ProcessGraph) Gateway(id string) (Gateway, bool) {
	for _, gw := range g.Gateways {
		if gw.Id == id {
			return gw, true
		}
	}
	return Gateway{}, false
}

func (g *ProcessGraph) Subprocess(id string) (Subprocess, bool) {
	for _, sp := range g.Subprocesses {
		if sp.Id == id {
			return sp, true
		}
	}
	return Subprocess{}, false
}

// NodeType resolves id in the order gateway, subprocess, task, event. The first
// match wins when ids collide across kinds.
func (g *ProcessGraph) NodeType(id string) NodeType {
	if _, ok := g.Gateway(id); ok {
		return NODE_GATEWAY
	}
	if _, ok := g.Subprocess(id); ok {
		return NODE_SUBPROCESS
	}
	if _, ok := g.Task(id); ok {
		return NODE_TASK
	}
	if _, ok := g.Event(id); ok {
		return NODE_EVENT
	}
	return NODE_UNKNOWN
}

func (g *ProcessGraph) IsEndEvent(id string) bool {
	ev, ok := g.Event(id)
	return ok && ev.Kind == EVENT_END
}

// CompensationBoundary returns the compensation boundary event attached to activityId.
func (g *ProcessGraph) CompensationBoundary(activityId string) (FlowEvent, bool) {
	for _, ev := range g.Events {
		if ev.Kind == EVENT_BOUNDARY && ev.IsCompensation && ev.AttachedToId == activityId {
			return ev, true
		}
	}
	return FlowEvent{}, false
}

// TimerEvents returns start and intermediate catch events carrying a timer definition.
func (g *ProcessGraph) TimerEvents() []FlowEvent {
	var out []FlowEvent
	for _, ev := range g.Events {
		if ev.EventDefinitionKind == EVENT_DEF_TIMER && ev.Timer != nil {
			out = append(out, ev)
		}
	}
	return out
}
