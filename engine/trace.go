package engine

import "fmt"

const (
	STEP_SEQUENCE_FLOW     = "SequenceFlow"
	STEP_BRANCH            = "Branch"
	STEP_SUBPROCESS        = "SubProcess"
	STEP_TRANSACTION       = "Transaction"
	STEP_MULTI_INSTANCE    = "MultiInstance"
	STEP_SUBPROCESS_START  = "SubProcessStart"
	STEP_SUBPROCESS_END    = "SubProcessEnd"
	STEP_COMPENSATION      = "CompensationBoundaryEvent"
	STEP_JOIN              = "Join"
	STEP_BUSINESS_RULE     = "BusinessRuleTask"
	STEP_UNKNOWN_EVENT     = "Event"
	STEP_EXCLUSIVE_GATEWAY = "ExclusiveGateway"
	STEP_PARALLEL_GATEWAY  = "ParallelGateway"
	STEP_INCLUSIVE_GATEWAY = "InclusiveGateway"
)

// Step is one trace record. String renders "Kind: id" and appends " => detail"
// when a detail is present.
type Step struct {
	Kind   string `json:"kind"`
	NodeId string `json:"nodeId"`
	Detail string `json:"detail,omitempty"`
}

func (s Step) String() string {
	if s.Detail != "" {
		return fmt.Sprintf("%s: %s => %s", s.Kind, s.NodeId, s.Detail)
	}
	return fmt.Sprintf("%s: %s", s.Kind, s.NodeId)
}

type Trace []Step

func (t Trace) Strings() []string {
	out := make([]string, 0, len(t))
	for _, s := range t {
		out = append(out, s.String())
	}
	return out
}
