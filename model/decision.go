package model

import "errors"

var ErrMalformedDecisionTable = errors.New("malformed decision table")

type HitPolicy string

const (
	HIT_POLICY_UNIQUE       HitPolicy = "UNIQUE"
	HIT_POLICY_FIRST        HitPolicy = "FIRST"
	HIT_POLICY_ANY          HitPolicy = "ANY"
	HIT_POLICY_COLLECT      HitPolicy = "COLLECT"
	HIT_POLICY_RULE_ORDER   HitPolicy = "RULE ORDER"
	HIT_POLICY_PRIORITY     HitPolicy = "PRIORITY"
	HIT_POLICY_OUTPUT_ORDER HitPolicy = "OUTPUT ORDER"
)

var HIT_POLICIES = []HitPolicy{
	HIT_POLICY_UNIQUE,
	HIT_POLICY_FIRST,
	HIT_POLICY_ANY,
	HIT_POLICY_COLLECT,
	HIT_POLICY_RULE_ORDER,
	HIT_POLICY_PRIORITY,
	HIT_POLICY_OUTPUT_ORDER,
}

// IsAggregate reports whether the policy yields a list per output column.
func (h HitPolicy) IsAggregate() bool {
	return h == HIT_POLICY_COLLECT || h == HIT_POLICY_RULE_ORDER || h == HIT_POLICY_OUTPUT_ORDER
}

func (h HitPolicy) Valid() bool {
	for _, p := range HIT_POLICIES {
		if p == h {
			return true
		}
	}
	return false
}

type DecisionInput struct {
	Id         string `json:"id"`
	Label      string `json:"label,omitempty"`
	Expression string `json:"expression"`
}

type DecisionOutput struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type DecisionRule struct {
	Id            string   `json:"id,omitempty"`
	InputEntries  []string `json:"inputEntries"`
	OutputEntries []string `json:"outputEntries"`
}

type DecisionTable struct {
	Key         string           `json:"key"`
	Name        string           `json:"name,omitempty"`
	HitPolicy   HitPolicy        `json:"hitPolicy"`
	Aggregation string           `json:"aggregation,omitempty"`
	Inputs      []DecisionInput  `json:"inputs"`
	Outputs     []DecisionOutput `json:"outputs"`
	Rules       []DecisionRule   `json:"rules"`
}

// OutputName is the result map key for output column i.
func (t *DecisionTable) OutputName(i int) string {
	out := t.Outputs[i]
	if out.Name != "" {
		return out.Name
	}
	return out.Id
}
