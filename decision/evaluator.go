package decision

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mohitkumar/tokenflow/dmn"
	"github.com/mohitkumar/tokenflow/model"
)

var ErrRuleConflict = errors.New("rule conflict")

type RuleConflictError struct {
	Key     string
	Policy  model.HitPolicy
	Column  string
	Matches int
}

func (e RuleConflictError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("decision %s: %s policy violated, matching rules disagree on output %s", e.Key, e.Policy, e.Column)
	}
	return fmt.Sprintf("decision %s: %s policy violated, %d rules matched", e.Key, e.Policy, e.Matches)
}

func (e RuleConflictError) Unwrap() error {
	return ErrRuleConflict
}

// Result maps output names to a string, or to a []string for COLLECT, RULE ORDER
// and OUTPUT ORDER.
type Result map[string]any

// Evaluator holds no state. One instance is safe for concurrent use against any
// number of tables.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// FeelEquals implements the string based FEEL subset: "-" matches anything,
// "x" matches when the trimmed text equals the value's string form. An entry
// starting with "=" is compared without that leading character.
func FeelEquals(entry string, value any) bool {
	if strings.TrimSpace(entry) == "-" {
		return true
	}
	e := entry
	if strings.HasPrefix(e, "=") {
		e = e[1:]
	}
	return strings.TrimSpace(e) == stringify(value)
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func inputValue(in model.DecisionInput, inputs map[string]any) any {
	if v, ok := inputs[in.Id]; ok {
		return v
	}
	if in.Expression != "" {
		if v, ok := inputs[in.Expression]; ok {
			return v
		}
	}
	if in.Label != "" {
		return inputs[in.Label]
	}
	return nil
}

func (e *Evaluator) match(table *model.DecisionTable, inputs map[string]any) []model.DecisionRule {
	var matched []model.DecisionRule
	for _, rule := range table.Rules {
		ok := true
		for i, in := range table.Inputs {
			if i >= len(rule.InputEntries) || !FeelEquals(rule.InputEntries[i], inputValue(in, inputs)) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, rule)
		}
	}
	return matched
}

// Evaluate never mutates table. No matching rule yields an empty result.
func (e *Evaluator) Evaluate(table *model.DecisionTable, inputs map[string]any) (Result, error) {
	if err := dmn.Validate(table); err != nil {
		return nil, err
	}
	result := make(Result)
	matched := e.match(table, inputs)
	if len(matched) == 0 {
		return result, nil
	}
	policy := table.HitPolicy
	if policy == "" {
		policy = model.HIT_POLICY_UNIQUE
	}
	switch policy {
	case model.HIT_POLICY_UNIQUE:
		if len(matched) != 1 {
			return nil, RuleConflictError{Key: table.Key, Policy: policy, Matches: len(matched)}
		}
		single(table, matched[0], result)
	case model.HIT_POLICY_FIRST:
		single(table, matched[0], result)
	case model.HIT_POLICY_ANY:
		for col := range table.Outputs {
			value := matched[0].OutputEntries[col]
			for _, rule := range matched[1:] {
				if rule.OutputEntries[col] != value {
					return nil, RuleConflictError{Key: table.Key, Policy: policy, Column: table.OutputName(col), Matches: len(matched)}
				}
			}
			result[table.OutputName(col)] = value
		}
	case model.HIT_POLICY_COLLECT, model.HIT_POLICY_RULE_ORDER:
		for col := range table.Outputs {
			result[table.OutputName(col)] = column(matched, col)
		}
	case model.HIT_POLICY_PRIORITY:
		for col := range table.Outputs {
			values := column(matched, col)
			sort.Strings(values)
			result[table.OutputName(col)] = values[0]
		}
	case model.HIT_POLICY_OUTPUT_ORDER:
		for col := range table.Outputs {
			values := column(matched, col)
			sort.Strings(values)
			result[table.OutputName(col)] = values
		}
	default:
		return nil, fmt.Errorf("decision %s: unsupported hit policy %q", table.Key, policy)
	}
	return result, nil
}

func single(table *model.DecisionTable, rule model.DecisionRule, result Result) {
	for col := range table.Outputs {
		result[table.OutputName(col)] = rule.OutputEntries[col]
	}
}

func column(rules []model.DecisionRule, col int) []string {
	values := make([]string, 0, len(rules))
	for _, rule := range rules {
		values = append(values, rule.OutputEntries[col])
	}
	return values
}
