package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/mohitkumar/tokenflow/model"
)

// Predicate decides whether a sequence flow may be taken.
type Predicate func(flow model.SequenceFlow, variables map[string]any) (bool, error)

// ExprConditions evaluates flow condition expressions with expr. A flow with no
// condition is always taken. ${...} wrappers are accepted. Compiled programs
// are cached per expression.
func ExprConditions() Predicate {
	var programs sync.Map
	return func(flow model.SequenceFlow, variables map[string]any) (bool, error) {
		src := strings.TrimSpace(flow.ConditionExpression)
		if src == "" {
			return true, nil
		}
		if strings.HasPrefix(src, "${") && strings.HasSuffix(src, "}") {
			src = strings.TrimSpace(src[2 : len(src)-1])
		}
		var program *vm.Program
		if p, ok := programs.Load(src); ok {
			program = p.(*vm.Program)
		} else {
			compiled, err := expr.Compile(src, expr.AllowUndefinedVariables(), expr.AsBool())
			if err != nil {
				return false, fmt.Errorf("flow %s: invalid condition %q: %w", flow.Id, src, err)
			}
			programs.Store(src, compiled)
			program = compiled
		}
		env := variables
		if env == nil {
			env = map[string]any{}
		}
		out, err := expr.Run(program, env)
		if err != nil {
			return false, fmt.Errorf("flow %s: condition %q: %w", flow.Id, src, err)
		}
		b, ok := out.(bool)
		if !ok {
			return false, fmt.Errorf("flow %s: condition %q did not yield a bool", flow.Id, src)
		}
		return b, nil
	}
}
