package dmn

import (
	"fmt"
	"strings"

	"github.com/mohitkumar/tokenflow/model"
	"github.com/mohitkumar/tokenflow/util/xmltree"
)

// Build parses every decision table of a DMN document. Decisions holding
// literal expressions instead of tables are skipped.
func Build(source []byte) ([]*model.DecisionTable, error) {
	root, err := xmltree.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedDecisionTable, err)
	}
	var decisions []*xmltree.Node
	switch root.Name() {
	case "definitions":
		decisions = root.Children("decision")
	case "decision":
		decisions = append(decisions, root)
	}
	var tables []*model.DecisionTable
	for _, d := range decisions {
		dt := d.Child("decisionTable")
		if dt == nil {
			continue
		}
		table, err := buildTable(d, dt)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no decisionTable element found", model.ErrMalformedDecisionTable)
	}
	return tables, nil
}

func buildTable(decision *xmltree.Node, dt *xmltree.Node) (*model.DecisionTable, error) {
	table := &model.DecisionTable{
		Key:         decision.Attr("id"),
		Name:        decision.Attr("name"),
		HitPolicy:   model.HIT_POLICY_UNIQUE,
		Aggregation: dt.Attr("aggregation"),
	}
	if table.Key == "" {
		return nil, fmt.Errorf("%w: decision without id", model.ErrMalformedDecisionTable)
	}
	if hp := dt.Attr("hitPolicy"); hp != "" {
		table.HitPolicy = normalizeHitPolicy(hp)
		if !table.HitPolicy.Valid() {
			return nil, fmt.Errorf("%w: decision %s has unknown hit policy %q", model.ErrMalformedDecisionTable, table.Key, hp)
		}
	}
	for i := range dt.Nodes {
		el := &dt.Nodes[i]
		switch el.Name() {
		case "input":
			in := model.DecisionInput{Id: el.Attr("id"), Label: el.Attr("label")}
			if ie := el.Child("inputExpression"); ie != nil {
				in.Expression = ie.ChildText("text")
			}
			if in.Id == "" {
				in.Id = in.Expression
			}
			table.Inputs = append(table.Inputs, in)
		case "output":
			table.Outputs = append(table.Outputs, model.DecisionOutput{Id: el.Attr("id"), Name: el.Attr("name")})
		case "rule":
			rule := model.DecisionRule{Id: el.Attr("id")}
			for j := range el.Nodes {
				entry := &el.Nodes[j]
				switch entry.Name() {
				case "inputEntry":
					text := unquote(entry.ChildText("text"))
					if text == "" {
						text = "-"
					}
					rule.InputEntries = append(rule.InputEntries, text)
				case "outputEntry":
					rule.OutputEntries = append(rule.OutputEntries, unquote(entry.ChildText("text")))
				}
			}
			table.Rules = append(table.Rules, rule)
		}
	}
	if err := Validate(table); err != nil {
		return nil, err
	}
	return table, nil
}

// Validate checks that every rule has one entry per column.
func Validate(table *model.DecisionTable) error {
	for i, rule := range table.Rules {
		if len(rule.InputEntries) != len(table.Inputs) {
			return fmt.Errorf("%w: decision %s rule %d has %d input entries, table has %d inputs",
				model.ErrMalformedDecisionTable, table.Key, i, len(rule.InputEntries), len(table.Inputs))
		}
		if len(rule.OutputEntries) != len(table.Outputs) {
			return fmt.Errorf("%w: decision %s rule %d has %d output entries, table has %d outputs",
				model.ErrMalformedDecisionTable, table.Key, i, len(rule.OutputEntries), len(table.Outputs))
		}
	}
	return nil
}

func normalizeHitPolicy(hp string) model.HitPolicy {
	hp = strings.ToUpper(strings.TrimSpace(hp))
	return model.HitPolicy(strings.ReplaceAll(hp, "_", " "))
}

// unquote strips one pair of enclosing double quotes, the FEEL string literal form.
func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}
