package dmn

import (
	"errors"
	"testing"

	"github.com/mohitkumar/tokenflow/model"
	"github.com/stretchr/testify/require"
)

const ageDecision = `<?xml version="1.0" encoding="UTF-8"?>
<definitions xmlns="https://www.omg.org/spec/DMN/20191111/MODEL/" id="defs">
  <decision id="ageGroup" name="Age group">
    <decisionTable id="dt1" hitPolicy="UNIQUE">
      <input id="age" label="Age">
        <inputExpression typeRef="string"><text>age</text></inputExpression>
      </input>
      <output id="out1" name="result" typeRef="string"/>
      <rule id="r1">
        <inputEntry><text>"18"</text></inputEntry>
        <outputEntry><text>"adult"</text></outputEntry>
      </rule>
      <rule id="r2">
        <inputEntry><text>16</text></inputEntry>
        <outputEntry><text>"teen"</text></outputEntry>
      </rule>
    </decisionTable>
  </decision>
  <decision id="discount">
    <decisionTable hitPolicy="RULE_ORDER">
      <input><inputExpression><text>tier</text></inputExpression></input>
      <output id="pct"/>
      <rule><inputEntry><text></text></inputEntry><outputEntry><text>5</text></outputEntry></rule>
    </decisionTable>
  </decision>
  <decision id="literal"><literalExpression><text>1</text></literalExpression></decision>
</definitions>`

func TestBuild(t *testing.T) {
	tables, err := Build([]byte(ageDecision))
	require.NoError(t, err)
	require.Len(t, tables, 2)

	age := tables[0]
	require.Equal(t, "ageGroup", age.Key)
	require.Equal(t, "Age group", age.Name)
	require.Equal(t, model.HIT_POLICY_UNIQUE, age.HitPolicy)
	require.Equal(t, []model.DecisionInput{{Id: "age", Label: "Age", Expression: "age"}}, age.Inputs)
	require.Equal(t, "result", age.OutputName(0))
	require.Equal(t, []string{"18"}, age.Rules[0].InputEntries)
	require.Equal(t, []string{"adult"}, age.Rules[0].OutputEntries)
	require.Equal(t, []string{"16"}, age.Rules[1].InputEntries)

	discount := tables[1]
	require.Equal(t, model.HIT_POLICY_RULE_ORDER, discount.HitPolicy)
	require.Equal(t, "tier", discount.Inputs[0].Id)
	require.Equal(t, "pct", discount.OutputName(0))
	require.Equal(t, []string{"-"}, discount.Rules[0].InputEntries, "empty input entry matches anything")
}

func TestBuildMalformed(t *testing.T) {
	for scenario, source := range map[string]string{
		"no decision table": `<definitions><decision id="d"><literalExpression/></decision></definitions>`,
		"entry count": `<definitions><decision id="d"><decisionTable>
			<input id="a"/><input id="b"/><output name="o"/>
			<rule><inputEntry><text>1</text></inputEntry><outputEntry><text>x</text></outputEntry></rule>
			</decisionTable></decision></definitions>`,
		"hit policy":  `<definitions><decision id="d"><decisionTable hitPolicy="SOMETIMES"/></decision></definitions>`,
		"invalid xml": `<definitions>`,
	} {
		t.Run(scenario, func(t *testing.T) {
			_, err := Build([]byte(source))
			require.Error(t, err)
			require.True(t, errors.Is(err, model.ErrMalformedDecisionTable))
		})
	}
}

func TestRenderRoundTrip(t *testing.T) {
	tables, err := Build([]byte(ageDecision))
	require.NoError(t, err)

	out, err := Render(tables...)
	require.NoError(t, err)

	again, err := Build(out)
	require.NoError(t, err)
	require.Equal(t, tables, again)
}
