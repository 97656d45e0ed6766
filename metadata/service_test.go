package metadata

import (
	"context"
	"testing"

	"github.com/mohitkumar/tokenflow/model"
	"github.com/mohitkumar/tokenflow/persistence"
	"github.com/mohitkumar/tokenflow/persistence/memory"
	"github.com/stretchr/testify/require"
)

const orderProcess = `<definitions xmlns="http://www.omg.org/spec/BPMN/20100524/MODEL">
  <process id="order" name="Order">
    <startEvent id="start"/>
    <businessRuleTask id="classify" decisionRef="ageGroup"/>
    <endEvent id="end"/>
    <sequenceFlow id="f1" sourceRef="start" targetRef="classify"/>
    <sequenceFlow id="f2" sourceRef="classify" targetRef="end"/>
  </process>
</definitions>`

const ageDecision = `<definitions xmlns="https://www.omg.org/spec/DMN/20191111/MODEL/">
  <decision id="ageGroup">
    <decisionTable hitPolicy="UNIQUE">
      <input id="age"><inputExpression><text>age</text></inputExpression></input>
      <output id="o1" name="result"/>
      <rule><inputEntry><text>18</text></inputEntry><outputEntry><text>"adult"</text></outputEntry></rule>
      <rule><inputEntry><text>16</text></inputEntry><outputEntry><text>"teen"</text></outputEntry></rule>
    </decisionTable>
  </decision>
</definitions>`

func TestDeployProcess(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewDefinitionStore()
	svc := NewMetadataService(storage, 0)

	graph, err := svc.DeployProcess(ctx, []byte(orderProcess))
	require.NoError(t, err)
	require.Equal(t, "order", graph.Id)

	cached, err := svc.GetProcess(ctx, "order")
	require.NoError(t, err)
	require.Same(t, graph, cached)

	fresh := NewMetadataService(storage, 0)
	loaded, err := fresh.GetProcess(ctx, "order")
	require.NoError(t, err)
	require.Equal(t, graph, loaded)

	ids, err := fresh.ListProcesses(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"order"}, ids)

	_, err = svc.GetProcess(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestDeployProcessInvalid(t *testing.T) {
	svc := NewMetadataService(memory.NewDefinitionStore(), 0)
	for scenario, source := range map[string]string{
		"not bpmn":       `<html/>`,
		"no start event": `<process id="p"><endEvent id="end"/></process>`,
		"duplicate ids":  `<process id="p"><startEvent id="a"/><userTask id="a"/></process>`,
	} {
		t.Run(scenario, func(t *testing.T) {
			_, err := svc.DeployProcess(context.Background(), []byte(source))
			require.ErrorIs(t, err, model.ErrMalformedGraph)
		})
	}
	ids, err := svc.ListProcesses(context.Background())
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestDeployDecisions(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewDefinitionStore()
	svc := NewMetadataService(storage, 0)

	tables, err := svc.DeployDecisions(ctx, []byte(ageDecision))
	require.NoError(t, err)
	require.Len(t, tables, 1)

	table, err := svc.GetDecisionTable("ageGroup")
	require.NoError(t, err)
	require.Equal(t, model.HIT_POLICY_UNIQUE, table.HitPolicy)

	fresh := NewMetadataService(storage, 0)
	table, err = fresh.GetDecisionTable("ageGroup")
	require.NoError(t, err)
	require.Equal(t, []string{"adult"}, table.Rules[0].OutputEntries)

	_, err = fresh.GetDecisionTable("other")
	require.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = svc.DeployDecisions(ctx, []byte(`<definitions/>`))
	require.ErrorIs(t, err, model.ErrMalformedDecisionTable)
}
