package bpmn

import (
	"errors"
	"testing"

	"github.com/mohitkumar/tokenflow/model"
	"github.com/stretchr/testify/require"
)

const orderProcess = `<?xml version="1.0" encoding="UTF-8"?>
<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL" xmlns:camunda="http://camunda.org/schema/1.0/bpmn">
  <bpmn:process id="order" name="Order">
    <bpmn:startEvent id="start1"/>
    <bpmn:sequenceFlow id="f1" sourceRef="start1" targetRef="check"/>
    <bpmn:businessRuleTask id="check" camunda:decisionRef="eligibility"/>
    <bpmn:sequenceFlow id="f2" sourceRef="check" targetRef="gw"/>
    <bpmn:exclusiveGateway id="gw" default="f4"/>
    <bpmn:sequenceFlow id="f3" sourceRef="gw" targetRef="ship">
      <bpmn:conditionExpression>result == "adult"</bpmn:conditionExpression>
    </bpmn:sequenceFlow>
    <bpmn:sequenceFlow id="f4" sourceRef="gw" targetRef="end1"/>
    <bpmn:transaction id="ship">
      <bpmn:multiInstanceLoopCharacteristics isSequential="true">
        <bpmn:loopCardinality>3</bpmn:loopCardinality>
      </bpmn:multiInstanceLoopCharacteristics>
      <bpmn:startEvent id="innerStart"/>
    </bpmn:transaction>
    <bpmn:boundaryEvent id="comp" attachedToRef="ship">
      <bpmn:compensateEventDefinition/>
    </bpmn:boundaryEvent>
    <bpmn:sequenceFlow id="f5" sourceRef="ship" targetRef="wait"/>
    <bpmn:intermediateCatchEvent id="wait">
      <bpmn:timerEventDefinition><bpmn:timeDuration>PT5M</bpmn:timeDuration></bpmn:timerEventDefinition>
    </bpmn:intermediateCatchEvent>
    <bpmn:sequenceFlow id="f6" sourceRef="wait" targetRef="notify"/>
    <bpmn:serviceTask id="notify" camunda:class="mailer"/>
    <bpmn:sequenceFlow id="f7" sourceRef="notify" targetRef="end1"/>
    <bpmn:endEvent id="end1"/>
  </bpmn:process>
</bpmn:definitions>`

func TestBuild(t *testing.T) {
	graph, err := Build([]byte(orderProcess))
	require.NoError(t, err)
	require.Equal(t, "order", graph.Id)
	require.Equal(t, "Order", graph.Name)

	starts := graph.StartEvents()
	require.Len(t, starts, 1, "subprocess interior must not leak into the graph")
	require.Equal(t, "start1", starts[0].Id)

	check, ok := graph.Task("check")
	require.True(t, ok)
	require.Equal(t, model.TASK_BUSINESS_RULE, check.Kind)
	require.Equal(t, "eligibility", check.Implementation)
	require.Equal(t, "eligibility", check.Attributes["decisionRef"])

	notify, _ := graph.Task("notify")
	require.Equal(t, "mailer", notify.Implementation)

	gw, ok := graph.Gateway("gw")
	require.True(t, ok)
	require.Equal(t, model.GATEWAY_EXCLUSIVE, gw.Kind)
	require.Equal(t, "f4", gw.DefaultFlowId)

	f3, ok := graph.Flow("f3")
	require.True(t, ok)
	require.Equal(t, `result == "adult"`, f3.ConditionExpression)

	ship, ok := graph.Subprocess("ship")
	require.True(t, ok)
	require.True(t, ship.IsTransaction)
	require.True(t, ship.IsMultiInstance)
	require.True(t, ship.IsSequential)
	require.Equal(t, 3, *ship.LoopCardinality)

	comp, ok := graph.CompensationBoundary("ship")
	require.True(t, ok)
	require.Equal(t, "comp", comp.Id)
	require.True(t, comp.CancelActivity)

	wait, _ := graph.Event("wait")
	require.Equal(t, model.EVENT_INTERMEDIATE_CATCH, wait.Kind)
	require.Equal(t, model.EVENT_DEF_TIMER, wait.EventDefinitionKind)
	require.Equal(t, "PT5M", wait.Timer.Duration)

	require.Len(t, graph.Outgoing("gw"), 2)
	require.Len(t, graph.Incoming("end1"), 2)
}

func TestBuildMalformed(t *testing.T) {
	for scenario, source := range map[string]string{
		"no process":  `<definitions xmlns="http://www.omg.org/spec/BPMN/20100524/MODEL"><collaboration id="c"/></definitions>`,
		"wrong root":  `<diagram/>`,
		"invalid xml": `<definitions><process id="p">`,
		"bad cardinality": `<process id="p"><subProcess id="s"><multiInstanceLoopCharacteristics>
			<loopCardinality>many</loopCardinality></multiInstanceLoopCharacteristics></subProcess></process>`,
	} {
		t.Run(scenario, func(t *testing.T) {
			_, err := Build([]byte(source))
			require.Error(t, err)
			require.True(t, errors.Is(err, model.ErrMalformedGraph))
		})
	}
}

func TestBuildBareProcess(t *testing.T) {
	graph, err := Build([]byte(`<process id="p"><startEvent id="s"/><sequenceFlow id="f" sourceRef="s" targetRef="e"/><endEvent id="e"/></process>`))
	require.NoError(t, err)
	require.Equal(t, "p", graph.Id)
	require.Len(t, graph.Events, 2)
	require.Len(t, graph.Flows, 1)
}

func TestRenderRoundTrip(t *testing.T) {
	graph, err := Build([]byte(orderProcess))
	require.NoError(t, err)

	out, err := Render(graph)
	require.NoError(t, err)

	again, err := Build(out)
	require.NoError(t, err)
	require.Equal(t, graph.Id, again.Id)
	require.ElementsMatch(t, graph.Events, again.Events)
	require.ElementsMatch(t, graph.Gateways, again.Gateways)
	require.ElementsMatch(t, graph.Subprocesses, again.Subprocesses)
	require.Equal(t, graph.Flows, again.Flows)

	notify, _ := again.Task("notify")
	require.Equal(t, "mailer", notify.Implementation)
	check, _ := again.Task("check")
	require.Equal(t, model.TASK_BUSINESS_RULE, check.Kind)
	require.Equal(t, "eligibility", check.Implementation)
}
