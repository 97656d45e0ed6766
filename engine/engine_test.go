package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/tokenflow/cluster"
	"github.com/mohitkumar/tokenflow/decision"
	"github.com/mohitkumar/tokenflow/dispatch"
	"github.com/mohitkumar/tokenflow/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flow(id, source, target string) model.SequenceFlow {
	return model.SequenceFlow{Id: id, SourceId: source, TargetId: target}
}

func startEnd(extra ...model.FlowEvent) []model.FlowEvent {
	return append([]model.FlowEvent{
		{Id: "start", Kind: model.EVENT_START},
		{Id: "end", Kind: model.EVENT_END},
	}, extra...)
}

func ageTable() *model.DecisionTable {
	return &model.DecisionTable{
		Key:       "ageGroup",
		HitPolicy: model.HIT_POLICY_UNIQUE,
		Inputs:    []model.DecisionInput{{Id: "age", Expression: "age"}},
		Outputs:   []model.DecisionOutput{{Id: "o1", Name: "result"}},
		Rules: []model.DecisionRule{
			{InputEntries: []string{"18"}, OutputEntries: []string{"adult"}},
			{InputEntries: []string{"16"}, OutputEntries: []string{"teen"}},
		},
	}
}

func TestExecuteScenario(t *testing.T) {
	graph := &model.ProcessGraph{
		Id: "simple",
		Events: []model.FlowEvent{
			{Id: "start1", Kind: model.EVENT_START},
			{Id: "end1", Kind: model.EVENT_END},
		},
		Flows: []model.SequenceFlow{flow("flow1", "start1", "end1")},
	}
	trace, err := New().Execute(context.Background(), graph, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"StartEvent: start1", "SequenceFlow: flow1", "EndEvent: end1"}, trace.Strings())
}

func TestExecuteNoStartEvent(t *testing.T) {
	graph := &model.ProcessGraph{
		Id:     "headless",
		Events: []model.FlowEvent{{Id: "end", Kind: model.EVENT_END}},
	}
	_, err := New().Execute(context.Background(), graph, nil)
	require.ErrorIs(t, err, ErrNoStartEvent)

	_, err = New(WithGatewayMode(ModeFork)).Execute(context.Background(), &model.ProcessGraph{}, nil)
	require.ErrorIs(t, err, ErrNoStartEvent)
}

func exclusiveGraph() *model.ProcessGraph {
	return &model.ProcessGraph{
		Id:       "choice",
		Events:   startEnd(),
		Tasks:    []model.FlowTask{{Id: "A", Kind: model.TASK_USER}, {Id: "B", Kind: model.TASK_USER}},
		Gateways: []model.Gateway{{Id: "gw", Kind: model.GATEWAY_EXCLUSIVE, DefaultFlowId: "f2"}},
		Flows: []model.SequenceFlow{
			flow("f0", "start", "gw"),
			{Id: "f1", SourceId: "gw", TargetId: "A", ConditionExpression: "${amount > 100}"},
			flow("f2", "gw", "B"),
			flow("fa", "A", "end"),
			flow("fb", "B", "end"),
		},
	}
}

func TestExecuteDeterministic(t *testing.T) {
	graph := exclusiveGraph()
	e := New()
	first, err := e.Execute(context.Background(), graph, nil)
	require.NoError(t, err)
	require.Equal(t, []string{
		"StartEvent: start",
		"SequenceFlow: f0",
		"ExclusiveGateway: gw",
		"SequenceFlow: f1",
		"UserTask: A",
		"SequenceFlow: fa",
		"EndEvent: end",
	}, first.Strings())

	for _, vars := range []map[string]any{{"amount": 1}, {"amount": 1000}, {"x": "y"}} {
		trace, err := e.Execute(context.Background(), graph, vars)
		require.NoError(t, err)
		require.Equal(t, first, trace)
		assert.NotContains(t, trace.Strings(), "SequenceFlow: f2")
	}
}

func TestExecuteExclusiveConditions(t *testing.T) {
	graph := exclusiveGraph()
	e := New(WithConditions(ExprConditions()))
	scenarios := map[string]struct {
		vars map[string]any
		task string
	}{
		"condition true": {vars: map[string]any{"amount": 500}, task: "UserTask: A"},
		"default flow":   {vars: map[string]any{"amount": 5}, task: "UserTask: B"},
		"boundary":       {vars: map[string]any{"amount": 100}, task: "UserTask: B"},
	}
	for name, sc := range scenarios {
		t.Run(name, func(t *testing.T) {
			trace, err := e.Execute(context.Background(), graph, sc.vars)
			require.NoError(t, err)
			assert.Contains(t, trace.Strings(), sc.task)
		})
	}
}

func TestExecuteInvalidCondition(t *testing.T) {
	graph := exclusiveGraph()
	graph.Flows[1].ConditionExpression = "amount >"
	_, err := New(WithConditions(ExprConditions())).Execute(context.Background(), graph, map[string]any{"amount": 1})
	require.Error(t, err)
}

func TestExecuteStepLimit(t *testing.T) {
	graph := &model.ProcessGraph{
		Id:     "loop",
		Events: startEnd(),
		Tasks:  []model.FlowTask{{Id: "t1", Kind: model.TASK_SERVICE}, {Id: "t2", Kind: model.TASK_SERVICE}},
		Flows: []model.SequenceFlow{
			flow("f0", "start", "t1"),
			flow("f1", "t1", "t2"),
			flow("f2", "t2", "t1"),
		},
	}
	trace, err := New(WithMaxSteps(50)).Execute(context.Background(), graph, nil)
	require.ErrorIs(t, err, ErrStepLimitExceeded)
	assert.NotEmpty(t, trace)
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Execute(ctx, exclusiveGraph(), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestExecuteDanglingFlow(t *testing.T) {
	graph := &model.ProcessGraph{
		Id:     "dangling",
		Events: startEnd(),
		Flows:  []model.SequenceFlow{flow("f0", "start", "nowhere")},
	}
	trace, err := New().Execute(context.Background(), graph, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"StartEvent: start", "SequenceFlow: f0"}, trace.Strings())
}

func forkGraph(kind model.GatewayKind) *model.ProcessGraph {
	return &model.ProcessGraph{
		Id:     "fork",
		Events: startEnd(),
		Tasks:  []model.FlowTask{{Id: "a", Kind: model.TASK_USER}, {Id: "b", Kind: model.TASK_USER}},
		Gateways: []model.Gateway{
			{Id: "split", Kind: kind},
			{Id: "join", Kind: kind},
		},
		Flows: []model.SequenceFlow{
			flow("f0", "start", "split"),
			{Id: "fa", SourceId: "split", TargetId: "a", ConditionExpression: "amount > 10"},
			{Id: "fb", SourceId: "split", TargetId: "b", ConditionExpression: "amount > 100"},
			flow("fa2", "a", "join"),
			flow("fb2", "b", "join"),
			flow("fend", "join", "end"),
		},
	}
}

func TestExecuteParallelTrace(t *testing.T) {
	trace, err := New().Execute(context.Background(), forkGraph(model.GATEWAY_PARALLEL), nil)
	require.NoError(t, err)
	require.Equal(t, []string{
		"StartEvent: start",
		"SequenceFlow: f0",
		"ParallelGateway: split",
		"SequenceFlow: fa",
		"Branch: a",
		"SequenceFlow: fb",
		"Branch: b",
	}, trace.Strings())
}

func TestExecuteParallelFork(t *testing.T) {
	trace, err := New(WithGatewayMode(ModeFork)).Execute(context.Background(), forkGraph(model.GATEWAY_PARALLEL), nil)
	require.NoError(t, err)
	require.Equal(t, []string{
		"StartEvent: start",
		"SequenceFlow: f0",
		"ParallelGateway: split",
		"SequenceFlow: fa",
		"Branch: a",
		"SequenceFlow: fb",
		"Branch: b",
		"UserTask: a",
		"SequenceFlow: fa2",
		"UserTask: b",
		"SequenceFlow: fb2",
		"Join: join => 1/2",
		"ParallelGateway: join",
		"SequenceFlow: fend",
		"Branch: end",
		"EndEvent: end",
	}, trace.Strings())
}

func TestExecuteInclusiveFork(t *testing.T) {
	e := New(WithGatewayMode(ModeFork), WithConditions(ExprConditions()))
	trace, err := e.Execute(context.Background(), forkGraph(model.GATEWAY_INCLUSIVE), map[string]any{"amount": 50})
	require.NoError(t, err)
	steps := trace.Strings()
	assert.Contains(t, steps, "UserTask: a")
	assert.NotContains(t, steps, "Branch: b")
	assert.Contains(t, steps, "InclusiveGateway: join")
	assert.Equal(t, "EndEvent: end", steps[len(steps)-1])

	trace, err = e.Execute(context.Background(), forkGraph(model.GATEWAY_INCLUSIVE), map[string]any{"amount": 500})
	require.NoError(t, err)
	count := 0
	for _, s := range trace.Strings() {
		if s == "InclusiveGateway: join" {
			count++
		}
	}
	assert.Equal(t, 1, count, "join fires once for both branches")
}

func TestExecuteSubprocess(t *testing.T) {
	cardinality := 3
	graph := &model.ProcessGraph{
		Id: "tx",
		Events: startEnd(model.FlowEvent{
			Id:                  "undo",
			Kind:                model.EVENT_BOUNDARY,
			AttachedToId:        "booking",
			IsCompensation:      true,
			EventDefinitionKind: model.EVENT_DEF_COMPENSATION,
		}),
		Subprocesses: []model.Subprocess{{
			Id:              "booking",
			IsTransaction:   true,
			IsMultiInstance: true,
			IsSequential:    true,
			LoopCardinality: &cardinality,
		}},
		Flows: []model.SequenceFlow{flow("f0", "start", "booking"), flow("f1", "booking", "end")},
	}
	trace, err := New().Execute(context.Background(), graph, nil)
	require.NoError(t, err)
	require.Equal(t, []string{
		"StartEvent: start",
		"SequenceFlow: f0",
		"Transaction: booking",
		"MultiInstance: booking => sequential x3",
		"SubProcessStart: booking",
		"CompensationBoundaryEvent: undo",
		"SubProcessEnd: booking",
		"SequenceFlow: f1",
		"EndEvent: end",
	}, trace.Strings())
}

func TestExecuteBusinessRuleTask(t *testing.T) {
	decider := decision.NewService(decision.MapSource{"ageGroup": ageTable()}, decision.NewEvaluator())
	graph := &model.ProcessGraph{
		Id:     "rules",
		Events: startEnd(),
		Tasks:  []model.FlowTask{{Id: "ageGroup", Kind: model.TASK_BUSINESS_RULE}},
		Flows:  []model.SequenceFlow{flow("f0", "start", "ageGroup"), flow("f1", "ageGroup", "end")},
	}
	e := New(WithDecisions(decider))

	trace, err := e.Execute(context.Background(), graph, nil)
	require.NoError(t, err)
	assert.Contains(t, trace.Strings(), "BusinessRuleTask: ageGroup => result=adult")

	vars := map[string]any{"age": "16"}
	trace, err = e.Execute(context.Background(), graph, vars)
	require.NoError(t, err)
	assert.Contains(t, trace.Strings(), "BusinessRuleTask: ageGroup => result=teen")
	assert.Equal(t, "teen", vars["result"])

	graph.Tasks[0].Attributes = map[string]string{"decisionRef": "missing"}
	_, err = e.Execute(context.Background(), graph, nil)
	require.Error(t, err)
}

func TestExecuteBusinessRuleConflict(t *testing.T) {
	table := ageTable()
	table.Rules = append(table.Rules, model.DecisionRule{InputEntries: []string{"-"}, OutputEntries: []string{"any"}})
	decider := decision.NewService(decision.MapSource{"ageGroup": table}, decision.NewEvaluator())
	graph := &model.ProcessGraph{
		Id:     "rules",
		Events: startEnd(),
		Tasks:  []model.FlowTask{{Id: "ageGroup", Kind: model.TASK_BUSINESS_RULE}},
		Flows:  []model.SequenceFlow{flow("f0", "start", "ageGroup"), flow("f1", "ageGroup", "end")},
	}
	_, err := New(WithDecisions(decider)).Execute(context.Background(), graph, nil)
	require.ErrorIs(t, err, decision.ErrRuleConflict)
}

func TestExecuteDispatch(t *testing.T) {
	var got *model.DispatchRequest
	registry := dispatch.NewRegistry()
	registry.MustRegister("charge", func(ctx context.Context, req *model.DispatchRequest) error {
		got = req
		req.Variables["charged"] = true
		return nil
	})
	registry.MustRegister("fail", func(ctx context.Context, req *model.DispatchRequest) error {
		return errors.New("card declined")
	})
	graph := &model.ProcessGraph{
		Id:     "payment",
		Events: startEnd(),
		Tasks: []model.FlowTask{{
			Id:             "pay",
			Kind:           model.TASK_SERVICE,
			Implementation: "charge",
			Attributes:     map[string]string{"amount": "{$.order.amount}"},
		}},
		Flows: []model.SequenceFlow{flow("f0", "start", "pay"), flow("f1", "pay", "end")},
	}
	e := New(WithDispatcher(dispatch.NewLocalDispatcher(registry)))
	vars := map[string]any{"order": map[string]any{"amount": 42}}
	trace, err := e.ExecuteInstance(context.Background(), "inst-1", graph, vars)
	require.NoError(t, err)
	assert.Contains(t, trace.Strings(), "ServiceTask: pay => dispatched charge")
	require.NotNil(t, got)
	assert.Equal(t, "inst-1", got.InstanceRef)
	assert.Equal(t, "42", got.Attributes["amount"])
	assert.Equal(t, true, vars["charged"])

	graph.Tasks[0].Implementation = "fail"
	trace, err = e.Execute(context.Background(), graph, nil)
	require.ErrorIs(t, err, dispatch.ErrDispatchFailure)
	assert.Equal(t, []string{"StartEvent: start", "SequenceFlow: f0"}, trace.Strings())
}

func TestExecuteUnboundImplementation(t *testing.T) {
	graph := &model.ProcessGraph{
		Id:     "billing",
		Events: startEnd(),
		Tasks:  []model.FlowTask{{Id: "charge", Kind: model.TASK_SERVICE, Implementation: "com.acme.Charge"}},
		Flows:  []model.SequenceFlow{flow("f0", "start", "charge"), flow("f1", "charge", "end")},
	}
	expected := []string{"StartEvent: start", "SequenceFlow: f0", "ServiceTask: charge", "SequenceFlow: f1", "EndEvent: end"}

	trace, err := New().Execute(context.Background(), graph, nil)
	require.NoError(t, err)
	assert.Equal(t, expected, trace.Strings())

	e := New(WithDispatcher(dispatch.NewLocalDispatcher(dispatch.NewRegistry())))
	trace, err = e.Execute(context.Background(), graph, nil)
	require.NoError(t, err)
	assert.Equal(t, expected, trace.Strings())
}

func TestExecuteRemoteDispatchCarriesDecisionLists(t *testing.T) {
	mr := miniredis.RunT(t)
	client := rd.NewClient(&rd.Options{Addr: mr.Addr()})
	defer client.Close()
	ring := cluster.NewRing(cluster.RingConfig{PartitionCount: 4})
	router := dispatch.NewRouter("w1",
		dispatch.NewLocalDispatcher(dispatch.NewRegistry()),
		dispatch.NewRemoteDispatcher(client, "tokenflow", ring))

	table := &model.DecisionTable{
		Key:       "perks",
		HitPolicy: model.HIT_POLICY_COLLECT,
		Inputs:    []model.DecisionInput{{Id: "tier", Expression: "tier"}},
		Outputs:   []model.DecisionOutput{{Id: "o1", Name: "perks"}},
		Rules: []model.DecisionRule{
			{InputEntries: []string{"gold"}, OutputEntries: []string{"lounge"}},
			{InputEntries: []string{"-"}, OutputEntries: []string{"newsletter"}},
		},
	}
	decider := decision.NewService(decision.MapSource{"perks": table}, decision.NewEvaluator())
	graph := &model.ProcessGraph{
		Id:     "membership",
		Events: startEnd(),
		Tasks: []model.FlowTask{
			{Id: "perks", Kind: model.TASK_BUSINESS_RULE},
			{Id: "ship", Kind: model.TASK_SERVICE, Implementation: "ship", Attributes: map[string]string{"worker": "w2"}},
		},
		Flows: []model.SequenceFlow{flow("f0", "start", "perks"), flow("f1", "perks", "ship"), flow("f2", "ship", "end")},
	}
	e := New(WithDecisions(decider), WithDispatcher(router))
	trace, err := e.ExecuteInstance(context.Background(), "inst-7", graph, map[string]any{"tier": "gold"})
	require.NoError(t, err)
	assert.Contains(t, trace.Strings(), "ServiceTask: ship => dispatched ship")

	items, err := mr.List(dispatch.QueueKey("tokenflow", "w2", ring.Partition("inst-7")))
	require.NoError(t, err)
	require.Len(t, items, 1)
	req, err := dispatch.Decode([]byte(items[0]))
	require.NoError(t, err)
	assert.Equal(t, "ship", req.ImplementationKey)
	assert.Equal(t, []any{"lounge", "newsletter"}, req.Variables["perks"])
	assert.Equal(t, "gold", req.Variables["tier"])
}

type recordingObserver struct {
	steps []int
	errs  []error
}

func (r *recordingObserver) ObserveWalk(processId string, steps int, err error) {
	r.steps = append(r.steps, steps)
	r.errs = append(r.errs, err)
}

func TestExecuteObserver(t *testing.T) {
	obs := &recordingObserver{}
	e := New(WithMetrics(obs))
	_, err := e.Execute(context.Background(), exclusiveGraph(), nil)
	require.NoError(t, err)
	require.Len(t, obs.steps, 1)
	assert.Equal(t, 3, obs.steps[0])
	assert.NoError(t, obs.errs[0])
}
