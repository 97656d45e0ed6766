package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mohitkumar/tokenflow/decision"
	"github.com/mohitkumar/tokenflow/dispatch"
	"github.com/mohitkumar/tokenflow/dispatch/handlers"
	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/model"
	"github.com/mohitkumar/tokenflow/util"
	"go.uber.org/zap"
)

var ErrNoStartEvent = errors.New("process graph has no start event")
var ErrStepLimitExceeded = errors.New("walk exceeded step limit")

const DEFAULT_MAX_STEPS = 10000

type GatewayMode int

const (
	// ModeTrace records a parallel or inclusive gateway's branches and ends the walk.
	ModeTrace GatewayMode = iota
	// ModeFork continues every branch as its own token and synchronizes joins.
	ModeFork
)

// Decider evaluates the decision table named by key.
type Decider interface {
	Decide(key string, inputs map[string]any) (decision.Result, error)
}

// Observer is told about every finished walk.
type Observer interface {
	ObserveWalk(processId string, steps int, err error)
}

type Option func(*Engine)

func WithDecisions(decider Decider) Option {
	return func(e *Engine) { e.decider = decider }
}

func WithDispatcher(dispatcher dispatch.Dispatcher) Option {
	return func(e *Engine) { e.dispatcher = dispatcher }
}

func WithConditions(predicate Predicate) Option {
	return func(e *Engine) { e.condition = predicate }
}

func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

func WithGatewayMode(mode GatewayMode) Option {
	return func(e *Engine) { e.mode = mode }
}

func WithMetrics(observer Observer) Option {
	return func(e *Engine) { e.observer = observer }
}

// Engine walks process graphs. It holds no per-walk state and may be shared.
type Engine struct {
	decider    Decider
	dispatcher dispatch.Dispatcher
	condition  Predicate
	maxSteps   int
	mode       GatewayMode
	observer   Observer
}

func New(opts ...Option) *Engine {
	e := &Engine{
		maxSteps: DEFAULT_MAX_STEPS,
		mode:     ModeTrace,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// demoInput is used for business rule tasks when a walk carries no variables.
func demoInput() map[string]any {
	return map[string]any{"age": "18"}
}

func (e *Engine) Execute(ctx context.Context, graph *model.ProcessGraph, variables map[string]any) (Trace, error) {
	return e.ExecuteInstance(ctx, "", graph, variables)
}

// ExecuteInstance walks graph on behalf of instanceRef. variables is read and
// mutated by the walk and must not be shared with a concurrent walk.
func (e *Engine) ExecuteInstance(ctx context.Context, instanceRef string, graph *model.ProcessGraph, variables map[string]any) (Trace, error) {
	starts := graph.StartEvents()
	if len(starts) == 0 {
		e.observe(graph, 0, ErrNoStartEvent)
		return nil, fmt.Errorf("process %s: %w", graph.Id, ErrNoStartEvent)
	}
	w := &walk{
		engine:      e,
		ctx:         ctx,
		graph:       graph,
		instanceRef: instanceRef,
		variables:   variables,
		suppliedVar: len(variables) > 0,
		arrivals:    map[string]int{},
	}
	if w.variables == nil {
		w.variables = map[string]any{}
	}
	var err error
	if e.mode == ModeFork {
		err = w.fork(starts[0].Id)
	} else {
		err = w.single(starts[0].Id)
	}
	e.observe(graph, w.steps, err)
	if err != nil {
		logger.Error("process walk failed", zap.String("process", graph.Id), zap.String("instance", instanceRef), zap.Int("steps", w.steps), zap.Error(err))
		return w.trace, err
	}
	logger.Debug("process walk completed", zap.String("process", graph.Id), zap.String("instance", instanceRef), zap.Int("steps", w.steps))
	return w.trace, nil
}

func (e *Engine) observe(graph *model.ProcessGraph, steps int, err error) {
	if e.observer != nil {
		e.observer.ObserveWalk(graph.Id, steps, err)
	}
}

type walk struct {
	engine      *Engine
	ctx         context.Context
	graph       *model.ProcessGraph
	instanceRef string
	variables   map[string]any
	suppliedVar bool
	trace       Trace
	steps       int

	// fork mode only
	arrivals map[string]int
	parked   []string
}

func (w *walk) record(kind string, id string, detail string) {
	w.trace = append(w.trace, Step{Kind: kind, NodeId: id, Detail: detail})
}

func (w *walk) single(start string) error {
	current := start
	for {
		next, err := w.step(current)
		if err != nil {
			return err
		}
		if len(next) == 0 {
			return nil
		}
		current = next[0]
	}
}

// fork runs one token per active branch, breadth first. Parallel joins wait for
// every incoming flow. Inclusive joins wait until no other token is moving.
func (w *walk) fork(start string) error {
	queue := []string{start}
	for len(queue) > 0 || len(w.parked) > 0 {
		if len(queue) == 0 {
			gw := w.parked[0]
			w.parked = w.parked[1:]
			delete(w.arrivals, gw)
			next, err := w.fire(gw)
			if err != nil {
				return err
			}
			queue = append(queue, next...)
			continue
		}
		current := queue[0]
		queue = queue[1:]
		if gw, ok := w.graph.Gateway(current); ok && gw.Kind != model.GATEWAY_EXCLUSIVE {
			if incoming := len(w.graph.Incoming(gw.Id)); incoming > 1 {
				if err := w.tick(); err != nil {
					return err
				}
				w.arrivals[gw.Id]++
				if gw.Kind == model.GATEWAY_INCLUSIVE {
					if w.arrivals[gw.Id] == 1 {
						w.parked = append(w.parked, gw.Id)
					}
					continue
				}
				if w.arrivals[gw.Id] < incoming {
					w.record(STEP_JOIN, gw.Id, fmt.Sprintf("%d/%d", w.arrivals[gw.Id], incoming))
					continue
				}
				delete(w.arrivals, gw.Id)
				next, err := w.fire(gw.Id)
				if err != nil {
					return err
				}
				queue = append(queue, next...)
				continue
			}
		}
		next, err := w.step(current)
		if err != nil {
			return err
		}
		queue = append(queue, next...)
	}
	return nil
}

func (w *walk) tick() error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	w.steps++
	if w.steps > w.engine.maxSteps {
		return fmt.Errorf("process %s: %w (%d)", w.graph.Id, ErrStepLimitExceeded, w.engine.maxSteps)
	}
	return nil
}

// fire records a gateway that is ready to pass its token on.
func (w *walk) fire(id string) ([]string, error) {
	if err := w.tick(); err != nil {
		return nil, err
	}
	gw, _ := w.graph.Gateway(id)
	return w.gateway(gw)
}

// step advances the token at id and returns the ids the walk continues at.
func (w *walk) step(id string) ([]string, error) {
	if err := w.tick(); err != nil {
		return nil, err
	}
	switch w.graph.NodeType(id) {
	case model.NODE_GATEWAY:
		gw, _ := w.graph.Gateway(id)
		return w.gateway(gw)
	case model.NODE_SUBPROCESS:
		sp, _ := w.graph.Subprocess(id)
		w.subprocess(sp)
		return w.advance(id), nil
	case model.NODE_TASK:
		task, _ := w.graph.Task(id)
		if err := w.task(task); err != nil {
			return nil, err
		}
		return w.advance(id), nil
	case model.NODE_EVENT:
		ev, _ := w.graph.Event(id)
		w.record(eventKind(ev), ev.Id, "")
		if ev.Kind == model.EVENT_END {
			return nil, nil
		}
	}
	return w.advance(id), nil
}

// advance takes the first outgoing flow of id.
func (w *walk) advance(id string) []string {
	outs := w.graph.Outgoing(id)
	if len(outs) == 0 {
		return nil
	}
	return w.take(outs[0])
}

// take records flow and, when it leads into an end event, the end event too.
func (w *walk) take(flow model.SequenceFlow) []string {
	w.record(STEP_SEQUENCE_FLOW, flow.Id, "")
	if w.graph.IsEndEvent(flow.TargetId) {
		w.record(eventKind(model.FlowEvent{Kind: model.EVENT_END}), flow.TargetId, "")
		return nil
	}
	return []string{flow.TargetId}
}

func (w *walk) gateway(gw model.Gateway) ([]string, error) {
	outs := w.graph.Outgoing(gw.Id)
	switch gw.Kind {
	case model.GATEWAY_PARALLEL, model.GATEWAY_INCLUSIVE:
		kind := STEP_PARALLEL_GATEWAY
		selected := outs
		if gw.Kind == model.GATEWAY_INCLUSIVE {
			kind = STEP_INCLUSIVE_GATEWAY
			var err error
			if selected, err = w.inclusiveFlows(gw, outs); err != nil {
				return nil, err
			}
		}
		w.record(kind, gw.Id, "")
		var next []string
		for _, flow := range selected {
			w.record(STEP_SEQUENCE_FLOW, flow.Id, "")
			w.record(STEP_BRANCH, flow.TargetId, "")
			if w.engine.mode == ModeFork {
				if w.graph.IsEndEvent(flow.TargetId) {
					w.record(eventKind(model.FlowEvent{Kind: model.EVENT_END}), flow.TargetId, "")
					continue
				}
				next = append(next, flow.TargetId)
			}
		}
		return next, nil
	default:
		w.record(STEP_EXCLUSIVE_GATEWAY, gw.Id, "")
		if len(outs) == 0 {
			return nil, nil
		}
		flow, err := w.exclusiveFlow(gw, outs)
		if err != nil {
			return nil, err
		}
		return w.take(flow), nil
	}
}

func (w *walk) exclusiveFlow(gw model.Gateway, outs []model.SequenceFlow) (model.SequenceFlow, error) {
	if w.engine.condition == nil {
		return outs[0], nil
	}
	var fallback *model.SequenceFlow
	for i := range outs {
		if outs[i].Id == gw.DefaultFlowId {
			fallback = &outs[i]
			continue
		}
		ok, err := w.engine.condition(outs[i], w.variables)
		if err != nil {
			return model.SequenceFlow{}, err
		}
		if ok {
			return outs[i], nil
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return outs[0], nil
}

func (w *walk) inclusiveFlows(gw model.Gateway, outs []model.SequenceFlow) ([]model.SequenceFlow, error) {
	if w.engine.condition == nil {
		return outs, nil
	}
	var selected []model.SequenceFlow
	var fallback []model.SequenceFlow
	for _, flow := range outs {
		if flow.Id == gw.DefaultFlowId {
			fallback = append(fallback, flow)
			continue
		}
		ok, err := w.engine.condition(flow, w.variables)
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, flow)
		}
	}
	if len(selected) > 0 {
		return selected, nil
	}
	if len(fallback) > 0 {
		return fallback, nil
	}
	return outs, nil
}

func (w *walk) subprocess(sp model.Subprocess) {
	if sp.IsTransaction {
		w.record(STEP_TRANSACTION, sp.Id, "")
	} else {
		w.record(STEP_SUBPROCESS, sp.Id, "")
	}
	if sp.IsMultiInstance {
		detail := "parallel"
		if sp.IsSequential {
			detail = "sequential"
		}
		if sp.LoopCardinality != nil {
			detail = fmt.Sprintf("%s x%d", detail, *sp.LoopCardinality)
		}
		w.record(STEP_MULTI_INSTANCE, sp.Id, detail)
	}
	w.record(STEP_SUBPROCESS_START, sp.Id, "")
	if ev, ok := w.graph.CompensationBoundary(sp.Id); ok {
		w.record(STEP_COMPENSATION, ev.Id, "")
	}
	w.record(STEP_SUBPROCESS_END, sp.Id, "")
}

func (w *walk) task(task model.FlowTask) error {
	if task.Kind == model.TASK_BUSINESS_RULE {
		return w.decide(task)
	}
	key := task.Implementation
	if key == "" && task.Kind == model.TASK_SCRIPT && task.Attributes["script"] != "" {
		key = handlers.SCRIPT
	}
	if key == "" || w.engine.dispatcher == nil || task.Kind == model.TASK_USER || task.Kind == model.TASK_MANUAL {
		w.record(taskKind(task.Kind), task.Id, "")
		return nil
	}
	attributes := util.ResolveAttributes(task.Attributes, w.variables)
	if script, ok := task.Attributes["script"]; ok {
		// script bodies are passed through untouched
		attributes["script"] = script
	}
	req := &model.DispatchRequest{
		TargetWorkerId:    task.Attributes["worker"],
		ImplementationKey: key,
		InstanceRef:       w.instanceRef,
		Attributes:        attributes,
		Variables:         w.variables,
	}
	if err := w.engine.dispatcher.Dispatch(w.ctx, req); err != nil {
		if errors.Is(err, dispatch.ErrHandlerNotFound) {
			// unbound implementations are walked over like plain tasks
			logger.Warn("no handler registered for task", zap.String("task", task.Id), zap.String("implementation", key))
			w.record(taskKind(task.Kind), task.Id, "")
			return nil
		}
		return fmt.Errorf("task %s: %w", task.Id, err)
	}
	w.record(taskKind(task.Kind), task.Id, "dispatched "+key)
	return nil
}

func (w *walk) decide(task model.FlowTask) error {
	if w.engine.decider == nil {
		w.record(STEP_BUSINESS_RULE, task.Id, "")
		return nil
	}
	key := task.Attributes["decisionRef"]
	if key == "" {
		key = task.Id
	}
	inputs := w.variables
	if !w.suppliedVar {
		inputs = demoInput()
	}
	res, err := w.engine.decider.Decide(key, inputs)
	if err != nil {
		return fmt.Errorf("task %s: %w", task.Id, err)
	}
	for k, v := range res {
		w.variables[k] = v
	}
	w.record(STEP_BUSINESS_RULE, task.Id, formatResult(res))
	return nil
}

func formatResult(res decision.Result) string {
	keys := make([]string, 0, len(res))
	for k := range res {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, res[k]))
	}
	return strings.Join(parts, ", ")
}

func eventKind(ev model.FlowEvent) string {
	switch ev.Kind {
	case model.EVENT_START:
		return "StartEvent"
	case model.EVENT_END:
		return "EndEvent"
	case model.EVENT_BOUNDARY:
		return "BoundaryEvent"
	case model.EVENT_INTERMEDIATE_CATCH:
		return "IntermediateCatchEvent"
	case model.EVENT_INTERMEDIATE_THROW:
		return "IntermediateThrowEvent"
	}
	return STEP_UNKNOWN_EVENT
}

// taskKind turns "serviceTask" into "ServiceTask".
func taskKind(kind string) string {
	if kind == "" {
		return "Task"
	}
	return strings.ToUpper(kind[:1]) + kind[1:]
}
