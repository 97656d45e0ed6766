package bpmn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mohitkumar/tokenflow/model"
	"github.com/mohitkumar/tokenflow/util/xmltree"
)

var eventKinds = map[string]model.EventKind{
	"startEvent":             model.EVENT_START,
	"endEvent":               model.EVENT_END,
	"boundaryEvent":          model.EVENT_BOUNDARY,
	"intermediateCatchEvent": model.EVENT_INTERMEDIATE_CATCH,
	"intermediateThrowEvent": model.EVENT_INTERMEDIATE_THROW,
}

var eventDefinitions = map[string]model.EventDefinitionKind{
	"timerEventDefinition":      model.EVENT_DEF_TIMER,
	"messageEventDefinition":    model.EVENT_DEF_MESSAGE,
	"errorEventDefinition":      model.EVENT_DEF_ERROR,
	"signalEventDefinition":     model.EVENT_DEF_SIGNAL,
	"compensateEventDefinition": model.EVENT_DEF_COMPENSATION,
}

var gatewayKinds = map[string]model.GatewayKind{
	"exclusiveGateway":  model.GATEWAY_EXCLUSIVE,
	"eventBasedGateway": model.GATEWAY_EXCLUSIVE,
	"parallelGateway":   model.GATEWAY_PARALLEL,
	"inclusiveGateway":  model.GATEWAY_INCLUSIVE,
	"complexGateway":    model.GATEWAY_INCLUSIVE,
}

// implementation attributes, most specific first
var implementationAttrs = []string{"implementation", "class", "delegateExpression", "expression", "type", "topic", "decisionRef", "calledElement"}

// Build parses a BPMN 2.0 document. The root must be either definitions holding a
// process or a bare process element. Subprocess interiors are not part of the
// graph.
func Build(source []byte) (*model.ProcessGraph, error) {
	root, err := xmltree.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedGraph, err)
	}
	var process *xmltree.Node
	switch root.Name() {
	case "process":
		process = root
	case "definitions":
		process = root.Child("process")
	}
	if process == nil {
		return nil, fmt.Errorf("%w: no process element under %s", model.ErrMalformedGraph, root.Name())
	}
	graph := &model.ProcessGraph{
		Id:   process.Attr("id"),
		Name: process.Attr("name"),
	}
	for i := range process.Nodes {
		el := &process.Nodes[i]
		name := el.Name()
		if kind, ok := eventKinds[name]; ok {
			graph.Events = append(graph.Events, buildEvent(el, kind))
			continue
		}
		if kind, ok := gatewayKinds[name]; ok {
			graph.Gateways = append(graph.Gateways, model.Gateway{
				Id:            el.Attr("id"),
				Name:          el.Attr("name"),
				Kind:          kind,
				DefaultFlowId: el.Attr("default"),
			})
			continue
		}
		switch {
		case name == "sequenceFlow":
			graph.Flows = append(graph.Flows, model.SequenceFlow{
				Id:                  el.Attr("id"),
				Name:                el.Attr("name"),
				SourceId:            el.Attr("sourceRef"),
				TargetId:            el.Attr("targetRef"),
				ConditionExpression: el.ChildText("conditionExpression"),
			})
		case name == "subProcess" || name == "adHocSubProcess" || name == "transaction":
			sp, err := buildSubprocess(el)
			if err != nil {
				return nil, err
			}
			graph.Subprocesses = append(graph.Subprocesses, sp)
		case isTask(name):
			graph.Tasks = append(graph.Tasks, buildTask(el))
		}
	}
	return graph, nil
}

func isTask(name string) bool {
	return name == model.TASK_GENERIC || name == model.CALL_ACTIVITY || strings.HasSuffix(name, "Task")
}

func buildEvent(el *xmltree.Node, kind model.EventKind) model.FlowEvent {
	ev := model.FlowEvent{
		Id:           el.Attr("id"),
		Name:         el.Attr("name"),
		Kind:         kind,
		AttachedToId: el.Attr("attachedToRef"),
	}
	if kind == model.EVENT_BOUNDARY {
		ev.CancelActivity = el.BoolAttr("cancelActivity", true)
	}
	for i := range el.Nodes {
		def := &el.Nodes[i]
		defKind, ok := eventDefinitions[def.Name()]
		if !ok {
			continue
		}
		ev.EventDefinitionKind = defKind
		switch defKind {
		case model.EVENT_DEF_COMPENSATION:
			ev.IsCompensation = true
		case model.EVENT_DEF_MESSAGE:
			ev.MessageRef = def.Attr("messageRef")
		case model.EVENT_DEF_TIMER:
			ev.Timer = &model.TimerDefinition{
				Date:     def.ChildText("timeDate"),
				Duration: def.ChildText("timeDuration"),
				Cycle:    def.ChildText("timeCycle"),
			}
		}
		break
	}
	return ev
}

func buildTask(el *xmltree.Node) model.FlowTask {
	task := model.FlowTask{
		Id:         el.Attr("id"),
		Name:       el.Attr("name"),
		Kind:       el.Name(),
		Attributes: make(map[string]string),
	}
	for _, a := range el.Attrs {
		if a.Name.Local == "id" || a.Name.Local == "name" || a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		task.Attributes[a.Name.Local] = a.Value
	}
	for _, key := range implementationAttrs {
		if v := el.Attr(key); v != "" {
			task.Implementation = v
			break
		}
	}
	if task.Implementation == "" {
		// zeebe style <extensionElements><taskDefinition type="..."/></extensionElements>
		if ext := el.Child("extensionElements"); ext != nil {
			if td := ext.Child("taskDefinition"); td != nil {
				task.Implementation = td.Attr("type")
			}
		}
	}
	if script := el.ChildText("script"); script != "" {
		task.Attributes["script"] = script
	}
	return task
}

func buildSubprocess(el *xmltree.Node) (model.Subprocess, error) {
	sp := model.Subprocess{
		Id:                el.Attr("id"),
		Name:              el.Attr("name"),
		IsEventSubprocess: el.BoolAttr("triggeredByEvent", false),
		IsTransaction:     el.Name() == "transaction",
		IsAdHoc:           el.Name() == "adHocSubProcess",
	}
	if mi := el.Child("multiInstanceLoopCharacteristics"); mi != nil {
		sp.IsMultiInstance = true
		sp.IsSequential = mi.BoolAttr("isSequential", false)
		if text := mi.ChildText("loopCardinality"); text != "" {
			n, err := strconv.Atoi(text)
			if err != nil {
				return sp, fmt.Errorf("%w: subprocess %s loopCardinality %q is not an integer", model.ErrMalformedGraph, sp.Id, text)
			}
			sp.LoopCardinality = &n
		}
	}
	return sp, nil
}
