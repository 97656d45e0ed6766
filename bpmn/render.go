package bpmn

import (
	"encoding/xml"
	"sort"
	"strconv"

	"github.com/mohitkumar/tokenflow/model"
)

const BPMN_NAMESPACE = "http://www.omg.org/spec/BPMN/20100524/MODEL"

type text struct {
	Value string `xml:",chardata"`
}

type tDefinitions struct {
	XMLName xml.Name `xml:"definitions"`
	Xmlns   string   `xml:"xmlns,attr"`
	Process tProcess `xml:"process"`
}

type tProcess struct {
	Id           string        `xml:"id,attr"`
	Name         string        `xml:"name,attr,omitempty"`
	Events       []tEvent      `xml:"event"`
	Tasks        []tTask       `xml:"task"`
	Gateways     []tGateway    `xml:"gateway"`
	Subprocesses []tSubprocess `xml:"subProcess"`
	Flows        []tFlow       `xml:"sequenceFlow"`
}

type tEvent struct {
	XMLName        xml.Name
	Id             string     `xml:"id,attr"`
	Name           string     `xml:"name,attr,omitempty"`
	AttachedToRef  string     `xml:"attachedToRef,attr,omitempty"`
	CancelActivity string     `xml:"cancelActivity,attr,omitempty"`
	Definition     *tEventDef `xml:"eventDefinition,omitempty"`
}

type tEventDef struct {
	XMLName      xml.Name
	MessageRef   string `xml:"messageRef,attr,omitempty"`
	TimeDate     *text  `xml:"timeDate,omitempty"`
	TimeDuration *text  `xml:"timeDuration,omitempty"`
	TimeCycle    *text  `xml:"timeCycle,omitempty"`
}

type tTask struct {
	XMLName xml.Name
	Id      string     `xml:"id,attr"`
	Name    string     `xml:"name,attr,omitempty"`
	Attrs   []xml.Attr `xml:",any,attr"`
	Script  *text      `xml:"script,omitempty"`
}

type tGateway struct {
	XMLName xml.Name
	Id      string `xml:"id,attr"`
	Name    string `xml:"name,attr,omitempty"`
	Default string `xml:"default,attr,omitempty"`
}

type tSubprocess struct {
	XMLName          xml.Name
	Id               string          `xml:"id,attr"`
	Name             string          `xml:"name,attr,omitempty"`
	TriggeredByEvent string          `xml:"triggeredByEvent,attr,omitempty"`
	MultiInstance    *tMultiInstance `xml:"multiInstanceLoopCharacteristics,omitempty"`
}

type tMultiInstance struct {
	IsSequential    string `xml:"isSequential,attr"`
	LoopCardinality *text  `xml:"loopCardinality,omitempty"`
}

type tFlow struct {
	Id        string `xml:"id,attr"`
	Name      string `xml:"name,attr,omitempty"`
	SourceRef string `xml:"sourceRef,attr"`
	TargetRef string `xml:"targetRef,attr"`
	Condition *text  `xml:"conditionExpression,omitempty"`
}

var eventElements = map[model.EventKind]string{}
var eventDefinitionElements = map[model.EventDefinitionKind]string{}
var gatewayElements = map[model.GatewayKind]string{
	model.GATEWAY_EXCLUSIVE: "exclusiveGateway",
	model.GATEWAY_PARALLEL:  "parallelGateway",
	model.GATEWAY_INCLUSIVE: "inclusiveGateway",
}

func init() {
	for el, kind := range eventKinds {
		eventElements[kind] = el
	}
	for el, kind := range eventDefinitions {
		eventDefinitionElements[kind] = el
	}
}

// Render writes graph back as a BPMN document. Output is equivalent to the
// source it was built from but element order is grouped by kind.
func Render(graph *model.ProcessGraph) ([]byte, error) {
	proc := tProcess{Id: graph.Id, Name: graph.Name}
	for _, ev := range graph.Events {
		proc.Events = append(proc.Events, renderEvent(ev))
	}
	for _, t := range graph.Tasks {
		proc.Tasks = append(proc.Tasks, renderTask(t))
	}
	for _, gw := range graph.Gateways {
		proc.Gateways = append(proc.Gateways, tGateway{
			XMLName: xml.Name{Local: gatewayElements[gw.Kind]},
			Id:      gw.Id,
			Name:    gw.Name,
			Default: gw.DefaultFlowId,
		})
	}
	for _, sp := range graph.Subprocesses {
		proc.Subprocesses = append(proc.Subprocesses, renderSubprocess(sp))
	}
	for _, f := range graph.Flows {
		tf := tFlow{Id: f.Id, Name: f.Name, SourceRef: f.SourceId, TargetRef: f.TargetId}
		if f.ConditionExpression != "" {
			tf.Condition = &text{Value: f.ConditionExpression}
		}
		proc.Flows = append(proc.Flows, tf)
	}
	out, err := xml.MarshalIndent(tDefinitions{Xmlns: BPMN_NAMESPACE, Process: proc}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func renderEvent(ev model.FlowEvent) tEvent {
	te := tEvent{
		XMLName:       xml.Name{Local: eventElements[ev.Kind]},
		Id:            ev.Id,
		Name:          ev.Name,
		AttachedToRef: ev.AttachedToId,
	}
	if ev.Kind == model.EVENT_BOUNDARY {
		te.CancelActivity = strconv.FormatBool(ev.CancelActivity)
	}
	defKind := ev.EventDefinitionKind
	if defKind == model.EVENT_DEF_NONE && ev.IsCompensation {
		defKind = model.EVENT_DEF_COMPENSATION
	}
	if defKind != model.EVENT_DEF_NONE {
		def := &tEventDef{
			XMLName:    xml.Name{Local: eventDefinitionElements[defKind]},
			MessageRef: ev.MessageRef,
		}
		if ev.Timer != nil {
			def.TimeDate = optionalText(ev.Timer.Date)
			def.TimeDuration = optionalText(ev.Timer.Duration)
			def.TimeCycle = optionalText(ev.Timer.Cycle)
		}
		te.Definition = def
	}
	return te
}

func renderTask(t model.FlowTask) tTask {
	tt := tTask{
		XMLName: xml.Name{Local: t.Kind},
		Id:      t.Id,
		Name:    t.Name,
	}
	keys := make([]string, 0, len(t.Attributes))
	for k := range t.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	hasImplementation := false
	for _, k := range keys {
		if k == "script" {
			tt.Script = &text{Value: t.Attributes[k]}
			continue
		}
		if t.Attributes[k] == t.Implementation {
			hasImplementation = true
		}
		tt.Attrs = append(tt.Attrs, xml.Attr{Name: xml.Name{Local: k}, Value: t.Attributes[k]})
	}
	if t.Implementation != "" && !hasImplementation {
		tt.Attrs = append(tt.Attrs, xml.Attr{Name: xml.Name{Local: "implementation"}, Value: t.Implementation})
	}
	return tt
}

func renderSubprocess(sp model.Subprocess) tSubprocess {
	el := "subProcess"
	if sp.IsTransaction {
		el = "transaction"
	} else if sp.IsAdHoc {
		el = "adHocSubProcess"
	}
	ts := tSubprocess{
		XMLName: xml.Name{Local: el},
		Id:      sp.Id,
		Name:    sp.Name,
	}
	if sp.IsEventSubprocess {
		ts.TriggeredByEvent = "true"
	}
	if sp.IsMultiInstance {
		mi := &tMultiInstance{IsSequential: strconv.FormatBool(sp.IsSequential)}
		if sp.LoopCardinality != nil {
			mi.LoopCardinality = &text{Value: strconv.Itoa(*sp.LoopCardinality)}
		}
		ts.MultiInstance = mi
	}
	return ts
}

func optionalText(v string) *text {
	if v == "" {
		return nil
	}
	return &text{Value: v}
}
