package dmn

import (
	"encoding/xml"

	"github.com/mohitkumar/tokenflow/model"
)

const DMN_NAMESPACE = "https://www.omg.org/spec/DMN/20191111/MODEL/"

type text struct {
	Value string `xml:"text"`
}

type tDefinitions struct {
	XMLName   xml.Name    `xml:"definitions"`
	Xmlns     string      `xml:"xmlns,attr"`
	Decisions []tDecision `xml:"decision"`
}

type tDecision struct {
	Id    string `xml:"id,attr"`
	Name  string `xml:"name,attr,omitempty"`
	Table tTable `xml:"decisionTable"`
}

type tTable struct {
	HitPolicy   string    `xml:"hitPolicy,attr"`
	Aggregation string    `xml:"aggregation,attr,omitempty"`
	Inputs      []tInput  `xml:"input"`
	Outputs     []tOutput `xml:"output"`
	Rules       []tRule   `xml:"rule"`
}

type tInput struct {
	Id         string `xml:"id,attr"`
	Label      string `xml:"label,attr,omitempty"`
	Expression text   `xml:"inputExpression"`
}

type tOutput struct {
	Id   string `xml:"id,attr,omitempty"`
	Name string `xml:"name,attr,omitempty"`
}

type tRule struct {
	Id      string `xml:"id,attr,omitempty"`
	Inputs  []text `xml:"inputEntry"`
	Outputs []text `xml:"outputEntry"`
}

// Render writes tables as one DMN document. Entries are written verbatim, so
// string outputs come back unquoted.
func Render(tables ...*model.DecisionTable) ([]byte, error) {
	defs := tDefinitions{Xmlns: DMN_NAMESPACE}
	for _, t := range tables {
		tt := tTable{HitPolicy: string(t.HitPolicy), Aggregation: t.Aggregation}
		for _, in := range t.Inputs {
			tt.Inputs = append(tt.Inputs, tInput{Id: in.Id, Label: in.Label, Expression: text{Value: in.Expression}})
		}
		for _, out := range t.Outputs {
			tt.Outputs = append(tt.Outputs, tOutput{Id: out.Id, Name: out.Name})
		}
		for _, r := range t.Rules {
			tr := tRule{Id: r.Id}
			for _, e := range r.InputEntries {
				tr.Inputs = append(tr.Inputs, text{Value: e})
			}
			for _, e := range r.OutputEntries {
				tr.Outputs = append(tr.Outputs, text{Value: e})
			}
			tt.Rules = append(tt.Rules, tr)
		}
		defs.Decisions = append(defs.Decisions, tDecision{Id: t.Key, Name: t.Name, Table: tt})
	}
	out, err := xml.MarshalIndent(defs, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
