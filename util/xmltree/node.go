// Package xmltree decodes XML into a namespace agnostic element tree. BPMN and
// DMN documents use several prefix conventions, so lookups go by local name.
package xmltree

import (
	"encoding/xml"
	"strings"
)

type Node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []Node     `xml:",any"`
	Text    string     `xml:",chardata"`
}

func Parse(source []byte) (*Node, error) {
	var root Node
	if err := xml.Unmarshal(source, &root); err != nil {
		return nil, err
	}
	return &root, nil
}

func (n *Node) Name() string {
	return n.XMLName.Local
}

func (n *Node) Attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (n *Node) HasAttr(name string) bool {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return true
		}
	}
	return false
}

func (n *Node) BoolAttr(name string, def bool) bool {
	if !n.HasAttr(name) {
		return def
	}
	return strings.EqualFold(strings.TrimSpace(n.Attr(name)), "true")
}

// Child returns the first direct child named name.
func (n *Node) Child(name string) *Node {
	for i := range n.Nodes {
		if n.Nodes[i].Name() == name {
			return &n.Nodes[i]
		}
	}
	return nil
}

func (n *Node) Children(name string) []*Node {
	var out []*Node
	for i := range n.Nodes {
		if n.Nodes[i].Name() == name {
			out = append(out, &n.Nodes[i])
		}
	}
	return out
}

func (n *Node) ChildText(name string) string {
	c := n.Child(name)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text)
}
