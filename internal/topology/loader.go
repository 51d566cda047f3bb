package topology

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// #region document
// Document is the YAML form of a topology.
type Document struct {
	Nodes        []Node         `yaml:"nodes"`
	Edges        []EdgeDocument `yaml:"edges"`
	SelfControl  bool           `yaml:"self_control"`
	SelfVisible  bool           `yaml:"self_visible"`
	Designations `yaml:",inline"`
}

// EdgeDocument is one edge entry. Bidirectional edges are mirrored.
type EdgeDocument struct {
	From          int  `yaml:"from"`
	To            int  `yaml:"to"`
	Bidirectional bool `yaml:"bidirectional"`
	Edge          `yaml:",inline"`
}

// #endregion document

// #region load
// Load reads a YAML topology file.
func Load(path string) (*Graph, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	g, err := doc.Build()
	if err != nil {
		return nil, fmt.Errorf("topology %s: %w", path, err)
	}
	return g, nil
}

// ReadDocument reads a YAML topology file without building it.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read topology %s: %w", path, err)
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return Document{}, fmt.Errorf("topology %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a YAML topology document.
func Parse(data []byte) (*Graph, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	return doc.Build()
}

func decodeDocument(data []byte) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode yaml: %w", err)
	}
	return doc, nil
}

// Build converts the document into a Graph.
func (d Document) Build() (*Graph, error) {
	n := len(d.Nodes)
	edges := make([][]Edge, n)
	for i := range edges {
		edges[i] = make([]Edge, n)
		edges[i][i] = Edge{Visible: d.SelfVisible, Controls: d.SelfControl}
	}
	for i, e := range d.Edges {
		if e.From < 0 || e.From >= n || e.To < 0 || e.To >= n {
			return nil, fmt.Errorf("edge %d (%d->%d) out of range: %w", i, e.From, e.To, ErrInvalidArgument)
		}
		edges[e.From][e.To] = e.Edge
		if e.Bidirectional {
			edges[e.To][e.From] = e.Edge
		}
	}
	nodes := d.Nodes
	if nodes == nil {
		nodes = []Node{}
	}
	return NewGraph(nodes, edges, d.Designations)
}

// #endregion load
