package conceptgraph

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

//go:embed curriculum.yaml
var defaultCurriculum []byte

// Document is the on-disk curriculum format.
type Document struct {
	Subject  string         `yaml:"subject"`
	Concepts []DocumentNode `yaml:"concepts"`
}

// DocumentNode is one concept entry with its direct prerequisites inline.
type DocumentNode struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Topic         string   `yaml:"topic"`
	Subject       string   `yaml:"subject,omitempty"`
	Prerequisites []string `yaml:"prerequisites"`
}

// Parse decodes a curriculum document into concepts and edges without
// validating the resulting graph.
func Parse(r io.Reader) ([]Concept, []Edge, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("decode curriculum: %w", err)
	}

	concepts := make([]Concept, 0, len(doc.Concepts))
	var edges []Edge
	for _, n := range doc.Concepts {
		subject := n.Subject
		if subject == "" {
			subject = doc.Subject
		}
		concepts = append(concepts, Concept{
			ID:      n.ID,
			Name:    n.Name,
			Subject: subject,
			Topic:   n.Topic,
		})
		for _, p := range n.Prerequisites {
			edges = append(edges, Edge{ConceptID: n.ID, PrereqID: p})
		}
	}
	return concepts, edges, nil
}

// LoadYAML parses and validates a curriculum document.
func LoadYAML(r io.Reader) (*Graph, error) {
	concepts, edges, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return Build(concepts, edges)
}

// Default returns the embedded calculus curriculum.
func Default() (*Graph, error) {
	return LoadYAML(bytes.NewReader(defaultCurriculum))
}

// Document renders the graph back into the curriculum format.
func (g *Graph) Document(subject string) Document {
	doc := Document{Subject: subject}
	for i, c := range g.concepts {
		node := DocumentNode{ID: c.ID, Name: c.Name, Topic: c.Topic, Prerequisites: g.ids(g.prereqs[i])}
		if c.Subject != subject {
			node.Subject = c.Subject
		}
		doc.Concepts = append(doc.Concepts, node)
	}
	return doc
}
