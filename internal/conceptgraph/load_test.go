package conceptgraph

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParse(t *testing.T) {
	doc := `
subject: physics
concepts:
  - id: vectors
    name: Vectors
    topic: Mechanics
    prerequisites: []
  - id: kinematics
    name: Kinematics
    topic: Mechanics
    subject: applied-physics
    prerequisites: [vectors]
`
	concepts, edges, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(concepts) != 2 || len(edges) != 1 {
		t.Fatalf("got %d concepts, %d edges", len(concepts), len(edges))
	}
	if concepts[0].Subject != "physics" {
		t.Errorf("document subject should be inherited, got %q", concepts[0].Subject)
	}
	if concepts[1].Subject != "applied-physics" {
		t.Errorf("node subject should override, got %q", concepts[1].Subject)
	}
	if edges[0] != (Edge{ConceptID: "kinematics", PrereqID: "vectors"}) {
		t.Errorf("got edge %+v", edges[0])
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, _, err := Parse(strings.NewReader("concepts:\n  - id: a\n    prereqs: [b]\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadYAML_Cycle(t *testing.T) {
	doc := `
concepts:
  - id: a
    prerequisites: [b]
  - id: b
    prerequisites: [a]
`
	_, err := LoadYAML(strings.NewReader(doc))
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	g := defaultGraph(t)
	out, err := yaml.Marshal(g.Document("mathematics"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again, err := LoadYAML(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Len() != g.Len() || len(again.Edges()) != len(g.Edges()) {
		t.Errorf("round trip changed graph: %d/%d concepts, %d/%d edges",
			again.Len(), g.Len(), len(again.Edges()), len(g.Edges()))
	}
}
