package diagnosis

import (
	"context"
	"errors"
	"testing"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/mastery"
)

func calculusGraph(t *testing.T) *conceptgraph.Holder {
	t.Helper()
	g, err := conceptgraph.Build(
		[]conceptgraph.Concept{
			{ID: "basic_differentiation"},
			{ID: "basic_integration"},
			{ID: "product_rule"},
			{ID: "integration_by_parts"},
		},
		[]conceptgraph.Edge{
			{ConceptID: "product_rule", PrereqID: "basic_differentiation"},
			{ConceptID: "basic_integration", PrereqID: "basic_differentiation"},
			{ConceptID: "integration_by_parts", PrereqID: "product_rule"},
			{ConceptID: "integration_by_parts", PrereqID: "basic_integration"},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	return conceptgraph.NewHolder(g)
}

func seed(t *testing.T, l *mastery.MemoryLedger, learner string, ratings map[string]float64) {
	t.Helper()
	for id, r := range ratings {
		if err := l.Put(context.Background(), mastery.Rating{LearnerID: learner, ConceptID: id, Rating: r}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestShouldDiagnose(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name      string
		composite float64
		streak    int
		want      bool
	}{
		{"low composite", 0.49, 0, true},
		{"at threshold", 0.5, 0, false},
		{"streak of two", 0.8, 2, true},
		{"streak of one", 0.8, 1, false},
		{"both", 0.1, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldDiagnose(tt.composite, tt.streak, cfg); got != tt.want {
				t.Errorf("ShouldDiagnose(%v, %d) = %v, want %v", tt.composite, tt.streak, got, tt.want)
			}
		})
	}
}

func TestConfig_WeakCutoff(t *testing.T) {
	if got := DefaultConfig().WeakCutoff(); got < 999.999 || got > 1000.001 {
		t.Errorf("WeakCutoff() = %v, want 1000", got)
	}
	cfg := DefaultConfig()
	cfg.ReferenceTier = 0
	if got := cfg.WeakCutoff(); got < 999.999 || got > 1000.001 {
		t.Errorf("invalid reference tier: WeakCutoff() = %v, want tier 1 fallback", got)
	}
}

func TestDiagnose_WeakDirectPrerequisite(t *testing.T) {
	ledger := mastery.NewMemoryLedger()
	seed(t, ledger, "alice", map[string]float64{
		"product_rule":          960,
		"basic_integration":     1050,
		"basic_differentiation": 1020,
	})
	d := NewDiagnoser(calculusGraph(t), ledger, DefaultConfig())

	got, err := d.Diagnose(context.Background(), "alice", "integration_by_parts")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected a diagnosis")
	}
	if got.WeakConceptID != "product_rule" {
		t.Errorf("weak = %q, want product_rule", got.WeakConceptID)
	}
	if got.Depth != 1 || got.WeakRating != 960 {
		t.Errorf("got depth %d rating %v", got.Depth, got.WeakRating)
	}
	if got.TriggerConceptID != "integration_by_parts" || got.LearnerID != "alice" {
		t.Errorf("unexpected identity fields: %+v", got)
	}
}

func TestDiagnose_DefaultsAreNotWeak(t *testing.T) {
	d := NewDiagnoser(calculusGraph(t), mastery.NewMemoryLedger(), DefaultConfig())
	got, err := d.Diagnose(context.Background(), "bob", "integration_by_parts")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got %+v for a fresh learner, want nil", got)
	}
}

func TestDiagnose_Root(t *testing.T) {
	d := NewDiagnoser(calculusGraph(t), mastery.NewMemoryLedger(), DefaultConfig())
	got, err := d.Diagnose(context.Background(), "bob", "basic_differentiation")
	if err != nil || got != nil {
		t.Errorf("got (%v, %v), want (nil, nil)", got, err)
	}
}

func TestDiagnose_UnknownConcept(t *testing.T) {
	d := NewDiagnoser(calculusGraph(t), mastery.NewMemoryLedger(), DefaultConfig())
	_, err := d.Diagnose(context.Background(), "bob", "nope")
	if !errors.Is(err, conceptgraph.ErrUnknownConcept) {
		t.Errorf("got %v, want ErrUnknownConcept", err)
	}
}

func TestDiagnose_NoGraph(t *testing.T) {
	d := NewDiagnoser(conceptgraph.NewHolder(nil), mastery.NewMemoryLedger(), DefaultConfig())
	if _, err := d.Diagnose(context.Background(), "bob", "x"); err == nil {
		t.Error("expected error without a graph")
	}
}

type failingReader struct{}

func (failingReader) Get(context.Context, string, string) (mastery.Rating, error) {
	return mastery.Rating{}, errors.New("ledger down")
}

func TestDiagnose_LedgerError(t *testing.T) {
	d := NewDiagnoser(calculusGraph(t), failingReader{}, DefaultConfig())
	if _, err := d.Diagnose(context.Background(), "bob", "product_rule"); err == nil {
		t.Error("expected ledger error to surface")
	}
}
