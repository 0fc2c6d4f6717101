package mastery

import (
	"errors"
	"math"
	"testing"
)

const avg = 90.0

func TestScore_Bounds(t *testing.T) {
	for _, correct := range []bool{false, true} {
		for _, hint := range []bool{false, true} {
			for conf := MinConfidence; conf <= MaxConfidence; conf++ {
				for _, retries := range []int{0, 1, 3, 50} {
					for _, secs := range []float64{0.001, 1, 45, 90, 144, 1000, 1e9} {
						s := Signals{Correct: correct, TimeTakenSecs: secs, Retries: retries, HintUsed: hint, Confidence: conf}
						got, err := Score(s, avg)
						if err != nil {
							t.Fatalf("Score(%+v): %v", s, err)
						}
						if got < 0 || got > 1 {
							t.Errorf("Score(%+v) = %v, want in [0,1]", s, got)
						}
					}
				}
			}
		}
	}
}

func TestScore_WeightsSumToOne(t *testing.T) {
	sum := WeightAccuracy + WeightTime + WeightRetry + WeightHint + WeightConfidence
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("weights sum = %v, want 1", sum)
	}
}

func TestScore_Extremes(t *testing.T) {
	best, err := Score(Signals{Correct: true, TimeTakenSecs: 1e-9, Confidence: 5}, avg)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(best-1) > 1e-9 {
		t.Errorf("best = %v, want ~1", best)
	}

	// Wrong, slower than 1.6x average, hinted, unsure, retried forever.
	worst, err := Score(Signals{TimeTakenSecs: 500, Retries: 1 << 30, HintUsed: true, Confidence: 1}, avg)
	if err != nil {
		t.Fatal(err)
	}
	if worst < 0 || worst > 1e-8 {
		t.Errorf("worst = %v, want ~0", worst)
	}
}

func TestScore_CorrectNeverLowers(t *testing.T) {
	cases := []Signals{
		{TimeTakenSecs: 30, Retries: 0, Confidence: 3},
		{TimeTakenSecs: 200, Retries: 2, HintUsed: true, Confidence: 1},
		{TimeTakenSecs: 1, Retries: 9, Confidence: 5},
	}
	for _, s := range cases {
		wrong, _ := Score(s, avg)
		s.Correct = true
		right, _ := Score(s, avg)
		if right < wrong {
			t.Errorf("correct %v < incorrect %v for %+v", right, wrong, s)
		}
		if math.Abs(right-wrong-WeightAccuracy) > 1e-12 {
			t.Errorf("accuracy delta = %v, want %v", right-wrong, WeightAccuracy)
		}
	}
}

func TestComponents(t *testing.T) {
	b, err := Components(Signals{Correct: true, TimeTakenSecs: 72, Retries: 1, HintUsed: true, Confidence: 3}, avg)
	if err != nil {
		t.Fatal(err)
	}
	want := Breakdown{Accuracy: 1, Time: 0.5, Retry: 0.5, Hint: 0, Confidence: 0.5}
	for name, pair := range map[string][2]float64{
		"accuracy":   {b.Accuracy, want.Accuracy},
		"time":       {b.Time, want.Time},
		"retry":      {b.Retry, want.Retry},
		"hint":       {b.Hint, want.Hint},
		"confidence": {b.Confidence, want.Confidence},
	} {
		if math.Abs(pair[0]-pair[1]) > 1e-12 {
			t.Errorf("%s = %v, want %v", name, pair[0], pair[1])
		}
	}
	wantComposite := 0.45 + 0.18*0.5 + 0.12*0.5 + 0.10*0.5
	if math.Abs(b.Composite()-wantComposite) > 1e-12 {
		t.Errorf("composite = %v, want %v", b.Composite(), wantComposite)
	}
}

func TestScore_InvalidInput(t *testing.T) {
	ok := Signals{Correct: true, TimeTakenSecs: 10, Confidence: 3}
	tests := []struct {
		name  string
		mod   func(s *Signals)
		avg   float64
		field string
	}{
		{"zero time", func(s *Signals) { s.TimeTakenSecs = 0 }, avg, "time_taken"},
		{"negative time", func(s *Signals) { s.TimeTakenSecs = -3 }, avg, "time_taken"},
		{"nan time", func(s *Signals) { s.TimeTakenSecs = math.NaN() }, avg, "time_taken"},
		{"negative retries", func(s *Signals) { s.Retries = -1 }, avg, "retries"},
		{"confidence zero", func(s *Signals) { s.Confidence = 0 }, avg, "confidence"},
		{"confidence six", func(s *Signals) { s.Confidence = 6 }, avg, "confidence"},
		{"zero avg", func(*Signals) {}, 0, ""},
		{"negative avg", func(*Signals) {}, -90, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ok
			tt.mod(&s)
			_, err := Score(s, tt.avg)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.field == "" {
				if !errors.Is(err, ErrInvalidAvgTime) {
					t.Errorf("got %v, want ErrInvalidAvgTime", err)
				}
				return
			}
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("got %T, want *FieldError", err)
			}
			if fe.Field != tt.field {
				t.Errorf("field = %q, want %q", fe.Field, tt.field)
			}
		})
	}
}
