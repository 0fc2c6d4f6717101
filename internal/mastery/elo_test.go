package mastery

import (
	"math"
	"testing"
)

func TestItemRating(t *testing.T) {
	want := map[int]float64{1: 1000, 2: 1200, 3: 1400, 4: 1600, 5: 1800}
	for tier, w := range want {
		if got := ItemRating(tier); got != w {
			t.Errorf("ItemRating(%d) = %v, want %v", tier, got, w)
		}
	}
}

func TestExpected_EvenMatch(t *testing.T) {
	if got := Expected(1400, 3); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Expected(1400, 3) = %v, want 0.5", got)
	}
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name      string
		old       float64
		composite float64
		tier      int
		want      float64
	}{
		// 200 points below the item: expected ~0.2403.
		{"wrong answer one tier above", 1000, 0, 2, 995.195},
		{"wrong answer two tiers above", 1000, 0, 3, 998.182},
		// 180 points above the item: expected ~0.7381.
		{"perfect answer below rating", 1180, 1, 1, 1185.238},
		{"even match half credit", 1000, 0.5, 1, 1000},
		{"even match full credit", 1000, 1, 1, 1010},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Update(tt.old, tt.composite, tt.tier)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("Update(%v, %v, %d) = %.4f, want %.3f", tt.old, tt.composite, tt.tier, got, tt.want)
			}
		})
	}
}

func TestUpdate_NearPerfectAttempt(t *testing.T) {
	composite, err := Score(Signals{Correct: true, TimeTakenSecs: 1, Confidence: 5}, 90)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Update(1180, composite, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got <= 1180 || got > 1185.24 {
		t.Errorf("rating = %v, want a gain just under the perfect-score gain", got)
	}
}

func TestUpdate_Deterministic(t *testing.T) {
	for tier := MinTier; tier <= MaxTier; tier++ {
		a, _ := Update(1234.5, 0.37, tier)
		b, _ := Update(1234.5, 0.37, tier)
		if a != b {
			t.Errorf("tier %d: %v != %v", tier, a, b)
		}
	}
}

func TestUpdate_DeltaBoundedByK(t *testing.T) {
	for _, old := range []float64{200, 1000, 1800, 3000} {
		for _, c := range []float64{0, 0.5, 1} {
			for tier := MinTier; tier <= MaxTier; tier++ {
				got, _ := Update(old, c, tier)
				if math.Abs(got-old) > KFactor {
					t.Errorf("Update(%v, %v, %d) moved %v, more than K", old, c, tier, got-old)
				}
			}
		}
	}
}

func TestUpdate_Invalid(t *testing.T) {
	if _, err := Update(1000, 0.5, 0); err == nil {
		t.Error("tier 0 accepted")
	}
	if _, err := Update(1000, 0.5, 6); err == nil {
		t.Error("tier 6 accepted")
	}
	if _, err := Update(1000, 1.01, 1); err == nil {
		t.Error("composite > 1 accepted")
	}
	if _, err := Update(1000, -0.01, 1); err == nil {
		t.Error("composite < 0 accepted")
	}
	if _, err := Update(math.NaN(), 0.5, 1); err == nil {
		t.Error("NaN rating accepted")
	}
}

func TestThresholdRating(t *testing.T) {
	if got := ThresholdRating(0.5, 1); math.Abs(got-1000) > 1e-9 {
		t.Errorf("ThresholdRating(0.5, 1) = %v, want 1000", got)
	}
	if got := ThresholdRating(0.5, 3); math.Abs(got-1400) > 1e-9 {
		t.Errorf("ThresholdRating(0.5, 3) = %v, want 1400", got)
	}
	// Round trip: expected composite at the threshold rating equals the threshold.
	for _, p := range []float64{0.2, 0.5, 0.8} {
		r := ThresholdRating(p, 2)
		if got := Expected(r, 2); math.Abs(got-p) > 1e-9 {
			t.Errorf("Expected(ThresholdRating(%v)) = %v", p, got)
		}
	}
}
