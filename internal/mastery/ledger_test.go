package mastery

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"
)

func TestMemoryLedger_LazyDefault(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	r, err := l.Get(ctx, "alice", "limits")
	if err != nil {
		t.Fatal(err)
	}
	if r.Rating != DefaultRating {
		t.Errorf("rating = %v, want %v", r.Rating, DefaultRating)
	}

	// Reading must not create a row.
	list, _ := l.List(ctx, "alice")
	if len(list) != 0 {
		t.Errorf("List after Get = %d rows, want 0", len(list))
	}
}

func TestMemoryLedger_ListOrder(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	for _, r := range []Rating{
		{LearnerID: "a", ConceptID: "c", Rating: 1100},
		{LearnerID: "a", ConceptID: "b", Rating: 950},
		{LearnerID: "a", ConceptID: "a", Rating: 1100},
		{LearnerID: "other", ConceptID: "z", Rating: 10},
	} {
		if err := l.Put(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, _ := l.List(ctx, "a")
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ConceptID != id {
			t.Errorf("row %d = %q, want %q", i, got[i].ConceptID, id)
		}
	}
}

func TestUpdater_RoundTrip(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	u := NewUpdater(l)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	u.now = func() time.Time { return fixed }

	ch, err := u.Apply(ctx, "alice", "product_rule", 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if ch.Old != DefaultRating {
		t.Errorf("old = %v, want default", ch.Old)
	}
	if math.Abs(ch.Delta-(ch.New-ch.Old)) > 1e-12 {
		t.Errorf("delta %v inconsistent with %v -> %v", ch.Delta, ch.Old, ch.New)
	}

	r, _ := l.Get(ctx, "alice", "product_rule")
	if math.Abs(r.Rating-ch.New) > 1e-9 {
		t.Errorf("stored %v, returned %v", r.Rating, ch.New)
	}
	if !r.UpdatedAt.Equal(fixed) {
		t.Errorf("updated_at = %v, want %v", r.UpdatedAt, fixed)
	}
}

func TestUpdater_RejectsBeforeWrite(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	u := NewUpdater(l)

	if _, err := u.Apply(ctx, "alice", "limits", 0.5, 9); err == nil {
		t.Fatal("expected tier error")
	}
	if list, _ := l.List(ctx, "alice"); len(list) != 0 {
		t.Errorf("invalid update wrote %d rows", len(list))
	}
}

func TestMemoryLedger_Concurrent(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = l.Put(ctx, Rating{LearnerID: "a", ConceptID: string(rune('a' + i)), Rating: float64(i)})
			_, _ = l.List(ctx, "a")
		}(i)
	}
	wg.Wait()
	list, _ := l.List(ctx, "a")
	if len(list) != 16 {
		t.Errorf("got %d rows, want 16", len(list))
	}
}
