package mastery

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Rating is the current skill estimate of one learner on one concept.
type Rating struct {
	LearnerID string    `json:"learner_id"`
	ConceptID string    `json:"concept_id"`
	Rating    float64   `json:"rating"`
	UpdatedAt time.Time `json:"last_updated"`
}

// Ledger stores skill ratings. Get never fails for an unseen pair; it returns
// DefaultRating without writing it. Put is the only write path.
type Ledger interface {
	Get(ctx context.Context, learnerID, conceptID string) (Rating, error)
	Put(ctx context.Context, r Rating) error
	List(ctx context.Context, learnerID string) ([]Rating, error)
}

// SortRatings orders ratings weakest first, then by concept ID.
func SortRatings(rs []Rating) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Rating != rs[j].Rating {
			return rs[i].Rating < rs[j].Rating
		}
		return rs[i].ConceptID < rs[j].ConceptID
	})
}

type ledgerKey struct {
	learner string
	concept string
}

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu      sync.RWMutex
	ratings map[ledgerKey]Rating
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{ratings: make(map[ledgerKey]Rating)}
}

func (l *MemoryLedger) Get(_ context.Context, learnerID, conceptID string) (Rating, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if r, ok := l.ratings[ledgerKey{learnerID, conceptID}]; ok {
		return r, nil
	}
	return Rating{LearnerID: learnerID, ConceptID: conceptID, Rating: DefaultRating}, nil
}

func (l *MemoryLedger) Put(_ context.Context, r Rating) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ratings[ledgerKey{r.LearnerID, r.ConceptID}] = r
	return nil
}

func (l *MemoryLedger) List(_ context.Context, learnerID string) ([]Rating, error) {
	l.mu.RLock()
	var out []Rating
	for k, r := range l.ratings {
		if k.learner == learnerID {
			out = append(out, r)
		}
	}
	l.mu.RUnlock()
	SortRatings(out)
	return out, nil
}
