package remediation

import (
	"context"
	"sort"
	"sync"
)

// EpisodeStore persists episodes and their transition history.
type EpisodeStore interface {
	// LatestEpisode returns the most recently opened episode for the pair, or nil.
	LatestEpisode(ctx context.Context, learnerID, conceptID string) (*Episode, error)

	// OpenEpisodes lists the learner's open episodes, oldest first.
	OpenEpisodes(ctx context.Context, learnerID string) ([]Episode, error)

	// SaveEpisode inserts or replaces an episode by ID.
	SaveEpisode(ctx context.Context, ep *Episode) error

	RecordTransition(ctx context.Context, t Transition) error
}

// MemoryStore is an in-process EpisodeStore.
type MemoryStore struct {
	mu          sync.Mutex
	episodes    map[string]Episode
	transitions []Transition
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{episodes: make(map[string]Episode)}
}

func (m *MemoryStore) LatestEpisode(_ context.Context, learnerID, conceptID string) (*Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *Episode
	for _, ep := range m.episodes {
		if ep.LearnerID != learnerID || ep.WeakConceptID != conceptID {
			continue
		}
		if latest == nil || ep.OpenedAt.After(latest.OpenedAt) {
			cp := ep
			latest = &cp
		}
	}
	return latest, nil
}

func (m *MemoryStore) OpenEpisodes(_ context.Context, learnerID string) ([]Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Episode
	for _, ep := range m.episodes {
		if ep.LearnerID == learnerID && ep.Open() {
			out = append(out, ep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, nil
}

func (m *MemoryStore) SaveEpisode(_ context.Context, ep *Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodes[ep.ID] = *ep
	return nil
}

func (m *MemoryStore) RecordTransition(_ context.Context, t Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, t)
	return nil
}

// Transitions returns every recorded transition in order.
func (m *MemoryStore) Transitions() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transition, len(m.transitions))
	copy(out, m.transitions)
	return out
}
