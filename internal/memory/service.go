package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

const (
	// DefaultWindow is how many recent notes feed a profile.
	DefaultWindow = 20

	// slowRatio is the mean time ratio above which a learner is a slow solver.
	slowRatio = 1.25

	// weakMisses is how many incorrect notes on a concept mark it weak.
	weakMisses = 2
)

// NoteStore persists notes.
type NoteStore interface {
	AppendNote(ctx context.Context, n Note) error
	RecentNotes(ctx context.Context, learnerID string, limit int) ([]Note, error) // oldest first
}

// Summarizer condenses note texts into prose.
type Summarizer interface {
	Summarize(ctx context.Context, learnerID string, notes []string) (string, error)
}

// Service is the LearnerMemory backed by a NoteStore.
type Service struct {
	notes      NoteStore
	summarizer Summarizer
	window     int
}

// NewService creates a memory service. summarizer may be nil, in which case
// the summary is the latest note.
func NewService(notes NoteStore, summarizer Summarizer, window int) *Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{notes: notes, summarizer: summarizer, window: window}
}

func (s *Service) Record(ctx context.Context, n Note) error {
	if err := s.notes.AppendNote(ctx, n); err != nil {
		return fmt.Errorf("record note: %w", err)
	}
	return nil
}

func (s *Service) Profile(ctx context.Context, learnerID string) (Profile, error) {
	notes, err := s.notes.RecentNotes(ctx, learnerID, s.window)
	if err != nil {
		return Profile{}, fmt.Errorf("recent notes: %w", err)
	}
	p := Build(learnerID, notes)
	if len(notes) == 0 {
		return p, nil
	}

	if s.summarizer == nil {
		p.Summary = notes[len(notes)-1].Text
		return p, nil
	}
	texts := make([]string, len(notes))
	for i, n := range notes {
		texts[i] = n.Text
	}
	summary, err := s.summarizer.Summarize(ctx, learnerID, texts)
	if err != nil {
		// Rule-based fields are still useful without prose.
		p.Summary = notes[len(notes)-1].Text
		return p, nil
	}
	p.Summary = summary
	return p, nil
}

// Build derives the rule-based profile fields from notes.
func Build(learnerID string, notes []Note) Profile {
	p := Profile{LearnerID: learnerID, Observations: len(notes)}
	if len(notes) == 0 {
		return p
	}

	misses := make(map[string]int)
	var hints int
	var ratioSum float64
	var ratioN int
	for _, n := range notes {
		if !n.Correct {
			misses[n.ConceptID]++
		}
		if n.HintUsed {
			hints++
		}
		if n.TimeRatio > 0 {
			ratioSum += n.TimeRatio
			ratioN++
		}
	}
	for id, c := range misses {
		if c >= weakMisses {
			p.WeakConcepts = append(p.WeakConcepts, id)
		}
	}
	sort.Strings(p.WeakConcepts)
	p.HintDependency = float64(hints) / float64(len(notes))
	p.SlowSolver = ratioN > 0 && ratioSum/float64(ratioN) > slowRatio
	return p
}

// MemoryNotes is an in-process NoteStore.
type MemoryNotes struct {
	mu    sync.Mutex
	notes map[string][]Note
}

func NewMemoryNotes() *MemoryNotes {
	return &MemoryNotes{notes: make(map[string][]Note)}
}

func (m *MemoryNotes) AppendNote(_ context.Context, n Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[n.LearnerID] = append(m.notes[n.LearnerID], n)
	return nil
}

func (m *MemoryNotes) RecentNotes(_ context.Context, learnerID string, limit int) ([]Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.notes[learnerID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]Note, len(all))
	copy(out, all)
	return out, nil
}
