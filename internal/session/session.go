// Package session tracks each learner's active practice session: its ID,
// per-concept results and the consecutive-incorrect streak used to decide
// when an attempt warrants diagnosis.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTimeout ends a session after this long without an attempt.
const DefaultIdleTimeout = 30 * time.Minute

// Session is one learner's active practice session.
type Session struct {
	ID             string
	LearnerID      string
	StartedAt      time.Time
	LastActivity   time.Time
	TotalAttempts  int
	TotalCorrect   int
	PerConcept     map[string]*ConceptResult
	conceptsInPlay []string // first-seen order, for summaries
}

// Outcome reports the session state after recording an attempt.
type Outcome struct {
	SessionID string

	// IncorrectStreak is the number of consecutive incorrect attempts on the
	// concept, including the one just recorded.
	IncorrectStreak int

	// Started is true when this attempt opened a new session.
	Started bool

	// StartedAt is when the session began.
	StartedAt time.Time

	// Ended summarizes the learner's previous session when opening this one
	// closed it, either because it went idle or because a different session
	// ID was given.
	Ended *Summary
}

// Tracker holds the active session of every learner. Safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idle     time.Duration
	now      func() time.Time
}

// NewTracker creates a tracker. idle <= 0 means DefaultIdleTimeout.
func NewTracker(idle time.Duration) *Tracker {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Tracker{
		sessions: make(map[string]*Session),
		idle:     idle,
		now:      time.Now,
	}
}

// Record adds an attempt on conceptID to the learner's active session,
// starting a new session if none is active or the last one went idle.
// sessionID, when non-empty, names the session the caller believes is
// active; a different ID starts a fresh session under that ID.
func (t *Tracker) Record(learnerID, sessionID, conceptID string, correct bool) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	s, started, ended := t.current(learnerID, sessionID, now)
	s.LastActivity = now
	s.TotalAttempts++
	if correct {
		s.TotalCorrect++
	}

	cr, ok := s.PerConcept[conceptID]
	if !ok {
		cr = &ConceptResult{ConceptID: conceptID}
		s.PerConcept[conceptID] = cr
		s.conceptsInPlay = append(s.conceptsInPlay, conceptID)
	}
	cr.Record(correct)

	return Outcome{SessionID: s.ID, IncorrectStreak: cr.IncorrectStreak, Started: started, StartedAt: s.StartedAt, Ended: ended}
}

// Begin resolves the learner's active session without recording an
// attempt, opening a new one under the same rules as Record. Passing the
// returned ID to Record then counts the attempt in that session.
func (t *Tracker) Begin(learnerID, sessionID string) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	s, started, ended := t.current(learnerID, sessionID, now)
	s.LastActivity = now
	return Outcome{SessionID: s.ID, Started: started, StartedAt: s.StartedAt, Ended: ended}
}

// Active returns a copy of the learner's active session, or nil.
func (t *Tracker) Active(learnerID string) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[learnerID]
	if !ok || t.expired(s, t.now()) {
		return nil
	}
	return s.clone()
}

// End closes the learner's session and returns its summary, or nil when
// no session was active.
func (t *Tracker) End(learnerID string) *Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[learnerID]
	if !ok {
		return nil
	}
	delete(t.sessions, learnerID)
	return BuildSummary(s, t.now())
}

func (t *Tracker) current(learnerID, sessionID string, now time.Time) (*Session, bool, *Summary) {
	s, ok := t.sessions[learnerID]
	if ok && !t.expired(s, now) && (sessionID == "" || sessionID == s.ID) {
		return s, false, nil
	}

	var ended *Summary
	if ok {
		endedAt := now
		if t.expired(s, now) {
			endedAt = s.LastActivity
		}
		ended = BuildSummary(s, endedAt)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	s = &Session{
		ID:           sessionID,
		LearnerID:    learnerID,
		StartedAt:    now,
		LastActivity: now,
		PerConcept:   make(map[string]*ConceptResult),
	}
	t.sessions[learnerID] = s
	return s, true, ended
}

func (t *Tracker) expired(s *Session, now time.Time) bool {
	return now.Sub(s.LastActivity) > t.idle
}

func (s *Session) clone() *Session {
	cp := *s
	cp.PerConcept = make(map[string]*ConceptResult, len(s.PerConcept))
	for id, cr := range s.PerConcept {
		c := *cr
		cp.PerConcept[id] = &c
	}
	cp.conceptsInPlay = append([]string(nil), s.conceptsInPlay...)
	return &cp
}
