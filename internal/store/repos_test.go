package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/lessons"
	"github.com/abhisek/cognify/internal/llm"
	"github.com/abhisek/cognify/internal/mastery"
	"github.com/abhisek/cognify/internal/memory"
	"github.com/abhisek/cognify/internal/remediation"
)

func TestSkillRepoLazyDefault(t *testing.T) {
	repo := openTestStore(t).Skills()
	ctx := context.Background()

	r, err := repo.Get(ctx, "learner-1", "limits")
	require.NoError(t, err)
	assert.Equal(t, mastery.DefaultRating, r.Rating)

	// Reading must not create a row.
	all, err := repo.List(ctx, "learner-1")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSkillRepoRoundTrip(t *testing.T) {
	repo := openTestStore(t).Skills()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	const v = 1184.3051234567891
	require.NoError(t, repo.Put(ctx, mastery.Rating{LearnerID: "l", ConceptID: "chain_rule", Rating: v, UpdatedAt: now}))
	require.NoError(t, repo.Put(ctx, mastery.Rating{LearnerID: "l", ConceptID: "limits", Rating: 950, UpdatedAt: now}))
	require.NoError(t, repo.Put(ctx, mastery.Rating{LearnerID: "l", ConceptID: "derivatives", Rating: 950, UpdatedAt: now}))

	got, err := repo.Get(ctx, "l", "chain_rule")
	require.NoError(t, err)
	assert.InDelta(t, v, got.Rating, 1e-9)
	assert.True(t, got.UpdatedAt.Equal(now))

	// Upsert replaces.
	require.NoError(t, repo.Put(ctx, mastery.Rating{LearnerID: "l", ConceptID: "chain_rule", Rating: 1190, UpdatedAt: now}))

	all, err := repo.List(ctx, "l")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "derivatives", all[0].ConceptID)
	assert.Equal(t, "limits", all[1].ConceptID)
	assert.Equal(t, 1190.0, all[2].Rating)
}

func TestSkillRepoWithUpdater(t *testing.T) {
	repo := openTestStore(t).Skills()
	u := mastery.NewUpdater(repo)

	ch, err := u.Apply(context.Background(), "l", "integration_by_parts", 0, 2)
	require.NoError(t, err)
	assert.InDelta(t, 995.195, ch.New, 0.001)

	got, err := repo.Get(context.Background(), "l", "integration_by_parts")
	require.NoError(t, err)
	assert.InDelta(t, ch.New, got.Rating, 1e-9)
}

func sampleAttempt(id, learner string, tier int, secs, composite float64) *AttemptRecord {
	return &AttemptRecord{
		ID:             id,
		LearnerID:      learner,
		SessionID:      "s-1",
		ConceptIDs:     []string{"integration_by_parts", "product_rule"},
		Correct:        composite > 0.5,
		TimeTakenSecs:  secs,
		Retries:        1,
		HintUsed:       true,
		Confidence:     3,
		DifficultyTier: tier,
		Composite:      composite,
		ErrorCategory:  "knowledge-gap",
		CreatedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestAttemptRepo(t *testing.T) {
	repo := openTestStore(t).Attempts()
	ctx := context.Background()

	avg, n, err := repo.AvgTimeForTier(ctx, "l1", "integration_by_parts", 3)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, avg)

	require.NoError(t, repo.Insert(ctx, sampleAttempt("a1", "l1", 3, 60, 0.2)))
	require.NoError(t, repo.Insert(ctx, sampleAttempt("a2", "l1", 3, 120, 0.6)))
	require.NoError(t, repo.Insert(ctx, sampleAttempt("a3", "l2", 2, 30, 0.9)))
	require.NoError(t, repo.Insert(ctx, sampleAttempt("a4", "l2", 3, 900, 0.1)))

	avg, n, err = repo.AvgTimeForTier(ctx, "l1", "integration_by_parts", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 90.0, avg, 1e-9)

	// Secondary concepts do not count towards a concept's history.
	_, n, err = repo.AvgTimeForTier(ctx, "l1", "product_rule", 3)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, n, err = repo.AvgTimeForTier(ctx, "l2", "integration_by_parts", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recent, err := repo.Recent(ctx, "l1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "a2", recent[0].ID)
	assert.Equal(t, []string{"integration_by_parts", "product_rule"}, recent[1].ConceptIDs)
	assert.Equal(t, "integration_by_parts", recent[1].PrimaryConcept())
	assert.True(t, recent[1].HintUsed)
	assert.Greater(t, recent[0].Sequence, recent[1].Sequence)

	ready, count, err := repo.Readiness(ctx, "l1", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.InDelta(t, 0.4, ready, 1e-9)
}

func TestAttemptRepoRejectsDuplicateID(t *testing.T) {
	repo := openTestStore(t).Attempts()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, sampleAttempt("a1", "l1", 3, 60, 0.2)))
	assert.Error(t, repo.Insert(ctx, sampleAttempt("a1", "l1", 3, 60, 0.2)))
}

func TestConceptRepoRoundTrip(t *testing.T) {
	repo := openTestStore(t).Concepts()
	ctx := context.Background()

	empty, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty)

	g, err := conceptgraph.Default()
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, g))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, g.Concepts(), loaded.Concepts())
	assert.Equal(t, g.Edges(), loaded.Edges())

	// Saving an upserted graph replaces edges.
	next, err := loaded.Upsert(
		[]conceptgraph.Concept{{ID: "taylor_series", Name: "Taylor Series"}},
		[]conceptgraph.Edge{{ConceptID: "taylor_series", PrereqID: "chain_rule"}},
	)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, next))

	loaded, err = repo.Load(ctx)
	require.NoError(t, err)
	prereqs, err := loaded.Prerequisites("taylor_series")
	require.NoError(t, err)
	assert.Equal(t, []string{"chain_rule"}, prereqs)
	assert.Equal(t, next.Len(), loaded.Len())
}

func TestEpisodeRepo(t *testing.T) {
	repo := openTestStore(t).Episodes()
	ctx := context.Background()
	opened := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	none, err := repo.LatestEpisode(ctx, "l1", "product_rule")
	require.NoError(t, err)
	assert.Nil(t, none)

	ep := &remediation.Episode{
		ID:               "e1",
		LearnerID:        "l1",
		WeakConceptID:    "product_rule",
		TriggerConceptID: "integration_by_parts",
		SessionID:        "s1",
		Status:           remediation.StatusInProgress,
		Lesson: &lessons.Lesson{
			ConceptID:   "product_rule",
			Title:       "Product Rule",
			GuidedItems: []lessons.GuidedItem{{Prompt: "d/dx x sin x", Answer: "sin x + x cos x", DifficultyTier: 2}},
		},
		OpenedAt:  opened,
		UpdatedAt: opened,
	}
	require.NoError(t, repo.SaveEpisode(ctx, ep))

	got, err := repo.LatestEpisode(ctx, "l1", "product_rule")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, remediation.StatusInProgress, got.Status)
	assert.Equal(t, "s1", got.SessionID)
	require.NotNil(t, got.Lesson)
	assert.Equal(t, "sin x + x cos x", got.Lesson.GuidedItems[0].Answer)
	assert.Nil(t, got.ClosedAt)

	open, err := repo.OpenEpisodes(ctx, "l1")
	require.NoError(t, err)
	assert.Len(t, open, 1)

	rating := 1003.5
	closed := opened.Add(time.Minute)
	ep.Status = remediation.StatusResolved
	ep.GuidedAttempts = 1
	ep.ResolvedRating = &rating
	ep.ClosedAt = &closed
	require.NoError(t, repo.SaveEpisode(ctx, ep))

	got, err = repo.LatestEpisode(ctx, "l1", "product_rule")
	require.NoError(t, err)
	assert.Equal(t, remediation.StatusResolved, got.Status)
	require.NotNil(t, got.ResolvedRating)
	assert.Equal(t, rating, *got.ResolvedRating)
	require.NotNil(t, got.ClosedAt)
	assert.True(t, got.ClosedAt.Equal(closed))

	open, err = repo.OpenEpisodes(ctx, "l1")
	require.NoError(t, err)
	assert.Empty(t, open)

	later := &remediation.Episode{
		ID: "e2", LearnerID: "l1", WeakConceptID: "product_rule", Status: remediation.StatusTriggered,
		OpenedAt: opened.Add(time.Hour), UpdatedAt: opened.Add(time.Hour),
	}
	require.NoError(t, repo.SaveEpisode(ctx, later))
	got, err = repo.LatestEpisode(ctx, "l1", "product_rule")
	require.NoError(t, err)
	assert.Equal(t, "e2", got.ID)

	history, err := repo.History(ctx, "l1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestEpisodeRepoTransitions(t *testing.T) {
	repo := openTestStore(t).Episodes()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	steps := []remediation.Transition{
		{EpisodeID: "e1", LearnerID: "l1", ConceptID: "product_rule", From: remediation.StatusNotTriggered, To: remediation.StatusTriggered, Trigger: remediation.TriggerDiagnosis, At: at},
		{EpisodeID: "e1", LearnerID: "l1", ConceptID: "product_rule", From: remediation.StatusTriggered, To: remediation.StatusInProgress, Trigger: remediation.TriggerContentReady, At: at},
	}
	for _, s := range steps {
		require.NoError(t, repo.RecordTransition(ctx, s))
	}

	got, err := repo.Transitions(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, remediation.StatusInProgress, got[1].To)
	assert.Equal(t, remediation.TriggerContentReady, got[1].Trigger)
}

func TestOrchestratorOnSQLite(t *testing.T) {
	s := openTestStore(t)
	gen := lessons.NewGenerator(llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{
		"title": "Product Rule",
		"explanation": "d(uv) = u'v + uv'",
		"worked_example": "d/dx x e^x = e^x + x e^x",
		"guided_items": [
			{"prompt": "d/dx x sin x", "answer": "sin x + x cos x", "hint": "u = x", "difficulty_tier": 2},
			{"prompt": "d/dx x^2 ln x", "answer": "2x ln x + x", "hint": "u = x^2", "difficulty_tier": 3}
		]}`)}), lessons.DefaultConfig())
	o := remediation.NewOrchestrator(s.Episodes(), gen, nil, remediation.DefaultConfig(), nil)
	ctx := context.Background()

	d, err := o.Evaluate(ctx, remediation.Request{
		LearnerID:      "l1",
		TriggerConcept: conceptgraph.Concept{ID: "integration_by_parts"},
		WeakConcept:    conceptgraph.Concept{ID: "product_rule"},
		WeakRating:     960,
	})
	require.NoError(t, err)
	assert.Equal(t, remediation.StatusInProgress, d.Status)

	ep, err := o.RecordGuidedAttempt(ctx, "l1", "product_rule", 1010)
	require.NoError(t, err)
	assert.Equal(t, remediation.StatusResolved, ep.Status)

	trs, err := s.Episodes().Transitions(ctx, d.EpisodeID)
	require.NoError(t, err)
	require.Len(t, trs, 3)
	assert.Equal(t, remediation.StatusResolved, trs[2].To)
}

func TestNoteRepo(t *testing.T) {
	repo := openTestStore(t).Notes()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, c := range []string{"limits", "chain_rule", "product_rule"} {
		require.NoError(t, repo.AppendNote(ctx, memory.Note{
			LearnerID: "l1", ConceptID: c, Text: "note " + c, Correct: i%2 == 0,
			Composite: 0.5, TimeRatio: 1.2, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	notes, err := repo.RecentNotes(ctx, "l1", 2)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "chain_rule", notes[0].ConceptID)
	assert.Equal(t, "product_rule", notes[1].ConceptID)
	assert.True(t, notes[1].Correct)

	svc := memory.NewService(repo, nil, memory.DefaultWindow)
	p, err := svc.Profile(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Observations)
}

func TestLLMEvents(t *testing.T) {
	repo := openTestStore(t).Events()
	ctx := context.Background()

	events := []llm.RequestEvent{
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "remediation-lesson", LearnerID: "l1", InputTokens: 100, OutputTokens: 50, LatencyMs: 200, Success: true, RequestBody: "{}", ResponseBody: "{}"},
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "learner-summary", InputTokens: 40, OutputTokens: 10, LatencyMs: 100, Success: true},
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "remediation-lesson", Success: false, ErrorMessage: "rate limited"},
	}
	for _, ev := range events {
		require.NoError(t, repo.RecordLLMRequest(ctx, ev))
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "rate limited", all[0].ErrorMessage)
	assert.False(t, all[0].Success)

	lessonsOnly, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "remediation-lesson", Limit: 1})
	require.NoError(t, err)
	require.Len(t, lessonsOnly, 1)

	e, err := repo.GetLLMEvent(ctx, all[2].ID)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "l1", e.LearnerID)
	assert.Equal(t, "{}", e.RequestBody)

	missing, err := repo.GetLLMEvent(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, "remediation-lesson", byPurpose[0].Key)
	assert.Equal(t, 2, byPurpose[0].Calls)
	assert.Equal(t, 100, byPurpose[0].InputTokens)

	byModel, err := repo.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 1)
	assert.Equal(t, 3, byModel[0].Calls)
}

func TestLLMUsageByLearner(t *testing.T) {
	repo := openTestStore(t).Events()
	ctx := context.Background()

	events := []llm.RequestEvent{
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "remediation-lesson", LearnerID: "alice", InputTokens: 100, OutputTokens: 50, Success: true},
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "remediation-lesson", LearnerID: "alice", InputTokens: 120, OutputTokens: 60, Success: true},
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "remediation-lesson", LearnerID: "alice", Success: false, ErrorMessage: "timeout"},
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "learner-summary", LearnerID: "alice", InputTokens: 30, OutputTokens: 10, Success: true},
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "remediation-lesson", LearnerID: "bob", InputTokens: 80, OutputTokens: 40, Success: true},
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "startup-check", InputTokens: 5, OutputTokens: 1, Success: true},
	}
	for _, ev := range events {
		require.NoError(t, repo.RecordLLMRequest(ctx, ev))
	}

	all, err := repo.LLMUsageByLearner(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	assert.Equal(t, "alice", all[0].LearnerID)
	assert.Equal(t, "learner-summary", all[0].Purpose)
	assert.Equal(t, 1, all[0].Calls)

	lesson := all[1]
	assert.Equal(t, "alice", lesson.LearnerID)
	assert.Equal(t, "remediation-lesson", lesson.Purpose)
	assert.Equal(t, 3, lesson.Calls)
	assert.Equal(t, 1, lesson.Failed)
	assert.Equal(t, 220, lesson.InputTokens)
	assert.Equal(t, 110, lesson.OutputTokens)

	assert.Equal(t, "bob", all[2].LearnerID)
	assert.Equal(t, "gpt-4o-mini", all[2].Model)

	bob, err := repo.LLMUsageByLearner(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bob, 1)
	assert.Equal(t, 80, bob[0].InputTokens)
	assert.Equal(t, 0, bob[0].Failed)

	none, err := repo.LLMUsageByLearner(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAuditRecordsIntoStore(t *testing.T) {
	repo := openTestStore(t).Events()
	mock := llm.NewMockProvider(llm.MockResponse{Err: errors.New("boom")})
	p := llm.WithAudit(mock, "mock", repo, nil)

	ctx := llm.WithPurpose(context.Background(), "remediation-lesson")
	_, err := p.Generate(ctx, llm.Request{Messages: llm.UserMessage("hi")})
	require.Error(t, err)

	all, err := repo.QueryLLMEvents(context.Background(), QueryOpts{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "remediation-lesson", all[0].Purpose)
	assert.False(t, all[0].Success)
}

func TestDiagnosisEvents(t *testing.T) {
	repo := openTestStore(t).Events()
	ctx := context.Background()

	require.NoError(t, repo.AppendDiagnosis(ctx, DiagnosisEventData{
		AttemptID: "a1", LearnerID: "l1", TriggerConceptID: "integration_by_parts",
		WeakConceptID: "product_rule", WeakRating: 960, Depth: 1, ErrorCategory: "knowledge-gap",
	}))
	require.NoError(t, repo.AppendDiagnosis(ctx, DiagnosisEventData{
		AttemptID: "a2", LearnerID: "l1", TriggerConceptID: "integration_by_parts",
	}))

	n, err := repo.CountDiagnoses(ctx, "l1", "product_rule")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
