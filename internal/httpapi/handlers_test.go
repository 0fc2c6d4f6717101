package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/engine"
	"github.com/abhisek/cognify/internal/metrics"
	"github.com/abhisek/cognify/internal/store"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := store.Open("file:httpapi_" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	g, err := conceptgraph.Default()
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	met := metrics.New()
	eng, err := engine.New(engine.Deps{
		Graphs:     conceptgraph.NewHolder(g),
		Ledger:     st.Skills(),
		Attempts:   st.Attempts(),
		Times:      st.Attempts(),
		GraphStore: st.Concepts(),
		Events:     st.Events(),
		Metrics:    met,
		Logger:     log,
	}, engine.DefaultConfig())
	require.NoError(t, err)

	return NewRouter(RouterConfig{
		Handler: NewHandler(eng, st, log),
		Metrics: met,
		Logger:  log,
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func attempt(confidence int, concepts ...string) map[string]any {
	return map[string]any{
		"learner_id":      "l1",
		"concept_ids":     concepts,
		"correct":         true,
		"time_taken_secs": 45,
		"retries":         0,
		"hint_used":       false,
		"confidence":      confidence,
		"difficulty_tier": 2,
	}
}

func TestSubmitAttempt(t *testing.T) {
	h := testRouter(t)

	rr := do(t, h, http.MethodPost, "/v1/attempts", attempt(4, "chain_rule"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	res := decode[engine.Result](t, rr)
	assert.Equal(t, "chain_rule", res.ConceptID)
	assert.Equal(t, 1000.0, res.OldRating)
	assert.Greater(t, res.NewRating, res.OldRating)
	assert.InDelta(t, res.NewRating-res.OldRating, res.Delta, 1e-9)
	assert.NotEmpty(t, res.AttemptID)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	for _, key := range []string{"composite_score", "old_rating", "new_rating", "rating_delta"} {
		assert.Contains(t, raw, key)
	}
}

func TestSubmitAttemptErrors(t *testing.T) {
	h := testRouter(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"malformed json", `{"learner_id":`, http.StatusBadRequest, CodeBadRequest},
		{"confidence out of range", attempt(0, "chain_rule"), http.StatusBadRequest, CodeInvalidAttempt},
		{"no concepts", attempt(3), http.StatusBadRequest, CodeInvalidAttempt},
		{"unknown concept", attempt(3, "string_theory"), http.StatusNotFound, CodeUnknownConcept},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/v1/attempts", tt.body)
			require.Equal(t, tt.status, rr.Code, rr.Body.String())
			env := decode[ErrorEnvelope](t, rr)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.NotEmpty(t, env.Error.Message)
		})
	}
}

func TestSkillsAndDashboard(t *testing.T) {
	h := testRouter(t)

	rr := do(t, h, http.MethodGet, "/v1/learners/l1/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	empty := decode[engine.Dashboard](t, rr)
	assert.Equal(t, 0.5, empty.Readiness)

	rr = do(t, h, http.MethodPost, "/v1/attempts", attempt(5, "limits"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	res := decode[engine.Result](t, rr)

	rr = do(t, h, http.MethodGet, "/v1/learners/l1/skills", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var skills struct {
		LearnerID string `json:"learner_id"`
		Skills    []struct {
			ConceptID   string    `json:"concept_id"`
			Rating      float64   `json:"rating"`
			LastUpdated time.Time `json:"last_updated"`
		} `json:"skills"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &skills))
	assert.Equal(t, "l1", skills.LearnerID)
	require.Len(t, skills.Skills, 1)
	assert.Equal(t, "limits", skills.Skills[0].ConceptID)
	assert.InDelta(t, res.NewRating, skills.Skills[0].Rating, 1e-9)
	assert.False(t, skills.Skills[0].LastUpdated.IsZero())

	rr = do(t, h, http.MethodGet, "/v1/learners/l1/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	dash := decode[engine.Dashboard](t, rr)
	assert.InDelta(t, res.Composite, dash.Readiness, 1e-9)
	assert.Len(t, dash.RecentAttempts, 1)
}

func TestConcepts(t *testing.T) {
	h := testRouter(t)

	rr := do(t, h, http.MethodGet, "/v1/concepts", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	before := decode[graphBody](t, rr)
	require.NotEmpty(t, before.Concepts)

	rr = do(t, h, http.MethodPut, "/v1/concepts", graphBody{
		Concepts: []conceptgraph.Concept{{ID: "taylor_series", Name: "Taylor Series"}},
		Edges:    []conceptgraph.Edge{{ConceptID: "taylor_series", PrereqID: "chain_rule"}},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	after := decode[graphBody](t, rr)
	assert.Len(t, after.Concepts, len(before.Concepts)+1)

	rr = do(t, h, http.MethodGet, "/v1/concepts/taylor_series/prerequisites", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var pr struct {
		Prerequisites []string `json:"prerequisites"`
		Dependents    []string `json:"dependents"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pr))
	assert.Equal(t, []string{"chain_rule"}, pr.Prerequisites)
	assert.Empty(t, pr.Dependents)

	rr = do(t, h, http.MethodPut, "/v1/concepts", graphBody{
		Edges: []conceptgraph.Edge{{ConceptID: "chain_rule", PrereqID: "taylor_series"}},
	})
	require.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
	assert.Equal(t, CodeCycle, decode[ErrorEnvelope](t, rr).Error.Code)

	rr = do(t, h, http.MethodGet, "/v1/concepts/ghost/prerequisites", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, CodeUnknownConcept, decode[ErrorEnvelope](t, rr).Error.Code)
}

func TestEndSession(t *testing.T) {
	h := testRouter(t)

	rr := do(t, h, http.MethodPost, "/v1/attempts", attempt(3, "functions"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	res := decode[engine.Result](t, rr)

	rr = do(t, h, http.MethodPost, "/v1/learners/l1/session/end", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	end := decode[engine.SessionEnd](t, rr)
	require.NotNil(t, end.Summary)
	assert.Equal(t, res.SessionID, end.Summary.SessionID)
	assert.Equal(t, 1, end.Summary.TotalAttempts)
}

func TestHealthAndMetrics(t *testing.T) {
	h := testRouter(t)

	rr := do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodPost, "/v1/attempts", attempt(3, "functions"))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "cognify_attempts_total")
	assert.Contains(t, body, `cognify_http_requests_total{endpoint="/v1/attempts"`)
}
