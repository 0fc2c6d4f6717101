package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/engine"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	eng   *engine.Engine
	store Pinger
	log   *zap.Logger
}

func NewHandler(eng *engine.Engine, store Pinger, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{eng: eng, store: store, log: log.Named("http")}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, code, public := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	respondError(c, status, code, public)
}

// POST /v1/attempts
func (h *Handler) SubmitAttempt(c *gin.Context) {
	var in engine.AttemptInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	res, err := h.eng.Submit(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /v1/learners/:id/skills
func (h *Handler) Skills(c *gin.Context) {
	learner := c.Param("id")
	skills, err := h.eng.Skills(c.Request.Context(), learner)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"learner_id": learner, "skills": skills})
}

// GET /v1/learners/:id/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.eng.Dashboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// POST /v1/learners/:id/session/end
func (h *Handler) EndSession(c *gin.Context) {
	out, err := h.eng.EndSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type graphBody struct {
	Concepts []conceptgraph.Concept `json:"concepts"`
	Edges    []conceptgraph.Edge    `json:"edges"`
}

func graphResponse(g *conceptgraph.Graph) graphBody {
	out := graphBody{Concepts: g.Concepts(), Edges: g.Edges()}
	if out.Edges == nil {
		out.Edges = []conceptgraph.Edge{}
	}
	return out
}

// GET /v1/concepts
func (h *Handler) Concepts(c *gin.Context) {
	c.JSON(http.StatusOK, graphResponse(h.eng.Graph()))
}

// PUT /v1/concepts
// Upserts concepts and replaces the prerequisite lists of every concept
// named in edges.
func (h *Handler) LoadConcepts(c *gin.Context) {
	var body graphBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	g, err := h.eng.LoadGraph(c.Request.Context(), body.Concepts, body.Edges)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, graphResponse(g))
}

// GET /v1/concepts/:id/prerequisites
func (h *Handler) Prerequisites(c *gin.Context) {
	g := h.eng.Graph()
	id := c.Param("id")
	prereqs, err := g.Prerequisites(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	dependents, err := g.Dependents(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"concept_id": id, "prerequisites": prereqs, "dependents": dependents})
}

// GET /healthz
func (h *Handler) Health(c *gin.Context) {
	if h.store != nil {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			respondError(c, http.StatusServiceUnavailable, CodeUnavailable, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
