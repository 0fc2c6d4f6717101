package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/engine"
)

// Error codes carried in ErrorEnvelope.
const (
	CodeInvalidAttempt = "invalid_attempt"
	CodeBadRequest     = "bad_request"
	CodeUnknownConcept = "unknown_concept"
	CodeCycle          = "prerequisite_cycle"
	CodeInternal       = "internal"
	CodeUnavailable    = "unavailable"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// classify maps engine errors onto an HTTP status and error code. Errors
// that are not the caller's fault are reported without their detail.
func classify(err error) (int, string, error) {
	switch {
	case errors.Is(err, engine.ErrInvalidAttempt):
		return http.StatusBadRequest, CodeInvalidAttempt, err
	case errors.Is(err, conceptgraph.ErrCycle):
		return http.StatusConflict, CodeCycle, err
	case errors.Is(err, conceptgraph.ErrUnknownConcept):
		return http.StatusNotFound, CodeUnknownConcept, err
	}
	return http.StatusInternalServerError, CodeInternal, errors.New("internal error")
}
