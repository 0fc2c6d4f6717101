package conceptgraph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownConcept is returned when a query or edge references a concept
	// that is not part of the graph.
	ErrUnknownConcept = errors.New("unknown concept")

	// ErrCycle is returned when prerequisite edges form a cycle.
	ErrCycle = errors.New("prerequisite cycle")
)

// ValidationError collects every structural problem found in a graph.
// Matches ErrCycle and ErrUnknownConcept via errors.Is when applicable.
type ValidationError struct {
	Problems []string

	// Cycle lists the concepts left unresolved by the topological sort.
	Cycle []string

	// Unknown lists concept IDs referenced but never declared.
	Unknown []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("concept graph validation failed:\n  %s", strings.Join(e.Problems, "\n  "))
}

func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrCycle:
		return len(e.Cycle) > 0
	case ErrUnknownConcept:
		return len(e.Unknown) > 0
	}
	return false
}

func (e *ValidationError) empty() bool {
	return len(e.Problems) == 0
}

func (e *ValidationError) addf(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func unknownConcept(id string) error {
	return fmt.Errorf("%w: %q", ErrUnknownConcept, id)
}
