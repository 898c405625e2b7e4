// Package provider defines the uniform contract between the phase
// orchestration engine and the per-phase content generators, plus the
// built-in generator implementations.
//
// The orchestrator only ever sees the ContentProvider interface: given a
// workshop, an optional dependency task, and a phase context string, a
// provider either persists a new Task row and returns its validated payload,
// or returns a typed Error. Which concrete generator runs is decided by a
// lookup table keyed on task type.
package provider

import (
	"context"
	"fmt"
)

// ContentProvider generates the content for one phase type.
type ContentProvider interface {
	// TaskType returns the phase type this provider serves.
	TaskType() string

	// Generate creates and persists the Task row for the phase and
	// returns its payload. dependencyTaskID is the most recent upstream
	// Task the phase consumes, nil when the type has no runtime
	// dependency. Failures are *Error values.
	Generate(ctx context.Context, workshopID int64, dependencyTaskID *int64, phaseContext string) (Payload, error)
}

// Set is the lookup table of providers keyed by task type.
type Set struct {
	byType map[string]ContentProvider
}

// NewSet builds a provider set. Duplicate task types are a programming
// error.
func NewSet(providers ...ContentProvider) (*Set, error) {
	s := &Set{byType: make(map[string]ContentProvider, len(providers))}
	for _, p := range providers {
		if _, dup := s.byType[p.TaskType()]; dup {
			return nil, fmt.Errorf("duplicate provider for task type %q", p.TaskType())
		}
		s.byType[p.TaskType()] = p
	}
	return s, nil
}

// For returns the provider for a task type.
func (s *Set) For(taskType string) (ContentProvider, bool) {
	p, ok := s.byType[taskType]
	return p, ok
}
