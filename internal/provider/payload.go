package provider

import (
	"encoding/json"
	"fmt"

	"github.com/broadcomms/brainstormx/internal/registry"
)

// Payload is the generated phase content handed back to the orchestrator.
// Beyond the required keys it is opaque to the orchestration core.
type Payload map[string]any

// Keys every phase payload must carry.
const (
	KeyTaskID          = "task_id"
	KeyTaskType        = "task_type"
	KeyTitle           = "title"
	KeyTaskDescription = "task_description"
	KeyInstructions    = "instructions"
	KeyTaskDuration    = "task_duration"

	// Optional keys the orchestrator understands.
	KeyFacilitatorScript = "facilitator_script" // Narration persisted to the transcript.
	KeyTransitionPhrase  = "transition_phrase"  // Warm-up handoff context.
)

// extraRequiredKeys lists per-type keys beyond the common set.
var extraRequiredKeys = map[string][]string{
	registry.TypeBrainstorming:      {"prompt"},
	registry.TypeClusteringVoting:   {"clusters"},
	registry.TypeResultsFeasibility: {"reports"},
	registry.TypePrioritization:     {"ranking"},
	registry.TypeActionPlan:         {"actions"},
}

// TaskID extracts the created Task's id.
func (p Payload) TaskID() (int64, bool) {
	return p.intValue(KeyTaskID)
}

// Duration extracts the proposed phase duration in seconds.
func (p Payload) Duration() (int, bool) {
	v, ok := p.intValue(KeyTaskDuration)
	return int(v), ok
}

// SetDuration overwrites the phase duration (organizer override wins).
func (p Payload) SetDuration(seconds int) {
	p[KeyTaskDuration] = seconds
}

// Narration returns the facilitator script, if any.
func (p Payload) Narration() string {
	s, _ := p[KeyFacilitatorScript].(string)
	return s
}

// TransitionPhrase returns the warm-up handoff phrase, if any.
func (p Payload) TransitionPhrase() string {
	s, _ := p[KeyTransitionPhrase].(string)
	return s
}

// intValue coerces JSON numbers, raw ints, and int64s.
func (p Payload) intValue(key string) (int64, bool) {
	switch v := p[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

// Validate is the last gate before a phase transition is considered
// legitimate: required keys present for the task type and a positive,
// numeric-coercible task_duration.
func Validate(taskType string, p Payload) error {
	if !registry.Known(taskType) {
		return Validation("unknown task type %q", taskType)
	}
	required := []string{KeyTaskID, KeyTaskType, KeyTitle, KeyTaskDescription, KeyInstructions, KeyTaskDuration}
	required = append(required, extraRequiredKeys[taskType]...)
	for _, key := range required {
		if _, ok := p[key]; !ok {
			return Validation("payload for %s is missing required key %q", taskType, key)
		}
	}
	dur, ok := p.Duration()
	if !ok {
		return Validation("payload for %s has non-numeric %s", taskType, KeyTaskDuration)
	}
	if dur <= 0 {
		return Validation("payload for %s has non-positive %s (%d)", taskType, KeyTaskDuration, dur)
	}
	return nil
}

// MarshalText renders the payload as compact JSON for persistence.
func (p Payload) MarshalText() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshaling payload: %w", err)
	}
	return string(data), nil
}
