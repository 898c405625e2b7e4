package plan

import (
	"encoding/json"
	"fmt"

	"github.com/broadcomms/brainstormx/internal/registry"
	"github.com/broadcomms/brainstormx/internal/workshop"
)

// Duration override bounds in seconds. Values outside the range are clamped;
// negative values are rejected outright.
const (
	MinDuration = 30
	MaxDuration = 7200
)

// ValidationError describes why a candidate plan was rejected, pointing the
// organizer at the exact node so an invalid reordering can be fixed before
// it is persisted.
type ValidationError struct {
	Position     int    // Index in the candidate list (0-based).
	TaskType     string
	MissingInput string // Set for dependency violations.
	Reason       string
}

func (e *ValidationError) Error() string {
	if e.MissingInput != "" {
		return fmt.Sprintf("plan node %d (%s): required input %q is not produced by any earlier node",
			e.Position, e.TaskType, e.MissingInput)
	}
	return fmt.Sprintf("plan node %d (%s): %s", e.Position, e.TaskType, e.Reason)
}

// nodeConfig is the subset of per-node configuration the validator reads.
type nodeConfig struct {
	Stage string `json:"stage,omitempty"`
}

func parseNodeConfig(raw string) nodeConfig {
	var cfg nodeConfig
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &cfg)
	}
	return cfg
}

// VotingStage extracts the stage from a voting node's configuration. Empty
// config means the manual stage.
func VotingStage(configJSON string) string {
	return parseNodeConfig(configJSON).Stage
}

// requiredInputs resolves the inputs a node must satisfy, honoring the
// config-conditional rule for generic voting nodes.
func requiredInputs(node workshop.PlanNode, entry registry.Entry) []string {
	if node.TaskType == registry.TypeVoting {
		return registry.InputsForVotingStage(parseNodeConfig(node.ConfigJSON).Stage)
	}
	return entry.Inputs
}

// Validate checks a candidate plan and returns the normalized copy that is
// safe to persist. Normalization clamps duration overrides and rewrites
// OrderIndex to the list position. Disabled nodes keep their slot in the
// candidate list but are excluded from the dependency walk, matching how
// the effective plan excludes them at runtime.
func Validate(candidate []workshop.PlanNode) ([]workshop.PlanNode, error) {
	if len(candidate) == 0 {
		return nil, &ValidationError{Position: 0, TaskType: "", Reason: "plan is empty"}
	}

	normalized := make([]workshop.PlanNode, len(candidate))
	copy(normalized, candidate)

	produced := map[string]bool{}
	for i := range normalized {
		node := &normalized[i]
		node.OrderIndex = i

		entry, ok := registry.Lookup(node.TaskType)
		if !ok {
			return nil, &ValidationError{Position: i, TaskType: node.TaskType, Reason: "unknown task type"}
		}

		if secs, set := node.Duration.Seconds(); set {
			if secs < 0 {
				return nil, &ValidationError{Position: i, TaskType: node.TaskType, Reason: "duration override must not be negative"}
			}
			if secs < MinDuration {
				node.Duration = workshop.Override(MinDuration)
			} else if secs > MaxDuration {
				node.Duration = workshop.Override(MaxDuration)
			}
		}

		if !node.Enabled {
			continue
		}

		if !entry.Repeatable {
			for _, input := range requiredInputs(*node, entry) {
				kind, optional := registry.SplitInput(input)
				if optional {
					continue
				}
				if !produced[kind] {
					return nil, &ValidationError{Position: i, TaskType: node.TaskType, MissingInput: kind}
				}
			}
		}

		for _, out := range entry.Outputs {
			produced[out] = true
		}
	}

	return normalized, nil
}
