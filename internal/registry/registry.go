// Package registry holds the static task-type metadata the rest of the
// orchestration engine consults: default durations, broadcast event names,
// and the data inputs/outputs used for plan dependency checking.
//
// The registry is read-only and defined once per deployment. Every other
// component must reject unknown task types rather than silently defaulting.
package registry

import (
	"sort"
	"strings"
)

// Task type names. These are the only values accepted anywhere a task_type
// field appears.
const (
	TypeFraming            = "framing"
	TypeWarmup             = "warmup"
	TypeBrainstorming      = "brainstorming"
	TypeClusteringVoting   = "clustering_voting"
	TypeVoting             = "voting" // Generic multi-stage voting.
	TypeResultsFeasibility = "results_feasibility"
	TypePrioritization     = "prioritization"
	TypeDiscussion         = "discussion"
	TypeActionPlan         = "action_plan"
	TypeSummary            = "summary"
	TypePresentation       = "presentation"
)

// Data-kind labels produced and consumed by phases. An input suffixed with
// "?" is optional: the dependency walk does not require it.
const (
	KindFraming      = "framing"
	KindEnergy       = "energy"
	KindIdeas        = "ideas"
	KindClusters     = "clusters"
	KindVotes        = "votes"
	KindFeasibility  = "feasibility"
	KindPriorities   = "priorities"
	KindActions      = "actions"
	KindDiscussion   = "discussion"
	KindSummary      = "summary"
	KindPresentation = "presentation"
)

// Voting stages for the generic voting phase. The stage decides which
// upstream output the node requires (the one config-conditional dependency
// rule in the system).
const (
	VotingStageClusters            = "clusters"
	VotingStageIdeas               = "ideas"
	VotingStageIdeasFromTopCluster = "ideas_from_top_cluster"
	VotingStageManual              = "manual"
)

// Entry is the static metadata for one task type.
type Entry struct {
	// DefaultDuration is the phase duration in seconds when neither the
	// plan node nor the content provider supplies one.
	DefaultDuration int

	// Event is the broadcast event name emitted when the phase starts.
	Event string

	// Inputs are the data kinds this phase consumes. A "?" suffix marks an
	// input as optional for dependency checking.
	Inputs []string

	// Outputs are the data kinds this phase produces for downstream phases.
	Outputs []string

	// DependsOnTask names the task type whose most recent Task row is
	// passed to the content provider as the runtime dependency. Empty
	// means the phase generates from the workshop alone.
	DependsOnTask string

	// Repeatable phases may appear any number of times in a plan with no
	// dependency requirement (free-form phases such as discussion).
	Repeatable bool
}

var entries = map[string]Entry{
	TypeFraming: {
		DefaultDuration: 300,
		Event:           "framing_started",
		Outputs:         []string{KindFraming},
	},
	TypeWarmup: {
		DefaultDuration: 300,
		Event:           "warmup_started",
		Outputs:         []string{KindEnergy},
	},
	TypeBrainstorming: {
		DefaultDuration: 600,
		Event:           "brainstorming_started",
		Inputs:          []string{KindFraming + "?"},
		Outputs:         []string{KindIdeas},
	},
	TypeClusteringVoting: {
		DefaultDuration: 480,
		Event:           "clustering_voting_started",
		Inputs:          []string{KindIdeas},
		Outputs:         []string{KindClusters, KindVotes},
		DependsOnTask:   TypeBrainstorming,
	},
	TypeVoting: {
		DefaultDuration: 300,
		Event:           "voting_started",
		// Inputs are stage-dependent; see InputsForVotingStage.
		Outputs: []string{KindVotes},
	},
	TypeResultsFeasibility: {
		DefaultDuration: 480,
		Event:           "feasibility_started",
		Inputs:          []string{KindClusters, KindVotes + "?"},
		Outputs:         []string{KindFeasibility},
		DependsOnTask:   TypeClusteringVoting,
	},
	TypePrioritization: {
		DefaultDuration: 420,
		Event:           "prioritization_started",
		Inputs:          []string{KindClusters, KindVotes + "?"},
		Outputs:         []string{KindPriorities},
		DependsOnTask:   TypeClusteringVoting,
	},
	TypeDiscussion: {
		DefaultDuration: 600,
		Event:           "discussion_started",
		Outputs:         []string{KindDiscussion},
		Repeatable:      true,
	},
	TypeActionPlan: {
		DefaultDuration: 480,
		Event:           "action_plan_started",
		Inputs:          []string{KindPriorities + "?"},
		Outputs:         []string{KindActions},
	},
	TypeSummary: {
		DefaultDuration: 300,
		Event:           "summary_started",
		Outputs:         []string{KindSummary},
	},
	TypePresentation: {
		DefaultDuration: 900,
		Event:           "presentation_started",
		Outputs:         []string{KindPresentation},
		Repeatable:      true,
	},
}

// Lookup returns the registry entry for a task type.
func Lookup(taskType string) (Entry, bool) {
	e, ok := entries[taskType]
	return e, ok
}

// Known reports whether the task type exists in the registry.
func Known(taskType string) bool {
	_, ok := entries[taskType]
	return ok
}

// Types returns all registered task types in sorted order.
func Types() []string {
	out := make([]string, 0, len(entries))
	for t := range entries {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// InputsForVotingStage returns the required inputs for a generic voting node
// given its per-node stage configuration. This is the one place dependency
// satisfaction is config-conditional rather than type-conditional.
func InputsForVotingStage(stage string) []string {
	switch stage {
	case VotingStageClusters:
		return []string{KindClusters}
	case VotingStageIdeas, VotingStageIdeasFromTopCluster:
		return []string{KindIdeas}
	case VotingStageManual, "":
		return nil
	default:
		return nil
	}
}

// DependsOnTaskForVotingStage returns the upstream task type whose latest
// Task is the runtime dependency for a generic voting node.
func DependsOnTaskForVotingStage(stage string) string {
	switch stage {
	case VotingStageClusters:
		return TypeClusteringVoting
	case VotingStageIdeas, VotingStageIdeasFromTopCluster:
		return TypeBrainstorming
	default:
		return ""
	}
}

// SplitInput separates a data-kind label from its optional marker.
func SplitInput(input string) (kind string, optional bool) {
	if strings.HasSuffix(input, "?") {
		return strings.TrimSuffix(input, "?"), true
	}
	return input, false
}
