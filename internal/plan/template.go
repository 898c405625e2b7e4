package plan

import (
	"encoding/json"

	"github.com/broadcomms/brainstormx/internal/registry"
	"github.com/broadcomms/brainstormx/internal/workshop"
)

// flavorTemplates maps each workshop flavor to its canonical phase ordering.
var flavorTemplates = map[workshop.Flavor][]string{
	workshop.FlavorBrainstorm: {
		registry.TypeFraming,
		registry.TypeWarmup,
		registry.TypeBrainstorming,
		registry.TypeClusteringVoting,
		registry.TypeResultsFeasibility,
		registry.TypePrioritization,
		registry.TypeDiscussion,
		registry.TypeActionPlan,
		registry.TypeSummary,
	},
	workshop.FlavorMeeting: {
		registry.TypeFraming,
		registry.TypeDiscussion,
		registry.TypeActionPlan,
		registry.TypeSummary,
	},
	workshop.FlavorPresentation: {
		registry.TypeFraming,
		registry.TypePresentation,
		registry.TypeDiscussion,
		registry.TypeSummary,
	},
	workshop.FlavorCustom: {
		registry.TypeFraming,
		registry.TypeSummary,
	},
}

// DefaultPlan builds the type-specific default plan for a workshop, filtered
// to registry-known types. Per-type configuration seeds are applied here:
// a presentation flavor seeds the workshop creator as presenter.
func DefaultPlan(ws *workshop.Workshop) []workshop.PlanNode {
	types, ok := flavorTemplates[ws.Flavor]
	if !ok {
		types = flavorTemplates[workshop.FlavorBrainstorm]
	}

	var nodes []workshop.PlanNode
	for _, taskType := range types {
		if !registry.Known(taskType) {
			continue
		}
		node := workshop.PlanNode{
			WorkshopID: ws.ID,
			OrderIndex: len(nodes),
			TaskType:   taskType,
			Duration:   workshop.NoOverride(),
			Enabled:    true,
		}
		if taskType == registry.TypePresentation && ws.CreatorID != "" {
			seed, _ := json.Marshal(map[string]string{"presenter_id": ws.CreatorID})
			node.ConfigJSON = string(seed)
		}
		nodes = append(nodes, node)
	}
	return nodes
}
