package plan

import (
	"encoding/json"
	"fmt"

	"github.com/broadcomms/brainstormx/internal/workshop"
)

// legacyNode is the serialized plan representation mirrored onto the
// workshop row. Older deployments stored the whole plan this way; it is
// still written on every plan change and read when no plan rows exist.
type legacyNode struct {
	TaskType    string          `json:"task_type"`
	Duration    int             `json:"duration"` // 0 = no override.
	Enabled     bool            `json:"enabled"`
	Phase       string          `json:"phase,omitempty"`
	Description string          `json:"description,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// encodeLegacy serializes plan nodes into the legacy JSON list.
func encodeLegacy(nodes []workshop.PlanNode) (string, error) {
	out := make([]legacyNode, len(nodes))
	for i, n := range nodes {
		out[i] = legacyNode{
			TaskType:    n.TaskType,
			Duration:    n.Duration.Sentinel(),
			Enabled:     n.Enabled,
			Phase:       n.Phase,
			Description: n.Description,
		}
		if n.ConfigJSON != "" {
			out[i].Config = json.RawMessage(n.ConfigJSON)
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encoding legacy plan: %w", err)
	}
	return string(data), nil
}

// decodeLegacy parses the legacy JSON list into plan nodes.
func decodeLegacy(workshopID int64, raw string) ([]workshop.PlanNode, error) {
	var in []legacyNode
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, fmt.Errorf("decoding legacy plan: %w", err)
	}
	nodes := make([]workshop.PlanNode, len(in))
	for i, n := range in {
		nodes[i] = workshop.PlanNode{
			WorkshopID:  workshopID,
			OrderIndex:  i,
			TaskType:    n.TaskType,
			Duration:    workshop.OverrideFromSentinel(n.Duration),
			Enabled:     n.Enabled,
			Phase:       n.Phase,
			Description: n.Description,
			ConfigJSON:  string(n.Config),
		}
	}
	return nodes, nil
}
