// Package plan implements the plan store: resolving a workshop's effective
// phase sequence, validating organizer edits against the task registry's
// dependency rules, and persisting plan changes atomically.
package plan

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/broadcomms/brainstormx/internal/workshop"
)

// Store resolves, validates, and persists workshop plans. Reads are cheap
// and concurrent; writes replace the whole plan under the node store's
// transaction boundary.
type Store struct {
	nodes     workshop.PlanNodeStore
	workshops workshop.WorkshopStore
	logger    *slog.Logger
}

// NewStore creates a plan store.
func NewStore(nodes workshop.PlanNodeStore, workshops workshop.WorkshopStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{nodes: nodes, workshops: workshops, logger: logger}
}

// Effective returns the ordered list of enabled plan nodes for a workshop.
//
// Source precedence: explicit plan rows if any exist, else the legacy
// serialized plan on the workshop row, else the flavor default template.
// Disabled nodes are excluded entirely and do not occupy a slot.
func (s *Store) Effective(ctx context.Context, ws *workshop.Workshop) ([]workshop.PlanNode, error) {
	rows, err := s.nodes.ListByWorkshop(ctx, ws.ID)
	if err != nil {
		return nil, fmt.Errorf("loading plan rows for workshop %d: %w", ws.ID, err)
	}

	var all []workshop.PlanNode
	switch {
	case len(rows) > 0:
		all = rows
	case ws.PlanJSON != "":
		all, err = decodeLegacy(ws.ID, ws.PlanJSON)
		if err != nil {
			s.logger.Warn("legacy plan unreadable, falling back to default",
				slog.Int64("workshop_id", ws.ID),
				slog.String("error", err.Error()),
			)
			all = DefaultPlan(ws)
		}
	default:
		all = DefaultPlan(ws)
	}

	enabled := make([]workshop.PlanNode, 0, len(all))
	for _, n := range all {
		if n.Enabled {
			enabled = append(enabled, n)
		}
	}
	return enabled, nil
}

// Replace validates the candidate list and persists it as the workshop's new
// plan: all existing nodes are replaced transactionally and the legacy
// serialized copy is mirrored onto the workshop row.
func (s *Store) Replace(ctx context.Context, ws *workshop.Workshop, candidate []workshop.PlanNode) ([]workshop.PlanNode, error) {
	normalized, err := Validate(candidate)
	if err != nil {
		return nil, err
	}
	for i := range normalized {
		normalized[i].WorkshopID = ws.ID
	}

	if err := s.nodes.ReplaceAll(ctx, ws.ID, normalized); err != nil {
		return nil, fmt.Errorf("replacing plan for workshop %d: %w", ws.ID, err)
	}

	legacy, err := encodeLegacy(normalized)
	if err != nil {
		return nil, err
	}
	ws.PlanJSON = legacy
	if err := s.workshops.Update(ctx, ws); err != nil {
		return nil, fmt.Errorf("mirroring legacy plan for workshop %d: %w", ws.ID, err)
	}

	s.logger.Info("plan replaced",
		slog.Int64("workshop_id", ws.ID),
		slog.Int("nodes", len(normalized)),
	)
	return normalized, nil
}

// SeedDefault persists the flavor default plan for a freshly created
// workshop.
func (s *Store) SeedDefault(ctx context.Context, ws *workshop.Workshop) ([]workshop.PlanNode, error) {
	return s.Replace(ctx, ws, DefaultPlan(ws))
}
