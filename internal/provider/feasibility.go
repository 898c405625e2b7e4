package provider

import (
	"context"
	"fmt"
	"sort"

	"github.com/broadcomms/brainstormx/internal/registry"
	"github.com/broadcomms/brainstormx/internal/workshop"
)

// loadVotedClusters returns the dependency task's clusters ordered by votes,
// or a typed prerequisite error when voting has produced nothing usable.
func loadVotedClusters(ctx context.Context, d *deps, dependencyTaskID *int64) ([]workshop.Cluster, error) {
	if dependencyTaskID == nil {
		return nil, Prerequisite("no clustering/voting phase has run yet")
	}
	clusters, err := d.clusters.ListByTask(ctx, *dependencyTaskID)
	if err != nil {
		return nil, Generation(err, "loading clusters for task %d", *dependencyTaskID)
	}
	if len(clusters) == 0 {
		return nil, Prerequisite("no voted clusters exist for clustering task %d", *dependencyTaskID)
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Votes > clusters[j].Votes
	})
	return clusters, nil
}

// feasibilityProvider builds a feasibility review of the voted clusters.
type feasibilityProvider struct{ d *deps }

func (p *feasibilityProvider) TaskType() string { return registry.TypeResultsFeasibility }

func (p *feasibilityProvider) Generate(ctx context.Context, workshopID int64, dependencyTaskID *int64, phaseContext string) (Payload, error) {
	clusters, err := loadVotedClusters(ctx, p.d, dependencyTaskID)
	if err != nil {
		return nil, err
	}

	reports := make([]map[string]any, 0, len(clusters))
	for _, c := range clusters {
		assessment := p.d.narrate(ctx,
			"You assess workshop idea clusters for feasibility. Two sentences: one on effort, one on impact.",
			fmt.Sprintf("Cluster: %s (%d votes, %d ideas). Context: %s", c.Label, c.Votes, len(c.IdeaIDs), phaseContext),
			fmt.Sprintf("%s drew %d votes across %d ideas. Discuss what it would take to try it within a sprint.", c.Label, c.Votes, len(c.IdeaIDs)))
		reports = append(reports, map[string]any{
			"cluster_id": c.ID,
			"label":      c.Label,
			"votes":      c.Votes,
			"assessment": assessment,
		})
	}

	payload := Payload{
		KeyInstructions:      "Walk through each report and challenge the effort and impact estimates.",
		"reports":            reports,
		KeyFacilitatorScript: "Let's pressure-test the winners: for each cluster, how hard is it really, and what do we gain?",
	}
	return p.d.createTask(ctx, workshopID, registry.TypeResultsFeasibility,
		"Feasibility Review", "Assess effort and impact of the voted clusters.",
		defaultDuration(registry.TypeResultsFeasibility), payload)
}

// prioritizationProvider ranks the voted clusters for action planning.
type prioritizationProvider struct{ d *deps }

func (p *prioritizationProvider) TaskType() string { return registry.TypePrioritization }

func (p *prioritizationProvider) Generate(ctx context.Context, workshopID int64, dependencyTaskID *int64, phaseContext string) (Payload, error) {
	clusters, err := loadVotedClusters(ctx, p.d, dependencyTaskID)
	if err != nil {
		return nil, err
	}

	ranking := make([]map[string]any, 0, len(clusters))
	for rank, c := range clusters {
		ranking = append(ranking, map[string]any{
			"rank":       rank + 1,
			"cluster_id": c.ID,
			"label":      c.Label,
			"votes":      c.Votes,
		})
	}

	payload := Payload{
		KeyInstructions:      "Confirm or adjust the ranking. The top entries move on to action planning.",
		"ranking":            ranking,
		KeyFacilitatorScript: "Here's the ranking your votes produced. Does the top of the list feel right?",
	}
	return p.d.createTask(ctx, workshopID, registry.TypePrioritization,
		"Prioritization", "Rank the clusters for action planning.",
		defaultDuration(registry.TypePrioritization), payload)
}

// actionPlanProvider turns the latest prioritization (when one exists) into
// concrete action items.
type actionPlanProvider struct{ d *deps }

func (p *actionPlanProvider) TaskType() string { return registry.TypeActionPlan }

func (p *actionPlanProvider) Generate(ctx context.Context, workshopID int64, _ *int64, phaseContext string) (Payload, error) {
	actions := []map[string]any{}
	if prio, err := p.d.tasks.LatestByType(ctx, workshopID, registry.TypePrioritization); err == nil {
		// Seed one action slot per ranked cluster; owners are assigned live.
		if clusters, cerr := p.d.clusters.ListByTask(ctx, prio.ID); cerr == nil {
			for _, c := range clusters {
				actions = append(actions, map[string]any{
					"cluster_id": c.ID,
					"label":      c.Label,
					"owner":      "",
					"due":        "",
				})
			}
		}
	}
	if len(actions) == 0 {
		actions = append(actions, map[string]any{"label": "First concrete step", "owner": "", "due": ""})
	}

	payload := Payload{
		KeyInstructions:      "For each item: name one owner and one date. No owner, no action.",
		"actions":            actions,
		KeyFacilitatorScript: "Time to commit. Every action needs a name and a date before we close.",
	}
	return p.d.createTask(ctx, workshopID, registry.TypeActionPlan,
		"Action Plan", "Turn the priorities into owned, dated actions.",
		defaultDuration(registry.TypeActionPlan), payload)
}

// votingProvider runs a generic voting round. The upstream options depend on
// the node's configured stage; the orchestrator resolves the dependency task
// accordingly and this provider loads whatever that task produced.
type votingProvider struct{ d *deps }

func (p *votingProvider) TaskType() string { return registry.TypeVoting }

func (p *votingProvider) Generate(ctx context.Context, workshopID int64, dependencyTaskID *int64, phaseContext string) (Payload, error) {
	options := []map[string]any{}
	if dependencyTaskID != nil {
		clusters, err := p.d.clusters.ListByTask(ctx, *dependencyTaskID)
		if err != nil {
			return nil, Generation(err, "loading voting options from task %d", *dependencyTaskID)
		}
		for _, c := range clusters {
			options = append(options, map[string]any{"cluster_id": c.ID, "label": c.Label})
		}
		if len(options) == 0 {
			ideas, err := p.d.ideas.ListByTask(ctx, *dependencyTaskID)
			if err != nil {
				return nil, Generation(err, "loading voting options from task %d", *dependencyTaskID)
			}
			if len(ideas) == 0 {
				return nil, Prerequisite("task %d produced nothing to vote on", *dependencyTaskID)
			}
			for _, idea := range ideas {
				options = append(options, map[string]any{"idea_id": idea.ID, "label": idea.Text})
			}
		}
	}

	payload := Payload{
		KeyInstructions:      "Cast your votes. Manual rounds: the organizer adds the options live.",
		"options":            options,
		KeyFacilitatorScript: "Voting is open. Choose what you'd actually spend time on.",
	}
	return p.d.createTask(ctx, workshopID, registry.TypeVoting,
		"Voting", "A focused voting round.",
		defaultDuration(registry.TypeVoting), payload)
}
