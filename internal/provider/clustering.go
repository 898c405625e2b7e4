package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/broadcomms/brainstormx/internal/registry"
	"github.com/broadcomms/brainstormx/internal/workshop"
)

// maxIdeasPerCluster bounds the fallback grouping when no model is
// configured.
const maxIdeasPerCluster = 5

// clusteringProvider groups the ideas submitted during the dependency
// brainstorming task into clusters and opens voting on them.
type clusteringProvider struct{ d *deps }

func (p *clusteringProvider) TaskType() string { return registry.TypeClusteringVoting }

func (p *clusteringProvider) Generate(ctx context.Context, workshopID int64, dependencyTaskID *int64, phaseContext string) (Payload, error) {
	if dependencyTaskID == nil {
		return nil, Prerequisite("no brainstorming phase has run yet")
	}
	ideas, err := p.d.ideas.ListByTask(ctx, *dependencyTaskID)
	if err != nil {
		return nil, Generation(err, "loading ideas for clustering")
	}
	if len(ideas) == 0 {
		return nil, Prerequisite("no ideas found for brainstorming task %d", *dependencyTaskID)
	}

	payload := Payload{
		KeyInstructions:      "Review the clusters, then vote for the ones worth pursuing.",
		KeyFacilitatorScript: "Here's how your ideas group together. Look them over, then cast your votes.",
	}

	created, err := p.d.createTask(ctx, workshopID, registry.TypeClusteringVoting,
		"Clustering & Voting", "Group the ideas into themes and vote.",
		defaultDuration(registry.TypeClusteringVoting), payload)
	if err != nil {
		return nil, err
	}
	taskID, _ := created.TaskID()

	clusters := groupIdeas(ideas)
	summaries := make([]map[string]any, 0, len(clusters))
	for _, c := range clusters {
		c.WorkshopID = workshopID
		c.TaskID = taskID
		if err := p.d.clusters.Create(ctx, c); err != nil {
			return nil, Generation(err, "persisting cluster %q", c.Label)
		}
		summaries = append(summaries, map[string]any{
			"cluster_id": c.ID,
			"label":      c.Label,
			"idea_ids":   c.IdeaIDs,
		})
	}

	created["clusters"] = summaries
	raw, merr := created.MarshalText()
	if merr != nil {
		return nil, Generation(merr, "serializing clustering payload")
	}
	row, err := p.d.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, Generation(err, "reloading clustering task")
	}
	row.PayloadJSON = raw
	if err := p.d.tasks.Update(ctx, row); err != nil {
		return nil, Generation(err, "saving clustering payload")
	}
	return created, nil
}

// groupIdeas is the deterministic fallback grouping: ideas are bucketed in
// submission order, labeled from their first idea's leading words.
func groupIdeas(ideas []workshop.Idea) []*workshop.Cluster {
	sort.SliceStable(ideas, func(i, j int) bool {
		return ideas[i].CreatedAt.Before(ideas[j].CreatedAt)
	})
	var clusters []*workshop.Cluster
	for start := 0; start < len(ideas); start += maxIdeasPerCluster {
		end := start + maxIdeasPerCluster
		if end > len(ideas) {
			end = len(ideas)
		}
		bucket := ideas[start:end]
		ids := make([]int64, len(bucket))
		for i, idea := range bucket {
			ids[i] = idea.ID
		}
		clusters = append(clusters, &workshop.Cluster{
			Label:   clusterLabel(bucket[0].Text, len(clusters)),
			IdeaIDs: ids,
		})
	}
	return clusters
}

func clusterLabel(firstIdea string, index int) string {
	words := strings.Fields(firstIdea)
	if len(words) > 4 {
		words = words[:4]
	}
	if len(words) == 0 {
		return fmt.Sprintf("Cluster %d", index+1)
	}
	return strings.Join(words, " ")
}
