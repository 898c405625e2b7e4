package postgres

import (
	"encoding/json"

	"github.com/broadcomms/brainstormx/internal/workshop"
)

func toWorkshopModel(ws *workshop.Workshop) WorkshopModel {
	return WorkshopModel{
		ID:                      ws.ID,
		Title:                   ws.Title,
		Flavor:                  string(ws.Flavor),
		CreatorID:               ws.CreatorID,
		Status:                  string(ws.Status),
		CurrentTaskID:           ws.CurrentTaskID,
		CurrentTaskIndex:        ws.CurrentTaskIndex,
		TimerStartTime:          ws.TimerStartTime,
		TimerPausedAt:           ws.TimerPausedAt,
		TimerElapsedBeforePause: ws.TimerElapsedBeforePause,
		PhaseStartedAt:          ws.PhaseStartedAt,
		AutoAdvanceEnabled:      ws.AutoAdvanceEnabled,
		AutoAdvanceAfterSeconds: ws.AutoAdvanceAfterSeconds,
		AutoStartEnabled:        ws.AutoStartEnabled,
		ScheduledStartAt:        ws.ScheduledStartAt,
		PlanJSON:                ws.PlanJSON,
		CreatedAt:               ws.CreatedAt,
		UpdatedAt:               ws.UpdatedAt,
	}
}

func toWorkshopDomain(m *WorkshopModel) *workshop.Workshop {
	return &workshop.Workshop{
		ID:                      m.ID,
		Title:                   m.Title,
		Flavor:                  workshop.Flavor(m.Flavor),
		CreatorID:               m.CreatorID,
		Status:                  workshop.Status(m.Status),
		CurrentTaskID:           m.CurrentTaskID,
		CurrentTaskIndex:        m.CurrentTaskIndex,
		TimerStartTime:          m.TimerStartTime,
		TimerPausedAt:           m.TimerPausedAt,
		TimerElapsedBeforePause: m.TimerElapsedBeforePause,
		PhaseStartedAt:          m.PhaseStartedAt,
		AutoAdvanceEnabled:      m.AutoAdvanceEnabled,
		AutoAdvanceAfterSeconds: m.AutoAdvanceAfterSeconds,
		AutoStartEnabled:        m.AutoStartEnabled,
		ScheduledStartAt:        m.ScheduledStartAt,
		PlanJSON:                m.PlanJSON,
		CreatedAt:               m.CreatedAt,
		UpdatedAt:               m.UpdatedAt,
	}
}

func toTaskModel(t *workshop.Task) TaskModel {
	return TaskModel{
		ID:          t.ID,
		WorkshopID:  t.WorkshopID,
		TaskType:    t.TaskType,
		Title:       t.Title,
		Description: t.Description,
		Duration:    t.Duration,
		Status:      string(t.Status),
		StartedAt:   t.StartedAt,
		EndedAt:     t.EndedAt,
		PayloadJSON: t.PayloadJSON,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTaskDomain(m *TaskModel) *workshop.Task {
	return &workshop.Task{
		ID:          m.ID,
		WorkshopID:  m.WorkshopID,
		TaskType:    m.TaskType,
		Title:       m.Title,
		Description: m.Description,
		Duration:    m.Duration,
		Status:      workshop.TaskStatus(m.Status),
		StartedAt:   m.StartedAt,
		EndedAt:     m.EndedAt,
		PayloadJSON: m.PayloadJSON,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toPlanNodeModel(n *workshop.PlanNode) PlanNodeModel {
	return PlanNodeModel{
		ID:          n.ID,
		WorkshopID:  n.WorkshopID,
		OrderIndex:  n.OrderIndex,
		TaskType:    n.TaskType,
		Duration:    n.Duration.Sentinel(),
		Enabled:     n.Enabled,
		Phase:       n.Phase,
		Description: n.Description,
		ConfigJSON:  n.ConfigJSON,
	}
}

func toPlanNodeDomain(m *PlanNodeModel) workshop.PlanNode {
	return workshop.PlanNode{
		ID:          m.ID,
		WorkshopID:  m.WorkshopID,
		OrderIndex:  m.OrderIndex,
		TaskType:    m.TaskType,
		Duration:    workshop.OverrideFromSentinel(m.Duration),
		Enabled:     m.Enabled,
		Phase:       m.Phase,
		Description: m.Description,
		ConfigJSON:  m.ConfigJSON,
	}
}

func toClusterModel(c *workshop.Cluster) (ClusterModel, error) {
	ids, err := json.Marshal(c.IdeaIDs)
	if err != nil {
		return ClusterModel{}, err
	}
	return ClusterModel{
		ID:         c.ID,
		WorkshopID: c.WorkshopID,
		TaskID:     c.TaskID,
		Label:      c.Label,
		IdeaIDs:    string(ids),
		Votes:      c.Votes,
		CreatedAt:  c.CreatedAt,
	}, nil
}

func toClusterDomain(m *ClusterModel) workshop.Cluster {
	var ids []int64
	if m.IdeaIDs != "" {
		_ = json.Unmarshal([]byte(m.IdeaIDs), &ids)
	}
	return workshop.Cluster{
		ID:         m.ID,
		WorkshopID: m.WorkshopID,
		TaskID:     m.TaskID,
		Label:      m.Label,
		IdeaIDs:    ids,
		Votes:      m.Votes,
		CreatedAt:  m.CreatedAt,
	}
}
