package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jkaninda/okapi"

	"github.com/broadcomms/brainstormx/internal/broadcast"
	"github.com/broadcomms/brainstormx/internal/orchestrator"
	"github.com/broadcomms/brainstormx/internal/plan"
	"github.com/broadcomms/brainstormx/internal/provider"
	"github.com/broadcomms/brainstormx/internal/registry"
	"github.com/broadcomms/brainstormx/internal/workshop"
)

// WorkshopCreateRequest is the JSON body for POST /v1/workshops.
type WorkshopCreateRequest struct {
	Title                   string     `json:"title"`
	Flavor                  string     `json:"flavor,omitempty"` // brainstorm (default), meeting, presentation, custom.
	CreatorID               string     `json:"creator_id,omitempty"`
	AutoAdvanceEnabled      bool       `json:"auto_advance_enabled,omitempty"`
	AutoAdvanceAfterSeconds int        `json:"auto_advance_after_seconds,omitempty"`
	AutoStartEnabled        bool       `json:"auto_start_enabled,omitempty"`
	ScheduledStartAt        *time.Time `json:"scheduled_start_at,omitempty"`
}

// WorkshopResponse is the JSON representation of a workshop.
type WorkshopResponse struct {
	ID                      int64      `json:"id"`
	Title                   string     `json:"title"`
	Flavor                  string     `json:"flavor"`
	Status                  string     `json:"status"`
	CurrentTaskID           *int64     `json:"current_task_id,omitempty"`
	CurrentTaskIndex        *int       `json:"current_task_index,omitempty"`
	AutoAdvanceEnabled      bool       `json:"auto_advance_enabled"`
	AutoAdvanceAfterSeconds int        `json:"auto_advance_after_seconds,omitempty"`
	AutoStartEnabled        bool       `json:"auto_start_enabled"`
	ScheduledStartAt        *time.Time `json:"scheduled_start_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// PhaseResponse is returned by navigation endpoints. Completed is set when
// an advance ran past the last runnable phase and finished the workshop.
type PhaseResponse struct {
	WorkshopID int64          `json:"workshop_id"`
	Completed  bool           `json:"completed,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// TimerResponse mirrors the timer_sync broadcast for polling clients.
type TimerResponse struct {
	TaskID           *int64 `json:"task_id"`
	RemainingSeconds int    `json:"remaining_seconds"`
	IsPaused         bool   `json:"is_paused"`
}

// GoToRequest is the JSON body for POST /v1/workshops/{id}/goto.
type GoToRequest struct {
	Index int `json:"index"`
}

// PlanNodeBody is one plan slot in plan requests and responses.
// DurationSeconds uses the legacy encoding: 0 means the phase default.
type PlanNodeBody struct {
	OrderIndex      int    `json:"order_index"`
	TaskType        string `json:"task_type"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Enabled         bool   `json:"enabled"`
	Phase           string `json:"phase,omitempty"`
	Description     string `json:"description,omitempty"`
	Config          string `json:"config,omitempty"`
}

// PlanResponse is the JSON response for plan endpoints.
type PlanResponse struct {
	WorkshopID int64          `json:"workshop_id"`
	Nodes      []PlanNodeBody `json:"nodes"`
}

// PlanReplaceRequest is the JSON body for PUT /v1/workshops/{id}/plan.
type PlanReplaceRequest struct {
	Nodes []PlanNodeBody `json:"nodes"`
}

// IdeaRequest is the JSON body for POST /v1/workshops/{id}/ideas.
type IdeaRequest struct {
	AuthorID string `json:"author_id"`
	Text     string `json:"text"`
}

// IdeaResponse is the JSON response for a submitted idea.
type IdeaResponse struct {
	ID         int64     `json:"id"`
	WorkshopID int64     `json:"workshop_id"`
	TaskID     int64     `json:"task_id"`
	AuthorID   string    `json:"author_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// TranscriptEntryResponse is one narration entry.
type TranscriptEntryResponse struct {
	ID            int64     `json:"id"`
	TaskID        int64     `json:"task_id"`
	FacilitatorID string    `json:"facilitator_id"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
}

func (g *Gateway) handleWorkshopCreate(c *okapi.Context) error {
	var req WorkshopCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.Title == "" {
		return c.AbortBadRequest("title is required")
	}

	flavor := workshop.Flavor(req.Flavor)
	if flavor == "" {
		flavor = workshop.FlavorBrainstorm
	}
	switch flavor {
	case workshop.FlavorBrainstorm, workshop.FlavorMeeting, workshop.FlavorPresentation, workshop.FlavorCustom:
	default:
		return c.AbortBadRequest("unknown flavor: " + req.Flavor)
	}

	ws := &workshop.Workshop{
		Title:                   req.Title,
		Flavor:                  flavor,
		CreatorID:               req.CreatorID,
		Status:                  workshop.StatusScheduled,
		AutoAdvanceEnabled:      req.AutoAdvanceEnabled,
		AutoAdvanceAfterSeconds: req.AutoAdvanceAfterSeconds,
		AutoStartEnabled:        req.AutoStartEnabled,
		ScheduledStartAt:        req.ScheduledStartAt,
	}
	if err := g.store.Workshops().Create(c.Context(), ws); err != nil {
		g.logger.Error("creating workshop", slog.String("error", err.Error()))
		return c.AbortInternalServerError("creating workshop failed")
	}
	if _, err := g.plans.SeedDefault(c.Context(), ws); err != nil {
		g.logger.Error("seeding default plan",
			slog.Int64("workshop_id", ws.ID),
			slog.String("error", err.Error()),
		)
		return c.AbortInternalServerError("seeding default plan failed")
	}

	g.logger.Info("workshop created",
		slog.Int64("workshop_id", ws.ID),
		slog.String("flavor", string(ws.Flavor)),
	)
	return c.JSON(http.StatusCreated, workshopResponse(ws))
}

func (g *Gateway) handleWorkshopGet(c *okapi.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.AbortBadRequest("invalid workshop id")
	}
	ws, err := g.store.Workshops().Get(c.Context(), id)
	if err != nil {
		return g.domainError(c, err)
	}
	return c.OK(workshopResponse(ws))
}

func (g *Gateway) handleWorkshopStart(c *okapi.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.AbortBadRequest("invalid workshop id")
	}
	payload, err := g.orch.Start(c.Context(), id)
	if err != nil {
		return g.domainError(c, err)
	}
	return c.OK(PhaseResponse{WorkshopID: id, Payload: payload})
}

func (g *Gateway) handleWorkshopPause(c *okapi.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.AbortBadRequest("invalid workshop id")
	}
	state, err := g.orch.Pause(c.Context(), id)
	if err != nil {
		return g.domainError(c, err)
	}
	return c.OK(timerResponse(state))
}

func (g *Gateway) handleWorkshopResume(c *okapi.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.AbortBadRequest("invalid workshop id")
	}
	state, err := g.orch.Resume(c.Context(), id)
	if err != nil {
		return g.domainError(c, err)
	}
	return c.OK(timerResponse(state))
}

func (g *Gateway) handleWorkshopComplete(c *okapi.Context) error {
	return g.handleFinish(c, g.orch.Complete)
}

func (g *Gateway) handleWorkshopCancel(c *okapi.Context) error {
	return g.handleFinish(c, g.orch.Cancel)
}

func (g *Gateway) handleFinish(c *okapi.Context, finish func(ctx context.Context, id int64) error) error {
	id, err := pathID(c)
	if err != nil {
		return c.AbortBadRequest("invalid workshop id")
	}
	if err := finish(c.Context(), id); err != nil {
		return g.domainError(c, err)
	}
	ws, err := g.store.Workshops().Get(c.Context(), id)
	if err != nil {
		return g.domainError(c, err)
	}
	return c.OK(workshopResponse(ws))
}

// handleAdvance moves to the next runnable phase. Exhausting the plan is a
// success: the workshop is completed and the response says so.
func (g *Gateway) handleAdvance(c *okapi.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.AbortBadRequest("invalid workshop id")
	}
	payload, err := g.orch.AdvanceToNext(c.Context(), id)
	if errors.Is(err, orchestrator.ErrEndOfPlan) {
		if err := g.orch.Complete(c.Context(), id); err != nil {
			return g.domainError(c, err)
		}
		return c.OK(PhaseResponse{WorkshopID: id, Completed: true})
	}
	if err != nil {
		return g.domainError(c, err)
	}
	return c.OK(PhaseResponse{WorkshopID: id, Payload: payload})
}

func (g *Gateway) handleGoTo(c *okapi.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.AbortBadRequest("invalid workshop id")
	}
	var req GoToRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("index is required")
	}
	payload, err := g.orch.GoToTask(c.Context(), id, req.Index)
	if err != nil {
		return g.domainError(c, err)
	}
	return c.OK(PhaseResponse{WorkshopID: id, Payload: payload})
}

func (g *Gateway) handlePlanGet(c *okapi.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.AbortBadRequest("invalid workshop id")
	}
	ws, err := g.store.Workshops().Get(c.Context(), id)
	if err != nil {
		return g.domainError(c, err)
	}
	nodes, err := g.plans.Effective(c.Context(), ws)
	if err != nil {
		return g.domainError(c, err)
	}
	return c.OK(planResponse(id, nodes))
}

func (g *Gateway) handlePlanReplace(c *okapi.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.AbortBadRequest("invalid workshop id")
	}
	var req PlanReplaceRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	ws, err := g.store.Workshops().Get(c.Context(), id)
	if err != nil {
		return g.domainError(c, err)
	}

	candidate := make([]workshop.PlanNode, 0, len(req.Nodes))
	for _, n := range req.Nodes {
		candidate = append(candidate, workshop.PlanNode{
			WorkshopID:  id,
			OrderIndex:  n.OrderIndex,
			TaskType:    n.TaskType,
			Duration:    workshop.OverrideFromSentinel(n.DurationSeconds),
			Enabled:     n.Enabled,
			Phase:       n.Phase,
			Description: n.Description,
			ConfigJSON:  n.Config,
		})
	}
	normalized, err := g.plans.Replace(c.Context(), ws, candidate)
	if err != nil {
		return g.domainError(c, err)
	}
	return c.OK(planResponse(id, normalized))
}

func (g *Gateway) handleTaskTypes(c *okapi.Context) error {
	return c.OK(registry.Types())
}

func (g *Gateway) handleTimer(c *okapi.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.AbortBadRequest("invalid workshop id")
	}
	state, err := g.orch.TimerState(c.Context(), id)
	if err != nil {
		return g.domainError(c, err)
	}
	return c.OK(timerResponse(state))
}

func (g *Gateway) handleCurrentPayload(c *okapi.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.AbortBadRequest("invalid workshop id")
	}
	payload, ok := g.orch.CurrentPayload(id)
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorBody{Error: "no active phase"})
	}
	return c.OK(map[string]any(payload))
}

// handleIdeaSubmit accepts an idea only while a brainstorming phase is
// running; the idea is attached to that phase's task.
func (g *Gateway) handleIdeaSubmit(c *okapi.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.AbortBadRequest("invalid workshop id")
	}
	var req IdeaRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.Text == "" {
		return c.AbortBadRequest("text is required")
	}

	task, err := g.store.Tasks().Running(c.Context(), id)
	if err != nil {
		if errors.Is(err, workshop.ErrNotFound) {
			return c.JSON(http.StatusConflict, ErrorBody{Error: "no phase is running"})
		}
		return g.domainError(c, err)
	}
	if task.TaskType != registry.TypeBrainstorming {
		return c.JSON(http.StatusConflict, ErrorBody{Error: "current phase does not accept ideas"})
	}

	idea := &workshop.Idea{
		WorkshopID: id,
		TaskID:     task.ID,
		AuthorID:   req.AuthorID,
		Text:       req.Text,
	}
	if err := g.store.Ideas().Create(c.Context(), idea); err != nil {
		g.logger.Error("creating idea",
			slog.Int64("workshop_id", id),
			slog.String("error", err.Error()),
		)
		return c.AbortInternalServerError("creating idea failed")
	}
	return c.JSON(http.StatusCreated, IdeaResponse{
		ID:         idea.ID,
		WorkshopID: idea.WorkshopID,
		TaskID:     idea.TaskID,
		AuthorID:   idea.AuthorID,
		Text:       idea.Text,
		CreatedAt:  idea.CreatedAt,
	})
}

func (g *Gateway) handleClusterVote(c *okapi.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.AbortBadRequest("invalid cluster id")
	}
	if err := g.store.Clusters().AddVote(c.Context(), id); err != nil {
		if errors.Is(err, workshop.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorBody{Error: "cluster not found"})
		}
		return g.domainError(c, err)
	}
	return c.OK(map[string]string{"status": "voted"})
}

func (g *Gateway) handleTranscript(c *okapi.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.AbortBadRequest("invalid workshop id")
	}
	entries, err := g.store.Transcripts().ListByWorkshop(c.Context(), id)
	if err != nil {
		return g.domainError(c, err)
	}
	out := make([]TranscriptEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, TranscriptEntryResponse{
			ID:            e.ID,
			TaskID:        e.TaskID,
			FacilitatorID: e.FacilitatorID,
			Text:          e.Text,
			CreatedAt:     e.CreatedAt,
		})
	}
	return c.OK(out)
}

// domainError maps domain failures to HTTP statuses. Caller input problems
// are 4xx; anything unrecognized is logged and reported as 500.
func (g *Gateway) domainError(c *okapi.Context, err error) error {
	var navErr *orchestrator.NavigationError
	var valErr *plan.ValidationError
	var provErr *provider.Error

	switch {
	case errors.As(err, &navErr):
		return c.JSON(http.StatusBadRequest, ErrorBody{Error: navErr.Error()})
	case errors.As(err, &valErr):
		return c.JSON(http.StatusBadRequest, ErrorBody{Error: valErr.Error()})
	case errors.Is(err, workshop.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorBody{Error: "not found"})
	case errors.Is(err, workshop.ErrConflict):
		return c.JSON(http.StatusConflict, ErrorBody{Error: "workshop state changed concurrently, retry"})
	case errors.Is(err, orchestrator.ErrInvalidTransition),
		errors.Is(err, workshop.ErrNotInProgress),
		errors.Is(err, workshop.ErrNotPaused),
		errors.Is(err, orchestrator.ErrEmptyPlan):
		return c.JSON(http.StatusConflict, ErrorBody{Error: err.Error()})
	case errors.As(err, &provErr):
		code := provErr.StatusCode
		if code == 0 {
			code = http.StatusInternalServerError
		}
		return c.JSON(code, ErrorBody{Error: provErr.Message})
	}

	g.logger.Error("request failed", slog.String("error", err.Error()))
	return c.AbortInternalServerError("internal error")
}

func pathID(c *okapi.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func workshopResponse(ws *workshop.Workshop) WorkshopResponse {
	return WorkshopResponse{
		ID:                      ws.ID,
		Title:                   ws.Title,
		Flavor:                  string(ws.Flavor),
		Status:                  string(ws.Status),
		CurrentTaskID:           ws.CurrentTaskID,
		CurrentTaskIndex:        ws.CurrentTaskIndex,
		AutoAdvanceEnabled:      ws.AutoAdvanceEnabled,
		AutoAdvanceAfterSeconds: ws.AutoAdvanceAfterSeconds,
		AutoStartEnabled:        ws.AutoStartEnabled,
		ScheduledStartAt:        ws.ScheduledStartAt,
		CreatedAt:               ws.CreatedAt,
		UpdatedAt:               ws.UpdatedAt,
	}
}

func timerResponse(state broadcast.TimerState) TimerResponse {
	return TimerResponse{
		TaskID:           state.TaskID,
		RemainingSeconds: state.RemainingSeconds,
		IsPaused:         state.IsPaused,
	}
}

func planResponse(workshopID int64, nodes []workshop.PlanNode) PlanResponse {
	out := make([]PlanNodeBody, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, PlanNodeBody{
			OrderIndex:      n.OrderIndex,
			TaskType:        n.TaskType,
			DurationSeconds: n.Duration.Sentinel(),
			Enabled:         n.Enabled,
			Phase:           n.Phase,
			Description:     n.Description,
			Config:          n.ConfigJSON,
		})
	}
	return PlanResponse{WorkshopID: workshopID, Nodes: out}
}
