package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/broadcomms/brainstormx/internal/llm"
	"github.com/broadcomms/brainstormx/internal/registry"
	"github.com/broadcomms/brainstormx/internal/workshop"
)

// deps are the collaborators shared by the built-in providers.
type deps struct {
	tasks    workshop.TaskStore
	ideas    workshop.IdeaStore
	clusters workshop.ClusterStore
	model    llm.Provider // nil = deterministic templates only.
	logger   *slog.Logger
	now      func() time.Time
}

// Builtin constructs the full provider set: one implementation per task type
// in the registry. model may be nil; providers then emit deterministic
// template content instead of generated copy.
func Builtin(
	tasks workshop.TaskStore,
	ideas workshop.IdeaStore,
	clusters workshop.ClusterStore,
	model llm.Provider,
	logger *slog.Logger,
) (*Set, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &deps{
		tasks:    tasks,
		ideas:    ideas,
		clusters: clusters,
		model:    model,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	return NewSet(
		&framingProvider{d},
		&warmupProvider{d},
		&brainstormingProvider{d},
		&clusteringProvider{d},
		&votingProvider{d},
		&feasibilityProvider{d},
		&prioritizationProvider{d},
		&discussionProvider{d},
		&actionPlanProvider{d},
		&summaryProvider{d},
		&presentationProvider{d},
	)
}

// createTask persists the Task row for a phase and stamps the payload with
// its id. The provider owns this side effect; the orchestrator only reads
// task_id back from the payload.
func (d *deps) createTask(ctx context.Context, workshopID int64, taskType, title, description string, duration int, p Payload) (Payload, error) {
	task := &workshop.Task{
		WorkshopID:  workshopID,
		TaskType:    taskType,
		Title:       title,
		Description: description,
		Duration:    duration,
		Status:      workshop.TaskPending,
		CreatedAt:   d.now(),
	}
	if err := d.tasks.Create(ctx, task); err != nil {
		return nil, Generation(err, "persisting %s task", taskType)
	}

	p[KeyTaskID] = task.ID
	p[KeyTaskType] = taskType
	p[KeyTitle] = title
	p[KeyTaskDescription] = description
	p[KeyTaskDuration] = duration

	raw, err := p.MarshalText()
	if err != nil {
		return nil, Generation(err, "serializing %s payload", taskType)
	}
	task.PayloadJSON = raw
	if err := d.tasks.Update(ctx, task); err != nil {
		return nil, Generation(err, "attaching payload to %s task", taskType)
	}
	return p, nil
}

// narrate asks the model for facilitator copy, falling back to the template
// text when no model is configured or the call fails. Generation copy is
// never worth aborting a live session over.
func (d *deps) narrate(ctx context.Context, system, prompt, fallback string) string {
	if d.model == nil {
		return fallback
	}
	resp, err := d.model.Complete(ctx, &llm.Request{SystemPrompt: system, Prompt: prompt, MaxTokens: 512})
	if err != nil {
		d.logger.Warn("narration generation failed, using template",
			slog.String("provider", d.model.Name()),
			slog.String("error", err.Error()),
		)
		return fallback
	}
	return resp.Text
}

func defaultDuration(taskType string) int {
	entry, _ := registry.Lookup(taskType)
	return entry.DefaultDuration
}

const facilitatorSystemPrompt = "You are a seasoned workshop facilitator. " +
	"Write short, spoken-style text that an organizer reads aloud to participants. " +
	"Two or three sentences, warm and direct."

// --- Framing ---

type framingProvider struct{ d *deps }

func (p *framingProvider) TaskType() string { return registry.TypeFraming }

func (p *framingProvider) Generate(ctx context.Context, workshopID int64, _ *int64, phaseContext string) (Payload, error) {
	script := p.d.narrate(ctx, facilitatorSystemPrompt,
		fmt.Sprintf("Open a workshop session. Context: %s", phaseContext),
		"Welcome everyone. Let's take a few minutes to frame today's challenge and agree on what success looks like.")
	payload := Payload{
		KeyInstructions:      "Present the challenge statement and align the group on scope and success criteria.",
		KeyFacilitatorScript: script,
	}
	return p.d.createTask(ctx, workshopID, registry.TypeFraming,
		"Framing", "Align the group on the challenge and goals.",
		defaultDuration(registry.TypeFraming), payload)
}

// --- Warm-up ---

type warmupProvider struct{ d *deps }

func (p *warmupProvider) TaskType() string { return registry.TypeWarmup }

func (p *warmupProvider) Generate(ctx context.Context, workshopID int64, _ *int64, phaseContext string) (Payload, error) {
	script := p.d.narrate(ctx, facilitatorSystemPrompt,
		fmt.Sprintf("Run a quick energizer before ideation. Context: %s", phaseContext),
		"Before we dive in, let's loosen up: in one word, how are you arriving today?")
	payload := Payload{
		KeyInstructions:      "Run a short energizer so everyone has spoken once before ideation starts.",
		KeyFacilitatorScript: script,
		KeyTransitionPhrase:  "Great energy, let's carry that straight into idea generation.",
	}
	return p.d.createTask(ctx, workshopID, registry.TypeWarmup,
		"Warm-up", "A quick energizer to get everyone talking.",
		defaultDuration(registry.TypeWarmup), payload)
}

// --- Brainstorming ---

type brainstormingProvider struct{ d *deps }

func (p *brainstormingProvider) TaskType() string { return registry.TypeBrainstorming }

func (p *brainstormingProvider) Generate(ctx context.Context, workshopID int64, _ *int64, phaseContext string) (Payload, error) {
	prompt := p.d.narrate(ctx,
		"You write a single, concrete brainstorming prompt for a workshop group. One sentence, open-ended.",
		fmt.Sprintf("Workshop context: %s", phaseContext),
		"What is every way, practical or wild, we could tackle this challenge?")
	payload := Payload{
		KeyInstructions:      "Submit as many ideas as you can. Quantity over quality; no discussion yet.",
		"prompt":             prompt,
		KeyFacilitatorScript: "Ideation time. Every idea counts, the stranger the better. Go.",
	}
	return p.d.createTask(ctx, workshopID, registry.TypeBrainstorming,
		"Brainstorming", "Generate as many ideas as possible.",
		defaultDuration(registry.TypeBrainstorming), payload)
}

// --- Discussion ---

type discussionProvider struct{ d *deps }

func (p *discussionProvider) TaskType() string { return registry.TypeDiscussion }

func (p *discussionProvider) Generate(ctx context.Context, workshopID int64, _ *int64, phaseContext string) (Payload, error) {
	topic := phaseContext
	if topic == "" {
		topic = "Open discussion"
	}
	payload := Payload{
		KeyInstructions:      "Open the floor. Keep contributions short and build on each other.",
		KeyFacilitatorScript: fmt.Sprintf("Let's talk it through: %s.", topic),
	}
	return p.d.createTask(ctx, workshopID, registry.TypeDiscussion,
		"Discussion", topic,
		defaultDuration(registry.TypeDiscussion), payload)
}

// --- Summary ---

type summaryProvider struct{ d *deps }

func (p *summaryProvider) TaskType() string { return registry.TypeSummary }

func (p *summaryProvider) Generate(ctx context.Context, workshopID int64, _ *int64, phaseContext string) (Payload, error) {
	tasks, err := p.d.tasks.ListByWorkshop(ctx, workshopID)
	if err != nil {
		return nil, Generation(err, "loading session history for summary")
	}
	completed := 0
	for _, t := range tasks {
		if t.Status == workshop.TaskCompleted {
			completed++
		}
	}
	script := p.d.narrate(ctx, facilitatorSystemPrompt,
		fmt.Sprintf("Close a workshop that ran %d phases. Context: %s", completed, phaseContext),
		"That's a wrap. Thank you all: we framed the problem, generated ideas, and agreed on next steps.")
	payload := Payload{
		KeyInstructions:      "Recap the session outcomes and confirm owners for follow-ups.",
		"phases_completed":   completed,
		KeyFacilitatorScript: script,
	}
	return p.d.createTask(ctx, workshopID, registry.TypeSummary,
		"Summary", "Recap outcomes and close the session.",
		defaultDuration(registry.TypeSummary), payload)
}

// --- Presentation ---

type presentationProvider struct{ d *deps }

func (p *presentationProvider) TaskType() string { return registry.TypePresentation }

func (p *presentationProvider) Generate(ctx context.Context, workshopID int64, _ *int64, phaseContext string) (Payload, error) {
	payload := Payload{
		KeyInstructions:      "Hand the floor to the presenter. Questions go to the parking lot until the end.",
		KeyFacilitatorScript: "We'll now switch to presentation mode. Over to our presenter.",
	}
	if phaseContext != "" {
		payload["presentation_context"] = phaseContext
	}
	return p.d.createTask(ctx, workshopID, registry.TypePresentation,
		"Presentation", "Presenter walks the group through the material.",
		defaultDuration(registry.TypePresentation), payload)
}
