package plan

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/broadcomms/brainstormx/internal/registry"
	"github.com/broadcomms/brainstormx/internal/storage/memory"
	"github.com/broadcomms/brainstormx/internal/workshop"
)

func node(taskType string) workshop.PlanNode {
	return workshop.PlanNode{
		TaskType: taskType,
		Duration: workshop.NoOverride(),
		Enabled:  true,
	}
}

func TestValidateRejectsEmptyPlan(t *testing.T) {
	_, err := Validate(nil)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.Reason != "plan is empty" {
		t.Errorf("reason = %q", vErr.Reason)
	}
}

func TestValidateRejectsUnknownTaskType(t *testing.T) {
	_, err := Validate([]workshop.PlanNode{node("karaoke")})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.TaskType != "karaoke" || vErr.Position != 0 {
		t.Errorf("unexpected error detail: %+v", vErr)
	}
}

func TestValidateRejectsNegativeDuration(t *testing.T) {
	n := node(registry.TypeFraming)
	n.Duration = workshop.Override(-60)
	_, err := Validate([]workshop.PlanNode{n})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(vErr.Reason, "negative") {
		t.Errorf("reason = %q", vErr.Reason)
	}
}

func TestValidateClampsDurationOverrides(t *testing.T) {
	low := node(registry.TypeFraming)
	low.Duration = workshop.Override(10)
	high := node(registry.TypeDiscussion)
	high.Duration = workshop.Override(100000)
	exact := node(registry.TypeSummary)
	exact.Duration = workshop.Override(600)

	normalized, err := Validate([]workshop.PlanNode{low, high, exact})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if secs, _ := normalized[0].Duration.Seconds(); secs != MinDuration {
		t.Errorf("low clamp = %d, want %d", secs, MinDuration)
	}
	if secs, _ := normalized[1].Duration.Seconds(); secs != MaxDuration {
		t.Errorf("high clamp = %d, want %d", secs, MaxDuration)
	}
	if secs, _ := normalized[2].Duration.Seconds(); secs != 600 {
		t.Errorf("in-range override changed to %d", secs)
	}
}

func TestValidateRewritesOrderIndex(t *testing.T) {
	a := node(registry.TypeFraming)
	a.OrderIndex = 7
	b := node(registry.TypeSummary)
	b.OrderIndex = 2

	normalized, err := Validate([]workshop.PlanNode{a, b})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for i, n := range normalized {
		if n.OrderIndex != i {
			t.Errorf("node %d has order index %d", i, n.OrderIndex)
		}
	}
}

func TestValidateDependencyOrdering(t *testing.T) {
	// Clustering before brainstorming: no node has produced ideas yet.
	_, err := Validate([]workshop.PlanNode{
		node(registry.TypeClusteringVoting),
		node(registry.TypeBrainstorming),
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.MissingInput != registry.KindIdeas {
		t.Errorf("missing input = %q, want %q", vErr.MissingInput, registry.KindIdeas)
	}

	// Proper ordering passes.
	if _, err := Validate([]workshop.PlanNode{
		node(registry.TypeBrainstorming),
		node(registry.TypeClusteringVoting),
		node(registry.TypeResultsFeasibility),
		node(registry.TypePrioritization),
		node(registry.TypeActionPlan),
	}); err != nil {
		t.Fatalf("valid ordering rejected: %v", err)
	}
}

func TestValidateDisabledNodesSkipDependencyWalk(t *testing.T) {
	brainstorm := node(registry.TypeBrainstorming)
	brainstorm.Enabled = false

	// Disabled brainstorming produces nothing, so clustering cannot follow.
	_, err := Validate([]workshop.PlanNode{
		brainstorm,
		node(registry.TypeClusteringVoting),
	})
	if err == nil {
		t.Fatal("expected dependency violation behind disabled producer")
	}

	// A disabled consumer is not checked at all.
	clustering := node(registry.TypeClusteringVoting)
	clustering.Enabled = false
	if _, err := Validate([]workshop.PlanNode{clustering}); err != nil {
		t.Fatalf("disabled node rejected: %v", err)
	}
}

func TestValidateVotingStageRule(t *testing.T) {
	votingClusters := node(registry.TypeVoting)
	votingClusters.ConfigJSON = `{"stage":"clusters"}`

	// Cluster-stage voting needs clusters upstream.
	_, err := Validate([]workshop.PlanNode{
		node(registry.TypeBrainstorming),
		votingClusters,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.MissingInput != registry.KindClusters {
		t.Errorf("missing input = %q, want %q", vErr.MissingInput, registry.KindClusters)
	}

	// Ideas-stage voting is satisfied by brainstorming alone.
	votingIdeas := node(registry.TypeVoting)
	votingIdeas.ConfigJSON = `{"stage":"ideas"}`
	if _, err := Validate([]workshop.PlanNode{
		node(registry.TypeBrainstorming),
		votingIdeas,
	}); err != nil {
		t.Fatalf("ideas-stage voting rejected: %v", err)
	}

	// Manual voting has no dependency at all.
	manual := node(registry.TypeVoting)
	if _, err := Validate([]workshop.PlanNode{manual}); err != nil {
		t.Fatalf("manual voting rejected: %v", err)
	}
}

func TestValidateRepeatableDiscussion(t *testing.T) {
	if _, err := Validate([]workshop.PlanNode{
		node(registry.TypeDiscussion),
		node(registry.TypeBrainstorming),
		node(registry.TypeDiscussion),
		node(registry.TypeDiscussion),
	}); err != nil {
		t.Fatalf("repeatable discussion rejected: %v", err)
	}
}

func newStoreRig(t *testing.T) (*Store, *memory.Store, *workshop.Workshop) {
	t.Helper()
	mem := memory.New()
	store := NewStore(mem.PlanNodes(), mem.Workshops(), nil)
	ws := &workshop.Workshop{
		Title:  "Quarterly ideas",
		Flavor: workshop.FlavorBrainstorm,
		Status: workshop.StatusScheduled,
	}
	if err := mem.Workshops().Create(context.Background(), ws); err != nil {
		t.Fatalf("creating workshop: %v", err)
	}
	return store, mem, ws
}

func TestEffectivePrefersPlanRows(t *testing.T) {
	store, mem, ws := newStoreRig(t)
	ctx := context.Background()

	rows := []workshop.PlanNode{node(registry.TypeFraming), node(registry.TypeSummary)}
	for i := range rows {
		rows[i].WorkshopID = ws.ID
		rows[i].OrderIndex = i
	}
	if err := mem.PlanNodes().ReplaceAll(ctx, ws.ID, rows); err != nil {
		t.Fatalf("seeding rows: %v", err)
	}
	ws.PlanJSON = `[{"task_type":"discussion","enabled":true}]`

	got, err := store.Effective(ctx, ws)
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	if len(got) != 2 || got[0].TaskType != registry.TypeFraming {
		t.Fatalf("rows did not win: %+v", got)
	}
}

func TestEffectiveFallsBackToLegacyJSON(t *testing.T) {
	store, _, ws := newStoreRig(t)
	ws.PlanJSON = `[{"task_type":"discussion","enabled":true},{"task_type":"summary","enabled":false}]`

	got, err := store.Effective(context.Background(), ws)
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	if len(got) != 1 || got[0].TaskType != registry.TypeDiscussion {
		t.Fatalf("legacy plan not honored: %+v", got)
	}
}

func TestEffectiveUnreadableLegacyFallsBackToDefault(t *testing.T) {
	store, _, ws := newStoreRig(t)
	ws.PlanJSON = `{"this is": "not a plan list"`

	got, err := store.Effective(context.Background(), ws)
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	want := flavorTemplates[workshop.FlavorBrainstorm]
	if len(got) != len(want) {
		t.Fatalf("got %d nodes, want %d", len(got), len(want))
	}
	if got[0].TaskType != registry.TypeFraming {
		t.Errorf("first phase = %q", got[0].TaskType)
	}
}

func TestEffectiveDefaultsByFlavor(t *testing.T) {
	store, mem, _ := newStoreRig(t)
	ctx := context.Background()

	ws := &workshop.Workshop{Title: "Standup", Flavor: workshop.FlavorMeeting, Status: workshop.StatusScheduled}
	if err := mem.Workshops().Create(ctx, ws); err != nil {
		t.Fatalf("creating workshop: %v", err)
	}

	got, err := store.Effective(ctx, ws)
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	want := flavorTemplates[workshop.FlavorMeeting]
	if len(got) != len(want) {
		t.Fatalf("got %d nodes, want %d", len(got), len(want))
	}
	for i, n := range got {
		if n.TaskType != want[i] {
			t.Errorf("node %d = %q, want %q", i, n.TaskType, want[i])
		}
	}
}

func TestReplaceMirrorsLegacyJSON(t *testing.T) {
	store, mem, ws := newStoreRig(t)
	ctx := context.Background()

	candidate := []workshop.PlanNode{node(registry.TypeFraming), node(registry.TypeDiscussion)}
	if _, err := store.Replace(ctx, ws, candidate); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	stored, err := mem.Workshops().Get(ctx, ws.ID)
	if err != nil {
		t.Fatalf("reloading workshop: %v", err)
	}
	if stored.PlanJSON == "" {
		t.Fatal("legacy plan not mirrored")
	}
	decoded, err := decodeLegacy(ws.ID, stored.PlanJSON)
	if err != nil {
		t.Fatalf("mirrored legacy plan unreadable: %v", err)
	}
	if len(decoded) != 2 || decoded[1].TaskType != registry.TypeDiscussion {
		t.Fatalf("mirrored plan = %+v", decoded)
	}
}

func TestReplaceRejectsInvalidPlanWithoutPersisting(t *testing.T) {
	store, mem, ws := newStoreRig(t)
	ctx := context.Background()

	seed := []workshop.PlanNode{node(registry.TypeFraming)}
	if _, err := store.Replace(ctx, ws, seed); err != nil {
		t.Fatalf("seeding plan: %v", err)
	}

	_, err := store.Replace(ctx, ws, []workshop.PlanNode{node(registry.TypeClusteringVoting)})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	rows, err := mem.PlanNodes().ListByWorkshop(ctx, ws.ID)
	if err != nil {
		t.Fatalf("listing rows: %v", err)
	}
	if len(rows) != 1 || rows[0].TaskType != registry.TypeFraming {
		t.Fatalf("rejected plan overwrote rows: %+v", rows)
	}
}

func TestLegacyRoundTrip(t *testing.T) {
	voting := node(registry.TypeVoting)
	voting.ConfigJSON = `{"stage":"ideas"}`
	voting.Duration = workshop.Override(240)
	voting.Phase = "Dot voting"

	encoded, err := encodeLegacy([]workshop.PlanNode{node(registry.TypeBrainstorming), voting})
	if err != nil {
		t.Fatalf("encodeLegacy: %v", err)
	}
	decoded, err := decodeLegacy(42, encoded)
	if err != nil {
		t.Fatalf("decodeLegacy: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("got %d nodes", len(decoded))
	}
	got := decoded[1]
	if got.WorkshopID != 42 || got.OrderIndex != 1 {
		t.Errorf("identity fields = %+v", got)
	}
	if secs, set := got.Duration.Seconds(); !set || secs != 240 {
		t.Errorf("duration override lost: %d %v", secs, set)
	}
	if VotingStage(got.ConfigJSON) != registry.VotingStageIdeas {
		t.Errorf("config lost: %q", got.ConfigJSON)
	}
	if first, set := decoded[0].Duration.Seconds(); set {
		t.Errorf("no-override became %d", first)
	}
}

func TestDefaultPlanSeedsPresenter(t *testing.T) {
	ws := &workshop.Workshop{
		Flavor:    workshop.FlavorPresentation,
		CreatorID: "user_9",
	}
	nodes := DefaultPlan(ws)
	var found bool
	for _, n := range nodes {
		if n.TaskType == registry.TypePresentation {
			found = true
			if !strings.Contains(n.ConfigJSON, "user_9") {
				t.Errorf("presenter not seeded: %q", n.ConfigJSON)
			}
		}
	}
	if !found {
		t.Fatal("presentation phase missing from presentation flavor")
	}
}
