package registry

import (
	"sort"
	"testing"
)

func TestEntriesAreInternallyConsistent(t *testing.T) {
	for taskType, entry := range entries {
		if entry.DefaultDuration <= 0 {
			t.Errorf("%s: default duration %d", taskType, entry.DefaultDuration)
		}
		if entry.Event == "" {
			t.Errorf("%s: no broadcast event", taskType)
		}
		if entry.DependsOnTask != "" && !Known(entry.DependsOnTask) {
			t.Errorf("%s: depends on unknown type %q", taskType, entry.DependsOnTask)
		}
		if entry.Repeatable && len(entry.Inputs) > 0 {
			for _, input := range entry.Inputs {
				if _, optional := SplitInput(input); !optional {
					t.Errorf("%s: repeatable phase with required input %q", taskType, input)
				}
			}
		}
	}
}

func TestEveryRequiredInputIsProducedSomewhere(t *testing.T) {
	produced := map[string]bool{}
	for _, entry := range entries {
		for _, out := range entry.Outputs {
			produced[out] = true
		}
	}
	for taskType, entry := range entries {
		for _, input := range entry.Inputs {
			kind, _ := SplitInput(input)
			if !produced[kind] {
				t.Errorf("%s: input %q has no producer", taskType, kind)
			}
		}
	}
}

func TestTypesSorted(t *testing.T) {
	types := Types()
	if len(types) != len(entries) {
		t.Fatalf("Types returned %d entries, registry has %d", len(types), len(entries))
	}
	if !sort.StringsAreSorted(types) {
		t.Errorf("Types not sorted: %v", types)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, ok := Lookup("karaoke"); ok {
		t.Error("unknown type found")
	}
	if Known("karaoke") {
		t.Error("unknown type reported known")
	}
}

func TestVotingStageRules(t *testing.T) {
	cases := []struct {
		stage     string
		inputs    []string
		dependsOn string
	}{
		{VotingStageClusters, []string{KindClusters}, TypeClusteringVoting},
		{VotingStageIdeas, []string{KindIdeas}, TypeBrainstorming},
		{VotingStageIdeasFromTopCluster, []string{KindIdeas}, TypeBrainstorming},
		{VotingStageManual, nil, ""},
		{"", nil, ""},
		{"nonsense", nil, ""},
	}
	for _, tc := range cases {
		inputs := InputsForVotingStage(tc.stage)
		if len(inputs) != len(tc.inputs) {
			t.Errorf("stage %q: inputs = %v, want %v", tc.stage, inputs, tc.inputs)
			continue
		}
		for i := range inputs {
			if inputs[i] != tc.inputs[i] {
				t.Errorf("stage %q: inputs = %v, want %v", tc.stage, inputs, tc.inputs)
			}
		}
		if got := DependsOnTaskForVotingStage(tc.stage); got != tc.dependsOn {
			t.Errorf("stage %q: depends on %q, want %q", tc.stage, got, tc.dependsOn)
		}
	}
}

func TestSplitInput(t *testing.T) {
	kind, optional := SplitInput("votes?")
	if kind != "votes" || !optional {
		t.Errorf("SplitInput(votes?) = %q %v", kind, optional)
	}
	kind, optional = SplitInput("ideas")
	if kind != "ideas" || optional {
		t.Errorf("SplitInput(ideas) = %q %v", kind, optional)
	}
}
