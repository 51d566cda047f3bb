package gate

import (
	"testing"

	"github.com/danielpatrickdp/squad-tactics/internal/rules"
	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/danielpatrickdp/squad-tactics/internal/update"
)

func makeState(t *testing.T) *state.DynamicState {
	t.Helper()
	facts := make([]state.AreaFacts, 4)
	facts[2] = state.AreaFacts{rules.EnemyPresence: state.NewFact(rules.EnemyPresence, 1, 0, nil)}
	ds, err := state.New(rules.DefaultTable(), facts)
	if err != nil {
		t.Fatalf("state.New: %v", err)
	}
	return ds
}

func TestGateCommitOnCleanChange(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	change := update.StateChange{
		Time:   1,
		Before: map[int][]update.FactSpec{2: {{Kind: rules.EnemyPresence, Magnitude: 1}}},
		After:  map[int][]update.FactSpec{3: {{Kind: rules.EnemyPresence, Magnitude: 1}}},
	}

	decision := g.Evaluate(makeState(t), change)

	if decision.Action != "commit" {
		t.Fatalf("expected commit, got %s: %s", decision.Action, decision.Reason)
	}
	if decision.Vetoed {
		t.Fatal("should not be vetoed")
	}
}

func TestGateRejects(t *testing.T) {
	cases := []struct {
		name   string
		change update.StateChange
		want   VetoType
	}{
		{
			name:   "area out of range",
			change: update.StateChange{After: map[int][]update.FactSpec{4: {{Kind: rules.EnemyPresence, Magnitude: 1}}}},
			want:   VetoAreaRange,
		},
		{
			name:   "unknown kind",
			change: update.StateChange{After: map[int][]update.FactSpec{0: {{Kind: rules.FactKind(50), Magnitude: 1}}}},
			want:   VetoUnknownKind,
		},
		{
			name:   "negative magnitude",
			change: update.StateChange{After: map[int][]update.FactSpec{0: {{Kind: rules.TakingFire, Magnitude: -2}}}},
			want:   VetoMagnitude,
		},
		{
			name:   "magnitude over cap",
			change: update.StateChange{After: map[int][]update.FactSpec{0: {{Kind: rules.TakingFire, Magnitude: 101}}}},
			want:   VetoMagnitude,
		},
		{
			name:   "related area out of range",
			change: update.StateChange{After: map[int][]update.FactSpec{0: {{Kind: rules.TakingFire, Magnitude: 1, Related: []int{9}}}}},
			want:   VetoRelatedArea,
		},
		{
			name:   "removes unheld fact",
			change: update.StateChange{Before: map[int][]update.FactSpec{1: {{Kind: rules.EnemyPresence, Magnitude: 1}}}},
			want:   VetoNotHeld,
		},
		{
			name: "duplicate kind",
			change: update.StateChange{After: map[int][]update.FactSpec{0: {
				{Kind: rules.TakingFire, Magnitude: 1},
				{Kind: rules.TakingFire, Magnitude: 2},
			}}},
			want: VetoDuplicate,
		},
		{
			name:   "adds held kind without removing it",
			change: update.StateChange{After: map[int][]update.FactSpec{2: {{Kind: rules.EnemyPresence, Magnitude: 3}}}},
			want:   VetoAlreadyHeld,
		},
	}

	g := NewGate(DefaultGateConfig())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := g.Evaluate(makeState(t), tc.change)
			if decision.Action != "reject" {
				t.Fatalf("expected reject, got %s", decision.Action)
			}
			if !decision.Vetoed || len(decision.VetoSignals) == 0 {
				t.Fatal("expected veto signals")
			}
			if decision.VetoSignals[0].Type != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, decision.VetoSignals[0].Type)
			}
		})
	}
}

func TestGateLimitsChangeSize(t *testing.T) {
	g := NewGate(GateConfig{MaxAffectedAreas: 1})
	change := update.StateChange{After: map[int][]update.FactSpec{
		0: {{Kind: rules.TakingFire, Magnitude: 1}},
		1: {{Kind: rules.TakingFire, Magnitude: 1}},
	}}

	decision := g.Evaluate(makeState(t), change)
	if decision.Action != "reject" || decision.VetoSignals[0].Type != VetoChangeTooBig {
		t.Fatalf("expected change_too_big reject, got %s: %s", decision.Action, decision.Reason)
	}
}

func TestGateAllowsReplacingHeldFact(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	change := update.StateChange{
		Time:   1,
		Before: map[int][]update.FactSpec{2: {{Kind: rules.EnemyPresence, Magnitude: 1}}},
		After:  map[int][]update.FactSpec{2: {{Kind: rules.EnemyPresence, Magnitude: 3}}},
	}

	decision := g.Evaluate(makeState(t), change)
	if decision.Action != "commit" {
		t.Fatalf("expected commit for a replacement, got %s: %s", decision.Action, decision.Reason)
	}
	if decision.Vetoed {
		t.Fatal("should not be vetoed")
	}
}
