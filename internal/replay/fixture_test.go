package replay

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/squad-tactics/internal/orchestrator"
	"github.com/danielpatrickdp/squad-tactics/internal/rules"
	"github.com/danielpatrickdp/squad-tactics/internal/update"
	"go.uber.org/zap/zaptest"
)

// #region fixture-tests

func defaultUpdator(t *testing.T) *update.WorldUpdator {
	t.Helper()
	u, err := update.NewWorldUpdator(rules.DefaultTable(), update.DefaultRegistry(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewWorldUpdator: %v", err)
	}
	return u
}

// TestFixture_RidgeContact replays the ridge scenario and compares every
// step's action and levels against the fixture. Any drift in the rule table,
// the gate or the interpreter shows up here.
func TestFixture_RidgeContact(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "ridge_contact.yaml"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Squad != "alpha" || len(f.Steps) != 5 {
		t.Fatalf("unexpected fixture shape: squad=%s steps=%d", f.Squad, len(f.Steps))
	}

	out, err := RunFixture(f, defaultUpdator(t), orchestrator.DefaultPipelineConfig(), nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("RunFixture: %v", err)
	}
	for _, m := range out.Mismatches {
		t.Errorf("mismatch %s", m)
	}

	s := out.Summary
	if s.TotalSteps != 5 || s.Commits != 3 || s.GateRejects != 1 || s.NoOps != 1 || s.EvalRollbacks != 0 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestParseFixture_Defaults(t *testing.T) {
	f, err := ParseFixture([]byte(`
topology:
  nodes: [{name: a}, {name: b}]
steps:
  - id: one
    time: 1
    after:
      1: [{kind: enemy_presence, magnitude: 2}]
`))
	if err != nil {
		t.Fatalf("ParseFixture: %v", err)
	}
	if f.Squad != "replay" {
		t.Errorf("expected default squad replay, got %s", f.Squad)
	}
	steps := f.ToSteps()
	if steps[0].Direction != orchestrator.DirectionApply {
		t.Errorf("expected default direction apply, got %s", steps[0].Direction)
	}
	spec := steps[0].Change.After[1][0]
	if spec.Kind != rules.EnemyPresence || spec.Magnitude != 2 {
		t.Errorf("unexpected fact spec %+v", spec)
	}
}

func TestParseFixture_Rejects(t *testing.T) {
	cases := []struct {
		name, doc, want string
	}{
		{"unknown field", "steps: []\nbogus: 1\n", "bogus"},
		{"missing id", "steps:\n  - time: 1\n", "no id"},
		{"duplicate id", "steps:\n  - id: a\n  - id: a\n", "duplicate"},
		{"bad direction", "steps:\n  - id: a\n    direction: sideways\n", "direction"},
		{"orphan expectation", "steps:\n  - id: a\nexpected_results:\n  - step_id: b\n", "unknown step"},
		{"unknown kind", "steps:\n  - id: a\n    after:\n      0: [{kind: dragons}]\n", "dragons"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFixture([]byte(tc.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestFixtureConfig_Overrides(t *testing.T) {
	base := orchestrator.DefaultPipelineConfig()
	got := FixtureConfig{MaxMagnitude: 5, EnforceThreatShare: true, DistanceThreshold: 40}.ToPipelineConfig(base)
	if got.Gate.MaxMagnitude != 5 || !got.Eval.EnforceThreatShare || got.Interpreter.DistanceThreshold != 40 {
		t.Errorf("overrides not applied: %+v", got)
	}
	if got.Eval.MaxThreatShare != base.Eval.MaxThreatShare || got.Gate.MaxAffectedAreas != base.Gate.MaxAffectedAreas {
		t.Errorf("zero fields should keep defaults: %+v", got)
	}
}

// #endregion fixture-tests
