package replay

import (
	"bytes"
	"fmt"
	"os"

	"github.com/danielpatrickdp/squad-tactics/internal/interpret"
	"github.com/danielpatrickdp/squad-tactics/internal/orchestrator"
	"github.com/danielpatrickdp/squad-tactics/internal/topology"
	"github.com/danielpatrickdp/squad-tactics/internal/update"
	"gopkg.in/yaml.v3"
)

// #region fixture-types

// Fixture is the top-level YAML structure for a replay scenario.
type Fixture struct {
	Description     string                  `yaml:"description"`
	Squad           string                  `yaml:"squad,omitempty"`
	Topology        topology.Document       `yaml:"topology"`
	Config          FixtureConfig           `yaml:"config,omitempty"`
	Steps           []FixtureStep           `yaml:"steps"`
	ExpectedResults []FixtureExpectedResult `yaml:"expected_results"`
}

// FixtureStep is one change to apply or revert.
type FixtureStep struct {
	ID        string             `yaml:"id"`
	Direction string             `yaml:"direction,omitempty"` // "apply" (default) | "revert"
	Change    update.StateChange `yaml:",inline"`
}

// FixtureExpectedResult captures the expected action per step, and
// optionally the expected level of some areas afterwards.
type FixtureExpectedResult struct {
	StepID string                        `yaml:"step_id"`
	Action string                        `yaml:"action,omitempty"`
	Levels map[int]interpret.ThreatLevel `yaml:"levels,omitempty"`
}

// FixtureConfig overrides pipeline defaults. Zero fields keep the default.
type FixtureConfig struct {
	MaxMagnitude       int     `yaml:"max_magnitude,omitempty"`
	MaxAffectedAreas   int     `yaml:"max_affected_areas,omitempty"`
	MaxThreatShare     float64 `yaml:"max_threat_share,omitempty"`
	EnforceThreatShare bool    `yaml:"enforce_threat_share,omitempty"`
	DistanceThreshold  float64 `yaml:"distance_threshold,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	f, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return f, nil
}

// ParseFixture decodes a fixture and checks that every expected result
// names a step.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if f.Squad == "" {
		f.Squad = "replay"
	}
	ids := make(map[string]bool, len(f.Steps))
	for i, s := range f.Steps {
		if s.ID == "" {
			return nil, fmt.Errorf("step %d has no id", i)
		}
		if ids[s.ID] {
			return nil, fmt.Errorf("duplicate step id %q", s.ID)
		}
		switch orchestrator.Direction(s.Direction) {
		case "", orchestrator.DirectionApply, orchestrator.DirectionRevert:
		default:
			return nil, fmt.Errorf("step %s: unknown direction %q", s.ID, s.Direction)
		}
		ids[s.ID] = true
	}
	for _, e := range f.ExpectedResults {
		if !ids[e.StepID] {
			return nil, fmt.Errorf("expected result for unknown step %q", e.StepID)
		}
	}
	return &f, nil
}

// ToSteps converts fixture steps to domain steps.
func (f *Fixture) ToSteps() []Step {
	out := make([]Step, len(f.Steps))
	for i, s := range f.Steps {
		dir := orchestrator.Direction(s.Direction)
		if dir == "" {
			dir = orchestrator.DirectionApply
		}
		out[i] = Step{ID: s.ID, Direction: dir, Change: s.Change}
	}
	return out
}

// ToPipelineConfig applies the fixture overrides to base.
func (fc FixtureConfig) ToPipelineConfig(base orchestrator.PipelineConfig) orchestrator.PipelineConfig {
	if fc.MaxMagnitude > 0 {
		base.Gate.MaxMagnitude = fc.MaxMagnitude
	}
	if fc.MaxAffectedAreas > 0 {
		base.Gate.MaxAffectedAreas = fc.MaxAffectedAreas
	}
	if fc.MaxThreatShare > 0 {
		base.Eval.MaxThreatShare = fc.MaxThreatShare
	}
	if fc.EnforceThreatShare {
		base.Eval.EnforceThreatShare = true
	}
	if fc.DistanceThreshold > 0 {
		base.Interpreter.DistanceThreshold = fc.DistanceThreshold
	}
	return base
}

// #endregion fixture-loader
