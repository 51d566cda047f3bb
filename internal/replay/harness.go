package replay

import (
	"fmt"

	"github.com/danielpatrickdp/squad-tactics/internal/interpret"
	"github.com/danielpatrickdp/squad-tactics/internal/orchestrator"
	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/danielpatrickdp/squad-tactics/internal/update"
	"go.uber.org/zap"
)

// #region types
// Step is one recorded change for replay.
type Step struct {
	ID        string
	Direction orchestrator.Direction
	Change    update.StateChange
}

// ReplayResult captures the outcome of replaying one step through the pipeline.
type ReplayResult struct {
	StepID string
	orchestrator.StepResult

	// Levels after the step (the previous levels if rejected or rolled back)
	Levels []interpret.ThreatLevel
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSteps     int
	Commits        int
	GateRejects    int
	EvalRollbacks  int
	NoOps          int
	FinalVersionID string
}

// Mismatch is one expected result the replay did not reproduce.
type Mismatch struct {
	StepID string
	Field  string
	Want   string
	Got    string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s want %s, got %s", m.StepID, m.Field, m.Want, m.Got)
}

// Outcome is a fixture run: results, summary and whatever did not match.
type Outcome struct {
	Description string
	Results     []ReplayResult
	Summary     ReplaySummary
	Mismatches  []Mismatch
}

// #endregion types

// #region replay
// Replay runs steps through p in order. It stops at the first step the
// pipeline cannot process at all; gate rejects and eval rollbacks are
// ordinary results.
func Replay(p *orchestrator.Pipeline, steps []Step) ([]ReplayResult, error) {
	results := make([]ReplayResult, 0, len(steps))
	for _, s := range steps {
		var (
			res orchestrator.StepResult
			err error
		)
		if s.Direction == orchestrator.DirectionRevert {
			res, err = p.Revert(s.Change)
		} else {
			res, err = p.Apply(s.Change)
		}
		if err != nil {
			return results, fmt.Errorf("step %s: %w", s.ID, err)
		}
		results = append(results, ReplayResult{
			StepID:     s.ID,
			StepResult: res,
			Levels:     res.World.Interpretation().Levels(),
		})
	}
	return results, nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalSteps: len(results)}
	for _, r := range results {
		switch r.Action {
		case orchestrator.ActionCommit:
			s.Commits++
		case orchestrator.ActionGateReject:
			s.GateRejects++
		case orchestrator.ActionEvalRollback:
			s.EvalRollbacks++
		case orchestrator.ActionNoOp:
			s.NoOps++
		}
	}
	if len(results) > 0 {
		s.FinalVersionID = results[len(results)-1].VersionID
	}
	return s
}

// Check compares results against the fixture's expectations.
func Check(f *Fixture, results []ReplayResult) []Mismatch {
	byStep := make(map[string]ReplayResult, len(results))
	for _, r := range results {
		byStep[r.StepID] = r
	}
	var out []Mismatch
	for _, e := range f.ExpectedResults {
		r, ok := byStep[e.StepID]
		if !ok {
			out = append(out, Mismatch{StepID: e.StepID, Field: "result", Want: "present", Got: "missing"})
			continue
		}
		if e.Action != "" && string(r.Action) != e.Action {
			out = append(out, Mismatch{StepID: e.StepID, Field: "action", Want: e.Action, Got: string(r.Action)})
		}
		for area, want := range e.Levels {
			if area < 0 || area >= len(r.Levels) {
				out = append(out, Mismatch{StepID: e.StepID, Field: fmt.Sprintf("level[%d]", area), Want: want.String(), Got: "out of range"})
				continue
			}
			if got := r.Levels[area]; got != want {
				out = append(out, Mismatch{StepID: e.StepID, Field: fmt.Sprintf("level[%d]", area), Want: want.String(), Got: got.String()})
			}
		}
	}
	return out
}

// RunFixture builds a pipeline for f and replays it. store may be nil for an
// in-memory run.
func RunFixture(f *Fixture, updator *update.WorldUpdator, base orchestrator.PipelineConfig, store *state.Store, logger *zap.Logger) (*Outcome, error) {
	g, err := f.Topology.Build()
	if err != nil {
		return nil, fmt.Errorf("fixture topology: %w", err)
	}
	p, err := orchestrator.NewPipeline(f.Squad, g, updator, f.Config.ToPipelineConfig(base), store, logger)
	if err != nil {
		return nil, err
	}
	results, err := Replay(p, f.ToSteps())
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Description: f.Description,
		Results:     results,
		Summary:     Summarize(results),
		Mismatches:  Check(f, results),
	}, nil
}

// #endregion replay
