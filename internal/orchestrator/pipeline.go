package orchestrator

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/squad-tactics/internal/eval"
	"github.com/danielpatrickdp/squad-tactics/internal/gate"
	"github.com/danielpatrickdp/squad-tactics/internal/interpret"
	"github.com/danielpatrickdp/squad-tactics/internal/logging"
	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/danielpatrickdp/squad-tactics/internal/topology"
	"github.com/danielpatrickdp/squad-tactics/internal/update"
	"github.com/danielpatrickdp/squad-tactics/internal/world"
	"go.uber.org/zap"
)

// ErrNoJournal is returned by operations that need a snapshot store.
var ErrNoJournal = errors.New("pipeline has no snapshot store")

// #region pipeline-struct

// Pipeline runs changes for one squad: gate -> apply -> interpret -> eval ->
// commit. It is not safe for concurrent use; Squads serializes access.
type Pipeline struct {
	squad       string
	updator     *update.WorldUpdator
	interpreter *interpret.Interpreter
	gate        *gate.Gate
	eval        *eval.EvalHarness
	store       *state.Store // optional journal
	logger      *zap.Logger

	current   *world.Representation
	versionID string
}

// #endregion

// #region constructor

// NewPipeline starts a squad on static. With a store, the squad resumes from
// its active snapshot, or journals an empty one when it has none.
func NewPipeline(
	squad string,
	static topology.Static,
	updator *update.WorldUpdator,
	config PipelineConfig,
	store *state.Store,
	logger *zap.Logger,
) (*Pipeline, error) {
	if static == nil || updator == nil {
		return nil, fmt.Errorf("pipeline %s: nil topology or updator", squad)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		squad:       squad,
		updator:     updator,
		interpreter: interpret.NewInterpreter(config.Interpreter, logger),
		gate:        gate.NewGate(config.Gate),
		eval:        eval.NewEvalHarness(config.Eval),
		store:       store,
		logger:      logger.Named("pipeline").With(zap.String("squad", squad)),
	}

	ds := state.Empty(updator.Rules(), static.NumberOfNodes())
	var snap state.Snapshot
	resumed := false
	if store != nil {
		cur, err := store.GetCurrent(squad)
		switch {
		case errors.Is(err, state.ErrNoLineage):
			// first run of this squad
		case err != nil:
			return nil, fmt.Errorf("pipeline %s: resume: %w", squad, err)
		default:
			restored, err := cur.Restore(updator.Rules())
			if err != nil {
				return nil, fmt.Errorf("pipeline %s: restore %s: %w", squad, cur.VersionID, err)
			}
			if restored.NumberOfNodes() != static.NumberOfNodes() {
				return nil, fmt.Errorf("pipeline %s: journal has %d areas, topology %d", squad, restored.NumberOfNodes(), static.NumberOfNodes())
			}
			ds, snap, resumed = restored, cur, true
		}
	}
	if !resumed {
		snap = state.NewSnapshot(ds, "", 0)
		if store != nil {
			if err := store.CommitSnapshot(squad, snap); err != nil {
				return nil, fmt.Errorf("pipeline %s: initial snapshot: %w", squad, err)
			}
		}
	}

	w, err := p.interpreted(static, ds)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", squad, err)
	}
	p.current, p.versionID = w, snap.VersionID
	p.logger.Info("pipeline ready", zap.String("version", p.versionID), zap.Bool("resumed", resumed))
	return p, nil
}

// #endregion

// #region accessors

func (p *Pipeline) Squad() string                  { return p.squad }
func (p *Pipeline) Current() *world.Representation { return p.current }
func (p *Pipeline) VersionID() string              { return p.versionID }

// #endregion

// #region step

// Apply runs change through the pipeline.
func (p *Pipeline) Apply(change update.DynamicStateChange) (StepResult, error) {
	return p.step(DirectionApply, change)
}

// Revert runs the reverse of change through the pipeline.
func (p *Pipeline) Revert(change update.DynamicStateChange) (StepResult, error) {
	return p.step(DirectionRevert, change)
}

func (p *Pipeline) step(dir Direction, change update.DynamicStateChange) (StepResult, error) {
	effective := change
	if dir == DirectionRevert {
		effective = update.Reversed(change)
	}
	res := StepResult{Squad: p.squad, Direction: dir, World: p.current, VersionID: p.versionID}
	rec := logging.ChangeRecord{
		TimeLearned: change.TimeLearned(),
		Before:      effective.FactsBefore(),
		After:       effective.FactsAfter(),
	}

	// 1. No-op check
	if len(effective.FactsBefore()) == 0 && len(effective.FactsAfter()) == 0 {
		res.Action, res.Reason = ActionNoOp, "change lists no facts"
		p.record(res, rec)
		return res, nil
	}

	// 2. Gate
	gd := p.gate.Evaluate(p.current.DynamicState(), effective)
	res.GateDecision = &gd
	rec.GateAction, rec.GateVetoed, rec.GateReason = gd.Action, gd.Vetoed, gd.Reason
	for _, v := range gd.VetoSignals {
		rec.Vetoes = append(rec.Vetoes, string(v.Type))
	}
	if gd.Action == "reject" {
		res.Action, res.Reason = ActionGateReject, gd.Reason
		p.record(res, rec)
		return res, nil
	}

	// 3. Apply and interpret
	next, err := p.updator.ApplyDynamicStateChange(p.current, effective)
	if err != nil {
		return res, fmt.Errorf("pipeline %s: %s: %w", p.squad, dir, err)
	}
	next, err = p.interpreted(next.Static(), next.DynamicState())
	if err != nil {
		return res, fmt.Errorf("pipeline %s: %w", p.squad, err)
	}

	// 4. Eval
	er := p.eval.Run(next.DynamicState(), next.Interpretation())
	res.EvalResult = &er
	rec.EvalPassed, rec.EvalReason = er.Passed, er.Reason
	rec.Levels = levelCounts(next.Interpretation())
	if !er.Passed {
		res.Action, res.Reason = ActionEvalRollback, er.Reason
		p.record(res, rec)
		return res, nil
	}

	// 5. Commit
	snap := state.NewSnapshot(next.DynamicState(), p.versionID, change.TimeLearned())
	if p.store != nil {
		if err := p.store.CommitSnapshot(p.squad, snap); err != nil {
			return res, fmt.Errorf("pipeline %s: commit: %w", p.squad, err)
		}
	}
	p.current, p.versionID = next, snap.VersionID
	res.Action, res.Reason = ActionCommit, gd.Reason
	res.World, res.VersionID = next, snap.VersionID
	p.record(res, rec)
	return res, nil
}

// Rollback makes a journaled version the squad's current world again.
func (p *Pipeline) Rollback(versionID string) error {
	if p.store == nil {
		return ErrNoJournal
	}
	snap, err := p.store.GetVersion(versionID)
	if err != nil {
		return fmt.Errorf("pipeline %s: %w", p.squad, err)
	}
	ds, err := snap.Restore(p.updator.Rules())
	if err != nil {
		return fmt.Errorf("pipeline %s: restore %s: %w", p.squad, versionID, err)
	}
	w, err := p.interpreted(p.current.Static(), ds)
	if err != nil {
		return fmt.Errorf("pipeline %s: %w", p.squad, err)
	}
	if err := p.store.Rollback(p.squad, versionID); err != nil {
		return fmt.Errorf("pipeline %s: %w", p.squad, err)
	}
	p.current, p.versionID = w, versionID
	p.logger.Info("rolled back", zap.String("version", versionID))
	return nil
}

// #endregion

// #region helpers

func (p *Pipeline) interpreted(static topology.Static, ds *state.DynamicState) (*world.Representation, error) {
	in, err := p.interpreter.Interpret(static, ds)
	if err != nil {
		return nil, fmt.Errorf("interpret: %w", err)
	}
	return world.New(static, ds, in)
}

// record logs the decision and, with a journal, writes its provenance row.
func (p *Pipeline) record(res StepResult, rec logging.ChangeRecord) {
	p.logger.Info("step",
		zap.String("direction", string(res.Direction)),
		zap.String("action", string(res.Action)),
		zap.String("reason", res.Reason),
		zap.String("version", res.VersionID),
	)
	if p.store == nil {
		return
	}
	changeJSON, err := logging.EncodeRecord(rec)
	if err != nil {
		p.logger.Warn("encode change record", zap.Error(err))
	}
	err = logging.LogChange(p.store.DB(), logging.ProvenanceEntry{
		VersionID:  res.VersionID,
		Lineage:    p.squad,
		Direction:  string(res.Direction),
		ChangeJSON: changeJSON,
		Decision:   string(res.Action),
		Reason:     res.Reason,
	})
	if err != nil {
		p.logger.Warn("provenance", zap.Error(err))
	}
}

func levelCounts(in *interpret.Interpretation) map[string]int {
	out := make(map[string]int)
	for level, n := range in.Counts() {
		out[level.String()] = n
	}
	return out
}

// #endregion
