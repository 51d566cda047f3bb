package orchestrator

import (
	"github.com/danielpatrickdp/squad-tactics/internal/eval"
	"github.com/danielpatrickdp/squad-tactics/internal/gate"
	"github.com/danielpatrickdp/squad-tactics/internal/interpret"
	"github.com/danielpatrickdp/squad-tactics/internal/world"
)

// #region action

// Action is what a pipeline step did with a change.
type Action string

const (
	ActionCommit       Action = "commit"
	ActionGateReject   Action = "gate_reject"
	ActionEvalRollback Action = "eval_rollback"
	ActionNoOp         Action = "no_op"
)

// Direction tells whether a change was applied or reverted.
type Direction string

const (
	DirectionApply  Direction = "apply"
	DirectionRevert Direction = "revert"
)

// #endregion

// #region pipeline-config

// PipelineConfig bundles gate, eval and interpreter configs for one pipeline.
type PipelineConfig struct {
	Gate        gate.GateConfig  `mapstructure:"gate"`
	Eval        eval.EvalConfig  `mapstructure:"eval"`
	Interpreter interpret.Config `mapstructure:"interpreter"`
}

// DefaultPipelineConfig returns sensible defaults for all three stages.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Gate:        gate.DefaultGateConfig(),
		Eval:        eval.DefaultEvalConfig(),
		Interpreter: interpret.DefaultConfig(),
	}
}

// #endregion

// #region step-result

// StepResult captures the outcome of one change through the pipeline.
type StepResult struct {
	Squad     string
	Direction Direction
	Action    Action
	Reason    string

	// Gate stage (nil on no_op)
	GateDecision *gate.GateDecision

	// Eval stage (nil on no_op or gate_reject)
	EvalResult *eval.EvalResult

	// World and version after the step; unchanged unless committed
	World     *world.Representation
	VersionID string
}

// #endregion
