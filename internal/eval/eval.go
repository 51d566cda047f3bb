package eval

import (
	"fmt"

	"github.com/danielpatrickdp/squad-tactics/internal/interpret"
	"github.com/danielpatrickdp/squad-tactics/internal/state"
)

// #region eval-harness
// EvalHarness checks that an interpretation agrees with the snapshot it was
// derived from.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run validates in against ds and returns pass/fail with metrics.
func (h *EvalHarness) Run(ds *state.DynamicState, in *interpret.Interpretation) EvalResult {
	if ds == nil || in == nil {
		return EvalResult{Passed: false, Reason: "eval failed: missing dynamic state or interpretation"}
	}
	if ds.NumberOfNodes() != in.NumberOfNodes() {
		return EvalResult{
			Passed: false,
			Reason: fmt.Sprintf("eval failed: interpretation covers %d areas, state %d", in.NumberOfNodes(), ds.NumberOfNodes()),
		}
	}

	var metrics []EvalMetric
	var failReasons []string
	check := func(name string, bad int, reason string) {
		metrics = append(metrics, EvalMetric{Name: name, Value: float64(bad), Pass: bad == 0})
		if bad > 0 {
			failReasons = append(failReasons, fmt.Sprintf("%d %s", bad, reason))
		}
	}

	var unknownEnemies, unchecked, exposedControl, threatened int
	for a := range ds.NumberOfNodes() {
		level := in.Level(a)
		if ds.EnemyPresence(a) > 0 && level != interpret.KnownThreat {
			unknownEnemies++
		}
		if level == interpret.Unchecked {
			unchecked++
		}
		if ds.IsControlledByTeam(a) && ds.EnemyPresence(a) <= 0 && level != interpret.Secure {
			exposedControl++
		}
		if level >= interpret.PotentialThreat {
			threatened++
		}
	}

	// 1. Enemy presence is ground truth
	check("enemy_known_threat", unknownEnemies, "enemy areas not classified known_threat")
	// 2. Every area resolved
	check("unchecked_areas", unchecked, "areas left unchecked")
	// 3. Team control fixes Secure
	check("controlled_secure", exposedControl, "team-controlled areas not secure")

	// 4. Threat share: informational unless enforced
	share := 0.0
	if n := ds.NumberOfNodes(); n > 0 {
		share = float64(threatened) / float64(n)
	}
	sharePass := share <= h.config.MaxThreatShare
	metrics = append(metrics, EvalMetric{
		Name:  "threat_share",
		Value: share,
		Pass:  sharePass,
	})
	if !sharePass && h.config.EnforceThreatShare {
		failReasons = append(failReasons, fmt.Sprintf("threat share %.2f exceeds %.2f", share, h.config.MaxThreatShare))
	}

	passed := len(failReasons) == 0
	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness
