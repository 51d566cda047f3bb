package eval

// #region eval-config
// EvalConfig holds thresholds for post-apply validation.
type EvalConfig struct {
	// MaxThreatShare flags more than this share of areas classified
	// PotentialThreat or worse. Informational unless EnforceThreatShare.
	MaxThreatShare     float64 `mapstructure:"max_threat_share"`
	EnforceThreatShare bool    `mapstructure:"enforce_threat_share"`
}

// DefaultEvalConfig returns sensible defaults.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MaxThreatShare: 0.75,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of post-apply validation.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// #endregion eval-result
