package gate

// #region veto-type
// VetoType enumerates hard veto categories.
type VetoType string

const (
	VetoAreaRange    VetoType = "area_out_of_range"
	VetoUnknownKind  VetoType = "unknown_fact_kind"
	VetoMagnitude    VetoType = "magnitude_violation"
	VetoRelatedArea  VetoType = "related_area_out_of_range"
	VetoNotHeld      VetoType = "removes_unheld_fact"
	VetoAlreadyHeld  VetoType = "adds_held_fact"
	VetoDuplicate    VetoType = "duplicate_fact_kind"
	VetoChangeTooBig VetoType = "change_too_big"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected hard veto condition.
type VetoSignal struct {
	Type   VetoType
	Area   int
	Reason string
}

// #endregion veto-signal

// #region gate-config
// GateConfig holds limits for gate decisions. Zero disables a limit.
type GateConfig struct {
	MaxMagnitude     int `mapstructure:"max_magnitude"`      // largest magnitude a fact may carry
	MaxAffectedAreas int `mapstructure:"max_affected_areas"` // areas one change may touch
}

// DefaultGateConfig returns sensible defaults.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MaxMagnitude:     100,
		MaxAffectedAreas: 0,
	}
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action      string // "commit" | "reject"
	Reason      string
	Vetoed      bool
	VetoSignals []VetoSignal // non-empty if vetoed
}

// #endregion gate-decision
