package logging

import (
	"time"

	"github.com/danielpatrickdp/squad-tactics/internal/update"
)

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	VersionID  string // version committed, or the active one on reject
	Lineage    string
	Direction  string // "apply" | "revert"
	ChangeJSON string
	Decision   string // "commit" | "gate_reject" | "eval_rollback" | "no_op"
	Reason     string
	CreatedAt  time.Time
}

// #endregion provenance-entry

// #region change-record
// ChangeRecord captures everything that went into one pipeline decision.
// Serialized as JSON into provenance_log.change_json for replay.
type ChangeRecord struct {
	TimeLearned int                        `json:"time_learned"`
	Before      map[int][]update.FactSpec `json:"before,omitempty"`
	After       map[int][]update.FactSpec `json:"after,omitempty"`

	// Gate output
	GateAction string   `json:"gate_action"`
	GateVetoed bool     `json:"gate_vetoed"`
	GateReason string   `json:"gate_reason"`
	Vetoes     []string `json:"vetoes,omitempty"`

	// Eval output, empty when the gate rejected
	EvalPassed bool           `json:"eval_passed"`
	EvalReason string         `json:"eval_reason,omitempty"`
	Levels     map[string]int `json:"levels,omitempty"` // areas per threat level
}

// #endregion change-record
