package state

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/squad-tactics/internal/rules"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// #region snapshot-record
// Snapshot is the persisted form of a DynamicState: a version in a lineage of
// snapshots, each pointing at the one it was derived from.
type Snapshot struct {
	VersionID   string
	ParentID    string
	NodeCount   int
	Facts       []FactRecord
	TimeLearned int
	CreatedAt   time.Time
}

// FactRecord is one fact in a Snapshot, effects included, so restoring a
// snapshot never needs the topology.
type FactRecord struct {
	Area        int            `json:"area"`
	Kind        rules.FactKind `json:"kind"`
	Magnitude   int            `json:"magnitude"`
	TimeLearned int            `json:"time_learned"`
	Effects     []Effect       `json:"effects,omitempty"`
}

// #endregion snapshot-record

// #region encode
// NewSnapshot captures ds as a new version whose parent is parentID.
func NewSnapshot(ds *DynamicState, parentID string, timeLearned int) Snapshot {
	var records []FactRecord
	for area := range ds.NumberOfNodes() {
		for _, kind := range sortedKinds(ds.facts[area]) {
			f := ds.facts[area][kind]
			records = append(records, FactRecord{
				Area:        area,
				Kind:        kind,
				Magnitude:   f.magnitude,
				TimeLearned: f.timeLearned,
				Effects:     f.Effects(),
			})
		}
	}
	return Snapshot{
		VersionID:   uuid.New().String(),
		ParentID:    parentID,
		NodeCount:   ds.NumberOfNodes(),
		Facts:       records,
		TimeLearned: timeLearned,
		CreatedAt:   time.Now().UTC(),
	}
}

// Restore rebuilds the DynamicState the snapshot was taken from.
func (s Snapshot) Restore(table *rules.Table) (*DynamicState, error) {
	if s.NodeCount < 0 {
		return nil, fmt.Errorf("snapshot %s: negative node count: %w", s.VersionID, ErrInvalidArgument)
	}
	facts := make([]AreaFacts, s.NodeCount)
	for _, r := range s.Facts {
		if r.Area < 0 || r.Area >= s.NodeCount {
			return nil, fmt.Errorf("snapshot %s: fact area %d out of range: %w", s.VersionID, r.Area, ErrInvalidArgument)
		}
		if facts[r.Area] == nil {
			facts[r.Area] = make(AreaFacts)
		}
		facts[r.Area][r.Kind] = NewFact(r.Kind, r.Magnitude, r.TimeLearned, r.Effects)
	}
	return New(table, facts)
}

func encodeFacts(records []FactRecord) (string, error) {
	if records == nil {
		records = []FactRecord{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshal facts: %w", err)
	}
	return string(b), nil
}

func decodeFacts(s string) ([]FactRecord, error) {
	var records []FactRecord
	if err := json.Unmarshal([]byte(s), &records); err != nil {
		return nil, fmt.Errorf("unmarshal facts: %w", err)
	}
	return records, nil
}

// #endregion encode
