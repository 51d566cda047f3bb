package replay

import (
	"fmt"
	"io"
	"slices"

	"github.com/danielpatrickdp/squad-tactics/internal/logging"
	"github.com/danielpatrickdp/squad-tactics/internal/topology"
	"github.com/danielpatrickdp/squad-tactics/internal/update"
	"gopkg.in/yaml.v3"
)

// #region export

// FromProvenance turns journal entries of one squad into a fixture whose
// expected actions are the recorded decisions. entries are newest first, as
// logging.ListEntries returns them. Every step is exported as an apply of
// the change the pipeline actually evaluated, so reverts replay as the
// inverse change. Rollbacks are not journaled; a lineage that was rolled
// back will not replay to the same versions.
func FromProvenance(squad string, doc topology.Document, entries []logging.ProvenanceEntry) (*Fixture, error) {
	f := &Fixture{
		Description: fmt.Sprintf("journal export: %d steps of squad %s", len(entries), squad),
		Squad:       squad,
		Topology:    doc,
	}
	for i, e := range slices.Backward(entries) {
		rec, err := logging.DecodeRecord(e.ChangeJSON)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, e.VersionID, err)
		}
		id := fmt.Sprintf("step-%03d", len(f.Steps)+1)
		f.Steps = append(f.Steps, FixtureStep{
			ID:     id,
			Change: update.StateChange{Time: rec.TimeLearned, Before: rec.Before, After: rec.After},
		})
		f.ExpectedResults = append(f.ExpectedResults, FixtureExpectedResult{StepID: id, Action: e.Decision})
	}
	return f, nil
}

// WriteFixture encodes f as YAML.
func WriteFixture(w io.Writer, f *Fixture) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	return enc.Close()
}

// #endregion export
