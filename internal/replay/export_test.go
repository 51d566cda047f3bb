package replay

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/squad-tactics/internal/logging"
	"github.com/danielpatrickdp/squad-tactics/internal/orchestrator"
	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/danielpatrickdp/squad-tactics/internal/topology"
	"go.uber.org/zap/zaptest"
)

// An exported journal replays to the decisions it recorded.
func TestFromProvenance_RoundTrip(t *testing.T) {
	store, err := state.NewStore(filepath.Join(t.TempDir(), "export.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	src, err := LoadFixture(filepath.Join("testdata", "ridge_contact.yaml"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if _, err := RunFixture(src, defaultUpdator(t), orchestrator.DefaultPipelineConfig(), store, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("RunFixture: %v", err)
	}

	entries, err := logging.ListEntries(store.DB(), "alpha", 0)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	exported, err := FromProvenance("alpha", src.Topology, entries)
	if err != nil {
		t.Fatalf("FromProvenance: %v", err)
	}
	if len(exported.Steps) != len(src.Steps) {
		t.Fatalf("expected %d steps, got %d", len(src.Steps), len(exported.Steps))
	}
	if exported.ExpectedResults[0].Action != "commit" || exported.ExpectedResults[2].Action != "gate_reject" {
		t.Errorf("unexpected expected actions: %+v", exported.ExpectedResults)
	}

	var buf bytes.Buffer
	if err := WriteFixture(&buf, exported); err != nil {
		t.Fatalf("WriteFixture: %v", err)
	}
	reread, err := ParseFixture(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseFixture of exported YAML: %v\n%s", err, buf.String())
	}

	out, err := RunFixture(reread, defaultUpdator(t), orchestrator.DefaultPipelineConfig(), nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("RunFixture of export: %v", err)
	}
	for _, m := range out.Mismatches {
		t.Errorf("mismatch %s", m)
	}
}

func TestFromProvenance_BadRecord(t *testing.T) {
	entries := []logging.ProvenanceEntry{{VersionID: "v1", ChangeJSON: "{not json", Decision: "commit"}}
	if _, err := FromProvenance("alpha", topology.Document{}, entries); err == nil {
		t.Fatal("expected an error for a malformed change record")
	}
}
