package codec

import (
	"context"
	"errors"
	"testing"

	"github.com/danielpatrickdp/squad-tactics/internal/interpret"
	"github.com/danielpatrickdp/squad-tactics/internal/rules"
	"github.com/danielpatrickdp/squad-tactics/internal/update"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region mock
type mockWorldService struct {
	lastMethod string
	lastIn     *structpb.Struct

	reply *structpb.Struct
	err   error
}

func (m *mockWorldService) call(method string, in *structpb.Struct) (*structpb.Struct, error) {
	m.lastMethod, m.lastIn = method, in
	return m.reply, m.err
}

func (m *mockWorldService) Apply(_ context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	return m.call("apply", in)
}

func (m *mockWorldService) Revert(_ context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	return m.call("revert", in)
}

func (m *mockWorldService) Interpret(_ context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	return m.call("interpret", in)
}

func mustStruct(t *testing.T, v interface{}) *structpb.Struct {
	t.Helper()
	s, err := toStruct(v)
	if err != nil {
		t.Fatalf("toStruct: %v", err)
	}
	return s
}

// #endregion mock

// #region constructor-tests
func TestNewClientLazyConnect(t *testing.T) {
	client, err := NewClient("localhost:0")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	defer client.Close()
}

func TestNewClientWithService(t *testing.T) {
	c := NewClientWithService(&mockWorldService{})
	if c == nil || c.client == nil {
		t.Fatal("expected client with injected service")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close without connection: %v", err)
	}
}

// #endregion constructor-tests

// #region call-tests
func TestApply_EncodesChangeAndDecodesReply(t *testing.T) {
	mock := &mockWorldService{}
	mock.reply = mustStruct(t, StepReply{
		Squad: "alpha", Direction: "apply", Action: "commit", VersionID: "v2",
		Levels: []interpret.ThreatLevel{interpret.Secure, interpret.KnownThreat},
	})
	c := NewClientWithService(mock)

	change := update.StateChange{Time: 3, After: map[int][]update.FactSpec{
		1: {{Kind: rules.TakingFire, Magnitude: 2, Related: []int{0}}},
	}}
	res, err := c.Apply(context.Background(), "alpha", change)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if mock.lastMethod != "apply" {
		t.Errorf("expected apply call, got %s", mock.lastMethod)
	}
	if res.Action != "commit" || res.VersionID != "v2" {
		t.Errorf("unexpected result %+v", res)
	}
	if len(res.Levels) != 2 || res.Levels[1] != interpret.KnownThreat {
		t.Errorf("unexpected levels %v", res.Levels)
	}

	var sent ChangeRequest
	if err := fromStruct(mock.lastIn, &sent); err != nil {
		t.Fatalf("decode sent request: %v", err)
	}
	if sent.Squad != "alpha" || sent.Change.Time != 3 {
		t.Errorf("unexpected request %+v", sent)
	}
	spec := sent.Change.After[1][0]
	if spec.Kind != rules.TakingFire || spec.Magnitude != 2 || len(spec.Related) != 1 || spec.Related[0] != 0 {
		t.Errorf("fact spec did not survive the struct encoding: %+v", spec)
	}
}

func TestRevert_UsesRevertMethod(t *testing.T) {
	mock := &mockWorldService{reply: mustStruct(t, StepReply{Action: "gate_reject", Vetoes: []string{"not_held"}})}
	c := NewClientWithService(mock)

	res, err := c.Revert(context.Background(), "alpha", update.StateChange{Time: 1})
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if mock.lastMethod != "revert" {
		t.Errorf("expected revert call, got %s", mock.lastMethod)
	}
	if res.Action != "gate_reject" || len(res.Vetoes) != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestInterpret_BuildsInterpretation(t *testing.T) {
	mock := &mockWorldService{reply: mustStruct(t, InterpretReply{
		Squad:     "alpha",
		VersionID: "v7",
		Levels:    []interpret.ThreatLevel{interpret.Clear, interpret.PotentialThreat, interpret.KnownThreat},
		Sources:   [][]int{{0}, {2}, {2}},
	})}
	c := NewClientWithService(mock)

	res, err := c.Interpret(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if res.VersionID != "v7" || res.Interpretation.NumberOfNodes() != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := res.Interpretation.SourcesFor(interpret.PotentialThreat); len(got) != 1 || got[0] != 2 {
		t.Errorf("unexpected sources %v", got)
	}
}

func TestInterpret_RejectsMismatchedSources(t *testing.T) {
	mock := &mockWorldService{reply: mustStruct(t, InterpretReply{
		Levels:  []interpret.ThreatLevel{interpret.Clear},
		Sources: [][]int{{0}, {1}},
	})}
	if _, err := NewClientWithService(mock).Interpret(context.Background(), "alpha"); err == nil {
		t.Fatal("expected error for two source lists over one level")
	}
}

func TestCalls_WrapRPCErrors(t *testing.T) {
	boom := errors.New("unavailable")
	c := NewClientWithService(&mockWorldService{err: boom})

	if _, err := c.Apply(context.Background(), "alpha", update.StateChange{}); !errors.Is(err, boom) {
		t.Errorf("Apply: expected wrapped error, got %v", err)
	}
	if _, err := c.Interpret(context.Background(), "alpha"); !errors.Is(err, boom) {
		t.Errorf("Interpret: expected wrapped error, got %v", err)
	}
}

// #endregion call-tests
