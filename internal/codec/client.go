package codec

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/squad-tactics/internal/interpret"
	"github.com/danielpatrickdp/squad-tactics/internal/update"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region types
// StepResult holds the response from an Apply or Revert call.
type StepResult struct {
	Squad     string
	Direction string
	Action    string // "commit" | "gate_reject" | "eval_rollback" | "no_op"
	Reason    string
	VersionID string
	Vetoes    []string
	Levels    []interpret.ThreatLevel
}

// InterpretResult holds the response from an Interpret call.
type InterpretResult struct {
	Squad          string
	VersionID      string
	Interpretation *interpret.Interpretation
}

// #endregion types

// #region client-struct
// Client wraps the gRPC connection to a tactics server.
type Client struct {
	conn   *grpc.ClientConn
	client WorldServiceClient
}

// #endregion client-struct

// #region constructor
// NewClient connects to a tactics server. The connection is established
// lazily on the first call.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		client: NewWorldServiceClient(conn),
	}, nil
}

// NewClientWithService creates a Client with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewClientWithService(svc WorldServiceClient) *Client {
	return &Client{client: svc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region calls
// Apply sends change for squad through the server's pipeline.
func (c *Client) Apply(ctx context.Context, squad string, change update.StateChange) (StepResult, error) {
	return c.change(ctx, "apply", c.client.Apply, squad, change)
}

// Revert asks the server to undo change for squad.
func (c *Client) Revert(ctx context.Context, squad string, change update.StateChange) (StepResult, error) {
	return c.change(ctx, "revert", c.client.Revert, squad, change)
}

type structCall func(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error)

func (c *Client) change(ctx context.Context, name string, call structCall, squad string, change update.StateChange) (StepResult, error) {
	in, err := toStruct(ChangeRequest{Squad: squad, Change: change})
	if err != nil {
		return StepResult{}, fmt.Errorf("%s request: %w", name, err)
	}
	out, err := call(ctx, in)
	if err != nil {
		return StepResult{}, fmt.Errorf("%s rpc: %w", name, err)
	}
	var reply StepReply
	if err := fromStruct(out, &reply); err != nil {
		return StepResult{}, fmt.Errorf("%s reply: %w", name, err)
	}
	return StepResult(reply), nil
}

// Interpret fetches the current interpretation of squad.
func (c *Client) Interpret(ctx context.Context, squad string) (InterpretResult, error) {
	in, err := toStruct(SquadRequest{Squad: squad})
	if err != nil {
		return InterpretResult{}, fmt.Errorf("interpret request: %w", err)
	}
	out, err := c.client.Interpret(ctx, in)
	if err != nil {
		return InterpretResult{}, fmt.Errorf("interpret rpc: %w", err)
	}
	var reply InterpretReply
	if err := fromStruct(out, &reply); err != nil {
		return InterpretResult{}, fmt.Errorf("interpret reply: %w", err)
	}
	interp, err := interpret.NewInterpretation(reply.Levels, reply.Sources)
	if err != nil {
		return InterpretResult{}, fmt.Errorf("interpret reply: %w", err)
	}
	return InterpretResult{Squad: reply.Squad, VersionID: reply.VersionID, Interpretation: interp}, nil
}

// #endregion calls
