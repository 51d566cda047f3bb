package codec

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/squad-tactics/internal/interpret"
	"github.com/danielpatrickdp/squad-tactics/internal/update"
	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// #region service-desc

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "tactics.WorldService"

const (
	methodApply     = "/" + ServiceName + "/Apply"
	methodRevert    = "/" + ServiceName + "/Revert"
	methodInterpret = "/" + ServiceName + "/Interpret"
)

// WorldServiceServer is the server side of WorldService. Every message is a
// google.protobuf.Struct holding the JSON form of the request or response.
type WorldServiceServer interface {
	Apply(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Revert(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Interpret(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// WorldServiceClient is the client side of WorldService.
type WorldServiceClient interface {
	Apply(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Revert(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Interpret(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

// WorldServiceDesc describes WorldService for grpc.Server.RegisterService.
var WorldServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WorldServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Apply", Handler: unaryHandler(methodApply, WorldServiceServer.Apply)},
		{MethodName: "Revert", Handler: unaryHandler(methodRevert, WorldServiceServer.Revert)},
		{MethodName: "Interpret", Handler: unaryHandler(methodInterpret, WorldServiceServer.Interpret)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tactics/world.proto",
}

// RegisterWorldServiceServer registers srv on s.
func RegisterWorldServiceServer(s grpc.ServiceRegistrar, srv WorldServiceServer) {
	s.RegisterService(&WorldServiceDesc, srv)
}

type structMethod func(WorldServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(WorldServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(WorldServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// #endregion service-desc

// #region client-stub

type worldServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewWorldServiceClient wraps a connection in the WorldService stub.
func NewWorldServiceClient(cc grpc.ClientConnInterface) WorldServiceClient {
	return &worldServiceClient{cc: cc}
}

func (c *worldServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *worldServiceClient) Apply(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodApply, in, opts)
}

func (c *worldServiceClient) Revert(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodRevert, in, opts)
}

func (c *worldServiceClient) Interpret(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodInterpret, in, opts)
}

// #endregion client-stub

// #region messages

// ChangeRequest asks for a change to be applied to, or reverted from, a squad.
type ChangeRequest struct {
	Squad  string             `json:"squad"`
	Change update.StateChange `json:"change"`
}

// SquadRequest names the squad an Interpret call is about.
type SquadRequest struct {
	Squad string `json:"squad"`
}

// StepReply is the outcome of Apply or Revert.
type StepReply struct {
	Squad     string                  `json:"squad"`
	Direction string                  `json:"direction"`
	Action    string                  `json:"action"`
	Reason    string                  `json:"reason,omitempty"`
	VersionID string                  `json:"version_id"`
	Vetoes    []string                `json:"vetoes,omitempty"`
	Levels    []interpret.ThreatLevel `json:"levels"`
}

// InterpretReply is the squad's current interpretation.
type InterpretReply struct {
	Squad     string                  `json:"squad"`
	VersionID string                  `json:"version_id"`
	Levels    []interpret.ThreatLevel `json:"levels"`
	Sources   [][]int                 `json:"sources"`
}

// #endregion messages

// #region struct-conversion

// toStruct converts v to a Struct through its JSON form.
func toStruct(v interface{}) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	s := new(structpb.Struct)
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("message to struct: %w", err)
	}
	return s, nil
}

// fromStruct fills v from the JSON form of s.
func fromStruct(s *structpb.Struct, v interface{}) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("struct to json: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}
	return nil
}

// #endregion struct-conversion
