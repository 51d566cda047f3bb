package codec

import (
	"context"
	"errors"
	"time"

	"github.com/danielpatrickdp/squad-tactics/internal/orchestrator"
	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/danielpatrickdp/squad-tactics/internal/update"
	"github.com/danielpatrickdp/squad-tactics/internal/world"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region server
// Server serves WorldService on top of a squad registry. Squads are handled
// concurrently; calls for one squad run one at a time.
type Server struct {
	squads *orchestrator.Squads
	logger *zap.Logger
}

var _ WorldServiceServer = (*Server)(nil)

// NewServer wraps squads.
func NewServer(squads *orchestrator.Squads, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{squads: squads, logger: logger.Named("codec")}
}

// NewGRPCServer builds a grpc.Server with s registered, mutating calls
// limited by limiter and every call logged. limiter may be nil.
func NewGRPCServer(s *Server, limiter *rate.Limiter, opts ...grpc.ServerOption) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{LoggingInterceptor(s.logger)}
	if limiter != nil {
		interceptors = append(interceptors, RateLimitInterceptor(limiter, methodApply, methodRevert))
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(interceptors...))
	gs := grpc.NewServer(opts...)
	RegisterWorldServiceServer(gs, s)
	return gs
}

func (s *Server) Apply(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.change(ctx, in, s.squads.Apply)
}

func (s *Server) Revert(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.change(ctx, in, s.squads.Revert)
}

func (s *Server) change(ctx context.Context, in *structpb.Struct, run func(string, update.DynamicStateChange) (orchestrator.StepResult, error)) (*structpb.Struct, error) {
	var req ChangeRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.Squad == "" {
		return nil, status.Error(codes.InvalidArgument, "squad is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}

	res, err := run(req.Squad, req.Change)
	if err != nil {
		return nil, toStatus(err)
	}
	reply := StepReply{
		Squad:     res.Squad,
		Direction: string(res.Direction),
		Action:    string(res.Action),
		Reason:    res.Reason,
		VersionID: res.VersionID,
		Levels:    res.World.Interpretation().Levels(),
	}
	if res.GateDecision != nil {
		for _, v := range res.GateDecision.VetoSignals {
			reply.Vetoes = append(reply.Vetoes, string(v.Type))
		}
	}
	return toStruct(reply)
}

func (s *Server) Interpret(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SquadRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.Squad == "" {
		return nil, status.Error(codes.InvalidArgument, "squad is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}

	var reply InterpretReply
	err := s.squads.Do(req.Squad, func(p *orchestrator.Pipeline) error {
		interp := p.Current().Interpretation()
		reply = InterpretReply{
			Squad:     req.Squad,
			VersionID: p.VersionID(),
			Levels:    interp.Levels(),
			Sources:   make([][]int, interp.NumberOfNodes()),
		}
		for a := range reply.Sources {
			reply.Sources[a] = interp.Sources(a)
		}
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(reply)
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, update.ErrInvalidArgument),
		errors.Is(err, state.ErrInvalidArgument),
		errors.Is(err, world.ErrMissingDynamic),
		errors.Is(err, world.ErrSizeMismatch):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// #endregion server

// #region interceptors

// RateLimitInterceptor rejects calls to methods once limiter runs dry.
// Methods not listed pass through.
func RateLimitInterceptor(limiter *rate.Limiter, methods ...string) grpc.UnaryServerInterceptor {
	limited := make(map[string]bool, len(methods))
	for _, m := range methods {
		limited[m] = true
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if limited[info.FullMethod] && !limiter.Allow() {
			return nil, status.Errorf(codes.ResourceExhausted, "%s: rate limit exceeded", info.FullMethod)
		}
		return handler(ctx, req)
	}
}

// LoggingInterceptor logs every call with its status code and duration.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("took", time.Since(start)),
		}
		if err != nil {
			logger.Warn("call failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("call", fields...)
		}
		return resp, err
	}
}

// #endregion interceptors
