package grpc

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/pipefs"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/service"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/vfs"
)

const (
	ServiceName   = "pipefs.v1.Services"
	ExecuteMethod = "/" + ServiceName + "/Execute"
)

// Executor runs registry tools.
type Executor interface {
	Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error)
}

type servicesServer interface {
	Execute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*servicesServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Execute", Handler: executeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pipefs/v1/services.proto",
}

func executeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(servicesServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExecuteMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(servicesServer).Execute(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Server exposes an Executor over gRPC.
type Server struct {
	exec Executor
	log  *zap.Logger
}

// NewServer creates a server for exec.
func NewServer(exec Executor, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{exec: exec, log: log}
}

// Register attaches the service to r.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&serviceDesc, s)
}

// Execute runs one tool call.
func (s *Server) Execute(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.ToolID == "" {
		return nil, status.Error(codes.InvalidArgument, "tool_id is required")
	}

	appCtx := &types.Context{RequestID: tracing.TraceID(ctx)}
	if appCtx.RequestID == "" {
		appCtx.RequestID = id.NewRequestID().String()
	}
	if p, ok := peer.FromContext(ctx); ok {
		appCtx.ClientID = p.Addr.String()
	}

	result, err := s.exec.Execute(ctx, req.ToolID, req.Params, appCtx)
	if err != nil {
		s.log.Debug("Execute failed", zap.String("tool", req.ToolID), zap.Error(err))
		return nil, status.Error(CodeFor(err), err.Error())
	}

	out, err := toStruct(result)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// CodeFor maps a registry or filesystem error to a gRPC code.
func CodeFor(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, service.ErrServiceNotFound),
		errors.Is(err, service.ErrToolNotFound),
		errors.Is(err, pipefs.ErrNotFound),
		errors.Is(err, pipefs.ErrNoSuchPipe),
		errors.Is(err, vfs.ErrNoSuchFS):
		return codes.NotFound
	case errors.Is(err, service.ErrInvalidToolID),
		errors.Is(err, pipefs.ErrInvalid),
		errors.Is(err, vfs.ErrBadPath),
		errors.Is(err, vfs.ErrBadFD):
		return codes.InvalidArgument
	case errors.Is(err, pipefs.ErrExists), errors.Is(err, service.ErrDuplicate):
		return codes.AlreadyExists
	case errors.Is(err, pipefs.ErrNoSpace), errors.Is(err, vfs.ErrLimit):
		return codes.ResourceExhausted
	case errors.Is(err, pipefs.ErrRemoved):
		return codes.Aborted
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Unknown
	}
}
