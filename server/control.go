package server

import (
	"PoolServer/log"
	"PoolServer/pool"
	"context"
	"fmt"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ControlServiceName = "poolserver.control.v1.Control"

	controlStatsMethod    = "/" + ControlServiceName + "/Stats"
	controlShutdownMethod = "/" + ControlServiceName + "/Shutdown"
)

// ControlServer is the server API of the control service.
type ControlServer interface {
	// Stats returns a snapshot of the worker pool.
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// Shutdown starts an orderly teardown of the server and returns immediately.
	Shutdown(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

var controlServiceDesc = grpc.ServiceDesc{
	ServiceName: ControlServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Stats",
			Handler:    controlStatsHandler,
		},
		{
			MethodName: "Shutdown",
			Handler:    controlShutdownHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "poolserver/control/v1/control.proto",
}

// RegisterControlServer registers srv on registrar.
func RegisterControlServer(registrar grpc.ServiceRegistrar, srv ControlServer) {
	registrar.RegisterService(&controlServiceDesc, srv)
}

func controlStatsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: controlStatsMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).Stats(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func controlShutdownHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Shutdown(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: controlShutdownMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).Shutdown(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// ControlClient calls the control service over an established connection.
type ControlClient struct {
	cc grpc.ClientConnInterface
}

func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

func (c *ControlClient) Stats(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, controlStatsMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) Shutdown(ctx context.Context, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, controlShutdownMethod, &emptypb.Empty{}, new(emptypb.Empty), opts...)
}

// controlService serves the control API for one Server.
type controlService struct {
	server *Server
}

func (c *controlService) Stats(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	stats, err := statsStruct(c.server.pool.Stats())
	if err != nil {
		return nil, fmt.Errorf("failed to encode pool stats: %w", err)
	}
	return stats, nil
}

func (c *controlService) Shutdown(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	log.L().Info("Shutdown requested through control service")
	c.server.requestShutdown()
	return &emptypb.Empty{}, nil
}

func statsStruct(stats pool.Stats) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"workers":   stats.Workers,
		"alive":     stats.Alive,
		"busy":      stats.Busy,
		"queued":    stats.Queued,
		"submitted": stats.Submitted,
		"completed": stats.Completed,
		"failed":    stats.Failed,
	})
}

// unaryLogger logs every control call at debug level.
func unaryLogger(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		log.L().Error("Control call failed", zap.String("method", info.FullMethod), zap.Error(err))
	} else {
		log.L().Debug("Control call", zap.String("method", info.FullMethod))
	}
	return resp, err
}
