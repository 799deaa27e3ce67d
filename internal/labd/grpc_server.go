package labd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GoSim-25-26J-441/wireless-lab/internal/narrator"
	"github.com/GoSim-25-26J-441/wireless-lab/internal/report"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/logger"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/models"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "wirelesslab.v1.WirelessLab"

// WirelessLabServer is the server API of the WirelessLab service. Messages are
// protobuf well-known types so no generated code is needed.
type WirelessLabServer interface {
	Simulate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LookupQoS(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListProcedures(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Narrate(*structpb.Struct, NarrateStream) error
}

// NarrateStream is the server side of a Narrate call
type NarrateStream interface {
	Send(*structpb.Struct) error
	Context() context.Context
}

type narrateServerStream struct {
	grpc.ServerStream
}

func (s *narrateServerStream) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

func unaryHandler[T proto.Message](method string, newReq func() T, call func(WirelessLabServer, context.Context, T) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(WirelessLabServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(WirelessLabServer), ctx, req.(T))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func narrateHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(WirelessLabServer).Narrate(in, &narrateServerStream{stream})
}

// ServiceDesc describes the WirelessLab service for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WirelessLabServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Simulate",
			Handler: unaryHandler("Simulate", func() *structpb.Struct { return new(structpb.Struct) },
				WirelessLabServer.Simulate),
		},
		{
			MethodName: "LookupQoS",
			Handler: unaryHandler("LookupQoS", func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) },
				WirelessLabServer.LookupQoS),
		},
		{
			MethodName: "ListProcedures",
			Handler: unaryHandler("ListProcedures", func() *emptypb.Empty { return new(emptypb.Empty) },
				WirelessLabServer.ListProcedures),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Narrate",
			Handler:       narrateHandler,
			ServerStreams: true,
		},
	},
	Metadata: "wirelesslab/v1/wirelesslab.proto",
}

// GRPCServer implements WirelessLabServer over Services
type GRPCServer struct {
	svc *Services
}

func NewGRPCServer(svc *Services) *GRPCServer {
	return &GRPCServer{svc: svc}
}

// Register adds the service to r
func (s *GRPCServer) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&ServiceDesc, s)
}

// grpcError maps domain errors to gRPC status errors
func grpcError(err error) error {
	switch {
	case errors.Is(err, narrator.ErrUnknownProcedure):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, narrator.ErrApplicationMissing),
		errors.Is(err, narrator.ErrUnknownApplication),
		errors.Is(err, models.ErrInvalidConfiguration),
		errors.Is(err, ErrPauseOutOfRange):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, err.Error())
}

func stringField(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

// intField returns def when key is absent and an error when it is not a whole number
func intField(in *structpb.Struct, key string, def int64) (int64, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return def, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, fmt.Errorf("%w: %s must be an integer", models.ErrInvalidConfiguration, key)
	}
	return int64(n.NumberValue), nil
}

func (s *GRPCServer) Simulate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	devices, err := intField(in, "devices", models.DefaultDevices)
	if err != nil {
		return nil, grpcError(err)
	}
	d := int(devices)
	req := simulationRequest{
		NetworkType: stringField(in, "network"),
		Devices:     &d,
		Environment: stringField(in, "environment"),
		Traffic:     stringField(in, "traffic"),
	}
	cfg, err := req.configuration()
	if err != nil {
		return nil, grpcError(err)
	}

	sim := s.svc.Simulate(cfg)
	logger.Info("simulation computed (gRPC)", "network", cfg.NetworkType, "devices", cfg.Devices)

	out, err := structpb.NewStruct(map[string]any{
		"network_type":    string(cfg.NetworkType),
		"devices":         cfg.Devices,
		"environment":     string(cfg.Environment),
		"traffic":         string(cfg.Traffic),
		"throughput_mbps": sim.Result.ThroughputMbps,
		"latency_ms":      sim.Result.LatencyMs,
		"coverage_km":     sim.Result.CoverageKm,
		"summary":         report.TopologySummary(sim),
		"report":          report.Report(sim),
		"timestamp":       sim.Timestamp.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *GRPCServer) LookupQoS(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	q, err := s.svc.LookupQoS(in.GetValue())
	if err != nil {
		return nil, grpcError(err)
	}
	out, err := structpb.NewStruct(map[string]any{
		"application": q.Application,
		"class":       q.Class,
		"delay":       q.DelayBound,
		"guaranteed":  q.Guaranteed,
		"line":        q.Line(),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *GRPCServer) ListProcedures(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	procs := s.svc.Catalog.List()
	list := make([]any, 0, len(procs))
	for _, p := range procs {
		list = append(list, map[string]any{
			"id":          p.ID,
			"name":        p.Name,
			"kind":        string(p.Kind),
			"description": p.Description,
			"lines":       len(p.Lines),
		})
	}
	out, err := structpb.NewStruct(map[string]any{"procedures": list})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Narrate streams the lines of a procedure, honouring the requested pause
func (s *GRPCServer) Narrate(in *structpb.Struct, stream NarrateStream) error {
	id := stringField(in, "procedure")
	if id == "" {
		return status.Error(codes.InvalidArgument, "procedure is required")
	}
	pauseMs, err := intField(in, "pause_ms", -1)
	if err != nil {
		return grpcError(err)
	}
	if _, given := in.GetFields()["pause_ms"]; given && pauseMs < 0 {
		return status.Error(codes.InvalidArgument, "pause_ms must be non-negative")
	}
	pause, err := s.svc.Pacing(pauseMs)
	if err != nil {
		return grpcError(err)
	}
	proc, steps, err := s.svc.Catalog.Sequence(id, stringField(in, "app"), pause)
	if err != nil {
		return grpcError(err)
	}

	pb := narrator.NewPlayback(steps, s.svc.Clock())
	err = pb.Run(stream.Context(), func(step narrator.Step) error {
		msg, err := structpb.NewStruct(map[string]any{
			"index": step.Index,
			"total": step.Total,
			"line":  step.Line,
		})
		if err != nil {
			return err
		}
		return stream.Send(msg)
	})
	s.svc.Metrics.ObserveNarration(proc.ID, string(pb.State()), pb.Emitted())
	if err != nil {
		logger.Info("narration stream ended early (gRPC)", "procedure", proc.ID, "error", err)
		return grpcError(err)
	}
	return nil
}

// Client calls the WirelessLab service over a client connection
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) method(name string) string {
	return "/" + ServiceName + "/" + name
}

// Simulate samples a configuration; zero fields take the server defaults
func (c *Client) Simulate(ctx context.Context, cfg models.Configuration) (*structpb.Struct, error) {
	fields := map[string]any{}
	if cfg.NetworkType != "" {
		fields["network"] = string(cfg.NetworkType)
	}
	if cfg.Devices != 0 {
		fields["devices"] = cfg.Devices
	}
	if cfg.Environment != "" {
		fields["environment"] = string(cfg.Environment)
	}
	if cfg.Traffic != "" {
		fields["traffic"] = string(cfg.Traffic)
	}
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, c.method("Simulate"), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) LookupQoS(ctx context.Context, app string) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, c.method("LookupQoS"), wrapperspb.String(app), out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListProcedures(ctx context.Context) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, c.method("ListProcedures"), &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Narrate plays a procedure remotely, calling fn for every received line.
// A negative pauseMs uses the server default.
func (c *Client) Narrate(ctx context.Context, procedure, app string, pauseMs int64, fn func(index int, line string) error) error {
	fields := map[string]any{"procedure": procedure}
	if app != "" {
		fields["app"] = app
	}
	if pauseMs >= 0 {
		fields["pause_ms"] = pauseMs
	}
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return err
	}

	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], c.method("Narrate"))
	if err != nil {
		return err
	}
	if err := stream.SendMsg(in); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		msg := new(structpb.Struct)
		err := stream.RecvMsg(msg)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		index := int(msg.GetFields()["index"].GetNumberValue())
		if err := fn(index, stringField(msg, "line")); err != nil {
			return err
		}
	}
}
