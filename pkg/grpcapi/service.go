// Package grpcapi exposes the forecast pipeline as the gRPC service
// demandcast.v1.ForecastService. Messages are google.protobuf.Struct values,
// so the service needs no generated code:
//
//	request:  {"product_ids": ["2674", ...], "horizon": 3}
//	response: {"key": "...", "csv": "...", "rows": 3, "cached": false, "missing": [...]}
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/HatiCode/demandcast/pkg/domain"
	"github.com/HatiCode/demandcast/pkg/pipeline"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "demandcast.v1.ForecastService"
	// ForecastMethod is the full method path of Forecast.
	ForecastMethod = "/" + ServiceName + "/Forecast"
)

// ForecastServiceServer is implemented by Service.
type ForecastServiceServer interface {
	Forecast(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes ForecastService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ForecastServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Forecast", Handler: forecastHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "demandcast/v1/forecast.proto",
}

func forecastHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ForecastServiceServer).Forecast(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ForecastMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ForecastServiceServer).Forecast(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Register adds srv to s.
func Register(s grpc.ServiceRegistrar, srv ForecastServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Forecaster is the pipeline operation the service calls.
type Forecaster interface {
	Forecast(ctx context.Context, ids []domain.SeriesID, horizon int) (*pipeline.Forecast, error)
}

// Service implements ForecastServiceServer over a pipeline.
type Service struct {
	forecaster Forecaster
	logger     *slog.Logger
}

// NewService creates a Service.
func NewService(f Forecaster, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{forecaster: f, logger: logger}
}

// Forecast decodes the request, runs the pipeline and encodes the reply.
func (s *Service) Forecast(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ids, horizon, err := decodeRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	fc, err := s.forecaster.Forecast(ctx, ids, horizon)
	if err != nil {
		return nil, toStatus(err)
	}

	missing := make([]any, len(fc.Missing))
	for i, id := range fc.Missing {
		missing[i] = string(id)
	}
	out, err := structpb.NewStruct(map[string]any{
		"key":     fc.Key,
		"csv":     string(fc.CSV),
		"rows":    len(fc.Result.Rows),
		"cached":  fc.Cached,
		"missing": missing,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func decodeRequest(req *structpb.Struct) ([]domain.SeriesID, int, error) {
	fields := req.GetFields()

	var ids []domain.SeriesID
	for i, v := range fields["product_ids"].GetListValue().GetValues() {
		switch k := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			ids = append(ids, domain.SeriesID(k.StringValue))
		case *structpb.Value_NumberValue:
			n := k.NumberValue
			if n != math.Trunc(n) || math.IsInf(n, 0) {
				return nil, 0, fmt.Errorf("product_ids[%d]: %v is not an integer id", i, n)
			}
			ids = append(ids, domain.SeriesID(strconv.FormatFloat(n, 'f', 0, 64)))
		default:
			return nil, 0, fmt.Errorf("product_ids[%d]: must be a string or number", i)
		}
	}

	hv, ok := fields["horizon"]
	if !ok {
		return nil, 0, errors.New("horizon is required")
	}
	n, ok := hv.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return nil, 0, errors.New("horizon must be an integer")
	}
	return ids, int(n.NumberValue), nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidHorizon):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrEmptyInput):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrDataUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// LoggingInterceptor logs one line per unary call.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("gRPC request",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}
