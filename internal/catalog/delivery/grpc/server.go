package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tair/catalog-sync/internal/catalog/delivery/view"
	"github.com/tair/catalog-sync/internal/catalog/domain"
	"github.com/tair/catalog-sync/internal/catalog/usecase/command"
	"github.com/tair/catalog-sync/internal/catalog/usecase/query"
	"github.com/tair/catalog-sync/pkg/logger"
)

// CatalogServer implements catalog.v1.CatalogService
type CatalogServer struct {
	syncHandler *command.RunSyncHandler

	catalogHandler *query.GetCatalogHandler
	statsHandler   *query.GetStatsHandler
}

func NewCatalogServer(
	syncHandler *command.RunSyncHandler,
	catalogHandler *query.GetCatalogHandler,
	statsHandler *query.GetStatsHandler,
) *CatalogServer {
	return &CatalogServer{
		syncHandler:    syncHandler,
		catalogHandler: catalogHandler,
		statsHandler:   statsHandler,
	}
}

// NewServer builds a grpc.Server exposing the catalog service, health checks
// and reflection. The health server is returned so shutdown can flip it.
func NewServer(catalog *CatalogServer) (*grpc.Server, *health.Server) {
	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(LoggingInterceptor, AuthInterceptor),
	)
	server.RegisterService(&CatalogServiceDesc, catalog)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	reflection.Register(server)
	return server, healthServer
}

// GetCatalog reads the catalog. Request fields: cached, provider, fallback, active.
func (s *CatalogServer) GetCatalog(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cached, err := boolField(req, "cached", true)
	if err != nil {
		return nil, err
	}
	fallback, err := boolField(req, "fallback", false)
	if err != nil {
		return nil, err
	}
	activeOnly, err := boolField(req, "active", false)
	if err != nil {
		return nil, err
	}
	provider, err := stringField(req, "provider")
	if err != nil {
		return nil, err
	}

	mode := query.ModeCached
	if !cached {
		mode = query.ModeFresh
	}

	services, err := s.catalogHandler.Handle(ctx, query.GetCatalogQuery{
		Mode:       mode,
		ProviderID: provider,
		ActiveOnly: activeOnly,
		Fallback:   fallback,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownProvider):
			return nil, status.Errorf(codes.NotFound, "unknown provider %q", provider)
		case errors.Is(err, domain.ErrCatalogUnavailable):
			logger.Warn(ctx).Err(err).Msg("Fresh catalog read failed")
			return nil, status.Error(codes.Unavailable, "catalog temporarily unavailable")
		default:
			logger.Error(ctx).Err(err).Msg("Failed to read catalog")
			return nil, status.Error(codes.Internal, "failed to read catalog")
		}
	}

	return toStruct(map[string]interface{}{"services": view.FromServices(services)})
}

// GetStats returns the stock aggregate
func (s *CatalogServer) GetStats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	stats, err := s.statsHandler.Handle(ctx)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("Failed to compute catalog stats")
		return nil, status.Error(codes.Internal, "failed to compute stats")
	}
	return toStruct(stats)
}

// RunSync synchronizes the provider named by the "provider" field. Completed
// and in-progress outcomes are returned as the result document; failed runs
// become a status error carrying the error kind.
func (s *CatalogServer) RunSync(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	provider, err := stringField(req, "provider")
	if err != nil {
		return nil, err
	}
	if provider == "" {
		return nil, status.Error(codes.InvalidArgument, "provider is required")
	}

	triggeredBy, _ := ctx.Value(UsernameKey).(string)
	result, err := s.syncHandler.Handle(ctx, command.RunSyncCommand{ProviderID: provider, TriggeredBy: triggeredBy})
	if result == nil {
		if errors.Is(err, domain.ErrUnknownProvider) {
			return nil, status.Errorf(codes.NotFound, "unknown provider %q", provider)
		}
		return nil, status.Errorf(codes.Internal, "sync could not start: %v", err)
	}
	if result.Status == domain.SyncFailed {
		return nil, status.Errorf(syncErrorCode(result.ErrorKind), "sync failed (%s): %s", result.ErrorKind, result.Error)
	}

	return toStruct(result)
}

func syncErrorCode(kind domain.ErrorKind) codes.Code {
	switch kind {
	case domain.ErrorKindUpstreamUnavailable, domain.ErrorKindLock:
		return codes.Unavailable
	case domain.ErrorKindUpstreamAuth, domain.ErrorKindUpstreamMalformed:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func boolField(req *structpb.Struct, name string, def bool) (bool, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return def, nil
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, status.Error(codes.InvalidArgument, fmt.Sprintf("%s must be a bool", name))
	}
	return b.BoolValue, nil
}

func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Error(codes.InvalidArgument, fmt.Sprintf("%s must be a string", name))
	}
	return s.StringValue, nil
}
