package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/tair/catalog-sync/pkg/auth"
	"github.com/tair/catalog-sync/pkg/logger"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UsernameKey contextKey = "username"
	RoleKey     contextKey = "role"
)

var grpcRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_grpc_requests_total",
		Help: "Total number of gRPC requests to catalog service",
	},
	[]string{"method", "code"},
)

func init() {
	prometheus.MustRegister(grpcRequests)
}

// publicMethods need no token
var publicMethods = map[string]bool{
	GetCatalogMethod:                     true,
	healthpb.Health_Check_FullMethodName: true,
}

// LoggingInterceptor logs gRPC requests
func LoggingInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	code := status.Code(err)
	grpcRequests.WithLabelValues(info.FullMethod, code.String()).Inc()

	event := logger.Info(ctx)
	if err != nil {
		event = logger.Warn(ctx).Err(err)
	}
	event.
		Str("method", info.FullMethod).
		Str("code", code.String()).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("gRPC request completed")

	return resp, err
}

// AuthInterceptor requires an admin bearer token for everything but public methods
func AuthInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "metadata not provided")
	}

	tokens := md.Get("authorization")
	if len(tokens) == 0 {
		return nil, status.Error(codes.Unauthenticated, "authorization token not provided")
	}

	claims, err := auth.ValidateToken(strings.TrimPrefix(tokens[0], "Bearer "))
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	if !claims.IsAdmin() {
		return nil, status.Error(codes.PermissionDenied, "admin access required")
	}

	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, UsernameKey, claims.Username)
	ctx = context.WithValue(ctx, RoleKey, claims.Role)

	return handler(ctx, req)
}
