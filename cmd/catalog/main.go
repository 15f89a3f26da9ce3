package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/tair/catalog-sync/docs"
	"github.com/tair/catalog-sync/internal/catalog"
	grpcDelivery "github.com/tair/catalog-sync/internal/catalog/delivery/grpc"
	httpDelivery "github.com/tair/catalog-sync/internal/catalog/delivery/http"
	"github.com/tair/catalog-sync/internal/config"
	"github.com/tair/catalog-sync/kafka"
	"github.com/tair/catalog-sync/pkg/auth"
	"github.com/tair/catalog-sync/pkg/logger"
	"github.com/tair/catalog-sync/pkg/tracing"
)

func main() {
	cfg := config.MustLoad()

	logger.Init(cfg.App.Name, cfg.App.IsDevelopment())
	logger.SetLevel(cfg.App.LogLevel)

	logger.Logger.Info().
		Str("environment", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Str("log_level", cfg.App.LogLevel).
		Msg("Starting catalog service")

	auth.SetSecret(cfg.Auth.JWTSecret)

	var tp trace.TracerProvider
	if cfg.Tracing.Enabled {
		var err error
		tp, err = tracing.InitTracer(tracing.Config{
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
			Endpoint:       cfg.Tracing.JaegerEndpoint,
			SampleRatio:    cfg.Tracing.SampleRatio,
		})
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to initialize tracer")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := catalog.OpenInfrastructure(ctx, cfg, true)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to open infrastructure")
	}
	defer infra.Close()

	if err := infra.Migrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	logger.Logger.Info().
		Str("driver", cfg.Database.Driver).
		Int("providers", len(infra.Catalog.Providers)).
		Msg("Database initialized successfully")

	svc, err := catalog.InitializeService(infra.Dependencies(cfg))
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize catalog service")
	}

	var wg sync.WaitGroup

	if cfg.Kafka.KafkaEnabled() {
		consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, []string{cfg.Kafka.RequestTopic})
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to create Kafka consumer")
		}
		defer consumer.Close()
		consumer.RegisterHandler(kafka.EventTypeSyncRequested, kafka.SyncRequestHandler(svc.Sync))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Start(ctx); err != nil {
				logger.Logger.Error().Err(err).Msg("Kafka consumer stopped")
			}
		}()
	}

	httpServer := newHTTPServer(cfg, svc.HTTPHandler)
	grpcServer, healthServer := grpcDelivery.NewServer(svc.GRPCServer)

	go func() {
		logger.Logger.Info().
			Str("port", cfg.Server.HTTPPort).
			Str("metrics_endpoint", "/metrics").
			Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	go func() {
		lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to listen for gRPC")
		}
		logger.Logger.Info().Str("port", cfg.Server.GRPCPort).Msg("gRPC server started")
		if err := grpcServer.Serve(lis); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to serve gRPC")
		}
	}()

	<-ctx.Done()
	logger.Logger.Info().Msg("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	shutdown(shutdownCtx, httpServer, grpcServer, healthServer)
	wg.Wait()

	if tp != nil {
		if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
			logger.Logger.Warn().Err(err).Msg("Failed to flush traces")
		}
	}
	logger.Logger.Info().Msg("Catalog service stopped")
}

func newHTTPServer(cfg *config.Config, handler *httpDelivery.CatalogHandler) *http.Server {
	router := mux.NewRouter()

	mwConfig := httpDelivery.DefaultMiddlewareConfig(cfg.Server.CORSOrigins)
	if cfg.Server.WriteTimeout > time.Second {
		// answer before the server drops the connection
		mwConfig.TimeoutDuration = cfg.Server.WriteTimeout - time.Second
	}
	httpDelivery.RegisterMiddlewares(router, mwConfig)

	handler.RegisterRoutes(router)
	handler.RegisterHealthCheck(router)

	router.Handle("/metrics", promhttp.Handler())

	docs.SwaggerInfo.Host = "localhost:" + cfg.Server.HTTPPort
	httpDelivery.RegisterSwaggerDocs(router, httpSwagger.WrapHandler)

	return &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      httpDelivery.SetupCORS(mwConfig)(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

func shutdown(ctx context.Context, httpServer *http.Server, grpcServer *grpc.Server, healthServer *health.Server) {
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Logger.Warn().Err(err).Msg("HTTP server shutdown incomplete")
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		grpcServer.Stop()
	}
}
