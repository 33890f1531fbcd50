// Package main implements the demandcast forecaster service.
// The forecaster loads the monthly sales table through a cached query layer,
// exposes product selection and history over HTTP, and runs intermittent
// demand models on request over HTTP and gRPC.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/HatiCode/demandcast/cmd/forecaster/config"
	"github.com/HatiCode/demandcast/cmd/forecaster/logger"
	"github.com/HatiCode/demandcast/cmd/forecaster/metrics"
	"github.com/HatiCode/demandcast/cmd/forecaster/models"
	"github.com/HatiCode/demandcast/cmd/forecaster/router"
	"github.com/HatiCode/demandcast/cmd/forecaster/source"
	"github.com/HatiCode/demandcast/cmd/forecaster/store"
	"github.com/HatiCode/demandcast/pkg/domain"
	"github.com/HatiCode/demandcast/pkg/engine"
	"github.com/HatiCode/demandcast/pkg/grpcapi"
	"github.com/HatiCode/demandcast/pkg/httpx"
	"github.com/HatiCode/demandcast/pkg/panel"
	"github.com/HatiCode/demandcast/pkg/pipeline"
	"github.com/HatiCode/demandcast/pkg/query"
)

func main() {
	cfg := config.ParseFlags()

	logger := logger.New(cfg)
	slog.SetDefault(logger)

	if cfg.CPUProfile != "" {
		defer profile.Start(
			profile.CPUProfile,
			profile.ProfilePath(cfg.CPUProfile),
			profile.NoShutdownHook,
		).Stop()
	}

	logger.Info("starting demandcast forecaster",
		"version", "v0.1.0",
		"source", cfg.Source,
		"models", cfg.ModelNames(),
		"storage", cfg.Storage,
	)

	m := metrics.New(cfg.Source)

	adapter := source.New(cfg, logger)
	rows := query.New(adapter, nil, m, logger)
	panels := panel.NewSource(rows, panel.NewBuilder(), logger)

	eng, err := engine.New(engine.Config{
		Models:     models.New(cfg, logger),
		Workers:    cfg.Workers,
		ArenaSize:  cfg.ArenaSize,
		MaxHorizon: cfg.MaxHorizon,
	}, m, logger)
	if err != nil {
		logger.Error("failed to initialize engine", "error", err)
		os.Exit(1)
	}

	results, closeStore := store.New(cfg, logger)
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("store close failed", "error", err)
		}
	}()

	p := pipeline.New(panels, eng, pipeline.Options{
		Store:          results,
		Observer:       m,
		DefaultProduct: domain.SeriesID(cfg.DefaultProduct),
		Logger:         logger,
	})

	httpServer := httpx.NewServer(cfg.Listen, router.SetupRoutes(p, logger), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RefreshInterval > 0 {
		go func() {
			if err := p.Run(ctx, cfg.RefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("warm loop failed", "error", err)
			}
		}()
	}

	serverErr := make(chan error, 2)
	go func() {
		serverErr <- httpServer.Start()
	}()

	var grpcServer *grpc.Server
	if cfg.GRPCListen != "" {
		lis, err := net.Listen("tcp", cfg.GRPCListen)
		if err != nil {
			logger.Error("failed to listen", "addr", cfg.GRPCListen, "error", err)
			os.Exit(1)
		}

		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(grpcapi.LoggingInterceptor(logger)))
		grpcapi.Register(grpcServer, grpcapi.NewService(p, logger))

		healthServer := health.NewServer()
		healthServer.SetServingStatus(grpcapi.ServiceName, healthpb.HealthCheckResponse_SERVING)
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		reflection.Register(grpcServer)

		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCListen)
			serverErr <- grpcServer.Serve(lis)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	logger.Info("shutting down")
	cancel()

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := httpServer.Stop(10 * time.Second); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
