package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/arcanetable/encounter-server/internal/archive"
	"github.com/arcanetable/encounter-server/internal/config"
	"github.com/arcanetable/encounter-server/internal/encounter"
	"github.com/arcanetable/encounter-server/internal/events"
	"github.com/arcanetable/encounter-server/internal/repository"
	"github.com/arcanetable/encounter-server/internal/roster"
	"github.com/arcanetable/encounter-server/internal/server"
	"github.com/arcanetable/encounter-server/internal/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting encounter server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("encounter server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("encounter server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Initialize tracing
	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, version, logger)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	// Initialize storage
	collections, err := repository.Open(ctx, cfg.Storage, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer collections.Close()

	encounterRepo := repository.NewEncounterRepository(collections, logger)
	rosterStore := roster.NewStore(collections)

	opts := []encounter.Option{}

	var hub *events.Hub
	if cfg.Server.WebSocket.Enabled {
		hub = events.NewHub(cfg.Server.WebSocket, logger)
		defer hub.Close()
		opts = append(opts, encounter.WithNotifier(hub))
	}

	if cfg.Replay.Enabled {
		opts = append(opts, encounter.WithArchiver(archive.NewStore(logger, cfg.Replay.Dir)))
		logger.Info("encounter archives enabled", zap.String("dir", cfg.Replay.Dir))
	}

	svc := encounter.NewService(encounterRepo, rosterStore, logger, opts...)
	grpcServer, healthSrv := server.NewGRPCServer(cfg.Server.GRPC, server.NewEncounterServer(svc, logger), logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.GRPC.Address, err)
	}

	var httpServer *http.Server
	if hub != nil {
		httpServer = &http.Server{
			Addr:              cfg.Server.WebSocket.Address,
			Handler:           hub.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	// Start gRPC server
	g.Go(func() error {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		return grpcServer.Serve(lis)
	})

	// Start WebSocket server
	if httpServer != nil {
		g.Go(func() error {
			logger.Info("starting WebSocket server", zap.String("address", httpServer.Addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	logger.Info("encounter server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.Bool("websocket_enabled", httpServer != nil),
		zap.String("storage_driver", cfg.Storage.Driver),
	)

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully...")
		healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if httpServer != nil {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("websocket server shutdown", zap.Error(err))
			}
		}

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			logger.Warn("graceful stop timed out; forcing gRPC shutdown")
			grpcServer.Stop()
		}
		return nil
	})

	return g.Wait()
}

// initLogger builds the zap logger from the logging section. Every entry
// carries the service name and build version.
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Level))
	if name == "warning" {
		name = "warn"
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.OutputPaths) > 0 {
		zapCfg.OutputPaths = cfg.OutputPaths
	}
	zapCfg.InitialFields = map[string]any{
		"service": "encounter-server",
		"version": version,
	}

	return zapCfg.Build()
}
