package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lukas/map8x32/internal/api"
	"lukas/map8x32/internal/config"
	"lukas/map8x32/internal/server"
	"lukas/map8x32/internal/stats"
)

func main() {
	var (
		configFile      = flag.String("config", "", "config file path (YAML/JSON)")
		socketPath      = flag.String("socket", "", "unix socket path (overrides config)")
		maxConnections  = flag.Int("max-connections", 0, "maximum concurrent connections, 0 for unlimited (overrides config)")
		debugAddr       = flag.String("debug-addr", "", "serve /health, /stats and /keys on this address (overrides config)")
		shutdownTimeout = flag.Duration("shutdown-timeout", 10*time.Second, "time to wait for connections to drain on shutdown")
	)
	flag.Parse()

	cfg, err := buildConfig(*configFile, *socketPath, *maxConnections, *debugAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, *shutdownTimeout); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// buildConfig loads the config file when given, then applies flag overrides.
func buildConfig(configFile, socketPath string, maxConnections int, debugAddr string) (*config.FileConfig, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.LoadFile(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if socketPath != "" {
		cfg.Server.SocketPath = socketPath
	}
	if maxConnections > 0 {
		cfg.Server.MaxConnections = maxConnections
	}
	if debugAddr != "" {
		cfg.Debug.Enabled = true
		cfg.Debug.ListenAddr = debugAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildLogger(cfg config.LoggingSection) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zapConfig.Level = zap.NewAtomicLevelAt(level)
	}
	return zapConfig.Build()
}

func run(cfg *config.FileConfig, logger *zap.Logger, shutdownTimeout time.Duration) error {
	connConfig, err := cfg.ToConnectionConfig()
	if err != nil {
		return err
	}

	tracker := stats.NewTracker()
	srv := server.NewServer(logger, cfg.ToServerConfig(), connConfig, tracker)
	if err := srv.Start(); err != nil {
		return err
	}

	var debugServer *api.Server
	if cfg.Debug.Enabled {
		debugServer = api.NewServer(cfg.Debug.ListenAddr, logger, tracker, srv.Store())
		debugServer.Start()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if debugServer != nil {
		if err := debugServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error shutting down debug endpoint", zap.Error(err))
		}
	}
	return srv.Shutdown(shutdownCtx)
}
