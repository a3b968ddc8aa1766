package admin

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cloo-solutions/campusguide/internal/config"
	"github.com/cloo-solutions/campusguide/internal/logging"
	"github.com/cloo-solutions/campusguide/internal/telemetry"
)

// runtime is the process-wide setup every daemon command starts from.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	shutdown func()
}

func loadRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, err
	}

	shutdownTelemetry, err := telemetry.Init(cfg.TelemetryConfig(), logger)
	if err != nil {
		logger.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
		shutdownTelemetry = func() {}
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		shutdown: func() {
			shutdownTelemetry()
			_ = logger.Sync()
		},
	}, nil
}
