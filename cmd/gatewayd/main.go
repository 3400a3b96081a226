// Command gatewayd serves the gated value-transfer gateway over HTTP.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/assert"
	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/LerianStudio/lib-gated/gated/opentelemetry"
	"github.com/LerianStudio/lib-gated/gated/runtime"
	libZap "github.com/LerianStudio/lib-gated/gated/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "gatewayd:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	env := libZap.ParseEnvironment(cfg.EnvName)

	logger, _, err := libZap.New(libZap.Config{
		Environment:     env,
		Level:           cfg.LogLevel,
		Encoding:        libZap.Encoding(cfg.LogEncoding),
		OTelLibraryName: cfg.OtelLibraryName,
	})
	if err != nil {
		return err
	}

	runtime.SetProductionMode(env == libZap.EnvironmentProduction)

	telemetry, err := opentelemetry.InitializeTelemetryWithError(&opentelemetry.TelemetryConfig{
		LibraryName:               cfg.OtelLibraryName,
		ServiceName:               cfg.OtelServiceName,
		ServiceVersion:            cfg.OtelServiceVersion,
		DeploymentEnv:             cfg.OtelDeploymentEnv,
		CollectorExporterEndpoint: cfg.OtelCollectorEndpoint,
		EnableTelemetry:           cfg.EnableTelemetry,
		Logger:                    logger,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}

	runtime.InitPanicMetrics(telemetry.MetricsFactory, logger)
	assert.InitAssertionMetrics(telemetry.MetricsFactory)

	svc, err := newService(ctx, cfg, logger, telemetry)
	if err != nil {
		logger.Log(ctx, log.LevelError, "failed to start gatewayd", log.Err(err))
		_ = telemetry.ShutdownTelemetry(ctx)

		return err
	}

	logger.Log(ctx, log.LevelInfo, "gatewayd configured",
		log.String("address", cfg.ServerAddress),
		log.Int64("decimals", cfg.LedgerDecimals),
		log.Bool("reserve_operations", cfg.ReserveOperations))

	return gated.NewLauncher(
		gated.WithLogger(logger),
		gated.RunApp("gateway", svc),
	).RunWithError()
}
