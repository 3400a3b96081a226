package opentelemetry

import (
	"context"
	"errors"
	"fmt"

	constant "github.com/LerianStudio/lib-gated/gated/constants"
	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/LerianStudio/lib-gated/gated/opentelemetry/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNilTelemetryConfig = errors.New("telemetry config cannot be nil")
	ErrNilTelemetryLogger = errors.New("telemetry config logger cannot be nil")
)

// TelemetryConfig is read from the OTEL_* environment by gatewayd.
type TelemetryConfig struct {
	LibraryName               string
	ServiceName               string
	ServiceVersion            string
	DeploymentEnv             string
	CollectorExporterEndpoint string
	EnableTelemetry           bool
	Logger                    log.Logger
}

// Telemetry owns the trace, metric and log providers of the process.
type Telemetry struct {
	TelemetryConfig
	TracerProvider *sdktrace.TracerProvider
	MetricProvider *sdkmetric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	MetricsFactory *metrics.MetricsFactory
}

// Tracer is named after LibraryName.
func (tl *Telemetry) Tracer() trace.Tracer {
	if tl == nil || tl.TracerProvider == nil {
		return otel.Tracer(constant.TelemetrySDKName)
	}

	return tl.TracerProvider.Tracer(tl.LibraryName)
}

// ShutdownTelemetry flushes pending telemetry and stops the providers along
// with their exporters.
func (tl *Telemetry) ShutdownTelemetry(ctx context.Context) error {
	if tl == nil {
		return nil
	}

	var errs []error

	stop := func(what string, shutdown func(context.Context) error) {
		if err := shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s provider: %w", what, err))
		}
	}

	if tl.MetricProvider != nil {
		stop("metric", tl.MetricProvider.Shutdown)
	}

	if tl.TracerProvider != nil {
		stop("tracer", tl.TracerProvider.Shutdown)
	}

	if tl.LoggerProvider != nil {
		stop("logger", tl.LoggerProvider.Shutdown)
	}

	return errors.Join(errs...)
}

// InitializeTelemetryWithError builds the providers. When EnableTelemetry is
// set they export over OTLP/gRPC to CollectorExporterEndpoint and become the
// OpenTelemetry globals. Otherwise they stay in process and the globals are
// left alone.
func InitializeTelemetryWithError(cfg *TelemetryConfig) (*Telemetry, error) {
	if cfg == nil {
		return nil, ErrNilTelemetryConfig
	}

	if cfg.Logger == nil {
		return nil, ErrNilTelemetryLogger
	}

	ctx := context.Background()
	tl := &Telemetry{TelemetryConfig: *cfg}

	if cfg.EnableTelemetry {
		if err := tl.export(ctx); err != nil {
			return nil, err
		}
	} else {
		cfg.Logger.Log(ctx, log.LevelWarn, "telemetry disabled")

		tl.MetricProvider = sdkmetric.NewMeterProvider()
		tl.TracerProvider = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(AttrBagSpanProcessor{}))
		tl.LoggerProvider = sdklog.NewLoggerProvider()
	}

	factory, err := metrics.NewMetricsFactory(tl.MetricProvider.Meter(cfg.LibraryName), cfg.Logger)
	if err != nil {
		_ = tl.ShutdownTelemetry(ctx)
		return nil, err
	}

	tl.MetricsFactory = factory

	return tl, nil
}

func (tl *Telemetry) export(ctx context.Context) error {
	endpoint := tl.CollectorExporterEndpoint
	tl.Logger.Log(ctx, log.LevelInfo, "initializing telemetry", log.String("endpoint", endpoint))

	traces, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return fmt.Errorf("create trace exporter: %w", err)
	}

	metricsExp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(endpoint), otlpmetricgrpc.WithInsecure())
	if err != nil {
		return fmt.Errorf("create metric exporter: %w", err)
	}

	logs, err := otlploggrpc.New(ctx, otlploggrpc.WithEndpoint(endpoint), otlploggrpc.WithInsecure())
	if err != nil {
		return fmt.Errorf("create log exporter: %w", err)
	}

	resource := sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(tl.ServiceName),
		semconv.ServiceVersion(tl.ServiceVersion),
		semconv.DeploymentEnvironmentName(tl.DeploymentEnv),
		semconv.TelemetrySDKName(constant.TelemetrySDKName),
		semconv.TelemetrySDKLanguageGo,
	)

	tl.MetricProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(resource),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricsExp)),
	)
	tl.TracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource),
		sdktrace.WithBatcher(traces),
		sdktrace.WithSpanProcessor(AttrBagSpanProcessor{}),
	)
	tl.LoggerProvider = sdklog.NewLoggerProvider(
		sdklog.WithResource(resource),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logs)),
	)

	otel.SetMeterProvider(tl.MetricProvider)
	otel.SetTracerProvider(tl.TracerProvider)
	global.SetLoggerProvider(tl.LoggerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return nil
}
