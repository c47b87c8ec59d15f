package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/backbone-generator/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Span exporters understood by InitTracing.
const (
	ExporterStderr = "stderr"
	ExporterFile   = "file"
	ExporterOTLP   = "otlp"
)

// TracingConfig governs how the spans of one generation run are exported.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string // stderr | file | otlp
	File        string // span output when Exporter == file
	Endpoint    string // collector address when Exporter == otlp
	SampleRatio float64

	// Writer overrides the stderr exporter's destination.
	Writer io.Writer
}

// RunAttributes identify the run in the exported resource.
type RunAttributes struct {
	RunID string
	Seed  int64
}

// TracingConfigFromEnv reads the BACKBONE_TRACING_* variables.
func TracingConfigFromEnv() TracingConfig {
	exporter := strings.ToLower(os.Getenv("BACKBONE_TRACING_EXPORTER"))
	if exporter == "" {
		exporter = ExporterStderr
	}
	service := os.Getenv("BACKBONE_TRACING_SERVICE_NAME")
	if service == "" {
		service = "backbone-generator"
	}

	ratio := 1.0
	if raw := os.Getenv("BACKBONE_TRACING_SAMPLE_RATIO"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed >= 0 && parsed <= 1 {
			ratio = parsed
		}
	}

	return TracingConfig{
		Enabled:     strings.EqualFold(os.Getenv("BACKBONE_TRACING_ENABLED"), "true"),
		ServiceName: service,
		Exporter:    exporter,
		File:        os.Getenv("BACKBONE_TRACING_FILE"),
		Endpoint:    os.Getenv("BACKBONE_OTLP_ENDPOINT"),
		SampleRatio: ratio,
	}
}

// InitTracing installs the global tracer provider for a single run. Spans
// are exported synchronously as they end, so nothing is lost if the process
// exits right after the run. The returned function flushes the exporter and
// releases its output.
func InitTracing(ctx context.Context, cfg TracingConfig, run RunAttributes, log logging.Logger) (func(context.Context) error, error) {
	if log == nil {
		log = logging.Noop()
	}

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		log.Debug(ctx, "tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	exp, closeOut, err := exporterFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.namespace", "backbone"),
		attribute.String("backbone.run_id", run.RunID),
		attribute.Int64("backbone.seed", run.Seed),
	))
	if err != nil {
		_ = closeOut()
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		sdktrace.WithSyncer(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	log.Info(ctx, "tracing enabled",
		logging.String("exporter", cfg.Exporter),
		logging.String("service_name", cfg.ServiceName),
		logging.Float("sample_ratio", cfg.SampleRatio),
	)

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), closeOut())
	}, nil
}

func exporterFromConfig(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, func() error, error) {
	nop := func() error { return nil }
	switch strings.ToLower(cfg.Exporter) {
	case ExporterStderr, "stdout", "":
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithoutTimestamps())
		return exp, nop, err
	case ExporterFile:
		if cfg.File == "" {
			return nil, nil, errors.New("file span exporter needs BACKBONE_TRACING_FILE")
		}
		f, err := os.Create(cfg.File)
		if err != nil {
			return nil, nil, fmt.Errorf("open span file: %w", err)
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(f), stdouttrace.WithoutTimestamps())
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		return exp, f.Close, nil
	case ExporterOTLP, "otlpgrpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		exp, err := otlptrace.New(ctx, client)
		return exp, nop, err
	default:
		return nil, nil, fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
	}
}

// ShutdownWithTimeout invokes the provided shutdown function with a bounded
// timeout, logging rather than returning its error.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log logging.Logger) {
	if shutdown == nil {
		return
	}
	if log == nil {
		log = logging.Noop()
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn(ctx, "tracing shutdown failed", logging.Error(err))
	}
}
