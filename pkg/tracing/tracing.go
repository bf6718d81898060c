// Package tracing sets up OpenTelemetry tracing for long running ntuple
// commands. Spans are exported as JSON to a writer, which is enough to see
// where a scan spends its time without running a collector.
package tracing

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/ntuple/pkg/errors"
)

// InstrumentationName names the tracer used by ntuple packages
const InstrumentationName = "github.com/ajitpratap0/ntuple"

// Config contains tracing configuration
type Config struct {
	ServiceName    string
	ServiceVersion string
	SamplingRate   float64   // 0 disables sampling, 1 samples every trace
	Output         io.Writer // defaults to stderr
	PrettyPrint    bool
}

// DefaultConfig samples every trace and writes to stderr
func DefaultConfig() Config {
	return Config{
		ServiceName:  "ntuple",
		SamplingRate: 1,
		Output:       os.Stderr,
	}
}

var (
	mu     sync.Mutex
	tracer trace.Tracer
)

// Init installs a global tracer provider exporting to cfg.Output. The
// returned function flushes pending spans and must be called before exit.
func Init(cfg Config) (func(context.Context) error, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ntuple"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create trace resource")
	}

	opts := []stdouttrace.Option{stdouttrace.WithWriter(cfg.Output)}
	if cfg.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create trace exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SamplingRate)),
		sdktrace.WithBatcher(exporter),
	)
	SetProvider(tp)
	return tp.Shutdown, nil
}

// SetProvider installs tp as the global tracer provider
func SetProvider(tp trace.TracerProvider) {
	mu.Lock()
	defer mu.Unlock()
	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(InstrumentationName)
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate <= 0:
		return sdktrace.NeverSample()
	case rate >= 1:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Tracer returns the ntuple tracer, a no-op tracer until Init is called
func Tracer() trace.Tracer {
	mu.Lock()
	defer mu.Unlock()
	if tracer == nil {
		return otel.Tracer(InstrumentationName)
	}
	return tracer
}

// StartSpan starts a span with the given attributes
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err on span, if any, and ends it
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
