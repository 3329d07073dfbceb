// Package tracing sets up the otel tracer used to record a span per job run.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName names the tracer handed to the kernel.
const InstrumentationName = "github.com/specialistvlad/officegrid/internal/kernel"

// Config holds the tracing configuration.
type Config struct {
	ServiceName  string
	OTLPEndpoint string // host:port of an OTLP/HTTP collector; empty disables tracing
}

// Provider wraps the otel tracer provider.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// NewProvider builds a provider. Without an endpoint it returns a provider
// whose tracer records nothing.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.OTLPEndpoint == "" {
		return &Provider{tracer: noop.NewTracerProvider().Tracer(InstrumentationName)}, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return NewProviderWithOptions(cfg.ServiceName, sdktrace.WithBatcher(exporter)), nil
}

// NewProviderWithOptions builds an SDK-backed provider from explicit options.
// Tests use it with a span recorder.
func NewProviderWithOptions(serviceName string, opts ...sdktrace.TracerProviderOption) *Provider {
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	opts = append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)
	tp := sdktrace.NewTracerProvider(opts...)
	return &Provider{tp: tp, tracer: tp.Tracer(InstrumentationName)}
}

// Tracer returns the tracer instance.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp != nil {
		return p.tp.Shutdown(ctx)
	}
	return nil
}

// StartJob opens the span for one job run.
func StartJob(ctx context.Context, tracer trace.Tracer, function, team, process string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "job "+function, trace.WithAttributes(
		attribute.String("officegrid.function", function),
		attribute.String("officegrid.team", team),
		attribute.String("officegrid.process", process),
	))
}

// EndJob closes a job span, marking it failed when err is not nil.
func EndJob(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
