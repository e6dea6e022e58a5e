// Package otel configures OpenTelemetry tracing for service processes.
package otel

import (
	"context"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const namespace = "docker-mastery"

// Config controls span export. Tracing stays off unless Endpoint is set.
type Config struct {
	Enabled     bool    `env:"DOCKER_MASTERY_OTEL_ENABLED" envDefault:"true"`
	Endpoint    string  `env:"DOCKER_MASTERY_OTEL_ENDPOINT"`
	SampleRatio float64 `env:"DOCKER_MASTERY_OTEL_SAMPLE_RATIO" envDefault:"1"`
	Environment string  `env:"NODE_ENV" envDefault:"development"`
}

// Active reports whether spans will be exported.
func (c Config) Active() bool {
	return c.Enabled && strings.TrimSpace(c.Endpoint) != ""
}

// ConfigFromEnv reads Config from the process environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse otel env: %w", err)
	}
	return cfg, nil
}

// Setup installs tracing for service using ConfigFromEnv. The returned
// shutdown flushes pending spans and is a no-op when tracing is off.
func Setup(ctx context.Context, service string) (func(context.Context) error, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return noop, err
	}
	return SetupWithConfig(ctx, service, cfg)
}

// SetupWithConfig installs a global tracer provider exporting to
// cfg.Endpoint over OTLP/HTTP. When cfg is not Active the global no-op
// provider stays in place and cache-aside spans cost nothing.
func SetupWithConfig(ctx context.Context, service string, cfg Config) (func(context.Context) error, error) {
	if !cfg.Active() {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(strings.TrimSpace(cfg.Endpoint)))
	if err != nil {
		return noop, fmt.Errorf("create otlp exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(service),
		semconv.ServiceNamespace(namespace),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return noop, fmt.Errorf("build otel resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return provider.Shutdown, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}

func noop(context.Context) error { return nil }
