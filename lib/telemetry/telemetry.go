package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type OtlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

type OtlpConfig struct {
	Traces  OtlpConnConfig `json:"traces"`
	Metrics OtlpConnConfig `json:"metrics"`
}

type Config struct {
	Otlp OtlpConfig `json:"otlp"`
}

var activeTracerProvider *trace.TracerProvider
var activeMeterProvider *metric.MeterProvider

// Tracer returns a tracer from the global provider. it is safe to call
// before Setup, spans recorded before then are no-ops.
func Tracer(name string) oteltrace.Tracer {
	return otel.Tracer(name)
}

func Setup(ctx context.Context, serviceName string, config Config) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	r, err := newResource(serviceName)
	if err != nil {
		return err
	}

	tracerProvider, err := newTraceProvider(ctx, r, config)
	if err != nil {
		return err
	}
	otel.SetTracerProvider(tracerProvider)
	activeTracerProvider = tracerProvider

	meterProvider, err := newMetricProvider(ctx, r, config)
	if err != nil {
		return err
	}
	otel.SetMeterProvider(meterProvider)
	activeMeterProvider = meterProvider

	return nil
}

func Shutdown(ctx context.Context) error {
	var errlist []error
	if activeTracerProvider != nil {
		err := activeTracerProvider.Shutdown(ctx)
		if err != nil {
			errlist = append(errlist, err)
		}
		activeTracerProvider = nil
	}
	if activeMeterProvider != nil {
		err := activeMeterProvider.Shutdown(ctx)
		if err != nil {
			errlist = append(errlist, err)
		}
		activeMeterProvider = nil
	}
	return errors.Join(errlist...)
}
