package monitor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// TracerConfig tracing configuration
type TracerConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	JaegerEndpoint string
	SamplingRate   float64
	Enabled        bool
}

// Tracer wraps the OpenTelemetry tracer with storefront-specific helpers
type Tracer struct {
	config   *TracerConfig
	provider *trace.TracerProvider
	tracer   oteltrace.Tracer
}

// NewTracer creates a tracer. When disabled it returns a no-op tracer that
// still satisfies the full API.
func NewTracer(config *TracerConfig) (*Tracer, error) {
	if !config.Enabled {
		return &Tracer{
			config: config,
			tracer: otel.Tracer(config.ServiceName),
		}, nil
	}

	exporter, err := jaeger.New(
		jaeger.WithCollectorEndpoint(
			jaeger.WithEndpoint(config.JaegerEndpoint),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create jaeger exporter: %w", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(config.SamplingRate)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tracer := provider.Tracer(config.ServiceName)

	return &Tracer{
		config:   config,
		provider: provider,
		tracer:   tracer,
	}, nil
}

// StartSpan starts a new span
func (t *Tracer) StartSpan(ctx context.Context, operationName string, opts ...oteltrace.SpanStartOption) (context.Context, oteltrace.Span) {
	if !t.config.Enabled {
		return ctx, oteltrace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, operationName, opts...)
}

// StartHTTPSpan starts a span for an inbound HTTP request
func (t *Tracer) StartHTTPSpan(ctx context.Context, method, path string, r *http.Request) (context.Context, oteltrace.Span) {
	if !t.config.Enabled {
		return ctx, oteltrace.SpanFromContext(ctx)
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(r.Header))

	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("%s %s", method, path),
		oteltrace.WithSpanKind(oteltrace.SpanKindServer),
		oteltrace.WithAttributes(
			semconv.HTTPMethodKey.String(method),
			semconv.HTTPURLKey.String(r.URL.String()),
			semconv.HTTPHostKey.String(r.Host),
			semconv.HTTPTargetKey.String(path),
			semconv.HTTPUserAgentKey.String(r.UserAgent()),
		),
	)

	return ctx, span
}

// StartDBSpan starts a span for a database operation
func (t *Tracer) StartDBSpan(ctx context.Context, operation, table string) (context.Context, oteltrace.Span) {
	if !t.config.Enabled {
		return ctx, oteltrace.SpanFromContext(ctx)
	}

	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("db.%s.%s", operation, table),
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(
			semconv.DBSystemKey.String("mysql"),
			semconv.DBOperationKey.String(operation),
			semconv.DBSQLTableKey.String(table),
		),
	)

	return ctx, span
}

// StartCheckoutSpan starts a span for a checkout operation
func (t *Tracer) StartCheckoutSpan(ctx context.Context, orderNo string, userID int64) (context.Context, oteltrace.Span) {
	if !t.config.Enabled {
		return ctx, oteltrace.SpanFromContext(ctx)
	}

	ctx, span := t.tracer.Start(ctx, "checkout.create_order",
		oteltrace.WithAttributes(
			attribute.String("checkout.order_no", orderNo),
			attribute.Int64("checkout.user_id", userID),
		),
	)

	return ctx, span
}

// StartEscalationSpan starts a span for an AI chat escalation
func (t *Tracer) StartEscalationSpan(ctx context.Context, roomID, messageID string) (context.Context, oteltrace.Span) {
	if !t.config.Enabled {
		return ctx, oteltrace.SpanFromContext(ctx)
	}

	ctx, span := t.tracer.Start(ctx, "chat.ai_escalation",
		oteltrace.WithAttributes(
			attribute.String("chat.room_id", roomID),
			attribute.String("chat.message_id", messageID),
		),
	)

	return ctx, span
}

// AddSpanAttributes adds attributes to a span
func (t *Tracer) AddSpanAttributes(span oteltrace.Span, attrs ...attribute.KeyValue) {
	if !t.config.Enabled {
		return
	}
	span.SetAttributes(attrs...)
}

// RecordError records an error on a span
func (t *Tracer) RecordError(span oteltrace.Span, err error) {
	if !t.config.Enabled || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
}

// Shutdown shuts down the tracer provider
func (t *Tracer) Shutdown(ctx context.Context) error {
	if !t.config.Enabled || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// TraceID returns the trace ID of the current span, if any
func (t *Tracer) TraceID(ctx context.Context) string {
	span := oteltrace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// WithTimeout creates a span together with a timeout context
func (t *Tracer) WithTimeout(ctx context.Context, operationName string, timeout time.Duration) (context.Context, oteltrace.Span, context.CancelFunc) {
	ctx, span := t.StartSpan(ctx, operationName)
	ctx, cancel := context.WithTimeout(ctx, timeout)

	t.AddSpanAttributes(span, attribute.String("timeout", timeout.String()))

	return ctx, span, cancel
}

// DefaultTracerConfig default tracer configuration
func DefaultTracerConfig() *TracerConfig {
	return &TracerConfig{
		ServiceName:    "storefront",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		JaegerEndpoint: "http://localhost:14268/api/traces",
		SamplingRate:   1.0,
		Enabled:        true,
	}
}
