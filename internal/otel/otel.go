package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/flatgraph/internal/eventbus"
	events "github.com/hanpama/flatgraph/internal/events"
	runid "github.com/hanpama/flatgraph/internal/runid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithInsecure()))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	Register(otel.Tracer("flatgraph"))

	return tp.Shutdown, nil
}

// Register subscribes tracer to compiler events on the global bus.
func Register(tracer trace.Tracer) (unregister func()) {
	s := &subscriber{tracer: tracer}
	return s.register()
}

type subscriber struct {
	tracer         trace.Tracer
	compileSpans   sync.Map // run id -> trace.Span
	transformSpans sync.Map // run id -> trace.Span
}

func (s *subscriber) register() func() {
	unsubscribes := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.CompileStart) {
			rid, _ := runid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "flatgraph.compile")
			span.SetAttributes(
				attribute.String("flatgraph.run_id", rid),
				attribute.Int("flatgraph.documents", e.Documents),
			)
			s.compileSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.CompileFinish) {
			rid, _ := runid.FromContext(ctx)
			v, ok := s.compileSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(
				attribute.Int("flatgraph.operations", e.Operations),
				attribute.Int("flatgraph.fragments", e.Fragments),
			)
			endSpan(span, e.Err)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.TransformStart) {
			rid, _ := runid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "flatgraph.transform")
			span.SetAttributes(
				attribute.String("flatgraph.run_id", rid),
				attribute.Int("flatgraph.operations", e.Operations),
				attribute.Int("flatgraph.fragments", e.Fragments),
			)
			s.transformSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.SelectionSetFlattened) {
			rid, _ := runid.FromContext(ctx)
			v, ok := s.transformSpans.Load(rid)
			if !ok {
				return
			}
			v.(trace.Span).AddEvent("selection set flattened", trace.WithAttributes(
				attribute.String("flatgraph.kind", e.Kind),
				attribute.String("flatgraph.name", e.Name),
				attribute.Int("flatgraph.possible_types", e.PossibleTypes),
				attribute.Int("flatgraph.records", e.Records),
			))
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.TransformFinish) {
			rid, _ := runid.FromContext(ctx)
			v, ok := s.transformSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			endSpan(v.(trace.Span), e.Err)
		}),
	}
	return func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
