package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.14.0"
	"go.opentelemetry.io/otel/trace"

	db "capboot/debug"
)

const (
	SVCNAME = "capboot"
)

type Tracer struct {
	t trace.Tracer
}

func NewTracer(t trace.Tracer) *Tracer {
	return &Tracer{
		t: t,
	}
}

// DefaultTracer traces through the global provider, which discards
// spans unless Init installed one.
func DefaultTracer() *Tracer {
	return NewTracer(otel.Tracer(SVCNAME))
}

func (t *Tracer) StartContextSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	ctx, span := t.t.Start(ctx, name)
	return ctx, span
}

func (t *Tracer) StartTopLevelSpan(name string) (context.Context, trace.Span) {
	return t.t.Start(context.TODO(), name)
}

// EndSpan marks span failed if err is non-nil and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func CapAttr(key string, c uint64) attribute.KeyValue {
	return attribute.Int64(key, int64(c))
}

// Force flush all spans to jaeger.
func (t *Tracer) Flush() {
	tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	if !ok {
		return
	}
	if err := tp.ForceFlush(context.TODO()); err != nil {
		db.DFatalf("Error flushing traces %v", err)
	}
}

func newJaegerExporter(host string) *jaeger.Exporter {
	exp, err := jaeger.New(
		jaeger.WithAgentEndpoint(
			jaeger.WithAgentHost(host),
		),
	)
	if err != nil {
		db.DFatalf("Error make Jaeger exporter: %v", err)
	}
	return exp
}

// lockedExporter serializes calls into the jaeger exporter, which is
// not safe for concurrent use.
type lockedExporter struct {
	mu  sync.Mutex
	exp sdktrace.SpanExporter
}

func newLockedExporter(exp sdktrace.SpanExporter) *lockedExporter {
	return &lockedExporter{exp: exp}
}

func (le *lockedExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	le.mu.Lock()
	defer le.mu.Unlock()
	return le.exp.ExportSpans(ctx, spans)
}

func (le *lockedExporter) Shutdown(ctx context.Context) error {
	le.mu.Lock()
	defer le.mu.Unlock()
	return le.exp.Shutdown(ctx)
}

// newProvider exports every span of svcname to exp as it ends.
func newProvider(svcname string, exp sdktrace.SpanExporter) *sdktrace.TracerProvider {
	res, err := resource.New(context.TODO(), resource.WithAttributes(semconv.ServiceNameKey.String(svcname)))
	if err != nil {
		db.DFatalf("Error resource.New: %v", err)
	}
	return sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSyncer(newLockedExporter(exp)),
		sdktrace.WithResource(res))
}

// Init exports every span of svcname to the jaeger agent on
// jaegerhost. With no host, spans are dropped.
func Init(svcname string, jaegerhost string) *Tracer {
	if jaegerhost == "" {
		db.DPrintf(db.TRACING, "No jaeger host; tracing off")
		return NewTracer(otel.Tracer(svcname))
	}
	otel.SetTracerProvider(newProvider(svcname, newJaegerExporter(jaegerhost)))
	db.DPrintf(db.TRACING, "Tracing %v to %v", svcname, jaegerhost)
	return NewTracer(otel.Tracer(svcname))
}
