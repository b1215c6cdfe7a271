package observability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/beast-forums/internal/config"
)

// isolate restores the OTel globals and the exporter seam after t.
func isolate(t *testing.T) {
	t.Helper()
	tp, prop, dial := otel.GetTracerProvider(), otel.GetTextMapPropagator(), dialExporter
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
		dialExporter = dial
	})
}

func tracingOn() config.OTELConfig {
	return config.OTELConfig{Enabled: true, Insecure: true, Endpoint: "localhost:4317", ServiceName: "beast-forums", SampleRatio: 1}
}

func TestSetupOTel_Disabled(t *testing.T) {
	isolate(t)
	prev := otel.GetTracerProvider()
	dialExporter = func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) {
		t.Fatal("exporter dialled while disabled")
		return nil, nil
	}

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{}, "v0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if otel.GetTracerProvider() != prev {
		t.Fatal("provider replaced while disabled")
	}
}

func TestSetupOTel_ExportsWithResource(t *testing.T) {
	isolate(t)
	exp := tracetest.NewInMemoryExporter()
	dialExporter = func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) { return exp, nil }

	shutdown, err := SetupOTel(context.Background(), tracingOn(), "v1.2.3")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if fields := otel.GetTextMapPropagator().Fields(); !strings.Contains(strings.Join(fields, ","), "traceparent") {
		t.Fatalf("propagator fields = %v", fields)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "GET /forums/:messageboard_id")
	span.End()
	// InMemoryExporter forgets its spans on Shutdown, so read them after a flush.
	tp := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported %d spans", len(spans))
	}
	attrs := map[string]string{}
	for _, kv := range spans[0].Resource.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["service.name"] != "beast-forums" || attrs["service.version"] != "v1.2.3" {
		t.Fatalf("resource = %v", attrs)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupOTel_ExporterError(t *testing.T) {
	isolate(t)
	dialExporter = func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) {
		return nil, errors.New("dial refused")
	}
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()

	_, err := SetupOTel(context.Background(), tracingOn(), "v0")
	if err == nil || !strings.Contains(err.Error(), "dial refused") {
		t.Fatalf("err = %v", err)
	}
	if otel.GetTracerProvider() != prevTP || otel.GetTextMapPropagator() != prevProp {
		t.Fatal("globals changed on failure")
	}
}

func TestSampler(t *testing.T) {
	cases := map[float64]string{
		1:    "AlwaysOnSampler",
		2:    "AlwaysOnSampler",
		0:    "AlwaysOffSampler",
		-1:   "AlwaysOffSampler",
		0.25: "TraceIDRatioBased{0.25}",
	}
	for ratio, want := range cases {
		if got := sampler(ratio).Description(); !strings.HasPrefix(got, "ParentBased{root:"+want) {
			t.Errorf("sampler(%v) = %s; want root %s", ratio, got, want)
		}
	}
}

func TestExporterOptions(t *testing.T) {
	for _, insecure := range []bool{true, false} {
		cfg := tracingOn()
		cfg.Insecure = insecure
		if n := len(exporterOptions(cfg)); n != 2 {
			t.Errorf("insecure=%v: %d options", insecure, n)
		}
	}
}

func TestInstrumentDB_RecordsQuerySpans(t *testing.T) {
	isolate(t)
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	dsn := fmt.Sprintf("file:otel_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := InstrumentDB(db, "sqlite"); err != nil {
		t.Fatalf("InstrumentDB: %v", err)
	}

	var n int
	if err := db.WithContext(context.Background()).Raw("SELECT 1").Scan(&n).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	ended := rec.Ended()
	if len(ended) == 0 {
		t.Fatal("no query span")
	}
	for _, kv := range ended[0].Attributes() {
		if kv.Key == "db.driver" && kv.Value.AsString() == "sqlite" {
			return
		}
	}
	t.Fatalf("db.driver missing from %v", ended[0].Attributes())
}
