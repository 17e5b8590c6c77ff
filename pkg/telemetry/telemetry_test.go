package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/openfroyo/press/pkg/engine"
)

func enabledMetrics(t *testing.T) *Metrics {
	t.Helper()
	cfg := DefaultConfig().Metrics
	cfg.Enabled = true
	m, err := NewMetrics(cfg)
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	return m
}

func recordingTracer() (*Tracer, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return &Tracer{provider: provider, tracer: provider.Tracer("press-test")}, rec
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "missing service name", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: true},
		{name: "bad exporter", mutate: func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "jaeger"
		}, wantErr: true},
		{name: "bad sampling rate", mutate: func(c *Config) { c.Tracing.SamplingRate = 2 }, wantErr: true},
		{name: "metrics without address", mutate: func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.ListenAddress = ""
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMetrics_Disabled(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{})
	if err != nil {
		t.Fatal(err)
	}
	m.RecordPipelineExecution("Pages", statusSucceeded, 3, time.Second)
	m.RecordRunCompleted(statusSucceeded, 3, time.Second)
	m.RecordError("pipeline")
	if m.Registry() != nil {
		t.Error("expected no registry for disabled metrics")
	}
	if err := m.StartMetricsServer(); err != nil {
		t.Errorf("StartMetricsServer on disabled metrics: %v", err)
	}
}

func TestObserver_RecordsPipelineMetrics(t *testing.T) {
	m := enabledMetrics(t)
	obs := NewObserver(nil, m)
	p := engine.NewPipeline("Pages")
	ctx := context.Background()

	ctx = obs.PipelineStarted(ctx, 1, p)
	obs.PipelineFinished(ctx, 1, p, 4, 10*time.Millisecond, nil)
	obs.PipelineFinished(ctx, 1, p, 0, time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.pipelinesExecuted.WithLabelValues("Pages", statusSucceeded)); got != 1 {
		t.Errorf("succeeded pipelines = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.pipelinesExecuted.WithLabelValues("Pages", statusFailed)); got != 1 {
		t.Errorf("failed pipelines = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.documentsProduced.WithLabelValues("Pages")); got != 4 {
		t.Errorf("documents produced = %v, want 4", got)
	}
}

func TestObserver_RunErrorClass(t *testing.T) {
	m := enabledMetrics(t)
	obs := NewObserver(nil, m)

	err := engine.NewPipelineError("Pages", 1, errors.New("boom"))
	obs.RunFinished(context.Background(), 2, 5, time.Second, err)
	obs.RunFinished(context.Background(), 2, 7, time.Second, nil)

	if got := testutil.ToFloat64(m.errorsByClass.WithLabelValues("pipeline")); got != 1 {
		t.Errorf("pipeline errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lastRunDocuments); got != 7 {
		t.Errorf("last run documents = %v, want 7", got)
	}
	if got := testutil.ToFloat64(m.runsCompleted.WithLabelValues(statusFailed)); got != 1 {
		t.Errorf("failed runs = %v, want 1", got)
	}
}

func TestObserver_Spans(t *testing.T) {
	tracer, rec := recordingTracer()
	obs := NewObserver(tracer, nil)
	p := engine.NewPipeline("Resources")

	ctx := obs.StartRun(context.Background(), "run-1")
	pctx := obs.PipelineStarted(ctx, 2, p)
	obs.PipelineFinished(pctx, 2, p, 1, time.Millisecond, errors.New("boom"))
	obs.RunFinished(ctx, 2, 1, time.Millisecond, engine.NewPipelineError("Resources", 2, errors.New("boom")))

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 ended spans, got %d", len(spans))
	}

	pipelineSpan, runSpan := spans[0], spans[1]
	if pipelineSpan.Name() != "pipeline.execute" || runSpan.Name() != "engine.execute" {
		t.Errorf("unexpected span names: %s, %s", pipelineSpan.Name(), runSpan.Name())
	}
	if pipelineSpan.Parent().SpanID() != runSpan.SpanContext().SpanID() {
		t.Error("expected pipeline span to nest under the run span")
	}
	if pipelineSpan.Status().Code != codes.Error {
		t.Errorf("expected error status on pipeline span, got %v", pipelineSpan.Status().Code)
	}

	var class string
	for _, kv := range runSpan.Attributes() {
		if kv.Key == AttrErrorClass {
			class = kv.Value.AsString()
		}
	}
	if class != "pipeline" {
		t.Errorf("expected error.class=pipeline on run span, got %q", class)
	}
}

func TestEngineExecute_WithObserver(t *testing.T) {
	tracer, rec := recordingTracer()
	m := enabledMetrics(t)
	obs := NewObserver(tracer, m)

	e := engine.New(engine.WithObserver(obs), engine.WithRootFolder(t.TempDir()))
	if err := e.Configure(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Pipelines().Add("Empty"); err != nil {
		t.Fatal(err)
	}

	ctx := obs.StartRun(context.Background(), "run-2")
	if _, err := e.Execute(ctx); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if got := len(rec.Ended()); got != 2 {
		t.Errorf("expected 2 spans, got %d", got)
	}
	if got := testutil.ToFloat64(m.runsCompleted.WithLabelValues(statusSucceeded)); got != 1 {
		t.Errorf("succeeded runs = %v, want 1", got)
	}
}

func TestTraceID(t *testing.T) {
	if got := TraceID(context.Background()); got != "" {
		t.Errorf("TraceID without a span = %q, want empty", got)
	}

	tracer, _ := recordingTracer()
	ctx, span := tracer.StartRunSpan(context.Background(), "run-2")
	defer span.End()

	got := TraceID(ctx)
	if got == "" || got != span.SpanContext().TraceID().String() {
		t.Errorf("TraceID = %q, want %s", got, span.SpanContext().TraceID())
	}

	disabled, err := NewTracer(TracingConfig{}, "press", "test", "test")
	if err != nil {
		t.Fatal(err)
	}
	ctx, span = disabled.StartRunSpan(context.Background(), "run-3")
	defer span.End()
	if got := TraceID(ctx); got != "" {
		t.Errorf("disabled tracer produced trace id %q", got)
	}
}
