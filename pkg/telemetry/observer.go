package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/press/pkg/engine"
)

const (
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
)

// Observer reports engine execution as spans and Prometheus metrics.
// It implements engine.Observer.
type Observer struct {
	tracer  *Tracer
	metrics *Metrics

	mu      sync.Mutex
	runSpan trace.Span
	spans   map[int]trace.Span
}

var _ engine.Observer = (*Observer)(nil)

// NewObserver creates an observer. Either collaborator may be nil.
func NewObserver(tracer *Tracer, metrics *Metrics) *Observer {
	return &Observer{
		tracer:  tracer,
		metrics: metrics,
		spans:   make(map[int]trace.Span),
	}
}

// StartRun opens the run span that pipeline spans nest under. Pass the
// returned context to engine.Execute.
func (o *Observer) StartRun(ctx context.Context, runID string) context.Context {
	if o.tracer == nil {
		return ctx
	}
	ctx, span := o.tracer.StartRunSpan(ctx, runID)

	o.mu.Lock()
	o.runSpan = span
	o.mu.Unlock()
	return ctx
}

// PipelineStarted opens a pipeline span.
func (o *Observer) PipelineStarted(ctx context.Context, ordinal int, p *engine.Pipeline) context.Context {
	if o.tracer == nil {
		return ctx
	}
	ctx, span := o.tracer.StartPipelineSpan(ctx, p.Name(), ordinal, p.Count())

	o.mu.Lock()
	o.spans[ordinal] = span
	o.mu.Unlock()
	return ctx
}

// PipelineFinished closes the pipeline span and records pipeline metrics.
func (o *Observer) PipelineFinished(_ context.Context, ordinal int, p *engine.Pipeline, documents int, duration time.Duration, err error) {
	status := statusSucceeded
	if err != nil {
		status = statusFailed
	}
	if o.metrics != nil {
		o.metrics.RecordPipelineExecution(p.Name(), status, documents, duration)
	}

	o.mu.Lock()
	span, ok := o.spans[ordinal]
	delete(o.spans, ordinal)
	o.mu.Unlock()
	if !ok {
		return
	}

	span.SetAttributes(AttrPipelineDocuments.Int(documents))
	if err != nil {
		RecordError(span, err)
	} else {
		RecordSuccess(span)
	}
	span.End()
}

// RunFinished closes the run span and records run metrics.
func (o *Observer) RunFinished(_ context.Context, pipelines, documents int, duration time.Duration, err error) {
	status := statusSucceeded
	if err != nil {
		status = statusFailed
	}
	if o.metrics != nil {
		o.metrics.RecordRunCompleted(status, documents, duration)
		if err != nil {
			o.metrics.RecordError(errorClass(err))
		}
	}

	o.mu.Lock()
	span := o.runSpan
	o.runSpan = nil
	o.mu.Unlock()
	if span == nil {
		return
	}

	span.SetAttributes(
		AttrRunStatus.String(status),
		AttrPipelineDocuments.Int(documents),
	)
	if err != nil {
		var engErr *engine.EngineError
		if errors.As(err, &engErr) {
			span.SetAttributes(
				AttrErrorClass.String(string(engErr.Class)),
				AttrErrorCode.String(engErr.Code),
			)
		}
		RecordError(span, err)
	} else {
		RecordSuccess(span)
	}
	span.End()
}

func errorClass(err error) string {
	var engErr *engine.EngineError
	if errors.As(err, &engErr) {
		return string(engErr.Class)
	}
	return "unknown"
}
