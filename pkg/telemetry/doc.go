// Package telemetry instruments Press runs with OpenTelemetry traces and
// Prometheus metrics.
//
// Logging is not part of this package; the engine's trace channel
// (package trace) carries log output. Telemetry hooks into execution through
// an Observer registered on the engine:
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	obs := tel.Observer()
//	e := engine.New(engine.WithObserver(obs))
//	ctx = obs.StartRun(ctx, runID)
//	docs, err := e.Execute(ctx)
//
// # Tracing
//
// Each Execute call produces an "engine.execute" span when StartRun was
// called, with one "pipeline.execute" child span per pipeline. Supported
// exporters are otlp (gRPC), stdout and none.
//
// # Metrics
//
// Metrics are served from a dedicated registry:
//
//   - runs_completed_total{status}
//   - run_duration_seconds{status}
//   - pipelines_executed_total{pipeline,status}
//   - pipeline_duration_seconds{pipeline}
//   - documents_produced_total{pipeline}
//   - last_run_documents
//   - errors_total{class}
//
// All names carry the configured namespace prefix.
package telemetry
