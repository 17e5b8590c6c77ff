// Package engine provides the orchestration core of Press, a content engine
// that turns input files into output documents by running named pipelines.
//
// # Overview
//
// An Engine holds three things: a metadata bag shared with every run, an
// ordered collection of pipelines, and the documents produced by the most
// recent run. Its lifecycle has two states:
//
//  1. Unconfigured - freshly constructed, pipelines may be added directly
//  2. Configured - a Configurator has run exactly once
//
// Configure moves the engine to the configured state. Execute configures the
// engine with defaults when nobody has done so, then runs every pipeline in
// insertion order and concatenates their outputs.
//
// # Pipelines and Modules
//
// A Pipeline is a named sequence of Modules. The first module receives a
// single seed document carrying the engine metadata; each module's output
// becomes the next module's input:
//
//	e := engine.New(engine.WithConfigurator(cfg))
//	if _, err := e.Pipelines().Add("Pages", readFiles, frontMatter); err != nil {
//	    return err
//	}
//	docs, err := e.Execute(ctx)
//
// Pipeline names are unique within a collection. An empty name is replaced
// with "Pipeline N", N being the pipeline's 1-based position.
//
// # Failure Handling
//
// The first pipeline that fails aborts the run. Execute returns an
// *EngineError of class ErrorClassPipeline naming the pipeline and its
// ordinal, and CompletedDocuments keeps the output of the pipelines that
// finished before it. A done context stops the run before the next pipeline
// with class ErrorClassCancelled.
//
// Errors are classified so callers can branch without string matching:
//
//	if engine.IsPipelineFailure(err) {
//	    var ee *engine.EngineError
//	    errors.As(err, &ee)
//	    log.Error().Str("pipeline", ee.Pipeline).Int("ordinal", ee.Ordinal).Msg("build failed")
//	}
//
// # Diagnostics
//
// Configuration scripts report Diagnostics. DiagnosticLevel routes each
// severity to a trace level; hidden and unknown severities return
// ErrUnmappedSeverity rather than a default level.
//
// # Observers
//
// An Observer receives a callback around every pipeline and once per run.
// The telemetry and history packages implement it to export spans, metrics
// and run records without the engine depending on them.
package engine
