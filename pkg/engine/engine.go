package engine

import (
	"context"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/openfroyo/press/pkg/trace"
)

// Configurator populates an engine's pipelines and metadata.
type Configurator interface {
	// Configure runs a configuration script against e. An empty script
	// configures the built-in default pipelines.
	Configure(ctx context.Context, e *Engine, script string) error

	// ConfigureDefaultPipelines (re-)populates only the default pipeline set.
	ConfigureDefaultPipelines(ctx context.Context, e *Engine) error
}

// Observer receives execution callbacks. Telemetry and run history hook in here.
type Observer interface {
	// PipelineStarted is called before a pipeline runs. The returned context
	// is passed to the pipeline.
	PipelineStarted(ctx context.Context, ordinal int, p *Pipeline) context.Context

	// PipelineFinished is called after a pipeline returns, successfully or not.
	PipelineFinished(ctx context.Context, ordinal int, p *Pipeline, documents int, duration time.Duration, err error)

	// RunFinished is called once per Execute call.
	RunFinished(ctx context.Context, pipelines, documents int, duration time.Duration, err error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithTrace sets the trace channel.
func WithTrace(t *trace.Trace) Option {
	return func(e *Engine) {
		if t != nil {
			e.trace = t
		}
	}
}

// WithConfigurator sets the configurator used by Configure.
func WithConfigurator(c Configurator) Option {
	return func(e *Engine) {
		e.configurator = c
	}
}

// WithObserver registers an execution observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithRootFolder overrides the working-directory default. Blank values are ignored.
func WithRootFolder(dir string) Option {
	return func(e *Engine) {
		_ = e.SetRootFolder(dir)
	}
}

// Engine coordinates configuration and pipeline execution.
//
// An Engine is driven by a single caller. Configure, ConfigureDefaultPipelines
// and Execute must not be called concurrently on the same instance.
type Engine struct {
	metadata     Metadata
	rootFolder   string
	state        State
	pipelines    *PipelineCollection
	completed    []Document
	trace        *trace.Trace
	configurator Configurator
	observers    []Observer
}

// New creates an unconfigured engine rooted at the current working directory.
func New(opts ...Option) *Engine {
	root, err := os.Getwd()
	if err != nil {
		root = "."
	}

	e := &Engine{
		metadata:     make(Metadata),
		rootFolder:   root,
		state:        StateUnconfigured,
		pipelines:    NewPipelineCollection(),
		trace:        trace.Discard(),
		configurator: noopConfigurator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Metadata returns the engine metadata used to seed every run. The map is
// live: collaborators write to it before execution.
func (e *Engine) Metadata() Metadata { return e.metadata }

// Pipelines returns the engine's pipeline collection.
func (e *Engine) Pipelines() *PipelineCollection { return e.pipelines }

// Trace returns the engine trace channel.
func (e *Engine) Trace() *trace.Trace { return e.trace }

// State returns the configuration state.
func (e *Engine) State() State { return e.state }

// Configured reports whether Configure has run.
func (e *Engine) Configured() bool { return e.state == StateConfigured }

// CompletedDocuments returns the documents produced by the last Execute call.
func (e *Engine) CompletedDocuments() []Document {
	return slices.Clone(e.completed)
}

// RootFolder returns the folder relative paths resolve against.
func (e *Engine) RootFolder() string { return e.rootFolder }

// SetRootFolder replaces the root folder. Empty or whitespace-only values are
// rejected and leave the current value unchanged. The folder is not required
// to exist.
func (e *Engine) SetRootFolder(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return NewInvalidArgumentError("RootFolder", "root folder must not be empty")
	}
	e.rootFolder = dir
	return nil
}

// Configure runs the configurator once. An empty script configures the
// built-in default pipelines. A second call fails with ErrAlreadyConfigured
// and changes nothing.
func (e *Engine) Configure(ctx context.Context, script string) error {
	next, err := e.state.transitionTo(StateConfigured)
	if err != nil {
		return err
	}
	e.state = next
	return e.configurator.Configure(ctx, e, script)
}

// ConfigureDefaultPipelines populates the default pipeline set, configuring
// the engine with defaults first if it has not been configured yet.
func (e *Engine) ConfigureDefaultPipelines(ctx context.Context) error {
	if !e.Configured() {
		if err := e.Configure(ctx, ""); err != nil {
			return err
		}
	}
	return e.configurator.ConfigureDefaultPipelines(ctx, e)
}

// Execute runs every pipeline in insertion order and returns the
// concatenation of their outputs. An unconfigured engine is configured with
// defaults first.
//
// The first failing pipeline aborts the run. CompletedDocuments then holds the
// output of the pipelines that finished before it. The returned slice is owned
// by the caller.
func (e *Engine) Execute(ctx context.Context) ([]Document, error) {
	if !e.Configured() {
		if err := e.Configure(ctx, ""); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	pipelines := e.pipelines.All()

	e.trace.Information("Executing %d pipelines...", len(pipelines))
	e.completed = nil

	for i, p := range pipelines {
		ordinal := i + 1
		if err := ctx.Err(); err != nil {
			err = newError(ErrorClassCancelled, ErrCodeCancelled, "execution cancelled", err).
				WithPipeline(p.Name(), ordinal)
			e.runFinished(ctx, len(pipelines), start, err)
			return e.CompletedDocuments(), err
		}

		e.trace.Information("Executing pipeline %d (%s) with %d child module(s)...", ordinal, p.Name(), p.Count())
		results, err := e.executePipeline(ctx, ordinal, p)
		if err != nil {
			e.trace.Error("Pipeline %d (%s) failed: %v", ordinal, p.Name(), err)
			err = NewPipelineError(p.Name(), ordinal, err)
			e.runFinished(ctx, len(pipelines), start, err)
			return e.CompletedDocuments(), err
		}
		e.completed = append(e.completed, results...)
		e.trace.Information("Executed pipeline %d (%s) resulting in %d output document(s).", ordinal, p.Name(), len(results))
	}

	e.trace.Information("Executed %d pipelines.", len(pipelines))
	e.runFinished(ctx, len(pipelines), start, nil)
	return e.CompletedDocuments(), nil
}

// executePipeline runs a single pipeline with its trace output nested one
// level deeper. The indent level is restored on every exit path.
func (e *Engine) executePipeline(ctx context.Context, ordinal int, p *Pipeline) (results []Document, err error) {
	pctx := ctx
	for _, o := range e.observers {
		pctx = o.PipelineStarted(pctx, ordinal, p)
	}

	start := time.Now()
	defer func() {
		for _, o := range e.observers {
			o.PipelineFinished(pctx, ordinal, p, len(results), time.Since(start), err)
		}
	}()

	defer e.trace.Nest()()

	ec := NewExecutionContext(p.Name(), e.metadata, e.rootFolder, e.trace)
	return p.Execute(pctx, ec)
}

func (e *Engine) runFinished(ctx context.Context, pipelines int, start time.Time, err error) {
	for _, o := range e.observers {
		o.RunFinished(ctx, pipelines, len(e.completed), time.Since(start), err)
	}
}

// noopConfigurator leaves the engine untouched. It is used when no
// configurator is supplied, which keeps a bare engine executable.
type noopConfigurator struct{}

func (noopConfigurator) Configure(context.Context, *Engine, string) error { return nil }

func (noopConfigurator) ConfigureDefaultPipelines(context.Context, *Engine) error { return nil }
