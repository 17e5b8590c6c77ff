package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/openfroyo/press/pkg/trace"
)

// Module is a single transformation step inside a pipeline.
type Module interface {
	// Name identifies the module in traces and policy input.
	Name() string

	// Execute transforms the input documents into output documents.
	Execute(ctx context.Context, inputs []Document, ec *ExecutionContext) ([]Document, error)
}

// ExecutionContext gives modules read access to engine-wide settings while a
// pipeline runs.
type ExecutionContext struct {
	// Pipeline is the name of the running pipeline.
	Pipeline string

	metadata   Metadata
	rootFolder string
	trace      *trace.Trace
}

// NewExecutionContext creates an execution context. Engine.Execute builds one
// per pipeline; tests build them directly.
func NewExecutionContext(pipeline string, meta Metadata, rootFolder string, t *trace.Trace) *ExecutionContext {
	if t == nil {
		t = trace.Discard()
	}
	return &ExecutionContext{
		Pipeline:   pipeline,
		metadata:   meta.Clone(),
		rootFolder: rootFolder,
		trace:      t,
	}
}

// Metadata returns a copy of the engine metadata as seeded before execution.
func (ec *ExecutionContext) Metadata() Metadata { return ec.metadata.Clone() }

// RootFolder returns the folder relative paths resolve against.
func (ec *ExecutionContext) RootFolder() string { return ec.rootFolder }

// Trace returns the engine trace channel.
func (ec *ExecutionContext) Trace() *trace.Trace { return ec.trace }

// Pipeline is a named, ordered sequence of modules.
type Pipeline struct {
	name    string
	modules []Module
}

// NewPipeline creates a pipeline with the given modules.
func NewPipeline(name string, modules ...Module) *Pipeline {
	return &Pipeline{
		name:    name,
		modules: slices.Clone(modules),
	}
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Count returns the number of modules in the pipeline.
func (p *Pipeline) Count() int { return len(p.modules) }

// Modules returns a copy of the pipeline modules.
func (p *Pipeline) Modules() []Module { return slices.Clone(p.modules) }

// Add appends modules to the pipeline.
func (p *Pipeline) Add(modules ...Module) *Pipeline {
	p.modules = append(p.modules, modules...)
	return p
}

// Execute runs every module in order. The first module receives a single seed
// document carrying the engine metadata; each module's output is the next
// module's input. The last module's output is returned.
func (p *Pipeline) Execute(ctx context.Context, ec *ExecutionContext) ([]Document, error) {
	docs := []Document{NewDocument("", "", ec.Metadata())}

	for i, module := range p.modules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := p.executeModule(ctx, i+1, module, docs, ec)
		if err != nil {
			return nil, fmt.Errorf("module %d (%s) failed: %w", i+1, module.Name(), err)
		}
		docs = out
	}

	return docs, nil
}

func (p *Pipeline) executeModule(ctx context.Context, ordinal int, module Module, inputs []Document, ec *ExecutionContext) ([]Document, error) {
	t := ec.Trace()
	t.Verbose("Executing module %d (%s) with %d input document(s)...", ordinal, module.Name(), len(inputs))
	defer t.Nest()()

	out, err := module.Execute(ctx, inputs, ec)
	if err != nil {
		return nil, err
	}
	t.Verbose("Module %s produced %d output document(s).", module.Name(), len(out))
	return out, nil
}
