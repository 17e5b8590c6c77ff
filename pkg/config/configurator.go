package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"github.com/openfroyo/press/pkg/engine"
	"github.com/openfroyo/press/pkg/modules"
)

// Default pipeline names.
const (
	PipelinePages     = "Pages"
	PipelineResources = "Resources"
)

// Options configures a Configurator.
type Options struct {
	// Timeout bounds script execution. Defaults to 30 seconds.
	Timeout time.Duration

	// Filename is reported in diagnostics. Defaults to "config.star".
	Filename string

	// Registry supplies the module constructors visible to scripts.
	Registry *modules.Registry

	// Globals are extra values predeclared in the script environment.
	Globals map[string]interface{}
}

// Configurator populates an engine from a Starlark configuration script.
type Configurator struct {
	timeout     time.Duration
	filename    string
	registry    *modules.Registry
	globals     map[string]interface{}
	diagnostics []engine.Diagnostic
}

// NewConfigurator creates a new Starlark configurator.
func NewConfigurator(opts Options) *Configurator {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Filename == "" {
		opts.Filename = "config.star"
	}
	if opts.Registry == nil {
		opts.Registry = modules.DefaultRegistry()
	}
	return &Configurator{
		timeout:  opts.Timeout,
		filename: opts.Filename,
		registry: opts.Registry,
		globals:  opts.Globals,
	}
}

// Diagnostics returns the diagnostics reported by the last Configure call.
func (c *Configurator) Diagnostics() []engine.Diagnostic {
	out := make([]engine.Diagnostic, len(c.diagnostics))
	copy(out, c.diagnostics)
	return out
}

// ConfigureDefaultPipelines sets the default pipelines by name, so calling it
// repeatedly never duplicates them.
func (c *Configurator) ConfigureDefaultPipelines(_ context.Context, e *engine.Engine) error {
	defaults := []struct {
		name    string
		modules []engine.Module
	}{
		{PipelinePages, []engine.Module{
			&modules.ReadFiles{Pattern: "input/*.md"},
			&modules.FrontMatter{Delimiter: "---"},
		}},
		{PipelineResources, []engine.Module{
			&modules.ReadFiles{Pattern: "input/*.html"},
			&modules.FrontMatter{Delimiter: "---"},
		}},
	}

	for _, d := range defaults {
		if _, err := e.Pipelines().Set(d.name, d.modules...); err != nil {
			return err
		}
	}
	e.Trace().Verbose("Configured %d default pipelines", len(defaults))
	return nil
}

// Configure runs script against e. An empty or whitespace-only script
// configures the default pipelines. Every diagnostic is written to the engine
// trace; any error diagnostic fails the configuration.
func (c *Configurator) Configure(ctx context.Context, e *engine.Engine, script string) error {
	c.diagnostics = nil
	if strings.TrimSpace(script) == "" {
		return c.ConfigureDefaultPipelines(ctx, e)
	}

	t := e.Trace()
	t.Information("Evaluating configuration script %s...", c.filename)
	if err := c.evaluate(ctx, e, script); err != nil {
		return err
	}
	t.Information("Configured %d pipelines.", e.Pipelines().Len())
	return nil
}

// evaluate runs the script and traces its diagnostics one level deeper.
func (c *Configurator) evaluate(ctx context.Context, e *engine.Engine, script string) error {
	t := e.Trace()
	defer t.Nest()()

	runErr := c.run(ctx, e, script)
	if runErr != nil {
		c.diagnostics = append(c.diagnostics, diagnosticFromError(c.filename, runErr))
	}

	for _, d := range c.diagnostics {
		if err := engine.TraceDiagnostic(t, d); err != nil {
			return err
		}
	}

	if runErr != nil {
		return engine.NewConfigurationError("configuration script failed", runErr)
	}
	return nil
}

// run executes the script with a timeout.
func (c *Configurator) run(ctx context.Context, e *engine.Engine, script string) error {
	evalCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	thread := &starlark.Thread{
		Name: "press-config",
		Print: func(th *starlark.Thread, msg string) {
			c.report(th, engine.SeverityInfo, msg)
		},
	}
	stop := context.AfterFunc(evalCtx, func() {
		thread.Cancel(fmt.Sprintf("configuration timeout after %v", c.timeout))
	})
	defer stop()

	predeclared, err := c.predeclared(e)
	if err != nil {
		return err
	}

	globals, err := starlark.ExecFile(thread, c.filename, script, predeclared)
	if err != nil {
		return err
	}

	if meta, ok := globals["metadata"]; ok {
		value, err := fromStarlarkValue(meta)
		if err != nil {
			return fmt.Errorf("metadata: %w", err)
		}
		dict, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("metadata must be a dict, got %s", meta.Type())
		}
		for k, v := range dict {
			e.Metadata()[k] = v
		}
	}
	return nil
}

// report records a diagnostic positioned at the script line that called the builtin.
func (c *Configurator) report(th *starlark.Thread, sev engine.DiagnosticSeverity, msg string) {
	d := engine.Diagnostic{Severity: sev, Message: msg, File: c.filename}
	if th.CallStackDepth() > 1 {
		pos := th.CallFrame(1).Pos
		d.Line = int(pos.Line)
		d.Column = int(pos.Col)
	}
	c.diagnostics = append(c.diagnostics, d)
}

func (c *Configurator) predeclared(e *engine.Engine) (starlark.StringDict, error) {
	predeclared := starlark.StringDict{
		"struct":      starlarkstruct.Default,
		"pipeline":    starlark.NewBuiltin("pipeline", c.builtinPipeline(e)),
		"set_meta":    starlark.NewBuiltin("set_meta", builtinSetMeta(e)),
		"root_folder": starlark.NewBuiltin("root_folder", builtinRootFolder(e)),
		"warn":        starlark.NewBuiltin("warn", c.builtinWarn),
	}

	for _, name := range c.registry.Names() {
		predeclared[name] = starlark.NewBuiltin(name, c.builtinModule(name))
	}

	for key, val := range c.globals {
		sv, err := toStarlarkValue(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert global %s: %w", key, err)
		}
		predeclared[key] = sv
	}
	return predeclared, nil
}

// builtinModule returns a constructor for the named registry module.
func (c *Configurator) builtinModule(name string) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		margs := modules.Args{Named: make(map[string]interface{}, len(kwargs))}
		for _, arg := range args {
			v, err := fromStarlarkValue(arg)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			margs.Positional = append(margs.Positional, v)
		}
		for _, kv := range kwargs {
			v, err := fromStarlarkValue(kv[1])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			margs.Named[string(kv[0].(starlark.String))] = v
		}

		m, err := c.registry.Build(name, margs)
		if err != nil {
			return nil, err
		}
		return &moduleValue{module: m}, nil
	}
}

// builtinPipeline implements pipeline([name,] *modules).
func (c *Configurator) builtinPipeline(e *engine.Engine) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
		}

		var name string
		if len(args) > 0 {
			if s, ok := args[0].(starlark.String); ok {
				name = string(s)
				args = args[1:]
			}
		}

		var mods []engine.Module
		for i, arg := range args {
			collected, err := collectModules(arg)
			if err != nil {
				return nil, fmt.Errorf("%s: argument %d: %w", b.Name(), i+1, err)
			}
			mods = append(mods, collected...)
		}

		p, err := e.Pipelines().Add(name, mods...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return starlark.String(p.Name()), nil
	}
}

func collectModules(v starlark.Value) ([]engine.Module, error) {
	switch val := v.(type) {
	case *moduleValue:
		return []engine.Module{val.module}, nil
	case *starlark.List:
		var out []engine.Module
		for i := 0; i < val.Len(); i++ {
			mods, err := collectModules(val.Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, mods...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected module, got %s", v.Type())
	}
}

func builtinSetMeta(e *engine.Engine) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var key string
		var value starlark.Value
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "key", &key, "value", &value); err != nil {
			return nil, err
		}
		v, err := fromStarlarkValue(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		e.Metadata()[key] = v
		return starlark.None, nil
	}
}

func builtinRootFolder(e *engine.Engine) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var path string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &path); err != nil {
			return nil, err
		}
		if err := e.SetRootFolder(path); err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return starlark.None, nil
	}
}

func (c *Configurator) builtinWarn(th *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var msg string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "msg", &msg); err != nil {
		return nil, err
	}
	c.report(th, engine.SeverityWarning, msg)
	return starlark.None, nil
}

// diagnosticFromError converts a Starlark compile or runtime error into an
// error diagnostic, keeping its position when one is known.
func diagnosticFromError(filename string, err error) engine.Diagnostic {
	d := engine.Diagnostic{Severity: engine.SeverityError, Message: err.Error(), File: filename}

	var syntaxErr syntax.Error
	var resolveErrs resolve.ErrorList
	var evalErr *starlark.EvalError
	switch {
	case errors.As(err, &syntaxErr):
		d.Message = syntaxErr.Msg
		d.Line, d.Column = int(syntaxErr.Pos.Line), int(syntaxErr.Pos.Col)
	case errors.As(err, &resolveErrs) && len(resolveErrs) > 0:
		d.Message = resolveErrs[0].Msg
		d.Line, d.Column = int(resolveErrs[0].Pos.Line), int(resolveErrs[0].Pos.Col)
	case errors.As(err, &evalErr):
		d.Message = evalErr.Msg
		for i := 0; i < len(evalErr.CallStack); i++ {
			if pos := evalErr.CallStack.At(i).Pos; pos.Line > 0 {
				d.Line, d.Column = int(pos.Line), int(pos.Col)
				break
			}
		}
	}
	return d
}

// moduleValue exposes an engine module to Starlark.
type moduleValue struct {
	module engine.Module
}

var _ starlark.Value = (*moduleValue)(nil)

func (m *moduleValue) String() string { return "<module " + m.module.Name() + ">" }
func (m *moduleValue) Type() string { return "module" }
func (m *moduleValue) Freeze() {}
func (m *moduleValue) Truth() starlark.Bool { return starlark.True }
func (m *moduleValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: module") }
