package modules

import (
	"fmt"
	"sort"

	"github.com/openfroyo/press/pkg/engine"
)

// Args are the arguments a configuration script passed to a module constructor.
type Args struct {
	Positional []interface{}
	Named      map[string]interface{}
}

// Value returns the argument at position i or with the given name.
func (a Args) Value(i int, name string) (interface{}, bool) {
	if v, ok := a.Named[name]; ok {
		return v, true
	}
	if i >= 0 && i < len(a.Positional) {
		return a.Positional[i], true
	}
	return nil, false
}

// String returns a string argument, or def when absent.
func (a Args) String(i int, name, def string) (string, error) {
	v, ok := a.Value(i, name)
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %s must be a string, got %T", name, v)
	}
	return s, nil
}

// RequiredString returns a string argument that must be present.
func (a Args) RequiredString(i int, name string) (string, error) {
	if _, ok := a.Value(i, name); !ok {
		return "", fmt.Errorf("missing required argument %s", name)
	}
	return a.String(i, name, "")
}

// Factory builds a module from script arguments.
type Factory func(args Args) (engine.Module, error)

// Registry maps script-visible names to module factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with every built-in module.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("read_files", func(args Args) (engine.Module, error) {
		pattern, err := args.RequiredString(0, "pattern")
		if err != nil {
			return nil, err
		}
		return &ReadFiles{Pattern: pattern}, nil
	})
	r.Register("front_matter", func(args Args) (engine.Module, error) {
		delim, err := args.String(0, "delimiter", "---")
		if err != nil {
			return nil, err
		}
		return &FrontMatter{Delimiter: delim}, nil
	})
	r.Register("meta", func(args Args) (engine.Module, error) {
		key, err := args.RequiredString(0, "key")
		if err != nil {
			return nil, err
		}
		value, _ := args.Value(1, "value")
		return &Meta{Key: key, Value: value}, nil
	})
	r.Register("replace", func(args Args) (engine.Module, error) {
		oldText, err := args.RequiredString(0, "old")
		if err != nil {
			return nil, err
		}
		newText, err := args.String(1, "new", "")
		if err != nil {
			return nil, err
		}
		return &Replace{Old: oldText, New: newText}, nil
	})
	r.Register("content", func(args Args) (engine.Module, error) {
		text, err := args.RequiredString(0, "text")
		if err != nil {
			return nil, err
		}
		return &Content{Text: text}, nil
	})
	r.Register("concat", func(args Args) (engine.Module, error) {
		sep, err := args.String(0, "separator", "\n")
		if err != nil {
			return nil, err
		}
		return &Concat{Separator: sep}, nil
	})
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Build creates the named module.
func (r *Registry) Build(name string, args Args) (engine.Module, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown module: %s", name)
	}
	m, err := f(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

// Names returns the registered module names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
