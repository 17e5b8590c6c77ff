package modules

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openfroyo/press/pkg/engine"
)

// Metadata keys set by ReadFiles.
const (
	KeySource       = "source"
	KeyRelativePath = "relative_path"
	KeyFileName     = "file_name"
)

// ReadFiles loads every file matching a glob pattern relative to the engine
// root folder. Each input document yields one output per matched file, in
// path order, carrying the input metadata.
type ReadFiles struct {
	Pattern string
}

// Name implements engine.Module.
func (m *ReadFiles) Name() string { return "read_files" }

// Execute implements engine.Module.
func (m *ReadFiles) Execute(ctx context.Context, inputs []engine.Document, ec *engine.ExecutionContext) ([]engine.Document, error) {
	pattern := m.Pattern
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(ec.RootFolder(), pattern)
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", m.Pattern, err)
	}
	sort.Strings(matches)

	var out []engine.Document
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		rel, err := filepath.Rel(ec.RootFolder(), path)
		if err != nil {
			rel = path
		}
		fileMeta := engine.Metadata{
			KeySource:       path,
			KeyRelativePath: filepath.ToSlash(rel),
			KeyFileName:     filepath.Base(path),
		}

		for _, in := range inputs {
			out = append(out, engine.NewDocument(path, string(data), in.Metadata().Merge(fileMeta)))
		}
	}

	ec.Trace().Verbose("Read %d file(s) matching %s", len(matches), m.Pattern)
	return out, nil
}

// FrontMatter moves a YAML block delimited by Delimiter lines at the top of a
// document into its metadata. Documents without front matter pass through.
type FrontMatter struct {
	Delimiter string
}

// Name implements engine.Module.
func (m *FrontMatter) Name() string { return "front_matter" }

// Execute implements engine.Module.
func (m *FrontMatter) Execute(_ context.Context, inputs []engine.Document, ec *engine.ExecutionContext) ([]engine.Document, error) {
	delim := m.Delimiter
	if delim == "" {
		delim = "---"
	}

	out := make([]engine.Document, 0, len(inputs))
	for _, in := range inputs {
		body, block, ok := splitFrontMatter(in.Content(), delim)
		if !ok {
			out = append(out, in)
			continue
		}

		var meta map[string]interface{}
		if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
			return nil, fmt.Errorf("invalid front matter in %s: %w", in.Source(), err)
		}
		ec.Trace().Verbose("Parsed %d front matter key(s) from %s", len(meta), in.Source())
		out = append(out, in.Clone(body, engine.Metadata(meta)))
	}
	return out, nil
}

// splitFrontMatter returns the body and front matter block of content. The
// block must open on the first line and close on a line holding only the
// delimiter. The body keeps its original line endings.
func splitFrontMatter(content, delim string) (body, block string, ok bool) {
	first, rest, found := strings.Cut(content, "\n")
	if !found || !isDelimiterLine(first, delim) {
		return content, "", false
	}

	var lines []string
	for rest != "" {
		line, next, _ := strings.Cut(rest, "\n")
		if isDelimiterLine(line, delim) {
			return next, strings.Join(lines, "\n"), true
		}
		lines = append(lines, strings.TrimSuffix(line, "\r"))
		rest = next
	}
	return content, "", false
}

func isDelimiterLine(line, delim string) bool {
	return strings.TrimRight(line, " \t\r") == delim
}

// Meta sets a metadata value on every document.
type Meta struct {
	Key   string
	Value interface{}
}

// Name implements engine.Module.
func (m *Meta) Name() string { return "meta" }

// Execute implements engine.Module.
func (m *Meta) Execute(_ context.Context, inputs []engine.Document, _ *engine.ExecutionContext) ([]engine.Document, error) {
	out := make([]engine.Document, len(inputs))
	for i, in := range inputs {
		out[i] = in.Clone(in.Content(), engine.Metadata{m.Key: m.Value})
	}
	return out, nil
}

// Replace substitutes every occurrence of Old with New in document content.
type Replace struct {
	Old string
	New string
}

// Name implements engine.Module.
func (m *Replace) Name() string { return "replace" }

// Execute implements engine.Module.
func (m *Replace) Execute(_ context.Context, inputs []engine.Document, _ *engine.ExecutionContext) ([]engine.Document, error) {
	out := make([]engine.Document, len(inputs))
	for i, in := range inputs {
		out[i] = in.Clone(strings.ReplaceAll(in.Content(), m.Old, m.New), nil)
	}
	return out, nil
}

// Content replaces the content of every document.
type Content struct {
	Text string
}

// Name implements engine.Module.
func (m *Content) Name() string { return "content" }

// Execute implements engine.Module.
func (m *Content) Execute(_ context.Context, inputs []engine.Document, _ *engine.ExecutionContext) ([]engine.Document, error) {
	out := make([]engine.Document, len(inputs))
	for i, in := range inputs {
		out[i] = in.Clone(m.Text, nil)
	}
	return out, nil
}

// Concat joins all inputs into one document using Separator. The result
// carries the metadata of the first input.
type Concat struct {
	Separator string
}

// Name implements engine.Module.
func (m *Concat) Name() string { return "concat" }

// Execute implements engine.Module.
func (m *Concat) Execute(_ context.Context, inputs []engine.Document, _ *engine.ExecutionContext) ([]engine.Document, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	parts := make([]string, len(inputs))
	for i, in := range inputs {
		parts[i] = in.Content()
	}
	return []engine.Document{inputs[0].Clone(strings.Join(parts, m.Separator), nil)}, nil
}
