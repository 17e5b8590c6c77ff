package engine

import (
	"fmt"
	"maps"

	"github.com/google/uuid"
)

// Metadata is a key/value bag shared between the engine, pipelines and documents.
type Metadata map[string]interface{}

// Clone returns a shallow copy of m. A nil receiver yields an empty map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	maps.Copy(out, m)
	return out
}

// Merge returns a copy of m with the entries of other layered on top.
func (m Metadata) Merge(other Metadata) Metadata {
	out := m.Clone()
	maps.Copy(out, other)
	return out
}

// String returns the value at key formatted as a string, or "" when absent.
func (m Metadata) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Document is an immutable unit of content produced by a pipeline.
type Document interface {
	// ID is a unique identifier assigned at creation.
	ID() string

	// Source identifies where the content came from, typically a file path.
	Source() string

	// Content returns the document body.
	Content() string

	// Metadata returns a copy of the document metadata.
	Metadata() Metadata

	// Get returns a single metadata value.
	Get(key string) (interface{}, bool)

	// Clone returns a new document with the same source, the given content,
	// and the document metadata merged with meta.
	Clone(content string, meta Metadata) Document
}

type document struct {
	id       string
	source   string
	content  string
	metadata Metadata
}

// NewDocument creates a document. The metadata map is copied.
func NewDocument(source, content string, meta Metadata) Document {
	return &document{
		id:       uuid.NewString(),
		source:   source,
		content:  content,
		metadata: meta.Clone(),
	}
}

func (d *document) ID() string { return d.id }
func (d *document) Source() string { return d.source }
func (d *document) Content() string { return d.content }
func (d *document) Metadata() Metadata { return d.metadata.Clone() }

func (d *document) Get(key string) (interface{}, bool) {
	v, ok := d.metadata[key]
	return v, ok
}

func (d *document) Clone(content string, meta Metadata) Document {
	return &document{
		id:       uuid.NewString(),
		source:   d.source,
		content:  content,
		metadata: d.metadata.Merge(meta),
	}
}
