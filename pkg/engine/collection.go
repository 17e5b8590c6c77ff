package engine

import (
	"fmt"
	"slices"
	"strings"
)

// PipelineCollection is an ordered set of uniquely named pipelines.
// Enumeration order is insertion order.
type PipelineCollection struct {
	pipelines []*Pipeline
}

// NewPipelineCollection creates an empty collection.
func NewPipelineCollection() *PipelineCollection {
	return &PipelineCollection{}
}

// Add appends a new pipeline. An empty name is replaced with "Pipeline N"
// where N is the pipeline's 1-based position. Duplicate names are rejected.
func (c *PipelineCollection) Add(name string, modules ...Module) (*Pipeline, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Pipeline %d", len(c.pipelines)+1)
	}
	if c.index(name) >= 0 {
		return nil, NewInvalidArgumentError("name", fmt.Sprintf("pipeline %q already exists", name))
	}

	p := NewPipeline(name, modules...)
	c.pipelines = append(c.pipelines, p)
	return p, nil
}

// Set replaces the modules of the named pipeline, keeping its position, or
// appends a new pipeline when the name is unknown.
func (c *PipelineCollection) Set(name string, modules ...Module) (*Pipeline, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewInvalidArgumentError("name", "pipeline name is required")
	}

	p := NewPipeline(name, modules...)
	if i := c.index(name); i >= 0 {
		c.pipelines[i] = p
		return p, nil
	}
	c.pipelines = append(c.pipelines, p)
	return p, nil
}

// Get returns the named pipeline.
func (c *PipelineCollection) Get(name string) (*Pipeline, bool) {
	if i := c.index(name); i >= 0 {
		return c.pipelines[i], true
	}
	return nil, false
}

// Remove deletes the named pipeline and reports whether it existed.
func (c *PipelineCollection) Remove(name string) bool {
	i := c.index(name)
	if i < 0 {
		return false
	}
	c.pipelines = slices.Delete(c.pipelines, i, i+1)
	return true
}

// Len returns the number of pipelines.
func (c *PipelineCollection) Len() int {
	return len(c.pipelines)
}

// All returns the pipelines in insertion order.
func (c *PipelineCollection) All() []*Pipeline {
	return slices.Clone(c.pipelines)
}

// Names returns the pipeline names in insertion order.
func (c *PipelineCollection) Names() []string {
	names := make([]string, len(c.pipelines))
	for i, p := range c.pipelines {
		names[i] = p.Name()
	}
	return names
}

// Clear removes every pipeline.
func (c *PipelineCollection) Clear() {
	c.pipelines = nil
}

func (c *PipelineCollection) index(name string) int {
	return slices.IndexFunc(c.pipelines, func(p *Pipeline) bool {
		return p.Name() == name
	})
}
