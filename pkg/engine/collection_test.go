package engine

import (
	"context"
	"strings"
	"testing"
)

func TestPipelineCollection_Add(t *testing.T) {
	c := NewPipelineCollection()

	if _, err := c.Add("Content"); err != nil {
		t.Fatal(err)
	}
	p, err := c.Add("")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "Pipeline 2" {
		t.Errorf("generated name = %q, want Pipeline 2", p.Name())
	}

	if _, err := c.Add("Content"); !IsInvalidArgument(err) {
		t.Errorf("duplicate name should be rejected, got %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestPipelineCollection_OrderAndMutation(t *testing.T) {
	c := NewPipelineCollection()
	for _, name := range []string{"A", "B", "C"} {
		if _, err := c.Add(name); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := c.Set("B", &emitModule{prefix: "b", count: 1}); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(c.Names(), ","); got != "A,B,C" {
		t.Errorf("Set should keep position, got %s", got)
	}
	if p, ok := c.Get("B"); !ok || p.Count() != 1 {
		t.Errorf("Get(B) = %v, %v", p, ok)
	}

	if _, err := c.Set("D"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Set("  "); !IsInvalidArgument(err) {
		t.Errorf("blank Set name should be rejected, got %v", err)
	}

	if !c.Remove("A") || c.Remove("A") {
		t.Error("Remove should report existence")
	}
	if got := strings.Join(c.Names(), ","); got != "B,C,D" {
		t.Errorf("names = %s, want B,C,D", got)
	}

	all := c.All()
	all[0] = nil
	if p, _ := c.Get("B"); p == nil {
		t.Error("All must return a copy")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Clear left %d pipelines", c.Len())
	}
}

func TestPipeline_ChainsModules(t *testing.T) {
	p := NewPipeline("Chain",
		&emitModule{prefix: "first", count: 3},
		moduleFunc(func(inputs []Document) []Document {
			out := make([]Document, 0, len(inputs))
			for _, d := range inputs {
				out = append(out, d.Clone(strings.ToUpper(d.Content()), Metadata{"seen": len(inputs)}))
			}
			return out
		}),
	)

	ec := NewExecutionContext("Chain", Metadata{"site": "press"}, "/srv/site", nil)
	docs, err := p.Execute(context.Background(), ec)
	if err != nil {
		t.Fatal(err)
	}

	if got := strings.Join(contents(docs), ","); got != "FIRST-0,FIRST-1,FIRST-2" {
		t.Errorf("documents = %s", got)
	}
	for _, d := range docs {
		if v, _ := d.Get("seen"); v != 3 {
			t.Errorf("second module saw %v inputs, want 3", v)
		}
		if v, _ := d.Get("site"); v != "press" {
			t.Errorf("seed metadata lost: %v", v)
		}
	}
}

func TestPipeline_EmptyOutputsSeed(t *testing.T) {
	ec := NewExecutionContext("Empty", Metadata{"k": "v"}, "/srv", nil)
	docs, err := NewPipeline("Empty").Execute(context.Background(), ec)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected the seed document, got %d", len(docs))
	}
	if v, _ := docs[0].Get("k"); v != "v" {
		t.Errorf("seed metadata = %v", docs[0].Metadata())
	}
}

func TestExecutionContext_CopiesMetadata(t *testing.T) {
	meta := Metadata{"k": "v"}
	ec := NewExecutionContext("P", meta, "/root", nil)
	meta["k"] = "changed"

	if ec.Metadata()["k"] != "v" {
		t.Error("execution context should hold a snapshot")
	}
	ec.Metadata()["k"] = "mutated"
	if ec.Metadata()["k"] != "v" {
		t.Error("Metadata should return a copy")
	}
	if ec.Trace() == nil || ec.RootFolder() != "/root" || ec.Pipeline != "P" {
		t.Error("unexpected execution context fields")
	}
}

func TestMetadata(t *testing.T) {
	var nilMeta Metadata
	if c := nilMeta.Clone(); c == nil || len(c) != 0 {
		t.Error("Clone of nil should be an empty map")
	}

	base := Metadata{"a": 1, "b": "two"}
	merged := base.Merge(Metadata{"b": "override", "c": true})
	if merged.String("a") != "1" || merged.String("b") != "override" || merged.String("c") != "true" {
		t.Errorf("merged = %v", merged)
	}
	if base.String("b") != "two" {
		t.Error("Merge must not modify the receiver")
	}
	if base.String("missing") != "" {
		t.Error("missing key should format as empty")
	}
}

type moduleFunc func([]Document) []Document

func (moduleFunc) Name() string { return "func" }

func (f moduleFunc) Execute(_ context.Context, inputs []Document, _ *ExecutionContext) ([]Document, error) {
	return f(inputs), nil
}
