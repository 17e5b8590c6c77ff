package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const requireSitePolicy = `# Sites must declare a title.
package press.custom.site

deny contains "metadata key 'site' is required" if {
	not "site" in input.metadata_keys
}
`

func TestLoadFromFile_Rego(t *testing.T) {
	loader := NewLoader(zerolog.Nop())

	policyFile := filepath.Join(t.TempDir(), "require-site.rego")
	if err := os.WriteFile(policyFile, []byte(requireSitePolicy), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	policy, err := loader.loadFromFile(policyFile)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}

	if policy.Name != "require-site" {
		t.Errorf("Expected name 'require-site', got '%s'", policy.Name)
	}
	if policy.Description != "Sites must declare a title." {
		t.Errorf("unexpected description: %q", policy.Description)
	}
	if !policy.Enabled || policy.Severity != SeverityWarning {
		t.Errorf("unexpected defaults: %+v", policy)
	}
}

func TestLoadFromPaths_Directory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.rego"), []byte(requireSitePolicy), 0644); err != nil {
		t.Fatal(err)
	}
	json := `{"rego": "package press.custom.b\n\ndeny contains \"b\" if { false }\n", "severity": "error", "enabled": true}`
	if err := os.WriteFile(filepath.Join(dir, "b.json"), []byte(json), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	policies, err := NewLoader(zerolog.Nop()).LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}
	if len(policies) != 2 {
		t.Fatalf("expected 2 policies, got %d", len(policies))
	}
	if policies[1].Name != "b" || policies[1].Severity != SeverityError {
		t.Errorf("unexpected JSON policy: %+v", policies[1])
	}
}

func TestLoadPolicies_Custom(t *testing.T) {
	policyFile := filepath.Join(t.TempDir(), "require-site.rego")
	if err := os.WriteFile(policyFile, []byte(requireSitePolicy), 0644); err != nil {
		t.Fatal(err)
	}

	eng := newTestEngine(t)
	if err := eng.LoadPolicies(context.Background(), []string{policyFile}); err != nil {
		t.Fatalf("LoadPolicies failed: %v", err)
	}

	result, err := eng.EvaluateInput(context.Background(), &Input{
		Pipelines: []PipelineInput{{Name: "Pages", Ordinal: 1, Modules: []string{"content"}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Violations) != 1 || result.Violations[0].Policy != "require-site" {
		t.Fatalf("expected require-site violation, got %+v", result.Violations)
	}
	if result.Violations[0].Message != "metadata key 'site' is required" {
		t.Errorf("unexpected message: %q", result.Violations[0].Message)
	}
	if !result.Allowed {
		t.Error("warning violations must not deny the run")
	}
}

func TestLoadPolicies_InvalidRego(t *testing.T) {
	policyFile := filepath.Join(t.TempDir(), "broken.rego")
	if err := os.WriteFile(policyFile, []byte("package broken\n\ndeny contains x if {"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := newTestEngine(t).LoadPolicies(context.Background(), []string{policyFile}); err == nil {
		t.Error("expected compile error")
	}
	if _, err := NewLoader(zerolog.Nop()).LoadFromPaths(context.Background(), []string{"/does/not/exist"}); err == nil {
		t.Error("expected error for missing path")
	}
}
