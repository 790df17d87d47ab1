package tools

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCatalogFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.yaml")
	content := `tools:
  - name: social_identity
    description: social posting identity
    cost_usd: 2
    category: social
    automated: true
    enabled: true
  - name: billboard
    description: rent a billboard
    cost_usd: 50
    category: marketing
    automated: false
    enabled: true
  - name: retired
    description: disabled entry
    cost_usd: 1
    automated: true
    enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, ok := catalog.Get("social_identity"); !ok {
		t.Fatal("expected social_identity to be present")
	}
	if _, ok := catalog.Get("retired"); ok {
		t.Fatal("disabled tool must not resolve")
	}
	if len(catalog.All()) != 2 {
		t.Fatalf("expected 2 enabled tools, got %d", len(catalog.All()))
	}
}

func TestLoadCatalogValidation(t *testing.T) {
	dir := t.TempDir()

	unnamed := filepath.Join(dir, "unnamed.yaml")
	_ = os.WriteFile(unnamed, []byte("tools:\n  - description: nameless\n"), 0o600)
	if _, err := LoadCatalog(unnamed); err == nil {
		t.Fatal("expected missing name rejection")
	}

	negative := filepath.Join(dir, "negative.yaml")
	_ = os.WriteFile(negative, []byte("tools:\n  - name: bad\n    cost_usd: -1\n"), 0o600)
	if _, err := LoadCatalog(negative); err == nil {
		t.Fatal("expected negative cost rejection")
	}
}

func TestAffordableFiltersOwnedAndExpensive(t *testing.T) {
	catalog := DefaultCatalog()

	affordable := catalog.Affordable(3, map[string]bool{"web_search": true})
	for _, tool := range affordable {
		if tool.Name == "web_search" {
			t.Fatal("owned tool must be excluded")
		}
		if tool.CostUSD > 3 {
			t.Fatalf("tool %s is not affordable", tool.Name)
		}
	}
	for i := 1; i < len(affordable); i++ {
		if affordable[i-1].CostUSD > affordable[i].CostUSD {
			t.Fatal("affordable list not sorted by cost")
		}
	}

	if tools := catalog.Affordable(0.5, nil); len(tools) != 0 {
		t.Fatalf("expected nothing affordable at $0.5, got %+v", tools)
	}
}

func TestLoadCatalogEmptyPathUsesDefault(t *testing.T) {
	catalog, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if _, ok := catalog.Get(SocialToolName); !ok {
		t.Fatal("default catalog must contain the social tool")
	}
}
