package vocab

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultOrdering(t *testing.T) {
	v := Default()
	if v.Version != "v1" {
		t.Fatalf("version = %q", v.Version)
	}
	if len(v.Brands) == 0 || len(v.Types) == 0 {
		t.Fatal("empty default dictionaries")
	}
	// First-hit matching depends on these staying put.
	if v.Types[0] != "water" {
		t.Fatalf("first type = %q", v.Types[0])
	}
	if v.Brands[0] != "whiskas" {
		t.Fatalf("first brand = %q", v.Brands[0])
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.json")
	blob := `{"version": "v2", "brands": [" ACME ", "BigCo"], "types": ["Widgets", "gadgets"]}`
	if err := os.WriteFile(path, []byte(blob), 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if v.Version != "v2" {
		t.Fatalf("version = %q", v.Version)
	}
	if v.Brands[0] != "acme" || v.Brands[1] != "bigco" {
		t.Fatalf("brands = %v", v.Brands)
	}
	if v.Types[0] != "widgets" || v.Types[1] != "gadgets" {
		t.Fatalf("types = %v", v.Types)
	}
}

func TestLoadFileRejectsEmptyTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.json")
	if err := os.WriteFile(path, []byte(`{"version": "v2", "brands": ["acme"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for vocabulary without types")
	}
}

func TestLoadDefaultsOnEmptyPath(t *testing.T) {
	v, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if v.Version != "v1" {
		t.Fatalf("version = %q", v.Version)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
