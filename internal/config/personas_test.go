package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPersonasEmptyPath(t *testing.T) {
	personas, err := LoadPersonas("")
	if err != nil {
		t.Fatalf("load with empty path: %v", err)
	}
	if len(personas) != 1 || personas[0] != DefaultPersona {
		t.Errorf("personas = %+v, want only the default", personas)
	}
}

func TestLoadPersonasFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	content := `personas:
  - name: Ops
    role: Site Reliability Engineer
  - name: ""
    role: dropped because unnamed
  - name: Coder
    role: Go Developer
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	personas, err := LoadPersonas(path)
	if err != nil {
		t.Fatalf("load personas: %v", err)
	}

	// Default first, then valid entries in file order; incomplete ones dropped.
	want := []Persona{
		DefaultPersona,
		{Name: "Ops", Role: "Site Reliability Engineer"},
		{Name: "Coder", Role: "Go Developer"},
	}
	if len(personas) != len(want) {
		t.Fatalf("got %d personas, want %d: %+v", len(personas), len(want), personas)
	}
	for i, w := range want {
		if personas[i] != w {
			t.Errorf("personas[%d] = %+v, want %+v", i, personas[i], w)
		}
	}
}

func TestLoadPersonasMissingFile(t *testing.T) {
	if _, err := LoadPersonas("/nonexistent/personas.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadPersonasMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("personas: [unclosed"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadPersonas(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
