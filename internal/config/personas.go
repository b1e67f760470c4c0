package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Persona is a name/role pair used to prime assistant prompts.
type Persona struct {
	Name string `yaml:"name" json:"name"`
	Role string `yaml:"role" json:"role"`
}

// DefaultPersona is used when the browser supplies none and no presets file
// overrides it.
var DefaultPersona = Persona{Name: "Assistant", Role: "Linux Expert"}

type personasFile struct {
	Personas []Persona `yaml:"personas"`
}

// LoadPersonas reads persona presets from the configured YAML file. A missing
// path returns only the default persona.
func LoadPersonas(path string) ([]Persona, error) {
	if path == "" {
		return []Persona{DefaultPersona}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personas file: %w", err)
	}

	var pf personasFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse personas file: %w", err)
	}

	out := make([]Persona, 0, len(pf.Personas)+1)
	out = append(out, DefaultPersona)
	for _, p := range pf.Personas {
		if p.Name == "" || p.Role == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
