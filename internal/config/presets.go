package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset is a named bundle of project render settings that can be applied
// when creating a project (e.g. "youtube-short", "cinema-wide").
type Preset struct {
	Name           string  `yaml:"name"`
	Format         string  `yaml:"format"`
	Resolution     string  `yaml:"resolution"`
	AspectRatio    string  `yaml:"aspect_ratio"`
	TargetDuration float64 `yaml:"target_duration"`
}

// Presets is the parsed presets file.
type Presets struct {
	Presets []Preset `yaml:"presets"`
}

// Lookup returns the preset with the given name.
func (p *Presets) Lookup(name string) (Preset, bool) {
	for _, preset := range p.Presets {
		if preset.Name == name {
			return preset, true
		}
	}
	return Preset{}, false
}

// LoadPresets parses a YAML presets file. A missing path returns an empty
// preset set, not an error: presets are optional.
func LoadPresets(path string) (*Presets, error) {
	if path == "" {
		return &Presets{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Presets{}, nil
		}
		return nil, fmt.Errorf("reading presets file: %w", err)
	}

	var presets Presets
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("parsing presets file %s: %w", path, err)
	}

	seen := make(map[string]bool, len(presets.Presets))
	for _, preset := range presets.Presets {
		if preset.Name == "" {
			return nil, fmt.Errorf("presets file %s: preset with empty name", path)
		}
		if seen[preset.Name] {
			return nil, fmt.Errorf("presets file %s: duplicate preset %q", path, preset.Name)
		}
		seen[preset.Name] = true
	}
	return &presets, nil
}
