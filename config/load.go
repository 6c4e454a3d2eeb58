package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// LoadFromFile reads a manifest. Files ending in .yaml or .yml are YAML,
// anything else is JSON. Relative inputs and outputs are resolved against the
// manifest directory.
func LoadFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.UnmarshalStrict(raw, &cfg)
	default:
		err = json.Unmarshal(raw, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("could not parse config %s: %w", path, err)
	}

	cfg.resolvePaths(filepath.Dir(path))
	return &cfg, nil
}

func (c *Config) resolvePaths(baseDir string) {
	for i := range c.Packages {
		p := &c.Packages[i]
		p.Output = resolvePath(baseDir, p.Output)
		for j := range p.Inputs {
			p.Inputs[j] = resolvePath(baseDir, p.Inputs[j])
		}
	}
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
