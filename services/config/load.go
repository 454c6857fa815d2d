package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EmbeddedConfigLookup allows overriding how built-in configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Load reads, parses, validates and normalizes a YAML file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Embedded returns the built-in config for device.
func Embedded(device string) (*Config, error) {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return nil, errors.New("no embedded config for device: " + device)
	}
	return Parse(raw)
}

// Parse decodes YAML strictly: unknown keys are errors.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	Normalize(&cfg)
	return &cfg, nil
}
