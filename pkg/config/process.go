package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ProcessConfig reads the configuration from a stream and returns the parsed configuration.
// Unknown fields are rejected, so typos do not silently fall back to defaults.
func ProcessConfig(r io.Reader) (*ConfigSpec, error) {
	var spec ConfigSpec
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil && err != io.EOF {
		return nil, fmt.Errorf("fatal error reading config file: %w", err)
	}
	for k := range spec.Global {
		if !isKey(k) {
			return nil, fmt.Errorf("unknown key in global labels: %s", k)
		}
	}
	return &spec, nil
}

func isKey(s string) bool {
	for _, k := range Keys {
		if string(k) == s {
			return true
		}
	}
	return false
}
