package taskfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses a YAML task file.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}
	return Load(data)
}

// Load parses task file YAML bytes.
func Load(data []byte) (*Document, error) {
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if len(d.Tasks) == 0 {
		return nil, fmt.Errorf("task file has no tasks")
	}
	return &d, nil
}
