package runtime

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadDefinition reads and validates one workflow definition from a YAML
// file. Invalid definitions are rejected entirely; nothing partially valid
// is returned.
func LoadDefinition(path string) (*WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading YAML file: %w", err)
	}

	var def WorkflowDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("error unmarshalling YAML: %w", err)
	}

	if def.ID == "" {
		return nil, fmt.Errorf("definition %s has no id", path)
	}

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid definition %s: %w", def.ID, err)
	}

	return &def, nil
}

// LoadDefinitions loads every *.yaml definition in a directory, keyed by
// definition id.
func LoadDefinitions(dir string) (map[string]*WorkflowDefinition, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("error reading directory: %w", err)
	}

	defs := make(map[string]*WorkflowDefinition, len(files))
	for _, file := range files {
		def, err := LoadDefinition(file)
		if err != nil {
			return nil, err
		}
		if _, dup := defs[def.ID]; dup {
			return nil, fmt.Errorf("duplicate definition id %q", def.ID)
		}
		defs[def.ID] = def
	}

	return defs, nil
}
