package registry

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/prudhvinik1/deltasync/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed entities.yaml
var defaultDefinitions []byte

type definitionFile struct {
	Entities []models.EntityDefinition `yaml:"entities"`
}

// DefaultDefinitions returns the built-in entity definitions.
func DefaultDefinitions() ([]models.EntityDefinition, error) {
	return ParseDefinitions(defaultDefinitions)
}

// LoadDefinitions reads definitions from path, or the built-in set when
// path is empty.
func LoadDefinitions(path string) ([]models.EntityDefinition, error) {
	if path == "" {
		return DefaultDefinitions()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read entity definitions: %w", err)
	}
	return ParseDefinitions(data)
}

func ParseDefinitions(data []byte) ([]models.EntityDefinition, error) {
	var file definitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse entity definitions: %w", err)
	}
	if len(file.Entities) == 0 {
		return nil, fmt.Errorf("no entity definitions found")
	}
	for _, def := range file.Entities {
		if err := def.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Entities, nil
}
