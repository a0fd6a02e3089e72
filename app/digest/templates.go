package digest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yml
var defaultTemplates []byte

// Templates holds the phrasing pools a digest picks its introduction and
// conclusion from. The built-in set is embedded; an override file can be
// provided via configuration.
type Templates struct {
	Intros      []string `yaml:"intros"`
	Conclusions []string `yaml:"conclusions"`
}

// LoadTemplates parses the embedded template set, or the YAML file at path
// when path is non-empty.
func LoadTemplates(path string) (*Templates, error) {
	data := defaultTemplates
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read templates file %s: %w", path, err)
		}
		data = fileData
	}

	var templates Templates
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	if len(templates.Intros) == 0 || len(templates.Conclusions) == 0 {
		return nil, errors.New("templates must define at least one intro and one conclusion")
	}
	return &templates, nil
}
