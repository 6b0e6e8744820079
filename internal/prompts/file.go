package prompts

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile builds a catalog from the defaults overridden by a YAML map of kind -> template.
// Kinds missing from the file keep their built-in template.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	return Parse(raw)
}

// Parse applies YAML overrides to the default catalog.
func Parse(raw []byte) (*Catalog, error) {
	var overrides map[string]string
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("decode prompts: %w", err)
	}

	catalog := Default()
	for tag, tmpl := range overrides {
		kind, err := ParseKind(tag)
		if err != nil {
			return nil, err
		}
		tmpl = strings.TrimSpace(tmpl)
		if tmpl == "" {
			return nil, fmt.Errorf("prompt for %s is empty", kind)
		}
		catalog.templates[kind] = tmpl
	}
	return catalog, nil
}
