package config

import (
	"github.com/knadh/koanf/v2"
	"go.yaml.in/yaml/v4"
)

// yamlParser is a koanf.Parser for YAML config files.
type yamlParser struct{}

// YAMLParser returns a koanf parser for YAML documents.
func YAMLParser() koanf.Parser {
	return &yamlParser{}
}

func (p *yamlParser) Unmarshal(b []byte) (map[string]any, error) {
	var out map[string]any
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func (p *yamlParser) Marshal(o map[string]any) ([]byte, error) {
	return yaml.Marshal(o)
}
