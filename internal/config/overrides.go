package config

import (
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

// LoadWithOverrides loads configuration like Load (or LoadFromFile when
// configFile is set) and applies overrides last. Overrides use the nested
// shape of the config file:
//
//	overrides := map[string]any{
//	  "output": map[string]any{"format": "json"},
//	  "emit-error": true,
//	}
func LoadWithOverrides(targetPath, configFile string, overrides map[string]any) (*Config, error) {
	if configFile == "" {
		configFile = Discover(targetPath)
	}
	return loadWithConfigPath(configFile, overrides)
}

func loadOverrides(k *koanf.Koanf, overrides map[string]any) error {
	if len(overrides) == 0 {
		return nil
	}
	return k.Load(confmap.Provider(overrides, ""), nil)
}
