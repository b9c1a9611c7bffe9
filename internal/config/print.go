package config

import (
	"io"

	"github.com/pelletier/go-toml/v2"
)

// WriteTOML writes c in config file form.
func (c *Config) WriteTOML(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(c)
}
