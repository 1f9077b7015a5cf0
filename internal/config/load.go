package config

// Load reads a YAML or JSON5 configuration file (resolving $include
// directives and environment-variable expansion via LoadRaw), decodes it
// strictly into a Config, fills in every documented default, and
// validates the required-with-no-default fields.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
