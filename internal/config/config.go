package config

import (
	"fmt"
	"strings"
)

// Config is the fully-resolved, compile-time-visible set of tunables
// enumerated in spec §6. Every knob a component needs is a struct field
// here, not a per-call parameter — per the "configuration over flags"
// design note.
type Config struct {
	Classifier ClassifierConfig `yaml:"classifier"`
	Memory     MemoryConfig     `yaml:"memory"`
	Repository RepositoryConfig `yaml:"repository"`
	Model      ModelConfig      `yaml:"model"`
	Event      EventConfig      `yaml:"event"`
	Processor  ProcessorConfig  `yaml:"processor"`
	Blob       BlobConfig       `yaml:"blob"`
	Secret     SecretConfig     `yaml:"secret"`
	Log        LogConfig        `yaml:"log"`
}

type ClassifierConfig struct {
	Mode          string  `yaml:"mode"`
	MinConfidence float64 `yaml:"min_confidence"`
}

type MemoryConfig struct {
	Enrichment string `yaml:"enrichment"`
}

type RepositoryConfig struct {
	DefaultVisibility string `yaml:"default_visibility"`
	// Enabled is a pointer so ApplyDefaults can tell "absent from the
	// config file" (nil, defaults to true) apart from an explicit
	// "enabled: false".
	Enabled *bool `yaml:"enabled"`
}

// IsEnabled reports whether the Repository Processor should run at all.
func (r RepositoryConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

type ModelConfig struct {
	TimeoutMS int `yaml:"timeout_ms"`
}

type EventConfig struct {
	DeadlineMS int `yaml:"deadline_ms"`
}

type ProcessorConfig struct {
	DeadlineMS int `yaml:"deadline_ms"`
}

type BlobConfig struct {
	AppendRetries int `yaml:"append_retries"`
}

type SecretConfig struct {
	TokenName    string `yaml:"token_name"`
	ModelKeyName string `yaml:"model_key_name"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ApplyDefaults fills in every tunable from spec §6's configuration table
// that was left unset. It does not override values the caller already
// set, so a partially-specified config file only needs to list what it
// wants to change.
//
// repository.default_visibility defaults to "private" here rather than
// the "public" the table lists, per the design decision resolving open
// question 2 (see DESIGN.md): a system that creates repositories from
// LLM-generated content with no human review before creation should not
// default to exposing that content publicly.
func (c *Config) ApplyDefaults() {
	if c.Classifier.Mode == "" {
		c.Classifier.Mode = "content"
	}
	if c.Classifier.MinConfidence == 0 {
		c.Classifier.MinConfidence = 0.5
	}
	if c.Memory.Enrichment == "" {
		c.Memory.Enrichment = "on"
	}
	if c.Repository.DefaultVisibility == "" {
		c.Repository.DefaultVisibility = "private"
	}
	if c.Repository.Enabled == nil {
		enabled := true
		c.Repository.Enabled = &enabled
	}
	if c.Model.TimeoutMS == 0 {
		c.Model.TimeoutMS = 6000
	}
	if c.Event.DeadlineMS == 0 {
		c.Event.DeadlineMS = 120000
	}
	if c.Processor.DeadlineMS == 0 {
		c.Processor.DeadlineMS = 30000
	}
	if c.Blob.AppendRetries == 0 {
		c.Blob.AppendRetries = 8
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks the required-with-no-default tunables and the closed
// enums, returning every problem found joined together so an operator
// fixing a config file sees all of them at once rather than one at a
// time.
func (c *Config) Validate() error {
	var problems []string

	switch c.Classifier.Mode {
	case "path_hint", "content":
	default:
		problems = append(problems, fmt.Sprintf("classifier.mode must be path_hint or content, got %q", c.Classifier.Mode))
	}
	if c.Classifier.MinConfidence < 0 || c.Classifier.MinConfidence > 1 {
		problems = append(problems, fmt.Sprintf("classifier.min_confidence must be in [0,1], got %v", c.Classifier.MinConfidence))
	}
	switch c.Memory.Enrichment {
	case "on", "off":
	default:
		problems = append(problems, fmt.Sprintf("memory.enrichment must be on or off, got %q", c.Memory.Enrichment))
	}
	switch c.Repository.DefaultVisibility {
	case "public", "private":
	default:
		problems = append(problems, fmt.Sprintf("repository.default_visibility must be public or private, got %q", c.Repository.DefaultVisibility))
	}
	if c.Secret.TokenName == "" {
		problems = append(problems, "secret.token_name is required")
	}
	if c.Secret.ModelKeyName == "" {
		problems = append(problems, "secret.model_key_name is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
