package config

import (
	"fmt"
	"time"
)

// Config represents a faultline.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	Source  string        `yaml:"source"`
	Release string        `yaml:"release"`
	Options OptionsConfig `yaml:"options"`
	Parsers []string      `yaml:"parsers"`
	Storage StorageConfig `yaml:"storage"`
	Policy  PolicyConfig  `yaml:"policy"`
	Adapter AdapterConfig `yaml:"adapter"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Log     LogConfig     `yaml:"log"`
}

// OptionsConfig holds event builder options.
type OptionsConfig struct {
	Depth            int  `yaml:"depth"`
	Breadth          int  `yaml:"breadth"`
	MaxSize          int  `yaml:"max_size"`
	AttachStacktrace bool `yaml:"attach_stacktrace"`
}

// StorageConfig holds storage defaults from the config file.
type StorageConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// PolicyConfig holds policy defaults from the config file.
type PolicyConfig struct {
	Name         string `yaml:"name"`
	BufferEvents int    `yaml:"buffer_events"`
	BufferBytes  int64  `yaml:"buffer_bytes"`
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type     string            `yaml:"type"`
	URL      string            `yaml:"url"`
	Channel  string            `yaml:"channel,omitempty"`
	Stream   string            `yaml:"stream,omitempty"`
	Subject  string            `yaml:"subject,omitempty"`
	PerLevel bool              `yaml:"per_level,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Secret   string            `yaml:"secret,omitempty"`
	Timeout  Duration          `yaml:"timeout,omitempty"`
	Retries  *int              `yaml:"retries,omitempty"`
}

// IngestConfig holds ingestion session defaults.
type IngestConfig struct {
	FailOnDecodeError bool     `yaml:"fail_on_decode_error"`
	FlushTimeout      Duration `yaml:"flush_timeout"`
	PublishTimeout    Duration `yaml:"publish_timeout"`
}

// LogConfig holds logging defaults.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks enumerated values. Empty values are allowed.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "", "fs", "s3":
	default:
		return fmt.Errorf("storage.backend: unknown backend %q (must be fs or s3)", c.Storage.Backend)
	}
	switch c.Policy.Name {
	case "", "strict", "buffered", "noop":
	default:
		return fmt.Errorf("policy.name: unknown policy %q (must be strict, buffered, or noop)", c.Policy.Name)
	}
	switch c.Adapter.Type {
	case "", "webhook", "redis", "nats":
	default:
		return fmt.Errorf("adapter.type: unknown adapter %q (must be webhook, redis, or nats)", c.Adapter.Type)
	}
	if c.Adapter.Type != "" && c.Adapter.URL == "" {
		return fmt.Errorf("adapter.url is required for adapter type %q", c.Adapter.Type)
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		return fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries)
	}
	if c.Options.Depth < 0 || c.Options.Breadth < 0 || c.Options.MaxSize < 0 {
		return fmt.Errorf("options: depth, breadth and max_size must be >= 0")
	}
	return nil
}
