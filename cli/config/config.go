package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Config is the physlink.yaml file. Every value is a default that the
// matching command line flag overrides.
type Config struct {
	SharedMemory SharedMemoryConfig `yaml:"shared_memory"`
	Verbose      bool               `yaml:"verbose"`
	Poll         PollConfig         `yaml:"poll"`
	Storage      StorageConfig      `yaml:"storage"`
	Policy       PolicyConfig       `yaml:"policy"`
	Adapter      AdapterConfig      `yaml:"adapter"`
}

// SharedMemoryConfig selects the block to attach to.
type SharedMemoryConfig struct {
	Key int `yaml:"key"`
	// Transport is "sysv" or "memory".
	Transport string `yaml:"transport"`
}

// PollConfig tunes the wait for server statuses.
type PollConfig struct {
	Interval Duration `yaml:"interval"`
	Timeout  Duration `yaml:"timeout"`
}

// StorageConfig locates the capture dataset.
type StorageConfig struct {
	Dataset string `yaml:"dataset"`
	// Backend is "fs" or "s3".
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// PolicyConfig selects how capture records are written.
type PolicyConfig struct {
	// Name is "strict" or "buffered".
	Name          string `yaml:"name"`
	BufferRecords int    `yaml:"buffer_records"`
	BufferBytes   int64  `yaml:"buffer_bytes"`
}

// AdapterConfig configures capture completion notifications.
type AdapterConfig struct {
	// Type is "webhook", "redis" or empty for none.
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	// Retries is a pointer so an explicit 0 differs from unset.
	Retries *int `yaml:"retries,omitempty"`
}

var (
	transports = []string{"", "sysv", "memory"}
	backends   = []string{"", "fs", "s3"}
	policies   = []string{"", "strict", "buffered"}
	adapters   = []string{"", "webhook", "redis"}
)

// Validate rejects unknown enumerated values and impossible limits.
func (c *Config) Validate() error {
	var errs []error
	check := func(field, value string, allowed []string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%s: unknown value %q", field, value))
		}
	}
	check("shared_memory.transport", c.SharedMemory.Transport, transports)
	check("storage.backend", c.Storage.Backend, backends)
	check("policy.name", c.Policy.Name, policies)
	check("adapter.type", c.Adapter.Type, adapters)

	if c.SharedMemory.Key < 0 {
		errs = append(errs, fmt.Errorf("shared_memory.key: must be >= 0, got %d", c.SharedMemory.Key))
	}
	if c.Policy.BufferRecords < 0 || c.Policy.BufferBytes < 0 {
		errs = append(errs, errors.New("policy: buffer limits must be >= 0"))
	}
	if c.Adapter.Type != "" && c.Adapter.URL == "" {
		errs = append(errs, fmt.Errorf("adapter.url: required for %s adapter", c.Adapter.Type))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, fmt.Errorf("adapter.retries: must be >= 0, got %d", *c.Adapter.Retries))
	}
	return errors.Join(errs...)
}

// Duration reads YAML strings such as "200us" or "5s".
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a time.ParseDuration string. Empty leaves d unset.
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
