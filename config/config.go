package config

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Config controls trace allocation, diagnostics and logging
type Config struct {
	HistoryCapacity int    `yaml:"historyCapacity"`           // Initial per-thread history capacity
	CheckInvariants bool   `yaml:"checkInvariants,omitempty"` // Assert label map consistency on every update
	LogLevel        string `yaml:"logLevel,omitempty"`        // zerolog level name
}

func DefaultConfig() *Config {
	return &Config{
		HistoryCapacity: 1024,
		CheckInvariants: false,
		LogLevel:        zerolog.LevelInfoValue,
	}
}

// Validate checks field ranges
func (c *Config) Validate() error {
	if c.HistoryCapacity < 0 {
		return fmt.Errorf("invalid history capacity: %d", c.HistoryCapacity)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level, info when unset
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// Load reads a yaml config from URL on top of the defaults
func Load(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download config %v", URL)
	}
	return Decode(data)
}

// Decode parses yaml content on top of the defaults
func Decode(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
