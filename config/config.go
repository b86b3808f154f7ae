// Package config loads client settings for embedding applications and the
// m1kctl command line tool.
//
// Settings come from an optional YAML file merged with environment variables
// (prefix `M1K__`, delimiter `__`), so e.g. M1K__RETRY_DELAY overrides the
// retry_delay key.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jmball/go-m1k/m1k"
)

// Config holds the client settings of one m1k server connection.
type Config struct {
	Host          string        `koanf:"host"`
	Port          int           `koanf:"port"`
	Terminator    string        `koanf:"terminator"`
	Timeout       time.Duration `koanf:"timeout"`
	Retries       int           `koanf:"retries"`
	RetryDelay    time.Duration `koanf:"retry_delay"`
	LineFrequency float64       `koanf:"line_frequency"`

	// MetricsAddr enables the prometheus /metrics listener when non-empty,
	// e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`
}

const envPrefix = "M1K__"

// Load merges the YAML file at path (if present) with M1K__-prefixed
// environment variables and applies defaults.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	_ = k.Load(env.Provider(envPrefix, "__", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)

	return cfg, nil
}

func applyDefaults(c *Config) {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 2101
	}
	if c.Terminator == "" {
		c.Terminator = "\n"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Retries == 0 {
		c.Retries = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 5 * time.Second
	}
	if c.LineFrequency == 0 {
		c.LineFrequency = 50
	}
}

// ClientConfig builds an m1k.ClientConfig from the loaded settings, with any
// extra options appended.
func (c Config) ClientConfig(opts ...m1k.ClientOption) (*m1k.ClientConfig, error) {
	base := []m1k.ClientOption{
		m1k.WithTerminator(c.Terminator),
		m1k.WithTimeout(c.Timeout),
		m1k.WithRetries(c.Retries),
		m1k.WithRetryDelay(c.RetryDelay),
		m1k.WithLineFrequency(c.LineFrequency),
	}

	return m1k.NewClientConfig(c.Host, c.Port, append(base, opts...)...)
}
