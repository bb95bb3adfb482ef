// Package config loads the concierge server configuration from an optional
// YAML file and the environment. Environment variables override file values
// and command line flags override both.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the concierge binaries.
type Config struct {
	// Project and Location identify the cloud deployment hosting the agent.
	Project  string `yaml:"project"`
	Location string `yaml:"location"`
	// ResourceID is the default reasoning engine id offered to the UI.
	ResourceID string `yaml:"resource_id"`
	// EngineURL is the base URL of the hosted agent runtime API.
	EngineURL string `yaml:"engine_url"`
	// RedisURL is the connection URL of the Redis instance backing the
	// relay broker.
	RedisURL string `yaml:"redis_url"`
	// Topic is the relay topic agent responses are published on.
	Topic string `yaml:"topic"`
	// HTTPPort is the listen port of the chat backend.
	HTTPPort int `yaml:"http_port"`
	// StaticDir holds the bundled web UI. Empty disables static serving.
	StaticDir string `yaml:"static_dir"`
	// Debug enables debug logging and the debug HTTP mounts.
	Debug bool `yaml:"debug"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Location: "us-central1",
		RedisURL: "redis://localhost:6379",
		Topic:    "agent-engine-responses",
		HTTPPort: 8080,
	}
}

// Load reads the configuration file at path when it exists, then applies
// environment overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Project, "GOOGLE_CLOUD_PROJECT")
	setString(&c.Location, "GOOGLE_CLOUD_LOCATION")
	setString(&c.Project, "CONCIERGE_PROJECT")
	setString(&c.Location, "CONCIERGE_LOCATION")
	setString(&c.ResourceID, "CONCIERGE_RESOURCE_ID")
	setString(&c.EngineURL, "CONCIERGE_ENGINE_URL")
	setString(&c.RedisURL, "CONCIERGE_REDIS_URL")
	setString(&c.Topic, "CONCIERGE_TOPIC")
	setString(&c.StaticDir, "CONCIERGE_STATIC_DIR")
	if v, ok := os.LookupEnv("CONCIERGE_HTTP_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			c.HTTPPort = port
		}
	}
	if v, ok := os.LookupEnv("CONCIERGE_DEBUG"); ok {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Debug = debug
		}
	}
}

func (c *Config) validate() error {
	if c.Topic == "" {
		return fmt.Errorf("config: topic must not be empty")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("config: invalid http port %d", c.HTTPPort)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
