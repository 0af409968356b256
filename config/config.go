// Package config loads the daemon's top-level TOML configuration file.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the daemon's top-level configuration.
type Config struct {
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`

	Pipelines struct {
		// Path to the YAML file pipelines are loaded from and persisted
		// back to.
		Path string `toml:"path"`
	} `toml:"pipelines"`

	Notifications struct {
		// WebhookURL receives notification actions.
		WebhookURL string `toml:"webhook_url"`
	} `toml:"notifications"`

	Watcher struct {
		PollInterval time.Duration `toml:"poll_interval"`
	} `toml:"watcher"`
}

// Default returns the configuration applied when no file is present.
func Default() Config {
	var c Config
	c.Log.Level = "info"
	c.Pipelines.Path = "pipelines.yaml"
	c.Watcher.PollInterval = 3 * time.Second
	return c
}

// Load reads and parses the TOML file at path, filling in any field the
// file omits from Default.
func Load(path string) (Config, error) {
	c := Default()
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return c, nil
}
