// Package config defines the configuration schema for slackrelay.
//
// JSON keys use camelCase. A path ending in .yaml or .yml is read as YAML
// with the same key names.
package config

import (
	"os"
	"path/filepath"

	"github.com/crystaldolphin/slackrelay/internal/config/channel"
	"github.com/crystaldolphin/slackrelay/internal/config/gateway"
)

// PluginConfig tunes the call handler.
type PluginConfig struct {
	// StrictPost disables the GET-on-non-empty-path fallthrough into posting.
	StrictPost bool `json:"strictPost" yaml:"strictPost"`
	// SendConcurrency caps parallel chat.postMessage calls per post request.
	SendConcurrency int `json:"sendConcurrency" yaml:"sendConcurrency"`
}

func defaultPluginConfig() PluginConfig {
	return PluginConfig{SendConcurrency: 8}
}

// MetricsConfig toggles the Prometheus endpoint on the gateway.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{Enabled: true, Path: "/metrics"}
}

// ScheduledPost is a recurring announcement posted to every channel.
type ScheduledPost struct {
	Name string `json:"name" yaml:"name"`
	// Spec is a 5-field cron expression, optionally prefixed with TZ=Zone.
	Spec string `json:"spec" yaml:"spec"`
	Text string `json:"text" yaml:"text"`
}

// ScheduleConfig groups scheduled announcements.
type ScheduleConfig struct {
	Jobs []ScheduledPost `json:"jobs" yaml:"jobs"`
}

// Config is the root configuration object, loaded from ~/.slackrelay/config.json.
type Config struct {
	Slack    channel.SlackConfig   `json:"slack" yaml:"slack"`
	Plugin   PluginConfig          `json:"plugin" yaml:"plugin"`
	Gateway  gateway.GatewayConfig `json:"gateway" yaml:"gateway"`
	Metrics  MetricsConfig         `json:"metrics" yaml:"metrics"`
	Schedule ScheduleConfig        `json:"schedule" yaml:"schedule"`
	// DataDir holds the settings database. Empty means DataDir().
	DataDir string `json:"dataDir,omitempty" yaml:"dataDir,omitempty"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Slack:    channel.DefaultSlackConfig(),
		Plugin:   defaultPluginConfig(),
		Gateway:  gateway.DefaultGatewayConfig(),
		Metrics:  defaultMetricsConfig(),
		Schedule: ScheduleConfig{Jobs: []ScheduledPost{}},
	}
}

// SettingsPath returns the expanded path to the bbolt settings database.
func (c *Config) SettingsPath() string {
	dir := c.DataDir
	if dir == "" {
		dir = DataDir()
	}
	if len(dir) >= 2 && dir[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			dir = filepath.Join(home, dir[2:])
		}
	}
	return filepath.Join(dir, "settings.db")
}
