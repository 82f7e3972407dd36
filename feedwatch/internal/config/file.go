// Package config handles feedwatch configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level feedwatch configuration.
type Config struct {
	Browser  BrowserConfig  `yaml:"browser"`
	Feed     FeedConfig     `yaml:"feed"`
	Classify ClassifyConfig `yaml:"classify"`
	Debounce DebounceConfig `yaml:"debounce"`
	Sinks    []SinkConfig   `yaml:"sinks"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote          string        `yaml:"remote"`
	MemoryLimit     int64         `yaml:"memory_limit"`
	RecycleInterval time.Duration `yaml:"recycle_interval"`
	BlockResources  []string      `yaml:"block_resources"`
	Headful         bool          `yaml:"headful"`
	XvfbDisplay     string        `yaml:"xvfb_display"`
}

// FeedConfig defines the feed page to observe.
type FeedConfig struct {
	URL                string        `yaml:"url"`
	ContainerSelectors []string      `yaml:"container_selectors"`
	ItemSelectors      []string      `yaml:"item_selectors"`
	SweepDelay         time.Duration `yaml:"sweep_delay"`
}

// ClassifyConfig tunes the decision engine.
type ClassifyConfig struct {
	// Override flags any item whose author name contains this token,
	// bypassing the keyword and image rules. Empty disables it.
	Override string `yaml:"override"`

	// ProfilePattern extracts the author's profile identifier from a
	// profile link href. Must contain one capture group.
	ProfilePattern string `yaml:"profile_pattern"`

	// AutoUnfollow dispatches an unfollow for every flagged item.
	AutoUnfollow bool `yaml:"auto_unfollow"`
}

// DebounceConfig controls change batching.
type DebounceConfig struct {
	Window    time.Duration `yaml:"window"`
	MaxBuffer int           `yaml:"max_buffer"`
}

// SinkConfig defines an output backend for verdict reports.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook | callback
	URL  string `yaml:"url"`  // for webhook
}

// Default selector chains for the observed feed. The variants cover
// markup generations the host has shipped at different times; order is
// priority, first match wins.
var (
	DefaultContainerSelectors = []string{
		".core-rail",
		".feed-container",
		"div[role=main]",
		"#voyager-feed",
		".scaffold-finite-scroll__content",
	}

	DefaultItemSelectors = []string{
		".feed-shared-update-v2",
		".occludable-update",
		".feed-shared-card",
		"div[data-urn]",
		"div[data-id]",
		"div[data-test-id=feed-shared-update]",
	}
)

// DefaultProfilePattern extracts the member identifier from a profile URL.
const DefaultProfilePattern = `linkedin.com/in/([^/]+)`

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values with production defaults.
func (c *Config) ApplyDefaults() {
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if len(c.Feed.ContainerSelectors) == 0 {
		c.Feed.ContainerSelectors = DefaultContainerSelectors
	}
	if len(c.Feed.ItemSelectors) == 0 {
		c.Feed.ItemSelectors = DefaultItemSelectors
	}
	if c.Feed.SweepDelay <= 0 {
		c.Feed.SweepDelay = 2 * time.Second
	}
	if c.Classify.ProfilePattern == "" {
		c.Classify.ProfilePattern = DefaultProfilePattern
	}
	if c.Debounce.Window <= 0 {
		c.Debounce.Window = 250 * time.Millisecond
	}
	if c.Debounce.MaxBuffer <= 0 {
		c.Debounce.MaxBuffer = 500
	}
}
