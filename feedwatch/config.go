package feedwatch

import "github.com/feedsift/feedsift/feedwatch/internal/config"

// Config aliases so callers configure the watcher without importing the
// internal package.
type (
	Config         = config.Config
	BrowserConfig  = config.BrowserConfig
	FeedConfig     = config.FeedConfig
	ClassifyConfig = config.ClassifyConfig
	DebounceConfig = config.DebounceConfig
	SinkConfig     = config.SinkConfig
)

// LoadConfigFile reads a YAML config file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a config with all defaults applied and no feed
// URL set.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}
