package config

import "time"

// Config holds runtime settings for the Spotter client.
//
// Fields:
//   - APIBaseURL: base URL of the backend REST API.
//   - SocialSocketURL: event-stream endpoint for feed and messaging events.
//   - CommunitySocketURL: event-stream endpoint for gym community events.
//   - RequestTimeout: per-request deadline for REST calls.
//   - DBPath: location of the local SQLite database file.
type Config struct {
	APIBaseURL         string
	SocialSocketURL    string
	CommunitySocketURL string
	RequestTimeout     time.Duration
	DBPath             string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "https://api.spotter.fit"
	c.SocialSocketURL = "wss://api.spotter.fit/social"
	c.CommunitySocketURL = "wss://api.spotter.fit/community"
	c.RequestTimeout = 12 * time.Second
	c.DBPath = "spotter.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
