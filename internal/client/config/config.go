package config

import "time"

// Config holds runtime settings for the docsync client.
//
// Units: OnlineCheckInterval is a time.Duration (e.g., 3*time.Second).
type Config struct {
	// ServerURL is the base URL of the sync server, e.g. "http://127.0.0.1:8080".
	ServerURL string
	// DatabaseFile is the path of the local sqlite database.
	DatabaseFile string
	// OnlineCheckInterval is how often the client probes server reachability.
	OnlineCheckInterval time.Duration
	// SyncEnabled toggles remote synchronization. When false the engine's
	// gate denies every operation and documents stay local-only.
	SyncEnabled bool

	// S3-compatible object storage for attachment content.
	S3Region       string
	S3BaseEndpoint string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DatabaseFile = "docsync.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncEnabled = true
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000"
	c.S3Bucket = "docsync"
	c.S3AccessKey = "minioadmin"
	c.S3SecretKey = "minioadmin"
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
