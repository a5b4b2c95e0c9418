package api

import "time"

// Defaults applied by New when a Config field is zero.
const (
	DefaultPort         = 8080
	DefaultWorkers      = 4
	DefaultMaxBodyBytes = 8 << 20
	DefaultMaxLines     = 10000
	DefaultMaxFrame     = 64 << 10
)

// Config holds server configuration.
type Config struct {
	Version           string
	Port              int
	Workers           int        // Batch worker goroutines
	MaxBodyBytes      int64      // Largest accepted /parse body
	MaxLines          int        // Largest accepted batch
	MaxFrameBytes     int64      // Largest accepted WebSocket frame
	RateLimitRequests int        // Requests per minute (0 = disabled)
	RateLimitBurst    int        // Burst size
	Auth              AuthConfig // Authentication configuration
	TLS               TLSConfig  // TLS configuration
	AllowedOrigins    []string   // CORS and WebSocket allowed origins (empty = allow all)
	ConfigPath        string     // Configuration file watched for hot reload ("" = none)
	ReloadDebounce    time.Duration
	ShutdownTimeout   time.Duration
}

// TLSConfig holds TLS/HTTPS configuration.
type TLSConfig struct {
	Enabled  bool   // Enable HTTPS
	CertFile string // Path to TLS certificate file
	KeyFile  string // Path to TLS private key file
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.MaxLines <= 0 {
		c.MaxLines = DefaultMaxLines
	}
	if c.MaxFrameBytes <= 0 {
		c.MaxFrameBytes = DefaultMaxFrame
	}
	if c.RateLimitRequests > 0 && c.RateLimitBurst == 0 {
		c.RateLimitBurst = 10
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}
