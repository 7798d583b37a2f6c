package bridge

import (
	"net/http"
	"time"

	"github.com/safehost-dev/safehost/pkg/host"
)

// Config holds configuration for the bridge server.
type Config struct {
	// Address is the address to listen on (e.g., ":8080").
	// Default: ":8080".
	Address string

	// WebSocket buffer sizes

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin validates the Origin header on upgrade requests. When nil,
	// the WebSocket library's default applies: requests whose Origin host
	// differs from the request host are rejected; requests without an Origin
	// header (non-browser clients) are allowed.
	CheckOrigin func(r *http.Request) bool

	// Timeouts

	// ReadTimeout is the maximum time to wait for a message from the shim.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between heartbeat pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// ResizeTimeout bounds one resize round trip to the shim. A resize whose
	// result never arrives fails with ErrResizeTimeout.
	// Default: 10 seconds.
	ResizeTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// Limits

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Default: 128KB (an envelope plus shim framing).
	MaxMessageSize int64

	// Host configures the per-connection router and its sessions.
	Host *host.Config
}

// DefaultConfig returns a Config with sensible defaults. Host must still be
// populated with the page's trusted and host origins.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":8080",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		ResizeTimeout:     10 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		MaxMessageSize:    128 * 1024,
		Host:              host.DefaultConfig(),
	}
}

// fillDefaults completes unset fields in place.
func (c *Config) fillDefaults() {
	defaults := DefaultConfig()
	if c.Address == "" {
		c.Address = defaults.Address
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = defaults.ReadBufferSize
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = defaults.WriteBufferSize
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if c.ResizeTimeout == 0 {
		c.ResizeTimeout = defaults.ResizeTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}
	if c.Host == nil {
		c.Host = defaults.Host
	}
}
