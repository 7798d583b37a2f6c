package host

import "math/rand/v2"

// Config configures a Router and the sessions it creates.
type Config struct {
	// TrustedOrigin is the only origin envelopes are accepted from. Events
	// declaring any other origin are dropped without processing. An empty
	// value rejects everything; a warning is logged at router construction.
	TrustedOrigin string

	// HostOrigin is advertised to creatives as hostPeerName in the
	// registration attributes.
	HostOrigin string

	// Version is the safeframe implementation version string exposed in
	// registration metadata.
	// Default: "1-0-40".
	Version string

	// CookiesEnabled is the cookie flag exposed in registration metadata.
	// Default: true.
	CookiesEnabled bool

	// PluginVersion is the plugin-version string exposed in registration
	// metadata. Default: "".
	PluginVersion string

	// FluidReporting enables the creative's geometry reporting, allowing
	// fluid-height resizes.
	// Default: true.
	FluidReporting bool

	// ImpressionPing fires a delayed-impression URL after a successful
	// fluid resize. nil skips firing (the URL is still consumed).
	ImpressionPing func(url string)

	// Rand generates identity tokens (endpoint identity, uid). Tokens are
	// practically unique per page load; no stronger guarantee is assumed.
	// Default: math/rand/v2. Overrideable for tests.
	Rand func() uint32
}

// DefaultConfig returns a Config with sensible defaults. TrustedOrigin and
// HostOrigin have no usable defaults and must be set by the caller.
func DefaultConfig() *Config {
	return &Config{
		Version:        "1-0-40",
		CookiesEnabled: true,
		FluidReporting: true,
		Rand:           rand.Uint32,
	}
}

// fillDefaults completes unset fields in place.
func (c *Config) fillDefaults() {
	defaults := DefaultConfig()
	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Rand == nil {
		c.Rand = defaults.Rand
	}
}
