// Package config is the proxy's viper-backed configuration, grounded on
// cmd/gate/gate.go's viper.Unmarshal/config.Validate pattern and
// spec.md §6's external-interface list (listen/connect addresses, fake
// handshake host/port, compression threshold, credential store location).
package config

import (
	"fmt"
	"net"
)

// Config is the top-level settings struct, unmarshaled from YAML (or env,
// via viper's automatic env binding) at startup.
type Config struct {
	Debug bool `mapstructure:"debug" yaml:"debug"`

	// Listen is the address the proxy accepts client connections on.
	Listen string `mapstructure:"listen" yaml:"listen"`

	// ConnectHost/ConnectPort name the real backend the proxy connects to.
	ConnectHost string `mapstructure:"connectHost" yaml:"connectHost"`
	ConnectPort uint16 `mapstructure:"connectPort" yaml:"connectPort"`

	// FakeHost/FakePort are synthesised into the handshake forwarded
	// upstream, per spec.md §4.D ("forwards a synthesised handshake using
	// (fake_host, fake_port)").
	FakeHost string `mapstructure:"fakeHost" yaml:"fakeHost"`
	FakePort uint16 `mapstructure:"fakePort" yaml:"fakePort"`

	CompressionThreshold int `mapstructure:"compressionThreshold" yaml:"compressionThreshold"`

	// Broadcast is the spectator peer listener configuration, per
	// spec.md §4.G.
	Broadcast BroadcastConfig `mapstructure:"broadcast" yaml:"broadcast"`

	// CredentialDir is where pkg/auth/store and pkg/auth/cache keep their
	// sealed files.
	CredentialDir string `mapstructure:"credentialDir" yaml:"credentialDir"`

	// Username/Email select which cached (or freshly logged-in) account
	// this proxy instance authenticates as.
	Username string `mapstructure:"username" yaml:"username"`
	Email    string `mapstructure:"email" yaml:"email"`
}

// BroadcastConfig configures the spectator peer listener.
type BroadcastConfig struct {
	Enabled               bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen                string `mapstructure:"listen" yaml:"listen"`
	CompressionThreshold  int    `mapstructure:"compressionThreshold" yaml:"compressionThreshold"`
}

// Default returns the configuration cmd/proxhy falls back to when no config
// file is present, matching spec.md §9's defaults discussion.
func Default() Config {
	return Config{
		Listen:               "127.0.0.1:41223",
		FakeHost:             "localhost",
		FakePort:             25565,
		CompressionThreshold: 256,
		Broadcast: BroadcastConfig{
			Enabled:              true,
			Listen:               ":25566",
			CompressionThreshold: 256,
		},
		CredentialDir: "proxhy-go",
	}
}

// Validate checks invariants gate's config.Validate checks for its own
// fields: a parseable listen address, a non-empty connect target, and a
// sane compression threshold.
func Validate(c *Config) error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("config: invalid listen address %q: %w", c.Listen, err)
	}
	if c.ConnectHost == "" {
		return fmt.Errorf("config: connectHost must be set")
	}
	if c.ConnectPort == 0 {
		return fmt.Errorf("config: connectPort must be set")
	}
	if c.CompressionThreshold < -1 {
		return fmt.Errorf("config: compressionThreshold must be -1 (disabled) or >= 0")
	}
	if c.Broadcast.Enabled {
		if _, _, err := net.SplitHostPort(c.Broadcast.Listen); err != nil {
			return fmt.Errorf("config: invalid broadcast listen address %q: %w", c.Broadcast.Listen, err)
		}
	}
	return nil
}
