// Package config loads tracker configuration from TOML, YAML or JSON files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
	"github.com/at-internet/atinternet-apple-sdk-sub002/hit/builder"
	"github.com/at-internet/atinternet-apple-sdk-sub002/hit/tracker"
)

// Environment variables overriding file values.
const (
	EnvSite        = "ATI_SITE"
	EnvDomain      = "ATI_DOMAIN"
	EnvLog         = "ATI_LOG"
	EnvLogSSL      = "ATI_LOG_SSL"
	EnvMaxHitSize  = "ATI_MAX_HIT_SIZE"
	EnvSecure      = "ATI_SECURE"
	EnvOfflineMode = "ATI_OFFLINE_MODE"
)

var (
	// ErrInvalidConfig is returned by Validate. The cause is joined with it.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidEnvOverride is returned when an environment variable does not parse.
	ErrInvalidEnvOverride = errors.New("invalid environment override")

	// ErrUnknownFormat is returned when a file parses as none of TOML, JSON or YAML.
	ErrUnknownFormat = errors.New("unable to parse config file (tried TOML, JSON, YAML)")
)

// Config is the tracker configuration as stored in files.
type Config struct {
	Log            string   `toml:"log" yaml:"log" json:"log"`
	LogSSL         string   `toml:"log_ssl" yaml:"log_ssl" json:"log_ssl"`
	Domain         string   `toml:"domain" yaml:"domain" json:"domain"`
	PixelPath      string   `toml:"pixel_path" yaml:"pixel_path" json:"pixel_path"`
	Site           string   `toml:"site" yaml:"site" json:"site"`
	Secure         bool     `toml:"secure" yaml:"secure" json:"secure"`
	MaxHitSize     int      `toml:"max_hit_size" yaml:"max_hit_size" json:"max_hit_size"`
	ProtocolKeys   []string `toml:"protocol_keys" yaml:"protocol_keys" json:"protocol_keys"`
	SplittableKeys []string `toml:"splittable_keys" yaml:"splittable_keys" json:"splittable_keys"`
	OfflineMode    string   `toml:"offline_mode" yaml:"offline_mode" json:"offline_mode"`
}

// DefaultConfig returns the defaults every file is decoded on top of. Site is left empty.
func DefaultConfig() *Config {
	defaults := builder.DefaultConfiguration("")

	return &Config{
		Log:            defaults.Log,
		LogSSL:         defaults.LogSSL,
		Domain:         defaults.Domain,
		PixelPath:      defaults.PixelPath,
		Secure:         defaults.Secure,
		MaxHitSize:     defaults.MaxHitSize,
		ProtocolKeys:   slices.Clone(hit.DefaultProtocolKeys),
		SplittableKeys: slices.Clone(hit.DefaultSplittableKeys),
		OfflineMode:    tracker.OfflineRequired.String(),
	}
}

// ApplyEnvOverrides replaces file values with the ATI_* environment variables that are set.
func (c *Config) ApplyEnvOverrides() error {
	stringOverrides := map[string]*string{
		EnvSite:        &c.Site,
		EnvDomain:      &c.Domain,
		EnvLog:         &c.Log,
		EnvLogSSL:      &c.LogSSL,
		EnvOfflineMode: &c.OfflineMode,
	}

	for name, field := range stringOverrides {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	if v := os.Getenv(EnvMaxHitSize); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidEnvOverride, EnvMaxHitSize, err)
		}
		c.MaxHitSize = size
	}

	if v := os.Getenv(EnvSecure); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidEnvOverride, EnvSecure, err)
		}
		c.Secure = secure
	}

	return nil
}

// Validate checks the configuration can produce a Builder and names a known offline mode.
func (c *Config) Validate() error {
	if c.MaxHitSize < 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("max_hit_size must not be negative, got %d", c.MaxHitSize))
	}

	if _, err := c.Offline(); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}

	if _, err := builder.New(c.BuilderConfiguration()); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}

	return nil
}

// BuilderConfiguration converts the file representation into a builder.Configuration.
func (c *Config) BuilderConfiguration() builder.Configuration {
	return builder.Configuration{
		Log:            c.Log,
		LogSSL:         c.LogSSL,
		Domain:         c.Domain,
		PixelPath:      c.PixelPath,
		Site:           c.Site,
		Secure:         c.Secure,
		MaxHitSize:     c.MaxHitSize,
		ProtocolKeys:   slices.Clone(c.ProtocolKeys),
		SplittableKeys: slices.Clone(c.SplittableKeys),
	}
}

// Offline parses OfflineMode. Empty means tracker.OfflineRequired.
func (c *Config) Offline() (tracker.OfflineMode, error) {
	return tracker.ParseOfflineMode(c.OfflineMode)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cloned := *c
	cloned.ProtocolKeys = slices.Clone(c.ProtocolKeys)
	cloned.SplittableKeys = slices.Clone(c.SplittableKeys)

	return &cloned
}
