package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joeshaw/envdecode"
)

// Config is the daemon configuration. Values resolve in three layers:
// compiled defaults, then the TOML file, then environment overrides. Env
// tags carry no defaults so an unset variable never clobbers a file value.
type Config struct {
	// Listen is the TCP address to bind. When the bind fails and
	// RequireListen is false the daemon falls back to an ephemeral
	// localhost port and logs the address it chose.
	Listen        string `toml:"listen" env:"SESSIONMUXD_LISTEN"`
	RequireListen bool   `toml:"require_listen" env:"SESSIONMUXD_REQUIRE_LISTEN"`

	// Path is the URL path of the session endpoint.
	Path string `toml:"path" env:"SESSIONMUXD_PATH"`

	LogLevel string `toml:"log_level" env:"SESSIONMUXD_LOG_LEVEL"`

	// ShutdownGrace bounds each session's close during shutdown.
	ShutdownGrace duration `toml:"shutdown_grace" env:"SESSIONMUXD_SHUTDOWN_GRACE"`

	Auth AuthConfig `toml:"auth"`
}

// AuthConfig enables the bearer-token gate. An empty issuer leaves the
// endpoint open.
type AuthConfig struct {
	Issuer   string `toml:"issuer" env:"SESSIONMUXD_AUTH_ISSUER"`
	Audience string `toml:"audience" env:"SESSIONMUXD_AUTH_AUDIENCE"`
}

// duration round-trips "30s" style values from both TOML and the
// environment.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Decode implements envdecode.Decoder.
func (d *duration) Decode(repl string) error {
	return d.UnmarshalText([]byte(repl))
}

func defaultConfig() Config {
	return Config{
		Listen:        "127.0.0.1:8080",
		Path:          "/sessions",
		LogLevel:      "info",
		ShutdownGrace: duration{5 * time.Second},
	}
}

// loadConfig resolves the effective configuration. An empty path skips the
// file layer.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
	}

	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config env overrides failed: %w", err)
	}

	if cfg.Auth.Issuer == "" && cfg.Auth.Audience != "" {
		return Config{}, fmt.Errorf("auth.audience set without auth.issuer")
	}

	return cfg, nil
}

func (c Config) slogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
