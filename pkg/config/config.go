// Package config loads gemchat settings from a TOML file, the environment and
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	BackendGemini = "gemini"
	BackendOllama = "ollama"
)

const (
	dirName  = ".gemchat"
	fileName = "config.toml"

	defaultListenAddr   = ":8080"
	defaultErrorDisplay = 1500 * time.Millisecond
)

// ErrMissingAPIKey is returned by Validate when the Gemini backend has no key.
var ErrMissingAPIKey = errors.New("no Gemini API key configured (set api_key, GEMINI_API_KEY or --api-key)")

// Config holds every gemchat setting.
type Config struct {
	Backend string `toml:"backend"`

	// APIKey is the static Gemini API key.
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`

	// BaseURL overrides the Gemini endpoint.
	BaseURL string `toml:"base_url"`

	// UpstreamURL is the Ollama-compatible server used by the ollama backend.
	UpstreamURL string `toml:"upstream_url"`

	ListenAddr string `toml:"listen"`

	// ErrorDisplay is how long a failure stays on screen. An explicit zero
	// keeps it until dismissed.
	ErrorDisplay Duration `toml:"error_display"`

	// BusyMessage replaces overload failures when set.
	BusyMessage string `toml:"busy_message"`

	Debug   bool   `toml:"debug"`
	LogFile string `toml:"log_file"`

	// errorDisplaySet records an explicit error_display in the file, so that
	// "0s" disables auto-clear instead of falling back to the default.
	errorDisplaySet bool
}

// Duration is a time.Duration that decodes from strings like "1.5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultPath returns ~/.gemchat/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve home directory: %w", err)
	}
	return filepath.Join(home, dirName, fileName), nil
}

// DefaultLogPath returns ~/.gemchat/gemchat.log.
func DefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve home directory: %w", err)
	}
	return filepath.Join(home, dirName, "gemchat.log"), nil
}

// Load reads the config file at path and applies environment overrides. An
// empty path means the default location, which may be absent; an explicit
// path must exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	explicit := path != ""
	if !explicit {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			cfg.ApplyEnv(os.LookupEnv)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	cfg.errorDisplaySet = md.IsDefined("error_display")

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv
// outside of tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}

	set(&c.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	set(&c.Model, "GEMCHAT_MODEL")
	set(&c.Backend, "GEMCHAT_BACKEND")
	set(&c.UpstreamURL, "OLLAMA_HOST")
}

// SetDefaults fills every unset field.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendGemini
	}
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}
	if c.ErrorDisplay.Duration == 0 && !c.errorDisplaySet {
		c.ErrorDisplay.Duration = defaultErrorDisplay
	}
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGemini:
		if c.APIKey == "" {
			return ErrMissingAPIKey
		}
	case BackendOllama:
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendGemini, BackendOllama)
	}

	if c.ErrorDisplay.Duration < 0 {
		return fmt.Errorf("error_display must not be negative, got %s", c.ErrorDisplay.Duration)
	}
	return nil
}
