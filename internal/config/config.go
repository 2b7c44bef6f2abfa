package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.txtpay/config.toml.
type Config struct {
	DefaultSession string       `toml:"default_session"`
	Rates          RatesConfig  `toml:"rates"`
	Notify         NotifyConfig `toml:"notify"`
}

// RatesConfig controls the exchange-rate client used for payment requests.
type RatesConfig struct {
	Endpoint string `toml:"endpoint"`
	Currency string `toml:"currency"`
}

// NotifyConfig controls notification policy and renderer capabilities.
type NotifyConfig struct {
	// ClearUnreadOnForeground drops the accumulated unread state for a
	// conversation when it is opened in the foreground. When false the
	// unread queue is retained until explicit dismissal.
	ClearUnreadOnForeground bool `toml:"clear_unread_on_foreground"`

	SupportsInlineReply      bool `toml:"supports_inline_reply"`
	SupportsPerMessageAction bool `toml:"supports_per_message_actions"`
}

// Default returns the config used when no file exists.
func Default() *Config {
	return &Config{
		DefaultSession: "main",
		Rates: RatesConfig{
			Endpoint: "https://api.coinbase.com/v2/exchange-rates",
			Currency: "USD",
		},
		Notify: NotifyConfig{
			ClearUnreadOnForeground:  true,
			SupportsInlineReply:      true,
			SupportsPerMessageAction: true,
		},
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault reads config from path, falling back to defaults when the
// file is absent.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return Default()
	}
	return cfg
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
