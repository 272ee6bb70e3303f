// Package config loads server and client configuration from a textual
// key=value file, applying defaults for anything missing.
package config

import (
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/davidlazar/go-crypto/encoding/base32"
	"github.com/davidlazar/mapstructure"
	"github.com/duskrelay/chatserver/errors"
)

const (
	DefaultPort   = 8080
	DefaultHost   = "localhost"
	DefaultDBPath = "data/messagerie.db"
)

// Config holds both server-side and client-side settings; a given process
// only reads the fields relevant to it. This mirrors AppConfig in the
// original config_loader.h, which was likewise shared between the two
// binaries.
type Config struct {
	Port int `mapstructure:"port"`

	// Client-only.
	ServerHost string `mapstructure:"server_host"`
	CACertPath string `mapstructure:"ca_cert_path"`

	// Server-only.
	DBPath          string `mapstructure:"db_path"`
	ServerCertPath  string `mapstructure:"server_cert_path"`
	ServerKeyPath   string `mapstructure:"server_key_path"`
	DBEncryptionKey string `mapstructure:"db_encryption_key"`
}

func defaults() *Config {
	return &Config{
		Port:       DefaultPort,
		ServerHost: DefaultHost,
		DBPath:     DefaultDBPath,
	}
}

// Load reads the config file at path, decoding it over a set of defaults.
// A missing file is not an error: it behaves exactly like an empty file,
// and the returned Config carries only defaults, matching config_load's
// "return 0, defaults applied" behavior in the original implementation.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "config: read %s", path)
	}

	raw, err := parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "config: parse %s", path)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "config: new decoder")
	}
	if err := dec.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "config: decode %s", path)
	}

	if cfg.Port <= 0 {
		return nil, errors.New("config: invalid port %d", cfg.Port)
	}
	return cfg, nil
}

// Fingerprint returns a short human-readable summary of a config, suitable
// for a single startup log line without echoing the encryption key.
func (c *Config) Fingerprint() string {
	if c.DBPath != "" {
		return fmt.Sprintf("port=%d db=%s", c.Port, c.DBPath)
	}
	return fmt.Sprintf("port=%d host=%s", c.Port, c.ServerHost)
}

// KeyFingerprint returns a base32-encoded SHA-256 digest of the
// configured encryption key, so operators can confirm which key a
// running server loaded in logs without the key itself ever appearing,
// the same pattern AlpenhornConfig.Hash uses to print a config digest.
func (c *Config) KeyFingerprint() string {
	if c.DBEncryptionKey == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(c.DBEncryptionKey))
	return base32.EncodeToString(sum[:8])
}
