// Package config loads settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matt-steen/todostream/pkg/auth"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// These are the environment variables that override the config file.
const (
	EnvDatabase       = "TODOSTREAM_DB"
	EnvLog            = "TODOSTREAM_LOG"
	EnvLogLevel       = "TODOSTREAM_LOG_LEVEL"
	EnvGoogleClientID = "TODOSTREAM_GOOGLE_CLIENT_ID"
)

const (
	appDir            = ".todostream"
	defaultCollection = "todos"
	defaultUndoWindow = 4 * time.Second
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// OAuth configures id-token sign-in. Either PublicKeyFile or HMACSecret enables it.
type OAuth struct {
	ClientID      string   `yaml:"client_id"`
	Issuers       []string `yaml:"issuers"`
	PublicKeyFile string   `yaml:"public_key_file"`
	HMACSecret    string   `yaml:"hmac_secret"`
}

// Config holds everything needed to start the app.
type Config struct {
	DatabasePath string        `yaml:"database_path"`
	LogPath      string        `yaml:"log_path"`
	LogLevel     string        `yaml:"log_level"`
	Collection   string        `yaml:"collection"`
	UndoWindow   time.Duration `yaml:"undo_window"`
	OAuth        OAuth         `yaml:"oauth"`
}

// Dir returns the directory holding the default config, database and log files.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return appDir
	}

	return filepath.Join(home, appDir)
}

// DefaultPath is where Load looks when no config file is named.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the config used when nothing is configured.
func Default() *Config {
	dir := Dir()

	return &Config{
		DatabasePath: filepath.Join(dir, "todostream.sqlite"),
		LogPath:      filepath.Join(dir, "debug.log"),
		LogLevel:     "info",
		Collection:   defaultCollection,
		UndoWindow:   defaultUndoWindow,
		OAuth: OAuth{
			Issuers: append([]string(nil), auth.GoogleIssuers...),
		},
	}
}

// EnvOrDefault returns the environment variable value or fallback when it is empty.
func EnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

// Load reads the config file at path over the defaults, then applies the environment.
// An empty path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	config := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath()); err == nil {
			path = DefaultPath()
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyEnv() {
	c.DatabasePath = EnvOrDefault(EnvDatabase, c.DatabasePath)
	c.LogPath = EnvOrDefault(EnvLog, c.LogPath)
	c.LogLevel = EnvOrDefault(EnvLogLevel, c.LogLevel)
	c.OAuth.ClientID = EnvOrDefault(EnvGoogleClientID, c.OAuth.ClientID)
}

// Validate checks that the config can be used.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: database_path is required", ErrInvalidConfig)
	}

	if c.LogPath == "" {
		return fmt.Errorf("%w: log_path is required", ErrInvalidConfig)
	}

	if c.Collection == "" {
		return fmt.Errorf("%w: collection is required", ErrInvalidConfig)
	}

	if c.UndoWindow <= 0 {
		return fmt.Errorf("%w: undo_window must be positive, got %s", ErrInvalidConfig, c.UndoWindow)
	}

	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.OAuth.PublicKeyFile != "" && c.OAuth.HMACSecret != "" {
		return fmt.Errorf("%w: oauth takes public_key_file or hmac_secret, not both", ErrInvalidConfig)
	}

	if c.OAuth.enabled() && c.OAuth.ClientID == "" {
		return fmt.Errorf("%w: oauth.client_id is required for id-token sign-in", ErrInvalidConfig)
	}

	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("error parsing log_level: %w", err)
	}

	return level, nil
}

func (o OAuth) enabled() bool {
	return o.PublicKeyFile != "" || o.HMACSecret != ""
}

// Verifier builds the id-token verifier, or returns nil when OAuth sign-in is off.
func (c *Config) Verifier() (*auth.TokenVerifier, error) {
	switch {
	case c.OAuth.PublicKeyFile != "":
		pem, err := os.ReadFile(c.OAuth.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("error reading oauth public key: %w", err)
		}

		return auth.NewRSATokenVerifier(pem, c.OAuth.ClientID, c.OAuth.Issuers)
	case c.OAuth.HMACSecret != "":
		return auth.NewHMACTokenVerifier([]byte(c.OAuth.HMACSecret), c.OAuth.ClientID, c.OAuth.Issuers), nil
	}

	return nil, nil
}
