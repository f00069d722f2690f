// Package config reads the backend configuration from the environment.
package config

import (
	"errors"
	"os"
)

// Config is the backend configuration.
//
// Either the two remote connection parameters or DBPath must be set: the
// backend talks to the hosted store by default and runs on an embedded
// database in dev mode.
type Config struct {
	RemoteURL    string // REMOTE_URL, base URL of the hosted backend
	RemoteAPIKey string // REMOTE_API_KEY, public API key of the hosted backend
	RefreshToken string // REMOTE_REFRESH_TOKEN, seeds the session at startup

	DBPath string // DB_PATH, path of the embedded sqlite database (dev mode)

	Currency string // CURRENCY, ISO code of the display currency
	Port     string // PORT, listen port
}

var ErrRemoteNotConfigured = errors.New("REMOTE_URL and REMOTE_API_KEY must both be set (or DB_PATH for dev mode)")

// FromEnv reads the configuration. The remote connection parameters are a
// fatal startup condition unless dev mode is selected.
func FromEnv() (Config, error) {
	c := Config{
		RemoteURL:    os.Getenv("REMOTE_URL"),
		RemoteAPIKey: os.Getenv("REMOTE_API_KEY"),
		RefreshToken: os.Getenv("REMOTE_REFRESH_TOKEN"),
		DBPath:       os.Getenv("DB_PATH"),
		Currency:     os.Getenv("CURRENCY"),
		Port:         os.Getenv("PORT"),
	}

	if c.DBPath == "" && (c.RemoteURL == "" || c.RemoteAPIKey == "") {
		return Config{}, ErrRemoteNotConfigured
	}

	if c.Port == "" {
		c.Port = "8080"
	}

	return c, nil
}

// Local reports whether the backend runs on the embedded database.
func (c Config) Local() bool {
	return c.DBPath != ""
}
