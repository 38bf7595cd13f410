// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	HTTP     httpConfig
	BaseURL  string
	Database databaseConfig
	OAuth    oauthConfig
	SMTP     smtpConfig
	Debug    bool
	AppEnv   string
	LogLevel string
	// ProtectedPrefixes are the path prefixes behind the request gate.
	ProtectedPrefixes []string
	// CleanupInterval is the expired-row sweep period; 0 disables it.
	CleanupInterval time.Duration
}

type httpConfig struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
}

type databaseConfig struct {
	// URL is a SQLite path. Empty leaves the datastore unconfigured.
	URL string
}

type oauthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	Secret             string
}

type smtpConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func FromEnv() Config {
	return Config{
		HTTP: httpConfig{
			ListenAddr:      envString("LISTEN_ADDR", ":3000"),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		BaseURL: strings.TrimRight(envString("BASE_URL", "http://localhost:3000"), "/"),
		Database: databaseConfig{
			URL: envString("DATABASE_URL", ""),
		},
		OAuth: oauthConfig{
			GoogleClientID:     envString("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: envString("GOOGLE_CLIENT_SECRET", ""),
			Secret:             envString("AUTH_SECRET", ""),
		},
		SMTP: smtpConfig{
			Host:     envString("SMTP_HOST", ""),
			Port:     envInt("SMTP_PORT", 587),
			Username: envString("SMTP_USERNAME", ""),
			Password: envString("SMTP_PASSWORD", ""),
			From:     envString("EMAIL_FROM", ""),
		},
		Debug:             envBool("DEBUG", false),
		AppEnv:            envString("APP_ENV", "development"),
		LogLevel:          envString("LOG_LEVEL", "info"),
		ProtectedPrefixes: envList("PROTECTED_PREFIXES", []string{"/dashboards", "/protected", "/profile"}),
		CleanupInterval:   envDuration("CLEANUP_INTERVAL", time.Hour),
	}
}

// Production reports whether links are mailed and cookies marked Secure.
func (c Config) Production() bool {
	return c.AppEnv == "production"
}

// OAuthEnabled reports whether Google sign-in credentials are present.
func (c Config) OAuthEnabled() bool {
	return c.OAuth.GoogleClientID != "" && c.OAuth.GoogleClientSecret != ""
}

// DatabaseConfigured reports whether a datastore was named.
func (c Config) DatabaseConfigured() bool {
	return c.Database.URL != ""
}

// Level is the effective log level; Debug forces debug.
func (c Config) Level() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}

func (c Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BASE_URL %q must be an absolute URL", c.BaseURL))
	}
	if c.OAuthEnabled() && c.OAuth.Secret == "" {
		errs = append(errs, errors.New("AUTH_SECRET is required when Google sign-in is configured"))
	}
	if c.Production() && c.SMTP.Host == "" {
		errs = append(errs, errors.New("SMTP_HOST is required in production"))
	}
	if c.Production() && c.SMTP.From == "" {
		errs = append(errs, errors.New("EMAIL_FROM is required in production"))
	}
	return errors.Join(errs...)
}
