package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateAI(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackend() error {
	parsed, err := url.Parse(c.Backend.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute URL, got %q", c.Backend.BaseURL)
	}
	if c.Backend.TimeoutSeconds < 0 {
		return errors.New("backend.timeout_seconds must be non-negative")
	}
	return nil
}

// The provider key is checked lazily by the AI client so that commands which
// never touch the provider (login, podcasts, quiz) run without one.
func (c *Config) validateAI() error {
	switch c.AI.Mode {
	case AIModeDirect, AIModeProxy:
	default:
		return fmt.Errorf("ai.mode must be %q or %q, got %q", AIModeDirect, AIModeProxy, c.AI.Mode)
	}
	if c.AI.TimeoutSeconds < 0 {
		return errors.New("ai.timeout_seconds must be non-negative")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.StaleSeconds < 0 {
		return errors.New("cache.stale_seconds must be non-negative")
	}
	if c.Cache.QueryRetries < 0 {
		return errors.New("cache.query_retries must be non-negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
