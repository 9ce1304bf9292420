package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeAI()
	c.normalizeProxy()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackend() {
	if value, ok := os.LookupEnv("LINGOCAST_BACKEND_URL"); ok && strings.TrimSpace(value) != "" {
		c.Backend.BaseURL = value
	}
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBackendURL
	}
}

func (c *Config) normalizeAI() {
	c.AI.Mode = strings.ToLower(strings.TrimSpace(c.AI.Mode))
	if c.AI.Mode == "" {
		c.AI.Mode = AIModeDirect
	}
	c.AI.APIKey = strings.TrimSpace(c.AI.APIKey)
	if c.AI.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.AI.APIKey = strings.TrimSpace(value)
		}
	}
	c.AI.ProxyToken = strings.TrimSpace(c.AI.ProxyToken)
	if c.AI.ProxyToken == "" {
		if value, ok := os.LookupEnv("LINGOCAST_PROXY_TOKEN"); ok {
			c.AI.ProxyToken = strings.TrimSpace(value)
		}
	}
	c.AI.BaseURL = strings.TrimRight(strings.TrimSpace(c.AI.BaseURL), "/")
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = defaultAIBaseURL
	}
	c.AI.ProxyURL = strings.TrimRight(strings.TrimSpace(c.AI.ProxyURL), "/")
	if c.AI.ProxyURL == "" {
		c.AI.ProxyURL = defaultAIProxyURL
	}
	if strings.TrimSpace(c.AI.ChatModel) == "" {
		c.AI.ChatModel = defaultChatModel
	}
	if strings.TrimSpace(c.AI.SpeechModel) == "" {
		c.AI.SpeechModel = defaultSpeechModel
	}
	if c.AI.RetryAttempts <= 0 {
		c.AI.RetryAttempts = defaultAIRetryAttempts
	}
}

func (c *Config) normalizeProxy() {
	c.Proxy.Bind = strings.TrimSpace(c.Proxy.Bind)
	if c.Proxy.Bind == "" {
		c.Proxy.Bind = defaultProxyBind
	}
	c.Proxy.Token = strings.TrimSpace(c.Proxy.Token)
	if c.Proxy.Token == "" {
		if value, ok := os.LookupEnv("LINGOCAST_PROXY_TOKEN"); ok {
			c.Proxy.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
