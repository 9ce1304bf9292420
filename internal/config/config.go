package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directories used by the client.
type Paths struct {
	StateDir    string `toml:"state_dir"`
	DownloadDir string `toml:"download_dir"`
	LogDir      string `toml:"log_dir"`
}

// Backend contains connection settings for the podcast REST backend.
type Backend struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// AI contains settings for the text-completion and speech-synthesis provider.
//
// In "direct" mode the client talks to BaseURL with APIKey. In "proxy" mode the
// client talks to ProxyURL with ProxyToken and the provider key stays on the
// proxy host.
type AI struct {
	Mode           string `toml:"mode"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	ProxyURL       string `toml:"proxy_url"`
	ProxyToken     string `toml:"proxy_token"`
	ChatModel      string `toml:"chat_model"`
	SpeechModel    string `toml:"speech_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
}

// Proxy contains settings for the server-side AI proxy.
type Proxy struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Cache contains settings for the read-query cache.
type Cache struct {
	StaleSeconds int `toml:"stale_seconds"`
	QueryRetries int `toml:"query_retries"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for lingocast.
//
// Configuration sections by subsystem:
//   - Paths: local state, downloads and logs
//   - Backend: podcast/quiz REST API location and timeout
//   - AI: text-completion and speech provider (direct or proxied)
//   - Proxy: bind address and client token for `lingocast proxy serve`
//   - Cache: read-query staleness and retry policy
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Backend Backend `toml:"backend"`
	AI      AI      `toml:"ai"`
	Proxy   Proxy   `toml:"proxy"`
	Cache   Cache   `toml:"cache"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lingocast/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lingocast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local state and log directories.
// DownloadDir is created lazily by the download command.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.AudioDir(), c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StateDBPath returns the location of the local state database.
func (c *Config) StateDBPath() string {
	return filepath.Join(c.Paths.StateDir, "state.db")
}

// LockPath returns the lock file held while a workflow stage runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "lingocast.lock")
}

// SessionLockPath returns the lock file guarding session writes. It is
// separate from LockPath so a forced logout can run while a stage holds the
// workflow lock.
func (c *Config) SessionLockPath() string {
	return filepath.Join(c.Paths.StateDir, "session.lock")
}

// AudioDir returns the directory holding synthesized audio awaiting upload.
func (c *Config) AudioDir() string {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.StateDir, "audio")
}

// BackendTimeout returns the fixed timeout applied to every backend call.
func (c *Config) BackendTimeout() time.Duration {
	if c.Backend.TimeoutSeconds <= 0 {
		return time.Duration(defaultBackendTimeoutSeconds) * time.Second
	}
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// StaleTime returns how long a cached query result stays fresh.
func (c *Config) StaleTime() time.Duration {
	return time.Duration(c.Cache.StaleSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// AIConfig contains the resolved connection settings for the AI client.
type AIConfig struct {
	Mode           string
	BaseURL        string
	Credential     string
	ChatModel      string
	SpeechModel    string
	TimeoutSeconds int
	RetryAttempts  int
}

// GetAI resolves the endpoint and credential the AI client should use for the
// configured mode.
func (c *Config) GetAI() AIConfig {
	cfg := AIConfig{
		Mode:           c.AI.Mode,
		BaseURL:        strings.TrimSpace(c.AI.BaseURL),
		Credential:     strings.TrimSpace(c.AI.APIKey),
		ChatModel:      strings.TrimSpace(c.AI.ChatModel),
		SpeechModel:    strings.TrimSpace(c.AI.SpeechModel),
		TimeoutSeconds: c.AI.TimeoutSeconds,
		RetryAttempts:  c.AI.RetryAttempts,
	}
	if c.AI.Mode == AIModeProxy {
		cfg.BaseURL = strings.TrimSpace(c.AI.ProxyURL)
		cfg.Credential = strings.TrimSpace(c.AI.ProxyToken)
	}
	return cfg
}
