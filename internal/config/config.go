package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server  ServerConfig
	Gemini  GeminiConfig
	Storage StorageConfig
	Limits  LimitsConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host    string
	Port    int
	MCPPort int
	Token   string
}

type GeminiConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

type StorageConfig struct {
	DataDir string
}

type LimitsConfig struct {
	MaxOffsetDays int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Host:    "127.0.0.1",
			Port:    4600,
			MCPPort: 4601,
		},
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-2.0-flash",
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Limits: LimitsConfig{
			MaxOffsetDays: 365,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.scribe.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/scribe/config.json
// and secrets fall back to a JSON secrets file under $XDG_DATA_HOME/scribe.
//
// Environment variables (SCRIBE_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try platform keychain for secrets still empty after env.
	if cfg.Server.Token == "" {
		if token, err := kc.Get("scribe", "api_token"); err == nil && token != "" {
			cfg.Server.Token = token
		}
	}
	if cfg.Gemini.APIKey == "" {
		if key, err := kc.Get("scribe", "gemini_api_key"); err == nil && key != "" {
			cfg.Gemini.APIKey = key
		}
	}

	if cfg.Server.Token == "" {
		msg := "missing required config: API token. " +
			"Set it via environment variable SCRIBE_SERVER_TOKEN" +
			apiKeyHint()
		return Config{}, fmt.Errorf("%s", msg)
	}

	// Without a Gemini API key extraction runs in deterministic-only mode.

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
