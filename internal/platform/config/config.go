package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "15m" parse cleanly.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(n)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

type Config struct {
	Server   ServerConfig         `yaml:"server"`
	Log      LogConfig            `yaml:"log"`
	Web      WebConfig            `yaml:"web"`
	Storage  StorageConfig        `yaml:"storage"`
	Vault    VaultConfig          `yaml:"vault"`
	Guard    GuardConfig          `yaml:"guard"`
	Upload   UploadConfig         `yaml:"upload"`
	Selected SelectedConfig       `yaml:"selected_module"`
	LLM      map[string]LLMConfig `yaml:"LLM"`
}

type ServerConfig struct {
	IP        string   `yaml:"ip"`
	Port      int      `yaml:"port"`
	JWTSecret string   `yaml:"jwt_secret"`
	TokenTTL  Duration `yaml:"token_ttl"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	Enabled   bool   `yaml:"enabled"`
	StaticDir string `yaml:"static_dir"`
	Websocket string `yaml:"websocket"`
}

type StorageConfig struct {
	DSN string `yaml:"dsn"`
}

// VaultConfig controls the credential vault. Fingerprint overrides the
// computed device fingerprint, which is mainly useful for tests and for
// deployments that migrate between hosts.
type VaultConfig struct {
	Fingerprint string `yaml:"fingerprint,omitempty"`
}

// GuardConfig tunes the activity monitor and the login failure tracker.
type GuardConfig struct {
	WarningAfter  Duration           `yaml:"warning_after"`
	TimeoutAfter  Duration           `yaml:"timeout_after"`
	CheckInterval Duration           `yaml:"check_interval"`
	LockoutWindow Duration           `yaml:"lockout_window"`
	MaxAttempts   int                `yaml:"max_attempts"`
	Store         FailureStoreConfig `yaml:"store"`
}

type FailureStoreConfig struct {
	Driver string            `yaml:"driver"`
	Redis  RedisStoreConfig  `yaml:"redis,omitempty"`
	SQLite SQLiteStoreConfig `yaml:"sqlite,omitempty"`
}

type RedisStoreConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type SQLiteStoreConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

type UploadConfig struct {
	Dir               string   `yaml:"dir"`
	MaxFileSize       int64    `yaml:"max_file_size"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

type LLMConfig struct {
	Type        string                 `yaml:"type"`
	ModelName   string                 `yaml:"model_name"`
	BaseURL     string                 `yaml:"url"`
	APIKey      string                 `yaml:"api_key"`
	Temperature float64                `yaml:"temperature"`
	MaxTokens   int                    `yaml:"max_tokens"`
	TopP        float64                `yaml:"top_p"`
	Extra       map[string]interface{} `yaml:",inline"`
}

type SelectedConfig struct {
	LLM string `yaml:"LLM"`
}
