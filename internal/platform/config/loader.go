package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Candidate config file names, checked in order from the working directory.
var configPaths = []string{".config.yaml", "config.yaml"}

// Loader reads configuration from a YAML file with .env overrides.
type Loader struct {
	useDotEnv bool
	path      string
}

func NewLoader() *Loader {
	return &Loader{useDotEnv: true}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath pins the loader to an explicit config file (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load reads the first config file found, overlays environment variables,
// and validates the result. A missing file falls back to defaults.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, using system environment")
		}
	}

	cfg := DefaultConfig()
	path := l.path
	if path == "" {
		for _, candidate := range configPaths {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	l.applyEnv(cfg)

	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: path}, nil
}

// applyEnv overlays secrets from the environment so they can be kept out of
// the config file.
func (l *Loader) applyEnv(cfg *Config) {
	if secret := os.Getenv("LIBERTYLM_JWT_SECRET"); secret != "" {
		cfg.Server.JWTSecret = secret
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if llm, ok := cfg.LLM[cfg.Selected.LLM]; ok && llm.APIKey == "your_api_key" {
			llm.APIKey = key
			cfg.LLM[cfg.Selected.LLM] = llm
		}
	}
	if addr := os.Getenv("LIBERTYLM_REDIS_ADDR"); addr != "" {
		cfg.Guard.Store.Driver = "redis"
		cfg.Guard.Store.Redis.Addr = addr
	}
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Guard.WarningAfter >= cfg.Guard.TimeoutAfter {
		return fmt.Errorf("guard warning threshold %s must be below timeout %s",
			cfg.Guard.WarningAfter, cfg.Guard.TimeoutAfter)
	}
	if cfg.Guard.MaxAttempts <= 0 {
		return fmt.Errorf("guard max attempts must be positive: %d", cfg.Guard.MaxAttempts)
	}
	if _, ok := cfg.LLM[cfg.Selected.LLM]; !ok && cfg.Selected.LLM != "" {
		return fmt.Errorf("selected LLM %q has no configuration", cfg.Selected.LLM)
	}
	return nil
}
