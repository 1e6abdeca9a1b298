package config

import "time"

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:        "0.0.0.0",
			Port:      8080,
			JWTSecret: "change_me",
			TokenTTL:  Duration(24 * time.Hour),
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			Enabled:   true,
			StaticDir: "web/dist",
			Websocket: "ws://localhost:8080/ws/chat",
		},
		Storage: StorageConfig{
			DSN: "data/libertylm.db",
		},
		Guard: GuardConfig{
			WarningAfter:  Duration(25 * time.Minute),
			TimeoutAfter:  Duration(30 * time.Minute),
			CheckInterval: Duration(5 * time.Second),
			LockoutWindow: Duration(15 * time.Minute),
			MaxAttempts:   5,
			Store: FailureStoreConfig{
				Driver: "memory",
			},
		},
		Upload: UploadConfig{
			Dir:         "data/uploads",
			MaxFileSize: 1 << 20, // 1MB per source file
			AllowedExtensions: []string{
				".go", ".js", ".jsx", ".ts", ".tsx", ".py", ".rb", ".java",
				".c", ".h", ".cpp", ".hpp", ".cs", ".rs", ".php", ".swift",
				".kt", ".scala", ".sql", ".sh", ".yaml", ".yml", ".json",
				".toml", ".md", ".html", ".css", ".vue", ".svelte",
			},
		},
		Selected: SelectedConfig{
			LLM: "OpenAILLM",
		},
		LLM: map[string]LLMConfig{
			"OpenAILLM": {
				Type:        "openai",
				ModelName:   "gpt-4o-mini",
				BaseURL:     "https://api.openai.com/v1",
				APIKey:      "your_api_key",
				Temperature: 0.7,
				MaxTokens:   4096,
			},
			"ClaudeLLM": {
				Type:      "openai",
				ModelName: "claude-sonnet-4-20250514",
				BaseURL:   "https://api.anthropic.com/v1",
				APIKey:    "your_api_key",
				MaxTokens: 4096,
			},
			"OllamaLLM": {
				Type:      "openai",
				ModelName: "qwen3:14b",
				BaseURL:   "http://127.0.0.1:11434/v1",
			},
		},
	}
}
