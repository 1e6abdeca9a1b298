// Package llm abstracts the chat-completion provider behind a small
// interface so the assistant and diagram domains never talk to a vendor
// SDK directly.
package llm

import (
	"context"
	"fmt"

	"github.com/JoseDiazCodes/LibertyLM/internal/platform/config"
)

// Message roles follow the OpenAI chat convention.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token accounting for a completed request.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Chunk is one increment of a streamed response. Done marks the final
// chunk; Usage is set only when the provider reports it.
type Chunk struct {
	Content string
	Done    bool
	Err     error
	Usage   *Usage
}

// Provider generates chat completions.
type Provider interface {
	Generate(ctx context.Context, messages []Message) (string, *Usage, error)
	Stream(ctx context.Context, messages []Message) (<-chan Chunk, error)
	ValidateConnection(ctx context.Context) error
	ModelName() string
}

// New builds a provider from configuration. All supported backends speak
// the OpenAI-compatible chat API; Ollama and proxy gateways differ only
// in base URL.
func New(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Type {
	case "openai", "":
		return newOpenAIProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm type: %s", cfg.Type)
	}
}
