package llm

import (
	"context"
	"errors"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/JoseDiazCodes/LibertyLM/internal/platform/config"
	platformerrors "github.com/JoseDiazCodes/LibertyLM/internal/platform/errors"
)

type openaiProvider struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	topP        float32
}

func newOpenAIProvider(cfg config.LLMConfig) *openaiProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openaiProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.ModelName,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
		topP:        float32(cfg.TopP),
	}
}

func (p *openaiProvider) ModelName() string {
	return p.model
}

func (p *openaiProvider) request(messages []Message, stream bool) openai.ChatCompletionRequest {
	converted := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		converted[i] = openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content}
	}
	return openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    converted,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		TopP:        p.topP,
		Stream:      stream,
	}
}

func (p *openaiProvider) Generate(ctx context.Context, messages []Message) (string, *Usage, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.request(messages, false))
	if err != nil {
		return "", nil, platformerrors.Wrap(platformerrors.KindLLM, "openai.generate", "API call failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, platformerrors.New(platformerrors.KindLLM, "openai.generate", "no response choices")
	}

	usage := &Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return resp.Choices[0].Message.Content, usage, nil
}

func (p *openaiProvider) Stream(ctx context.Context, messages []Message) (<-chan Chunk, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, p.request(messages, true))
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindLLM, "openai.stream", "stream creation failed", err)
	}

	out := make(chan Chunk, 10)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				out <- Chunk{Done: true}
				return
			}
			if err != nil {
				out <- Chunk{
					Done: true,
					Err:  platformerrors.Wrap(platformerrors.KindLLM, "openai.stream", "stream receive failed", err),
				}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}

			choice := resp.Choices[0]
			chunk := Chunk{
				Content: choice.Delta.Content,
				Done:    choice.FinishReason != "",
			}
			if resp.Usage != nil {
				chunk.Usage = &Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				}
			}

			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
			if chunk.Done {
				return
			}
		}
	}()
	return out, nil
}

func (p *openaiProvider) ValidateConnection(ctx context.Context) error {
	req := p.request([]Message{{Role: RoleUser, Content: "ping"}}, false)
	req.MaxTokens = 5
	if _, err := p.client.CreateChatCompletion(ctx, req); err != nil {
		return platformerrors.Wrap(platformerrors.KindLLM, "openai.validate", "connection test failed", err)
	}
	return nil
}
