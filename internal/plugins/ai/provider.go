package ai

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
)

// Turn is one exchange in the conversation history.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Provider produces a completion for a prompt with prior history.
type Provider interface {
	Complete(ctx context.Context, history []Turn, prompt string) (string, error)
}

// ErrNoAPIKey - the provider's API key environment variable is unset.
var ErrNoAPIKey = errors.New("api key not set")

// newProvider builds a provider by name.
func newProvider(name, model string, maxTokens int) (Provider, error) {
	switch name {
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("openai: %w", ErrNoAPIKey)
		}
		return &openaiProvider{
			client: openai.NewClient(openaiopt.WithAPIKey(key)),
			model:  model,
		}, nil

	case "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("anthropic: %w", ErrNoAPIKey)
		}
		return &anthropicProvider{
			client:    anthropic.NewClient(anthropicopt.WithAPIKey(key)),
			model:     model,
			maxTokens: int64(maxTokens),
		}, nil

	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

type openaiProvider struct {
	client openai.Client
	model  string
}

func (p *openaiProvider) Complete(ctx context.Context, history []Turn, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	for _, t := range history {
		if t.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(t.Content))
		} else {
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

type anthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func (p *anthropicProvider) Complete(ctx context.Context, history []Turn, prompt string) (string, error) {
	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, t := range history {
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var out string
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out, nil
}
