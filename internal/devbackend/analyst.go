package devbackend

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel = string(anthropic.ModelClaudeSonnet4_20250514)

	systemPrompt = "You are a world-class business analyst AI."
)

// Analyst produces free-text analysis for a prompt.
type Analyst interface {
	Analyze(ctx context.Context, prompt string, maxTokens int64) (string, error)
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

// AnthropicAnalyst calls the Messages API.
type AnthropicAnalyst struct {
	messages AnthropicMessager
	model    string
}

// NewAnthropicAnalystFromEnv reads ANTHROPIC_API_KEY. An empty model
// selects DefaultModel.
func NewAnthropicAnalystFromEnv(model string) (*AnthropicAnalyst, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicAnalyst{messages: newAnthropicClient(apiKey), model: model}, nil
}

func (a *AnthropicAnalyst) Analyze(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   maxTokens,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0.7),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}
