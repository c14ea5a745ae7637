package classifier

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"ledgerbot/internal/core"
)

const DefaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicClassifier uses the Messages API.
type AnthropicClassifier struct {
	client  anthropic.Client
	model   string
	prompt  string
	timeout time.Duration
}

type AnthropicConfig struct {
	APIKey string
	// BaseURL is optional and mostly useful in tests.
	BaseURL string
	Model   string
	Prompt  string
	Timeout time.Duration
}

func NewAnthropicClassifier(cfg AnthropicConfig) *AnthropicClassifier {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	c := &AnthropicClassifier{
		client:  anthropic.NewClient(opts...),
		model:   cfg.Model,
		prompt:  cfg.Prompt,
		timeout: cfg.Timeout,
	}
	if c.model == "" {
		c.model = DefaultAnthropicModel
	}
	if c.prompt == "" {
		c.prompt = defaultPrompt
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c
}

func (c *AnthropicClassifier) Classify(ctx context.Context, text string) (core.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(0),
		System:      []anthropic.TextBlockParam{{Text: c.prompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return core.Intent{}, wrap(err, "messages api")
	}

	var reply strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(reply.String()) == "" {
		return core.Intent{}, failf("empty reply")
	}
	return DecodeIntent(reply.String())
}
