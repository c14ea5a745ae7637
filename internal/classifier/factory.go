package classifier

import (
	"fmt"
	"time"
)

// Config selects and configures a provider.
type Config struct {
	Provider        string
	OpenAIBaseURL   string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	Prompt          string
	Timeout         time.Duration
}

// New builds the configured classifier.
func New(cfg Config) (Classifier, error) {
	switch cfg.Provider {
	case "", ProviderOpenAI:
		return NewOpenAIClassifier(OpenAIConfig{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			Prompt:  cfg.Prompt,
			Timeout: cfg.Timeout,
		}), nil
	case ProviderAnthropic:
		return NewAnthropicClassifier(AnthropicConfig{
			APIKey:  cfg.AnthropicAPIKey,
			Model:   cfg.AnthropicModel,
			Prompt:  cfg.Prompt,
			Timeout: cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", cfg.Provider)
	}
}
