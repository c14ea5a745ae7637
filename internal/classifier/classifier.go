// Package classifier turns free chat text into a core.Intent by asking an
// external language model for a single JSON object.
package classifier

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"ledgerbot/internal/core"
)

// ErrClassification wraps every failure to obtain a usable intent.
var ErrClassification = errors.New("classification failed")

// DefaultTimeout bounds one classifier round trip.
const DefaultTimeout = 10 * time.Second

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

//go:embed prompt.txt
var defaultPrompt string

// Classifier maps one chat message to an intent.
type Classifier interface {
	Classify(ctx context.Context, text string) (core.Intent, error)
}

// DefaultPrompt returns the built-in system prompt.
func DefaultPrompt() string {
	return defaultPrompt
}

// LoadPrompt reads the system prompt from path, or returns the built-in
// prompt when path is empty.
func LoadPrompt(path string) (string, error) {
	if path == "" {
		return defaultPrompt, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read classifier prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(b))
	if prompt == "" {
		return "", fmt.Errorf("classifier prompt %s is empty", path)
	}
	return prompt, nil
}

func failf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrClassification, fmt.Sprintf(format, args...))
}

func wrap(err error, what string) error {
	return fmt.Errorf("%w: %s: %v", ErrClassification, what, err)
}
