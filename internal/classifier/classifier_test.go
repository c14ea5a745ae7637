package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ledgerbot/internal/core"
)

func TestOpenAIClassifier(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"intent\":\"expense\",\"amount\":50,\"wallet\":\"cash\",\"category\":\"food\"}"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClassifier(OpenAIConfig{BaseURL: srv.URL + "/", APIKey: "test-key", Prompt: "sys"})
	intent, err := c.Classify(context.Background(), "spent 50 on food")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if intent.Kind != core.IntentExpense || intent.Amount == nil || intent.Amount.Cents != 5000 {
		t.Fatalf("unexpected intent %+v", intent)
	}

	if got.Model != DefaultOpenAIModel {
		t.Errorf("model = %s", got.Model)
	}
	if got.ResponseFormat["type"] != "json_object" || got.MaxTokens != 256 || got.Temperature != 0 {
		t.Errorf("unexpected request options %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Content != "sys" || got.Messages[1].Content != "spent 50 on food" {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

func TestOpenAIClassifierFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		delay   time.Duration
		timeout time.Duration
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
		{name: "empty content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"  "}}]}`},
		{name: "garbage body", status: http.StatusOK, body: `not json`},
		{name: "bad intent json", status: http.StatusOK, body: `{"choices":[{"message":{"content":"{\"intent\":"}}]}`},
		{name: "timeout", status: http.StatusOK, body: `{}`, delay: 200 * time.Millisecond, timeout: 20 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.delay > 0 {
					select {
					case <-time.After(tt.delay):
					case <-r.Context().Done():
						return
					}
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewOpenAIClassifier(OpenAIConfig{BaseURL: srv.URL, Timeout: tt.timeout})
			_, err := c.Classify(context.Background(), "hello")
			if !errors.Is(err, ErrClassification) {
				t.Fatalf("expected ErrClassification, got %v", err)
			}
		})
	}
}

func TestAnthropicClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["temperature"] != float64(0) {
			t.Errorf("temperature = %v", req["temperature"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id":"msg_1","type":"message","role":"assistant","model":"test",
			"content":[{"type":"text","text":"{\"intent\":\"income\",\"amount\":200}"}],
			"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}
		}`))
	}))
	defer srv.Close()

	c := NewAnthropicClassifier(AnthropicConfig{APIKey: "k", BaseURL: srv.URL, Model: "test"})
	intent, err := c.Classify(context.Background(), "salary 200")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if intent.Kind != core.IntentIncome || intent.Amount.Cents != 20000 || intent.Wallet != "" {
		t.Fatalf("unexpected intent %+v", intent)
	}
}

func TestAnthropicClassifierServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"down"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClassifier(AnthropicConfig{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.Classify(context.Background(), "x"); !errors.Is(err, ErrClassification) {
		t.Fatalf("expected ErrClassification, got %v", err)
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Config{}); err != nil {
		t.Fatalf("default provider: %v", err)
	}
	if c, err := New(Config{Provider: ProviderAnthropic}); err != nil {
		t.Fatalf("anthropic: %v", err)
	} else if _, ok := c.(*AnthropicClassifier); !ok {
		t.Fatalf("got %T", c)
	}
	if _, err := New(Config{Provider: "bard"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoadPrompt(t *testing.T) {
	p, err := LoadPrompt("")
	if err != nil || p != DefaultPrompt() || p == "" {
		t.Fatalf("default prompt not returned: %v", err)
	}

	path := filepath.Join(t.TempDir(), "prompt.txt")
	if err := os.WriteFile(path, []byte("  custom prompt\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err = LoadPrompt(path)
	if err != nil || p != "custom prompt" {
		t.Fatalf("LoadPrompt = %q, %v", p, err)
	}

	empty := filepath.Join(t.TempDir(), "empty.txt")
	os.WriteFile(empty, nil, 0o644)
	if _, err := LoadPrompt(empty); err == nil {
		t.Fatal("expected error for empty prompt file")
	}
}
