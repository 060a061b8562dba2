package anyllm

import (
	"slices"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/harjas-romana/calling-agent/pkg/provider/llm"
)

func TestBuildParams(t *testing.T) {
	p := &Provider{model: "claude-3-5-haiku-latest"}
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "You are an AI assistant for Harjas Travels.",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "Do you offer travel insurance?"},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	})

	if len(params.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].Role != anyllmlib.RoleSystem {
		t.Errorf("first role = %q, want system", params.Messages[0].Role)
	}
	if params.Messages[1].ContentString() != "Do you offer travel insurance?" {
		t.Errorf("user content = %q", params.Messages[1].ContentString())
	}
	if params.Temperature == nil || *params.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 500 {
		t.Errorf("max tokens = %v, want 500", params.MaxTokens)
	}
}

func TestBuildParams_ZeroValuesOmitted(t *testing.T) {
	p := &Provider{model: "llama3"}
	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if params.Temperature != nil {
		t.Error("temperature should be nil when zero")
	}
	if params.MaxTokens != nil {
		t.Error("max tokens should be nil when zero")
	}
	if len(params.Messages) != 1 {
		t.Errorf("messages = %d, want 1 without a system prompt", len(params.Messages))
	}
}

func TestModelCapabilities(t *testing.T) {
	tests := []struct {
		model     string
		window    int
		maxOutput int
	}{
		{"gpt-4o-mini", 128_000, 16_384},
		{"claude-3-5-sonnet-latest", 200_000, 8_192},
		{"Claude-3-Opus", 200_000, 8_192},
		{"gemini-1.5-pro", 2_097_152, 8_192},
		{"gemini-2.0-flash", 1_048_576, 8_192},
		{"deepseek-chat", 64_000, 8_192},
		{"mystery-model", 128_000, 4_096},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			caps := modelCapabilities(tt.model)
			if caps.ContextWindow != tt.window {
				t.Errorf("ContextWindow = %d, want %d", caps.ContextWindow, tt.window)
			}
			if caps.MaxOutputTokens != tt.maxOutput {
				t.Errorf("MaxOutputTokens = %d, want %d", caps.MaxOutputTokens, tt.maxOutput)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Error("expected error for empty backend name")
	}
	if _, err := New("openai", ""); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("fakecloud", "some-model", anyllmlib.WithAPIKey("dummy")); err == nil {
		t.Error("expected error for unsupported backend")
	}
}

func TestNew_WithAPIKey(t *testing.T) {
	p, err := New("Anthropic", "claude-3-5-haiku-latest", anyllmlib.WithAPIKey("sk-ant-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.model != "claude-3-5-haiku-latest" {
		t.Errorf("model = %q", p.model)
	}
}

func TestNew_OllamaNoAPIKey(t *testing.T) {
	if _, err := New("ollama", "llama3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBackends_Sorted(t *testing.T) {
	names := Backends()
	if !slices.IsSorted(names) {
		t.Errorf("Backends() not sorted: %v", names)
	}
	if !slices.Contains(names, "anthropic") || !slices.Contains(names, "ollama") {
		t.Errorf("Backends() missing entries: %v", names)
	}
}
