package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/llmxray/internal/factcheck"
	"github.com/ppiankov/llmxray/internal/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *FactCheckResponse
	err       error
	requests  []FactCheckRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) FactCheck(ctx context.Context, req FactCheckRequest) (*FactCheckResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func TestParseClaims(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    int
		wantErr bool
	}{
		{"wrapped", `{"claims": [{"claim": "a", "verdict": "verified"}]}`, 1, false},
		{"fenced", "```json\n{\"claims\": [{\"claim\": \"a\"}, {\"claim\": \"b\"}]}\n```", 2, false},
		{"bare fence", "```\n{\"claims\": []}\n```", 0, false},
		{"prose around", `Here you go: {"claims": [{"claim": "a"}]} Hope it helps.`, 1, false},
		{"bare array", `[{"claim": "a"}, {"claim": "b"}, {"claim": "c"}]`, 3, false},
		{"no json", "I could not find any claims.", 0, true},
		{"wrong shape", `{"result": "ok"}`, 0, true},
		{"broken", `{"claims": [{"claim": "a"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ParseClaims(tt.reply)
			if tt.wantErr {
				if !errors.Is(err, ErrNoClaims) {
					t.Fatalf("Expected ErrNoClaims, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClaims failed: %v", err)
			}
			if len(claims) != tt.want {
				t.Errorf("Expected %d claims, got %d", tt.want, len(claims))
			}
		})
	}
}

func TestNormalizeClaims(t *testing.T) {
	text := "The Eiffel Tower is in Paris and opened in 1889."
	claims := []model.Claim{
		{Text: "  eiffel tower is in paris ", Verdict: " VERIFIED "},
		{Text: "opened in 1887", Verdict: "hallucination"},
		{Text: "", Verdict: "uncertain"},
		{Text: "1889", Verdict: "mostly-true"},
	}

	kept, warnings := normalizeClaims(text, claims, true)
	if len(kept) != 2 {
		t.Fatalf("Expected 2 claims kept, got %+v", kept)
	}
	if kept[0].Text != "eiffel tower is in paris" || kept[0].Verdict != model.VerdictVerified {
		t.Errorf("Unexpected first claim: %+v", kept[0])
	}
	if kept[1].Verdict != "mostly-true" {
		t.Errorf("Unknown verdicts should pass through, got %q", kept[1].Verdict)
	}
	if len(warnings) != 2 {
		t.Errorf("Expected 2 warnings, got %v", warnings)
	}

	kept, warnings = normalizeClaims(text, claims, false)
	if len(kept) != 3 {
		t.Errorf("Expected 3 claims without strict quotes, got %+v", kept)
	}
	if len(warnings) != 1 {
		t.Errorf("Expected only the empty claim warning, got %v", warnings)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("Mars has two moons.")
	for _, want := range []string{"Mars has two moons.", `"claims"`, "verbatim", "hallucination"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q", want)
		}
	}
}

func TestMaxTokensFor(t *testing.T) {
	if got := maxTokensFor(FactCheckRequest{MaxTokens: 10}, Config{MaxTokens: 20}); got != 10 {
		t.Errorf("Expected request limit, got %d", got)
	}
	if got := maxTokensFor(FactCheckRequest{}, Config{MaxTokens: 20}); got != 20 {
		t.Errorf("Expected config limit, got %d", got)
	}
	if got := maxTokensFor(FactCheckRequest{}, Config{}); got != 2000 {
		t.Errorf("Expected default limit, got %d", got)
	}
}

func TestChecker(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	mock := &MockProvider{
		name: "mock",
		response: &FactCheckResponse{
			Claims:   []model.Claim{{Text: "sky", Verdict: model.VerdictVerified}},
			Warnings: []string{"QUOTE LEAK: claim is not in the response: \"moon\""},
		},
	}

	var checker factcheck.Checker = NewChecker(mock, zap.New(core))
	claims, err := checker.Check(context.Background(), "The sky")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if len(claims) != 1 || claims[0].Text != "sky" {
		t.Errorf("Unexpected claims: %+v", claims)
	}
	if len(mock.requests) != 1 || mock.requests[0].ResponseText != "The sky" {
		t.Errorf("Unexpected requests: %+v", mock.requests)
	}
	if logs.FilterMessageSnippet("QUOTE LEAK").Len() != 1 {
		t.Errorf("Expected the quote leak warning to be logged, got %v", logs.All())
	}
}

func TestChecker_Error(t *testing.T) {
	checker := NewChecker(&MockProvider{name: "mock", err: errors.New("quota exceeded")}, nil)
	if _, err := checker.Check(context.Background(), "x"); err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	provider, err := NewProvider(ctx, Config{})
	if err != nil || provider != nil {
		t.Errorf("Expected disabled provider, got %v, %v", provider, err)
	}

	if _, err := NewProvider(ctx, Config{Provider: "mystery"}); err == nil {
		t.Error("Expected error for unknown provider")
	}

	cases := map[string]string{
		"openai":    "openai",
		"Anthropic": "anthropic",
		"claude":    "anthropic",
		"ollama":    "ollama",
		"gemini":    "gemini",
		"google":    "gemini",
	}
	for name, want := range cases {
		provider, err := NewProvider(ctx, Config{Provider: name, APIKey: "k"})
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if provider.Name() != want {
			t.Errorf("%s: expected %s, got %s", name, want, provider.Name())
		}
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Model = "llama3.1"
	cfg.HTTP.HTTPSProxy = "http://proxy:3128"

	got := ConfigFromModel(cfg)
	if got.Provider != "ollama" || got.Model != "llama3.1" {
		t.Errorf("Unexpected provider config: %+v", got)
	}
	if !got.StrictQuotes {
		t.Error("Expected strict quotes by default")
	}
	if got.HTTPSProxy != "http://proxy:3128" {
		t.Errorf("Expected proxy to carry over, got %q", got.HTTPSProxy)
	}
}
