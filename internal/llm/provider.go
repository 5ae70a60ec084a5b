package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/llmxray/internal/factcheck"
	"github.com/ppiankov/llmxray/internal/model"
)

// Provider defines the interface for LLM auditors
type Provider interface {
	// Name returns the provider name
	Name() string

	// FactCheck audits a response and returns its claims with verdicts
	FactCheck(ctx context.Context, req FactCheckRequest) (*FactCheckResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// FactCheckRequest contains the input for an audit
type FactCheckRequest struct {
	// ResponseText is the model output being audited
	ResponseText string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// FactCheckResponse contains the auditor's output
type FactCheckResponse struct {
	// Claims are the audited claims in the order the auditor listed them
	Claims []model.Claim

	// Warnings describe claims dropped in strict quote mode
	Warnings []string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// ErrNoClaims is returned when the auditor's reply holds no claims JSON
var ErrNoClaims = errors.New("no claims JSON in auditor reply")

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "gemini", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic/Gemini
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictQuotes drops claims that are not verbatim quotes of the response
	StrictQuotes bool

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

const systemPrompt = "You are a meticulous fact-checker. You reply with JSON only."

// BuildPrompt constructs the default audit prompt for a response
func BuildPrompt(responseText string) string {
	return fmt.Sprintf(`Audit the following AI-generated response for factual accuracy.

RULES:
1. Extract every checkable factual claim.
2. Each "claim" MUST be copied verbatim from the response, as a short contiguous quote.
3. Give each claim a "verdict": "verified", "uncertain" or "hallucination".
4. Give a one-sentence "reason" for the verdict.
5. List claims in the order they appear in the response.

Reply with exactly this JSON shape and nothing else:
{"claims": [{"claim": "...", "verdict": "verified", "reason": "..."}]}

RESPONSE:
"""
%s
"""`, responseText)
}

// ParseClaims extracts the claims list from an auditor reply. Markdown code
// fences and prose around the JSON object are tolerated.
func ParseClaims(reply string) ([]model.Claim, error) {
	body := strings.TrimSpace(reply)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)

	var wrapped struct {
		Claims []model.Claim `json:"claims"`
	}

	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(body[start:end+1]), &wrapped); err == nil && wrapped.Claims != nil {
			return wrapped.Claims, nil
		}
	}

	// Some models drop the wrapper object
	if start, end := strings.Index(body, "["), strings.LastIndex(body, "]"); start >= 0 && end > start {
		var claims []model.Claim
		if err := json.Unmarshal([]byte(body[start:end+1]), &claims); err == nil {
			return claims, nil
		}
	}

	return nil, ErrNoClaims
}

// normalizeClaims cleans verdict spelling and, in strict mode, drops claims
// that do not occur in the response
func normalizeClaims(responseText string, claims []model.Claim, strict bool) ([]model.Claim, []string) {
	kept := make([]model.Claim, 0, len(claims))
	var warnings []string

	for _, c := range claims {
		c.Text = strings.TrimSpace(c.Text)
		c.Verdict = model.Verdict(strings.ToLower(strings.TrimSpace(string(c.Verdict))))

		if c.Text == "" {
			warnings = append(warnings, "dropped claim with empty text")
			continue
		}
		if strict && !factcheck.Occurs(responseText, c.Text) {
			warnings = append(warnings, fmt.Sprintf("QUOTE LEAK: claim is not in the response: %q", c.Text))
			continue
		}
		kept = append(kept, c)
	}

	return kept, warnings
}

// finishFactCheck turns a raw auditor reply into a response
func finishFactCheck(req FactCheckRequest, reply string, strict bool) (*FactCheckResponse, error) {
	claims, err := ParseClaims(reply)
	if err != nil {
		return nil, err
	}
	claims, warnings := normalizeClaims(req.ResponseText, claims, strict)
	return &FactCheckResponse{Claims: claims, Warnings: warnings}, nil
}

// promptFor returns the custom prompt or the default audit prompt
func promptFor(req FactCheckRequest) string {
	if req.Prompt != "" {
		return req.Prompt
	}
	return BuildPrompt(req.ResponseText)
}

// maxTokensFor resolves the token limit from the request and config
func maxTokensFor(req FactCheckRequest, config Config) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if config.MaxTokens > 0 {
		return config.MaxTokens
	}
	return 2000
}
