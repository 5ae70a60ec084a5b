package factcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/llmxray/internal/cache"
	"github.com/ppiankov/llmxray/internal/model"
	"go.uber.org/zap"
)

// Checker audits a response and returns the claims it found
type Checker interface {
	Check(ctx context.Context, responseText string) ([]model.Claim, error)
}

// Counts tallies claims per known verdict
type Counts map[model.Verdict]int

// Tally counts claims by verdict. Unknown verdicts are not counted.
func Tally(claims []model.Claim) Counts {
	counts := Counts{}
	for _, v := range model.Verdicts {
		counts[v] = 0
	}
	for _, c := range claims {
		if c.Verdict.Known() {
			counts[c.Verdict]++
		}
	}
	return counts
}

// Result is a fact-checked response ready for rendering
type Result struct {
	Text   string               `json:"text"`
	Claims []model.Claim        `json:"claims"`
	Runs   []model.HighlightRun `json:"runs"`
	Counts Counts               `json:"counts"`
}

// Analyze runs checker over text and segments the text with the claims
func Analyze(ctx context.Context, checker Checker, text string) (*Result, error) {
	claims, err := checker.Check(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("fact check: %w", err)
	}
	return &Result{
		Text:   text,
		Claims: claims,
		Runs:   Segment(text, claims),
		Counts: Tally(claims),
	}, nil
}

// Cached memoizes a Checker by response text
type Cached struct {
	next   Checker
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCached wraps next with c. A zero ttl uses the cache's default.
func NewCached(next Checker, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{next: next, cache: c, ttl: ttl, logger: logger}
}

// Check returns cached claims for responseText or asks the wrapped checker
func (c *Cached) Check(ctx context.Context, responseText string) ([]model.Claim, error) {
	key := cache.CacheKey(responseText)

	if data, found := c.cache.Get(key); found {
		var claims []model.Claim
		if err := json.Unmarshal(data, &claims); err == nil {
			c.logger.Debug("fact check cache hit", zap.String("key", key))
			return claims, nil
		}
		_ = c.cache.Delete(key)
	}

	claims, err := c.next.Check(ctx, responseText)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("marshal claims: %w", err)
	}
	if err := c.cache.Set(key, data, c.ttl); err != nil {
		c.logger.Warn("fact check cache write failed", zap.Error(err))
	}

	return claims, nil
}
